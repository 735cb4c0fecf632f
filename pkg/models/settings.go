package models

import "time"

// AccessTier is the application-wide access policy.
type AccessTier string

const (
	AccessAll       AccessTier = "ALL_ACCESS"
	AccessFreeOnly  AccessTier = "FREE_ONLY"
	AccessFreeBasic AccessTier = "FREE_BASIC"
)

// PromptSet is one family of prompt templates. Templates use
// {chapter}, {subject}, {class} and {count} placeholders.
type PromptSet struct {
	Notes        string `json:"notes,omitempty"`
	NotesPremium string `json:"notesPremium,omitempty"`
	MCQ          string `json:"mcq,omitempty"`
}

// AutoPilotConfig narrows what the unattended generation run targets.
// Empty slices mean "everything".
type AutoPilotConfig struct {
	TargetBoards    []Board       `json:"targetBoards,omitempty"`
	TargetClasses   []ClassLevel  `json:"targetClasses,omitempty"`
	TargetSubjects  []string      `json:"targetSubjects,omitempty"`
	ContentTypes    []ContentType `json:"contentTypes,omitempty"`
	RequireApproval bool          `json:"requireApproval,omitempty"`
}

// WeeklyTest is an admin-published test composed of generated questions.
type WeeklyTest struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Class     ClassLevel `json:"classLevel"`
	Subject   string     `json:"subject"`
	Questions []MCQItem  `json:"questions"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// DailyChallenge is a single published challenge question.
type DailyChallenge struct {
	ID       string     `json:"id"`
	Board    Board      `json:"board"`
	Class    ClassLevel `json:"classLevel"`
	Question MCQItem    `json:"question"`
	Date     string     `json:"date"`
}

// AnalysisLog is one recorded test-analysis event. The app appends these as
// students finish analyzed tests; the morning insight digests them.
type AnalysisLog struct {
	Subject        string    `json:"subject"`
	Chapter        string    `json:"chapter"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	HasAIReview    bool      `json:"hasAiReview,omitempty"`
	Date           time.Time `json:"date"`
}

// InsightBanner is the morning insight shown on the student home screen,
// digested from recent analysis activity.
type InsightBanner struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Wisdom     string `json:"wisdom"`
	CommonTrap string `json:"commonTrap"`
	ProTip     string `json:"proTip"`
	Motivation string `json:"motivation"`
	Date       string `json:"date"`
}

// SystemSettings is the global settings document.
type SystemSettings struct {
	AIModel       string `json:"aiModel,omitempty"`
	AIInstruction string `json:"aiInstruction,omitempty"`

	// Quota controls. Zero values fall back to package defaults.
	AIPilotRatio    int `json:"aiPilotRatio,omitempty"`
	AIDailyLimitKey int `json:"aiDailyLimitPerKey,omitempty"`

	AISafetyLock       bool `json:"aiSafetyLock,omitempty"`
	IsAutoPilotEnabled bool `json:"isAutoPilotEnabled,omitempty"`

	AutoPilot AutoPilotConfig `json:"autoPilotConfig,omitempty"`

	AccessTier AccessTier `json:"accessTier,omitempty"`

	// TierPermissions overrides the built-in per-level allow-lists when
	// present. The literal "ALL" grants every type.
	TierPermissions map[SubscriptionLevel][]string `json:"tierPermissions,omitempty"`

	// Prompt template matrix: school/competition crossed with the
	// board-specific variants. Empty templates fall back along
	// board-specific -> mode-specific -> built-in defaults.
	Prompts                PromptSet `json:"prompts,omitempty"`
	PromptsCBSE            PromptSet `json:"promptsCbse,omitempty"`
	PromptsCompetition     PromptSet `json:"promptsCompetition,omitempty"`
	PromptsCompetitionCBSE PromptSet `json:"promptsCompetitionCbse,omitempty"`

	NoticeText string `json:"noticeText,omitempty"`

	WeeklyTests     []WeeklyTest     `json:"weeklyTests,omitempty"`
	DailyChallenges []DailyChallenge `json:"dailyChallenges,omitempty"`

	MorningBanner *InsightBanner `json:"morningBanner,omitempty"`

	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

const (
	// DefaultPilotRatio is the percentage of daily quota reserved for
	// unattended generation when settings carry no override.
	DefaultPilotRatio = 80
	// DefaultDailyLimitPerKey is the per-key request allowance used to
	// size the daily capacity.
	DefaultDailyLimitPerKey = 1500
)

// PilotRatio returns the configured pilot share, clamped to [0,100].
func (s *SystemSettings) PilotRatio() int {
	r := s.AIPilotRatio
	if r <= 0 {
		return DefaultPilotRatio
	}
	if r > 100 {
		return 100
	}
	return r
}

// DailyLimitPerKey returns the configured per-key allowance or the default.
func (s *SystemSettings) DailyLimitPerKey() int {
	if s.AIDailyLimitKey <= 0 {
		return DefaultDailyLimitPerKey
	}
	return s.AIDailyLimitKey
}

// TemplateFor picks the most specific non-empty prompt template for the
// given mode and board, falling back across the matrix. Returns "" when no
// template is configured anywhere.
func (s *SystemSettings) TemplateFor(mode SyllabusMode, board Board, pick func(PromptSet) string) string {
	var chain []PromptSet
	if mode == ModeCompetition {
		if board == BoardCBSE {
			chain = append(chain, s.PromptsCompetitionCBSE)
		}
		chain = append(chain, s.PromptsCompetition)
	} else if board == BoardCBSE {
		chain = append(chain, s.PromptsCBSE)
	}
	chain = append(chain, s.Prompts)
	for _, set := range chain {
		if t := pick(set); t != "" {
			return t
		}
	}
	return ""
}

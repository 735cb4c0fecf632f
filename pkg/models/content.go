package models

import "time"

// ContentType is the closed set of deliverable content kinds.
type ContentType string

const (
	PDFFree       ContentType = "PDF_FREE"
	PDFPremium    ContentType = "PDF_PREMIUM"
	PDFUltra      ContentType = "PDF_ULTRA"
	NotesSimple   ContentType = "NOTES_SIMPLE"
	NotesPremium  ContentType = "NOTES_PREMIUM"
	NotesImageAI  ContentType = "NOTES_IMAGE_AI"
	MCQSimple     ContentType = "MCQ_SIMPLE"
	MCQAnalysis   ContentType = "MCQ_ANALYSIS"
	VideoLecture  ContentType = "VIDEO_LECTURE"
)

// defaultCreditCosts is the baseline credit price per content type.
// A record-level price override takes precedence.
var defaultCreditCosts = map[ContentType]int{
	PDFFree:      0,
	NotesSimple:  0,
	PDFPremium:   5,
	PDFUltra:     10,
	NotesPremium: 5,
	NotesImageAI: 5,
	MCQSimple:    2,
	MCQAnalysis:  5,
	VideoLecture: 5,
}

// DefaultCost returns the baseline credit cost for the type.
func (t ContentType) DefaultCost() int {
	return defaultCreditCosts[t]
}

// IsLinkBased reports whether the type is served purely from an admin-managed
// link. Link-based types never fall through to AI generation.
func (t ContentType) IsLinkBased() bool {
	switch t {
	case PDFFree, PDFPremium, PDFUltra, VideoLecture, NotesImageAI:
		return true
	}
	return false
}

// IsMCQ reports whether the type is a question set.
func (t ContentType) IsMCQ() bool {
	return t == MCQSimple || t == MCQAnalysis
}

// MCQItem is a single multiple-choice question.
type MCQItem struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
	Mnemonic      string   `json:"mnemonic,omitempty"`
	Concept       string   `json:"concept,omitempty"`
}

// ContentRecord is the loosely-schemed per-chapter document stored under a
// content key. Every field is optional; older records carry only the legacy
// fields. Unknown fields in stored JSON are ignored on decode.
type ContentRecord struct {
	// Mode-scoped PDF links.
	SchoolPDFLink             string `json:"schoolPdfLink,omitempty"`
	SchoolPDFPremiumLink      string `json:"schoolPdfPremiumLink,omitempty"`
	CompetitionPDFLink        string `json:"competitionPdfLink,omitempty"`
	CompetitionPDFPremiumLink string `json:"competitionPdfPremiumLink,omitempty"`

	// Mode-scoped HTML notes, with Hindi variants for the premium tier.
	SchoolFreeNotesHTML            string `json:"schoolFreeNotesHtml,omitempty"`
	SchoolPremiumNotesHTML         string `json:"schoolPremiumNotesHtml,omitempty"`
	SchoolPremiumNotesHindi        string `json:"schoolPremiumNotesHtml_HI,omitempty"`
	CompetitionFreeNotesHTML       string `json:"competitionFreeNotesHtml,omitempty"`
	CompetitionPremiumNotesHTML    string `json:"competitionPremiumNotesHtml,omitempty"`
	CompetitionPremiumNotesHindi   string `json:"competitionPremiumNotesHtml_HI,omitempty"`

	// Legacy mode-agnostic fields, read as fallback only.
	FreeLink         string `json:"freeLink,omitempty"`
	PremiumLink      string `json:"premiumLink,omitempty"`
	FreeNotesHTML    string `json:"freeNotesHtml,omitempty"`
	PremiumNotesHTML string `json:"premiumNotesHtml,omitempty"`

	UltraPDFLink string `json:"ultraPdfLink,omitempty"`

	AIImageLink  string `json:"aiImageLink,omitempty"`
	AIImagePrice *int   `json:"aiImagePrice,omitempty"`

	FreeVideoLink    string   `json:"freeVideoLink,omitempty"`
	PremiumVideoLink string   `json:"premiumVideoLink,omitempty"`
	VideoPlaylist    []string `json:"videoPlaylist,omitempty"`
	VideoCreditsCost *int     `json:"videoCreditsCost,omitempty"`

	ManualMCQ      []MCQItem `json:"manualMcqData,omitempty"`
	ManualMCQHindi []MCQItem `json:"manualMcqData_HI,omitempty"`

	Price     *int `json:"price,omitempty"`
	IsPremium bool `json:"is_premium,omitempty"`
	IsFree    bool `json:"is_free,omitempty"`
	IsDraft   bool `json:"isDraft,omitempty"`

	UpdatedAt string `json:"updatedAt,omitempty"`
}

// ModeFields is the per-mode projection of a content record. Legacy fields
// fill any gap so that records written before the school/competition split
// keep resolving.
type ModeFields struct {
	PDFLink           string
	PDFPremiumLink    string
	FreeNotesHTML     string
	PremiumNotesHTML  string
	PremiumNotesHindi string
}

// Fields projects the record onto the given syllabus mode.
func (r *ContentRecord) Fields(mode SyllabusMode) ModeFields {
	var f ModeFields
	if mode == ModeCompetition {
		f = ModeFields{
			PDFLink:           r.CompetitionPDFLink,
			PDFPremiumLink:    r.CompetitionPDFPremiumLink,
			FreeNotesHTML:     r.CompetitionFreeNotesHTML,
			PremiumNotesHTML:  r.CompetitionPremiumNotesHTML,
			PremiumNotesHindi: r.CompetitionPremiumNotesHindi,
		}
	} else {
		f = ModeFields{
			PDFLink:           r.SchoolPDFLink,
			PDFPremiumLink:    r.SchoolPDFPremiumLink,
			FreeNotesHTML:     r.SchoolFreeNotesHTML,
			PremiumNotesHTML:  r.SchoolPremiumNotesHTML,
			PremiumNotesHindi: r.SchoolPremiumNotesHindi,
		}
	}
	if f.PDFLink == "" {
		f.PDFLink = r.FreeLink
	}
	if f.PDFPremiumLink == "" {
		f.PDFPremiumLink = r.PremiumLink
	}
	if f.FreeNotesHTML == "" {
		f.FreeNotesHTML = r.FreeNotesHTML
	}
	if f.PremiumNotesHTML == "" {
		f.PremiumNotesHTML = r.PremiumNotesHTML
	}
	return f
}

// ApplyNotes writes generated premium and free notes into the record's
// field family for the given mode.
func (r *ContentRecord) ApplyNotes(mode SyllabusMode, premiumHTML, freeHTML, premiumHindi string) {
	if mode == ModeCompetition {
		if premiumHTML != "" {
			r.CompetitionPremiumNotesHTML = premiumHTML
		}
		if freeHTML != "" {
			r.CompetitionFreeNotesHTML = freeHTML
		}
		if premiumHindi != "" {
			r.CompetitionPremiumNotesHindi = premiumHindi
		}
		return
	}
	if premiumHTML != "" {
		r.SchoolPremiumNotesHTML = premiumHTML
	}
	if freeHTML != "" {
		r.SchoolFreeNotesHTML = freeHTML
	}
	if premiumHindi != "" {
		r.SchoolPremiumNotesHindi = premiumHindi
	}
}

// CostFor returns the effective credit cost of serving the given type from
// this record, honoring record-level price overrides.
func (r *ContentRecord) CostFor(t ContentType) int {
	if r != nil {
		switch t {
		case NotesImageAI:
			if r.AIImagePrice != nil {
				return *r.AIImagePrice
			}
		case VideoLecture:
			if r.VideoCreditsCost != nil {
				return *r.VideoCreditsCost
			}
		default:
			if r.Price != nil {
				return *r.Price
			}
		}
		if r.IsFree {
			return 0
		}
	}
	return t.DefaultCost()
}

// LessonContent is the resolved deliverable for one chapter and type.
type LessonContent struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Subtitle    string      `json:"subtitle,omitempty"`
	Type        ContentType `json:"type"`
	SubjectName string      `json:"subjectName,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`

	// Exactly one of the payload groups below is populated.
	Link     string    `json:"link,omitempty"`
	Playlist []string  `json:"videoPlaylist,omitempty"`
	HTML     string    `json:"html,omitempty"`
	MCQ      []MCQItem `json:"mcqData,omitempty"`
	MCQHindi []MCQItem `json:"mcqData_HI,omitempty"`

	// Companion variants carried alongside the primary payload.
	FreeHTML          string `json:"freeHtml,omitempty"`
	PremiumNotesHindi string `json:"premiumNotesHtml_HI,omitempty"`

	// Unavailable marks a terminal miss: nothing stored and generation
	// not applicable or not permitted.
	Unavailable bool `json:"isComingSoon,omitempty"`

	// Generated marks AI-produced (as opposed to admin-uploaded) content.
	Generated bool `json:"aiGenerated,omitempty"`

	IsDraft bool `json:"isDraft,omitempty"`
}

package content

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shiksha-ai/study-engine/pkg/bulk"
	"github.com/shiksha-ai/study-engine/pkg/llm"
	"github.com/shiksha-ai/study-engine/pkg/models"
	"github.com/shiksha-ai/study-engine/pkg/quota"
	"github.com/shiksha-ai/study-engine/pkg/settings"
	"github.com/shiksha-ai/study-engine/pkg/store"
)

// minQuestionCount is the floor applied to every MCQ request.
const minQuestionCount = 20

// mcqBatchThreshold is the largest single-call question count; bigger
// requests split into batches.
const (
	mcqBatchThreshold = 30
	mcqBatchSize      = 20
)

// CompletionClient is the slice of the completion client the generator
// needs.
type CompletionClient interface {
	Complete(ctx context.Context, messages []llm.Message, model string) (string, error)
	CompleteStream(ctx context.Context, messages []llm.Message, model string, onChunk func(accumulated string)) (string, error)
}

// Request describes one resolve-or-generate call.
type Request struct {
	Target   Target
	Type     models.ContentType
	Language models.Language
	Mode     models.SyllabusMode

	// QuestionCount is the desired MCQ count; floored to 20.
	QuestionCount int

	// PromptOverride replaces the settings/default template when set.
	PromptOverride string

	// AllowGeneration permits falling through to AI generation on a
	// store miss. When false a miss yields Unavailable content.
	AllowGeneration bool

	// ForceRegenerate skips stored payloads (manual MCQ still wins).
	ForceRegenerate bool

	// DualGeneration produces premium and free notes in one call.
	DualGeneration bool

	// WithHindiVariant adds a best-effort Hindi translation of premium
	// notes generated in English.
	WithHindiVariant bool

	// Usage selects the quota category; defaults to student.
	Usage store.UsageCategory

	// OnStream, when set, receives accumulated text as notes stream in.
	OnStream func(accumulated string)
}

// Generator is the resolve-or-generate entry point for chapter content.
type Generator struct {
	resolver       *Resolver
	settings       settings.Service
	client         CompletionClient
	quota          *quota.Controller
	mcqConcurrency int
	logger         *zap.Logger
}

// NewGenerator wires the generation pipeline. mcqConcurrency caps parallel
// question batches per request.
func NewGenerator(resolver *Resolver, settingsSvc settings.Service, client CompletionClient, qc *quota.Controller, mcqConcurrency int, logger *zap.Logger) *Generator {
	if mcqConcurrency < 1 {
		mcqConcurrency = 1
	}
	return &Generator{
		resolver:       resolver,
		settings:       settingsSvc,
		client:         client,
		quota:          qc,
		mcqConcurrency: mcqConcurrency,
		logger:         logger.Named("generator"),
	}
}

// ResolveOrGenerate serves stored content when available and otherwise
// generates it. A miss never becomes an error: content the system cannot
// produce comes back with Unavailable set.
func (g *Generator) ResolveOrGenerate(ctx context.Context, req Request) (*models.LessonContent, error) {
	if req.Usage == "" {
		req.Usage = store.UsageStudent
	}

	res := g.resolver.Resolve(ctx, req.Target, req.Type, req.Mode, req.ForceRegenerate)
	if res.Content != nil {
		return res.Content, nil
	}

	if !req.AllowGeneration {
		return g.unavailable(req), nil
	}

	s, err := g.settings.Current(ctx)
	if err != nil {
		g.logger.Warn("Settings unavailable, generating with defaults", zap.Error(err))
		s = &models.SystemSettings{}
	}

	if req.Type.IsMCQ() {
		return g.generateMCQ(ctx, req, s)
	}
	return g.generateNotes(ctx, req, s)
}

func (g *Generator) unavailable(req Request) *models.LessonContent {
	lesson := &models.LessonContent{
		ID:          uuid.NewString(),
		Title:       req.Target.Chapter.Title,
		Type:        req.Type,
		SubjectName: req.Target.Subject.Name,
		CreatedAt:   time.Now().UTC(),
		Unavailable: true,
	}
	return lesson
}

// complete runs one quota-guarded completion, streaming when requested.
func (g *Generator) complete(ctx context.Context, usage store.UsageCategory, messages []llm.Message, model string, onStream func(string)) (string, error) {
	return quota.Execute(ctx, g.quota, usage, func(ctx context.Context) (string, error) {
		if onStream != nil {
			return g.client.CompleteStream(ctx, messages, model, onStream)
		}
		return g.client.Complete(ctx, messages, model)
	})
}

func systemMessage(base, instruction string) llm.Message {
	content := base
	if instruction != "" {
		content += "\n\nAdditional instruction from the administrator: " + instruction
	}
	return llm.Message{Role: llm.RoleSystem, Content: content}
}

// --- notes ---

func (g *Generator) generateNotes(ctx context.Context, req Request, s *models.SystemSettings) (*models.LessonContent, error) {
	premium := req.Type == models.NotesPremium
	model := s.AIModel
	sys := systemMessage(notesSystemPrompt, s.AIInstruction)

	var premiumHTML, freeHTML string

	if req.DualGeneration {
		base := g.notesTemplate(req, s, true)
		prompt := fmt.Sprintf(dualWrapper, premiumMarker, summaryMarker,
			renderTemplate(base, req.Target, req.Language, 0))

		text, err := g.complete(ctx, req.Usage, []llm.Message{sys, {Role: llm.RoleUser, Content: prompt}}, model, req.OnStream)
		if err != nil {
			return nil, err
		}
		premiumHTML, freeHTML = splitDualOutput(text)
	} else {
		base := g.notesTemplate(req, s, premium)
		prompt := renderTemplate(base, req.Target, req.Language, 0)

		text, err := g.complete(ctx, req.Usage, []llm.Message{sys, {Role: llm.RoleUser, Content: prompt}}, model, req.OnStream)
		if err != nil {
			return nil, err
		}
		if premium {
			premiumHTML = text
		} else {
			freeHTML = text
		}
	}

	var hindi string
	if req.WithHindiVariant && req.Language == models.LanguageEnglish && premiumHTML != "" {
		translated, err := g.translateToHindi(ctx, req.Usage, premiumHTML, model)
		if err != nil {
			// Translation is best-effort; the English notes still ship.
			g.logger.Warn("Hindi translation failed",
				zap.String("chapter", req.Target.Chapter.Title),
				zap.Error(err))
		} else {
			hindi = translated
		}
	}

	lesson := g.unavailable(req)
	lesson.Unavailable = false
	lesson.Generated = true
	lesson.Subtitle = req.Target.Chapter.Description
	lesson.FreeHTML = freeHTML
	lesson.PremiumNotesHindi = hindi
	if premium || req.DualGeneration {
		lesson.HTML = premiumHTML
	} else {
		lesson.HTML = freeHTML
	}
	return lesson, nil
}

// notesTemplate picks override > settings matrix > built-in default.
func (g *Generator) notesTemplate(req Request, s *models.SystemSettings, premium bool) string {
	if req.PromptOverride != "" {
		return req.PromptOverride
	}

	pick := func(p models.PromptSet) string { return p.Notes }
	if premium {
		pick = func(p models.PromptSet) string { return p.NotesPremium }
	}
	if tpl := s.TemplateFor(req.Mode, req.Target.Board, pick); tpl != "" {
		return tpl
	}

	if req.Mode == models.ModeCompetition {
		return defaultCompetitionNotesTemplate
	}
	if premium {
		return defaultPremiumNotesTemplate
	}
	return defaultFreeNotesTemplate
}

func (g *Generator) translateToHindi(ctx context.Context, usage store.UsageCategory, html, model string) (string, error) {
	prompt := fmt.Sprintf(translationTemplate, html)
	return g.complete(ctx, usage, []llm.Message{
		{Role: llm.RoleSystem, Content: notesSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}, model, nil)
}

// --- MCQ ---

func (g *Generator) generateMCQ(ctx context.Context, req Request, s *models.SystemSettings) (*models.LessonContent, error) {
	count := req.QuestionCount
	if count < minQuestionCount {
		count = minQuestionCount
	}

	tpl := req.PromptOverride
	if tpl == "" {
		tpl = s.TemplateFor(req.Mode, req.Target.Board, func(p models.PromptSet) string { return p.MCQ })
	}
	if tpl == "" {
		tpl = defaultMCQTemplate
	}

	sys := systemMessage(mcqSystemPrompt, s.AIInstruction)
	model := s.AIModel

	var items []models.MCQItem
	if count <= mcqBatchThreshold {
		prompt := renderTemplate(tpl, req.Target, req.Language, count)
		text, err := g.complete(ctx, req.Usage, []llm.Message{sys, {Role: llm.RoleUser, Content: prompt}}, model, nil)
		if err != nil {
			return nil, err
		}
		decoded, err := decodeMCQList(text)
		if err != nil {
			return nil, err
		}
		items = decoded
	} else {
		items = g.generateMCQBatches(ctx, req, sys, tpl, model, count)
		if len(items) == 0 {
			return nil, fmt.Errorf("all question batches failed")
		}
	}

	items = dedupeMCQ(items)
	if len(items) > count {
		items = items[:count]
	}

	lesson := g.unavailable(req)
	lesson.Unavailable = false
	lesson.Generated = true
	lesson.MCQ = items
	return lesson, nil
}

// generateMCQBatches fans a large request out into batches of at most 20
// questions. Failed batches are dropped; survivors merge in batch order.
// Each batch call is individually quota-guarded and counted.
func (g *Generator) generateMCQBatches(ctx context.Context, req Request, sys llm.Message, tpl, model string, count int) []models.MCQItem {
	batches := (count + mcqBatchSize - 1) / mcqBatchSize

	tasks := make([]bulk.Task[[]models.MCQItem], batches)
	for i := 0; i < batches; i++ {
		batchCount := mcqBatchSize
		if remaining := count - i*mcqBatchSize; remaining < batchCount {
			batchCount = remaining
		}
		setHint := fmt.Sprintf("\nThis is set %d of %d for the same chapter; do not repeat questions from other sets.", i+1, batches)
		prompt := renderTemplate(tpl, req.Target, req.Language, batchCount) + setHint

		tasks[i] = func(ctx context.Context) ([]models.MCQItem, error) {
			text, err := g.complete(ctx, req.Usage, []llm.Message{sys, {Role: llm.RoleUser, Content: prompt}}, model, nil)
			if err != nil {
				return nil, err
			}
			return decodeMCQList(text)
		}
	}

	g.logger.Info("Generating question batches",
		zap.Int("requested", count),
		zap.Int("batches", batches))

	// Usage accounting happens inside the quota controller per batch, so
	// no per-success callback is needed here.
	batchResults := bulk.RunAll(ctx, g.logger, tasks, g.mcqConcurrency, nil)

	var merged []models.MCQItem
	for _, batch := range batchResults {
		merged = append(merged, batch...)
	}
	return merged
}

// --- supplements ---

// GenerateUltraAnalysis turns raw test performance data into a structured
// JSON coaching report.
func (g *Generator) GenerateUltraAnalysis(ctx context.Context, performanceJSON string) (string, error) {
	s, err := g.settings.Current(ctx)
	if err != nil {
		s = &models.SystemSettings{}
	}

	prompt := fmt.Sprintf(ultraAnalysisTemplate, performanceJSON)
	text, err := g.complete(ctx, store.UsageStudent, []llm.Message{
		systemMessage(mcqSystemPrompt, s.AIInstruction),
		{Role: llm.RoleUser, Content: prompt},
	}, s.AIModel, nil)
	if err != nil {
		return "", err
	}
	return CleanJSONFences(text), nil
}

// GenerateMorningInsight digests recent analysis activity into the banner
// students see at the top of the home screen.
func (g *Generator) GenerateMorningInsight(ctx context.Context, samples []models.AnalysisLog) (*models.InsightBanner, error) {
	s, err := g.settings.Current(ctx)
	if err != nil {
		s = &models.SystemSettings{}
	}

	data, err := json.Marshal(samples)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis samples: %w", err)
	}

	prompt := fmt.Sprintf(morningInsightTemplate, data)
	text, err := g.complete(ctx, store.UsagePilot, []llm.Message{
		systemMessage(insightSystemPrompt, s.AIInstruction),
		{Role: llm.RoleUser, Content: prompt},
	}, s.AIModel, nil)
	if err != nil {
		return nil, err
	}

	banner := &models.InsightBanner{}
	if err := json.Unmarshal([]byte(CleanJSONFences(text)), banner); err != nil {
		return nil, fmt.Errorf("model returned malformed insight JSON: %w", err)
	}
	banner.ID = uuid.NewString()
	banner.Date = time.Now().UTC().Format("2006-01-02")
	return banner, nil
}

// GenerateCustomNotes produces one-off notes on a free-form topic.
func (g *Generator) GenerateCustomNotes(ctx context.Context, topic string, class models.ClassLevel, language models.Language, onStream func(string)) (*models.LessonContent, error) {
	s, err := g.settings.Current(ctx)
	if err != nil {
		s = &models.SystemSettings{}
	}

	target := Target{Class: class, Chapter: models.Chapter{Title: topic}}
	prompt := renderTemplate(customNotesTemplate, target, language, 0)

	text, err := g.complete(ctx, store.UsageStudent, []llm.Message{
		systemMessage(notesSystemPrompt, s.AIInstruction),
		{Role: llm.RoleUser, Content: prompt},
	}, s.AIModel, onStream)
	if err != nil {
		return nil, err
	}

	return &models.LessonContent{
		ID:        uuid.NewString(),
		Title:     topic,
		Type:      models.NotesSimple,
		CreatedAt: time.Now().UTC(),
		HTML:      text,
		Generated: true,
	}, nil
}

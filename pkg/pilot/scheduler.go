// Package pilot runs bulk content generation: the unattended Auto-Pilot
// sweep, admin-targeted Command Mode, and the daily challenge loop.
package pilot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shiksha-ai/study-engine/pkg/apperrors"
	"github.com/shiksha-ai/study-engine/pkg/bulk"
	"github.com/shiksha-ai/study-engine/pkg/content"
	"github.com/shiksha-ai/study-engine/pkg/models"
	"github.com/shiksha-ai/study-engine/pkg/settings"
	"github.com/shiksha-ai/study-engine/pkg/store"
)

// RunStatus is the terminal status of a bulk run.
type RunStatus string

const (
	StatusCompleted RunStatus = "COMPLETED"
	StatusAborted   RunStatus = "ABORTED"
)

// Report summarizes one bulk run.
type Report struct {
	Status    RunStatus `json:"status"`
	Generated int       `json:"generated"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
}

// guidebookTemplate is the richer premium-notes prompt used by bulk runs
// when the admin has not configured a template of their own.
const guidebookTemplate = "Write a complete chapter guidebook in {language} for \"{chapter}\" " +
	"({subject}, class {class}, {board} board). Structure it as: chapter overview, every concept " +
	"explained with a worked example, important formulas and definitions in a table, common exam " +
	"questions with model answers, and a final quick-revision checklist."

type outcome int

const (
	outcomeGenerated outcome = iota
	outcomeSkipped
)

// Scheduler drives bulk generation through the shared resolve-or-generate
// pipeline. All of its entry points contend on one State.
type Scheduler struct {
	state       *State
	generator   *content.Generator
	syllabus    *content.Syllabus
	resolver    *content.Resolver
	store       store.DocumentStore
	settings    settings.Service
	concurrency int
	logger      *zap.Logger
}

// NewScheduler wires the bulk generation scheduler. concurrency caps
// parallel chapter tasks within one class level.
func NewScheduler(state *State, generator *content.Generator, syllabus *content.Syllabus, resolver *content.Resolver, st store.DocumentStore, settingsSvc settings.Service, concurrency int, logger *zap.Logger) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{
		state:       state,
		generator:   generator,
		syllabus:    syllabus,
		resolver:    resolver,
		store:       st,
		settings:    settingsSvc,
		concurrency: concurrency,
		logger:      logger.Named("pilot"),
	}
}

// Active reports whether a run is in progress and its label.
func (sch *Scheduler) Active() (bool, string) {
	return sch.state.Active()
}

// RunAutoPilot sweeps the curriculum and generates premium notes for every
// chapter that has none. force displaces a stale RUNNING flag; without it a
// concurrent run is rejected with ErrRunActive.
func (sch *Scheduler) RunAutoPilot(ctx context.Context, force bool) (*Report, error) {
	if force {
		sch.state.ForceAcquire("autopilot")
	} else if !sch.state.TryAcquire("autopilot") {
		return nil, apperrors.ErrRunActive
	}
	defer sch.state.Release()

	s, err := sch.settings.Current(ctx)
	if err != nil {
		sch.logger.Error("Auto-pilot aborted, settings unavailable", zap.Error(err))
		return &Report{Status: StatusAborted}, err
	}
	if !force && !s.IsAutoPilotEnabled {
		sch.logger.Info("Auto-pilot disabled, nothing to do")
		return &Report{Status: StatusCompleted}, nil
	}
	cfg := s.AutoPilot

	boards := cfg.TargetBoards
	if len(boards) == 0 {
		boards = models.AllBoards()
	}
	classes := cfg.TargetClasses
	if len(classes) == 0 {
		classes = models.AllClassLevels()
	}

	report := &Report{Status: StatusCompleted}
	started := time.Now()

	// One class level's tasks run and finish as a batch before the next
	// level starts, bounding in-flight work.
	for _, board := range boards {
		for _, class := range classes {
			tasks := sch.classTasks(ctx, s, cfg, board, class)
			if len(tasks) == 0 {
				continue
			}
			sch.logger.Info("Auto-pilot batch starting",
				zap.String("board", string(board)),
				zap.String("class", string(class)),
				zap.Int("tasks", len(tasks)))

			outcomes := bulk.RunAll(ctx, sch.logger, tasks, sch.concurrency, nil)
			report.Failed += len(tasks) - len(outcomes)
			for _, o := range outcomes {
				if o == outcomeGenerated {
					report.Generated++
				} else {
					report.Skipped++
				}
			}
		}
	}

	sch.logger.Info("Auto-pilot run finished",
		zap.Int("generated", report.Generated),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("took", time.Since(started)))
	return report, nil
}

// RunCommandMode generates premium notes for one explicit target. Always
// rejects when another run is active; there is no force path.
func (sch *Scheduler) RunCommandMode(ctx context.Context, board models.Board, class models.ClassLevel, stream models.Stream, subjectName string) (*Report, error) {
	if !sch.state.TryAcquire("command") {
		return nil, apperrors.ErrRunActive
	}
	defer sch.state.Release()

	var subject *models.Subject
	for _, sub := range sch.syllabus.SubjectsFor(class, stream) {
		if sub.Name == subjectName {
			s := sub
			subject = &s
			break
		}
	}
	if subject == nil {
		return nil, fmt.Errorf("subject %q is not taught in class %s", subjectName, class)
	}

	s, err := sch.settings.Current(ctx)
	if err != nil {
		return &Report{Status: StatusAborted}, err
	}

	mode := modeFor(class)
	override := sch.pilotPrompt(s, mode, board)
	chapters := sch.syllabus.Chapters(ctx, board, class, stream, *subject, models.LanguageEnglish)

	tasks := make([]bulk.Task[outcome], 0, len(chapters))
	for _, ch := range chapters {
		target := content.Target{Board: board, Class: class, Stream: stream, Subject: *subject, Chapter: ch}
		tasks = append(tasks, sch.chapterTask(target, mode, s.AutoPilot.RequireApproval, override))
	}

	outcomes := bulk.RunAll(ctx, sch.logger, tasks, sch.concurrency, nil)
	report := &Report{Status: StatusCompleted}
	report.Failed = len(tasks) - len(outcomes)
	for _, o := range outcomes {
		if o == outcomeGenerated {
			report.Generated++
		} else {
			report.Skipped++
		}
	}
	return report, nil
}

// classTasks enumerates every chapter task for one board and class level,
// honoring the admin's subject narrowing.
func (sch *Scheduler) classTasks(ctx context.Context, s *models.SystemSettings, cfg models.AutoPilotConfig, board models.Board, class models.ClassLevel) []bulk.Task[outcome] {
	mode := modeFor(class)
	override := sch.pilotPrompt(s, mode, board)

	var tasks []bulk.Task[outcome]
	for _, stream := range models.StreamsFor(class) {
		for _, subject := range sch.syllabus.SubjectsFor(class, stream) {
			if !subjectTargeted(cfg, subject.Name) {
				continue
			}
			chapters := sch.syllabus.Chapters(ctx, board, class, stream, subject, models.LanguageEnglish)
			for _, ch := range chapters {
				target := content.Target{Board: board, Class: class, Stream: stream, Subject: subject, Chapter: ch}
				tasks = append(tasks, sch.chapterTask(target, mode, cfg.RequireApproval, override))
			}
		}
	}
	return tasks
}

// chapterTask builds the guarded generation task for one chapter: live
// safety-lock poll, existence check, generate, persist, verify.
func (sch *Scheduler) chapterTask(target content.Target, mode models.SyllabusMode, requireApproval bool, override string) bulk.Task[outcome] {
	return func(ctx context.Context) (outcome, error) {
		// The lock is re-checked per task so a mid-run engage stops all
		// not-yet-started work.
		if sch.settings.SafetyLockEngaged(ctx) {
			return outcomeSkipped, nil
		}

		key := target.Key()
		rec := sch.resolver.Record(ctx, key)
		if rec != nil && rec.Fields(mode).PremiumNotesHTML != "" {
			return outcomeSkipped, nil
		}

		lesson, err := sch.generator.ResolveOrGenerate(ctx, content.Request{
			Target:          target,
			Type:            models.NotesPremium,
			Language:        models.LanguageEnglish,
			Mode:            mode,
			PromptOverride:  override,
			AllowGeneration: true,
			ForceRegenerate: true,
			DualGeneration:  true,
			Usage:           store.UsagePilot,
		})
		if err != nil {
			return 0, fmt.Errorf("generation failed for %s: %w", key, err)
		}

		if rec == nil {
			rec = &models.ContentRecord{}
		}
		rec.ApplyNotes(mode, lesson.HTML, lesson.FreeHTML, "")
		if requireApproval {
			rec.IsDraft = true
		}
		rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

		if err := sch.store.SetDocument(ctx, key.String(), rec); err != nil {
			return 0, fmt.Errorf("persist failed for %s: %w", key, err)
		}

		verify := sch.resolver.Record(ctx, key)
		if verify == nil || verify.Fields(mode).PremiumNotesHTML == "" {
			sch.logger.Warn("Persisted notes missing on verification read",
				zap.String("key", key.String()))
		} else {
			sch.logger.Info("Chapter generated",
				zap.String("key", key.String()),
				zap.String("subject", target.Subject.Name))
		}
		return outcomeGenerated, nil
	}
}

// RunDailyChallenges publishes one challenge question per board and class
// for today, skipping pairs that already have one.
func (sch *Scheduler) RunDailyChallenges(ctx context.Context) (*Report, error) {
	if !sch.state.TryAcquire("daily-challenges") {
		return nil, apperrors.ErrRunActive
	}
	defer sch.state.Release()

	s, err := sch.settings.Current(ctx)
	if err != nil {
		return &Report{Status: StatusAborted}, err
	}

	today := time.Now().UTC().Format("2006-01-02")
	report := &Report{Status: StatusCompleted}

	for _, board := range models.AllBoards() {
		for _, class := range models.AllClassLevels() {
			if hasChallenge(s, board, class, today) {
				report.Skipped++
				continue
			}
			if sch.settings.SafetyLockEngaged(ctx) {
				report.Skipped++
				continue
			}

			question, err := sch.generateChallengeQuestion(ctx, board, class)
			if err != nil {
				sch.logger.Warn("Daily challenge generation failed",
					zap.String("board", string(board)),
					zap.String("class", string(class)),
					zap.Error(err))
				report.Failed++
				continue
			}

			challenge := models.DailyChallenge{
				ID:       uuid.NewString(),
				Board:    board,
				Class:    class,
				Question: *question,
				Date:     today,
			}
			updated, err := sch.settings.Update(ctx, func(next *models.SystemSettings) {
				next.DailyChallenges = append(next.DailyChallenges, challenge)
			})
			if err != nil {
				report.Failed++
				continue
			}
			s = updated
			report.Generated++
		}
	}
	return report, nil
}

// generateChallengeQuestion produces one question from a day-rotated
// chapter of the class's first subject.
func (sch *Scheduler) generateChallengeQuestion(ctx context.Context, board models.Board, class models.ClassLevel) (*models.MCQItem, error) {
	subjects := sch.syllabus.SubjectsFor(class, "")
	if len(subjects) == 0 {
		return nil, fmt.Errorf("no subjects for class %s", class)
	}
	subject := subjects[0]

	chapters := sch.syllabus.Chapters(ctx, board, class, "", subject, models.LanguageEnglish)
	if len(chapters) == 0 {
		return nil, fmt.Errorf("no chapters for %s class %s %s", board, class, subject.Name)
	}
	chapter := chapters[time.Now().UTC().YearDay()%len(chapters)]

	lesson, err := sch.generator.ResolveOrGenerate(ctx, content.Request{
		Target:          content.Target{Board: board, Class: class, Subject: subject, Chapter: chapter},
		Type:            models.MCQSimple,
		Language:        models.LanguageEnglish,
		Mode:            modeFor(class),
		AllowGeneration: true,
		ForceRegenerate: true,
		Usage:           store.UsagePilot,
	})
	if err != nil {
		return nil, err
	}
	if len(lesson.MCQ) == 0 {
		return nil, fmt.Errorf("no questions generated")
	}
	return &lesson.MCQ[0], nil
}

// pilotPrompt returns the guidebook prompt when the admin has not set a
// premium-notes template; otherwise the generator uses the admin's.
func (sch *Scheduler) pilotPrompt(s *models.SystemSettings, mode models.SyllabusMode, board models.Board) string {
	if tpl := s.TemplateFor(mode, board, func(p models.PromptSet) string { return p.NotesPremium }); tpl != "" {
		return ""
	}
	return guidebookTemplate
}

func modeFor(class models.ClassLevel) models.SyllabusMode {
	if class == models.ClassCompetition {
		return models.ModeCompetition
	}
	return models.ModeSchool
}

func subjectTargeted(cfg models.AutoPilotConfig, name string) bool {
	if len(cfg.TargetSubjects) == 0 {
		return true
	}
	for _, target := range cfg.TargetSubjects {
		if target == name {
			return true
		}
	}
	return false
}

func hasChallenge(s *models.SystemSettings, board models.Board, class models.ClassLevel, date string) bool {
	for _, c := range s.DailyChallenges {
		if c.Board == board && c.Class == class && c.Date == date {
			return true
		}
	}
	return false
}

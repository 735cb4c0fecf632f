package pilot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shiksha-ai/study-engine/pkg/apperrors"
	"github.com/shiksha-ai/study-engine/pkg/content"
	"github.com/shiksha-ai/study-engine/pkg/llm"
	"github.com/shiksha-ai/study-engine/pkg/models"
	"github.com/shiksha-ai/study-engine/pkg/quota"
	"github.com/shiksha-ai/study-engine/pkg/retry"
	"github.com/shiksha-ai/study-engine/pkg/settings"
	"github.com/shiksha-ai/study-engine/pkg/store"
)

// scriptedClient answers chapter-list prompts with a chapter list and
// everything else with a canned payload.
type scriptedClient struct {
	mu     sync.Mutex
	calls  int
	answer func(prompt string) (string, error)
}

func (c *scriptedClient) Complete(_ context.Context, messages []llm.Message, _ string) (string, error) {
	prompt := ""
	for _, m := range messages {
		if m.Role == llm.RoleUser {
			prompt = m.Content
		}
	}
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.answer(prompt)
}

func (c *scriptedClient) CompleteStream(ctx context.Context, messages []llm.Message, model string, onChunk func(string)) (string, error) {
	text, err := c.Complete(ctx, messages, model)
	if err == nil && onChunk != nil {
		onChunk(text)
	}
	return text, err
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func dualNotesAnswer(prompt string) (string, error) {
	if strings.Contains(prompt, "List the chapters") {
		return `[{"title":"Generated Chapter"}]`, nil
	}
	return "<<<PREMIUM>>>\n<p>deep</p>\n<<<SUMMARY>>>\n<p>short</p>", nil
}

func newTestScheduler(t *testing.T, mem *store.Memory, client content.CompletionClient, s *models.SystemSettings) *Scheduler {
	t.Helper()
	logger := zap.NewNop()
	svc := settings.NewService(mem, nil, logger)
	require.NoError(t, svc.Save(context.Background(), s))

	qc := quota.NewController(mem, svc, retry.LinearConfig(0, time.Millisecond), logger)
	resolver := content.NewResolver(mem, logger)
	syllabus, err := content.NewSyllabus(mem, client, qc, svc, logger)
	require.NoError(t, err)
	generator := content.NewGenerator(resolver, svc, client, qc, 50, logger)

	return NewScheduler(NewState(), generator, syllabus, resolver, mem, svc, 3, logger)
}

func scienceOnlySettings() *models.SystemSettings {
	return &models.SystemSettings{
		IsAutoPilotEnabled: true,
		AutoPilot: models.AutoPilotConfig{
			TargetBoards:   []models.Board{models.BoardCBSE},
			TargetClasses:  []models.ClassLevel{"9"},
			TargetSubjects: []string{"Science"},
		},
	}
}

func TestAutoPilotDisabledSkipsRun(t *testing.T) {
	mem := store.NewMemory()
	client := &scriptedClient{answer: func(string) (string, error) {
		return "", errors.New("must not generate while disabled")
	}}
	s := scienceOnlySettings()
	s.IsAutoPilotEnabled = false
	sch := newTestScheduler(t, mem, client, s)

	report, err := sch.RunAutoPilot(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, report.Status)
	assert.Equal(t, 0, report.Generated+report.Skipped+report.Failed)
	assert.Equal(t, 0, client.callCount())

	// Force overrides the switch.
	client.answer = dualNotesAnswer
	report, err = sch.RunAutoPilot(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 12, report.Generated)
}

func TestAutoPilotGeneratesMissingChapters(t *testing.T) {
	mem := store.NewMemory()
	client := &scriptedClient{answer: dualNotesAnswer}
	sch := newTestScheduler(t, mem, client, scienceOnlySettings())

	// One chapter already has premium notes and must be skipped.
	existingKey := content.NewKey(models.BoardCBSE, "9", "", "Science", "ch-1")
	require.NoError(t, mem.SetDocument(context.Background(), existingKey.String(),
		&models.ContentRecord{SchoolPremiumNotesHTML: "<p>already there</p>"}))

	report, err := sch.RunAutoPilot(context.Background(), false)
	require.NoError(t, err)

	// CBSE class 9 Science carries 12 built-in chapters.
	assert.Equal(t, StatusCompleted, report.Status)
	assert.Equal(t, 11, report.Generated)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)

	// Generated notes are persisted under the chapter key.
	raw, err := mem.GetDocument(context.Background(),
		content.NewKey(models.BoardCBSE, "9", "", "Science", "ch-7").String())
	require.NoError(t, err)
	require.NotNil(t, raw)
	assert.Contains(t, string(raw), "<p>deep</p>")
	assert.Contains(t, string(raw), "<p>short</p>")

	// The untouched chapter kept its original notes.
	raw, err = mem.GetDocument(context.Background(), existingKey.String())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "already there")

	counters, err := mem.Counters(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 11, counters.Pilot)
	assert.EqualValues(t, 0, counters.Student)
}

func TestAutoPilotSafetyLockProducesZeroTasks(t *testing.T) {
	mem := store.NewMemory()
	client := &scriptedClient{answer: func(string) (string, error) {
		return "", errors.New("must not generate under safety lock")
	}}
	s := scienceOnlySettings()
	s.AISafetyLock = true
	sch := newTestScheduler(t, mem, client, s)

	report, err := sch.RunAutoPilot(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, report.Status)
	assert.Equal(t, 0, report.Generated)
	assert.Equal(t, 12, report.Skipped)
	assert.Equal(t, 0, client.callCount())
}

func TestAutoPilotRejectsConcurrentRun(t *testing.T) {
	mem := store.NewMemory()
	sch := newTestScheduler(t, mem, &scriptedClient{answer: dualNotesAnswer}, scienceOnlySettings())

	require.True(t, sch.state.TryAcquire("other"))
	defer sch.state.Release()

	_, err := sch.RunAutoPilot(context.Background(), false)
	assert.ErrorIs(t, err, apperrors.ErrRunActive)

	// A forced start displaces the stale holder.
	report, err := sch.RunAutoPilot(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, report.Status)
}

func TestAutoPilotDraftFlagWhenApprovalRequired(t *testing.T) {
	mem := store.NewMemory()
	s := scienceOnlySettings()
	s.AutoPilot.RequireApproval = true
	sch := newTestScheduler(t, mem, &scriptedClient{answer: dualNotesAnswer}, s)

	_, err := sch.RunAutoPilot(context.Background(), false)
	require.NoError(t, err)

	raw, err := mem.GetDocument(context.Background(),
		content.NewKey(models.BoardCBSE, "9", "", "Science", "ch-1").String())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"isDraft":true`)
}

func TestAutoPilotFailedChaptersCounted(t *testing.T) {
	mem := store.NewMemory()
	var n int
	var mu sync.Mutex
	client := &scriptedClient{answer: func(prompt string) (string, error) {
		mu.Lock()
		n++
		fail := n%2 == 0
		mu.Unlock()
		if fail {
			return "", errors.New("model hiccup")
		}
		return dualNotesAnswer(prompt)
	}}
	sch := newTestScheduler(t, mem, client, scienceOnlySettings())

	report, err := sch.RunAutoPilot(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 12, report.Generated+report.Failed)
	assert.Greater(t, report.Failed, 0)
	assert.Greater(t, report.Generated, 0)
}

func TestCommandModeAlwaysRejectsWhenBusy(t *testing.T) {
	mem := store.NewMemory()
	sch := newTestScheduler(t, mem, &scriptedClient{answer: dualNotesAnswer}, scienceOnlySettings())

	require.True(t, sch.state.TryAcquire("autopilot"))
	defer sch.state.Release()

	_, err := sch.RunCommandMode(context.Background(), models.BoardCBSE, "9", "", "Science")
	assert.ErrorIs(t, err, apperrors.ErrRunActive)
}

func TestCommandModeSingleTarget(t *testing.T) {
	mem := store.NewMemory()
	client := &scriptedClient{answer: dualNotesAnswer}
	sch := newTestScheduler(t, mem, client, &models.SystemSettings{})

	report, err := sch.RunCommandMode(context.Background(), models.BoardCBSE, "10", "", "Science")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, report.Status)

	// CBSE class 10 Science carries 13 built-in chapters.
	assert.Equal(t, 13, report.Generated)

	busy, _ := sch.Active()
	assert.False(t, busy, "state must be released after the run")
}

func TestCommandModeUnknownSubject(t *testing.T) {
	mem := store.NewMemory()
	sch := newTestScheduler(t, mem, &scriptedClient{answer: dualNotesAnswer}, &models.SystemSettings{})

	_, err := sch.RunCommandMode(context.Background(), models.BoardCBSE, "9", "", "Quantum Basket Weaving")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not taught")
}

func TestRunDailyChallenges(t *testing.T) {
	mem := store.NewMemory()
	client := &scriptedClient{answer: func(prompt string) (string, error) {
		if strings.Contains(prompt, "List the chapters") {
			return `[{"title":"Generated Chapter"}]`, nil
		}
		return `[{"question":"Daily Q?","options":["a","b","c","d"],"correctAnswer":0}]`, nil
	}}
	sch := newTestScheduler(t, mem, client, &models.SystemSettings{})

	report, err := sch.RunDailyChallenges(context.Background())
	require.NoError(t, err)

	pairs := len(models.AllBoards()) * len(models.AllClassLevels())
	assert.Equal(t, pairs, report.Generated)

	svc := settings.NewService(mem, nil, zap.NewNop())
	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.Len(t, current.DailyChallenges, pairs)
	assert.Equal(t, "Daily Q?", current.DailyChallenges[0].Question.Question)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), current.DailyChallenges[0].Date)

	// A second run the same day publishes nothing new.
	report, err = sch.RunDailyChallenges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Generated)
	assert.Equal(t, pairs, report.Skipped)
}

func TestStateLifecycle(t *testing.T) {
	st := NewState()
	require.True(t, st.TryAcquire("a"))
	require.False(t, st.TryAcquire("b"))

	active, label := st.Active()
	assert.True(t, active)
	assert.Equal(t, "a", label)

	st.Release()
	active, _ = st.Active()
	assert.False(t, active)
	require.True(t, st.TryAcquire("b"))
}

package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shiksha-ai/study-engine/pkg/models"
	"github.com/shiksha-ai/study-engine/pkg/store"
)

func TestCurrentDefaultsWhenUnset(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory(), nil, zap.NewNop())

	s, err := svc.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, models.DefaultPilotRatio, s.PilotRatio())
	assert.Equal(t, models.DefaultDailyLimitPerKey, s.DailyLimitPerKey())
	assert.False(t, s.AISafetyLock)
}

func TestSaveThenCurrent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewService(mem, nil, zap.NewNop())

	require.NoError(t, svc.Save(ctx, &models.SystemSettings{
		AIModel:      "llama-3.1-8b-instant",
		AIPilotRatio: 60,
	}))

	s, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "llama-3.1-8b-instant", s.AIModel)
	assert.Equal(t, 60, s.PilotRatio())

	// A second service over the same store sees the saved document.
	other := NewService(mem, nil, zap.NewNop())
	s2, err := other.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, s2.PilotRatio())
}

func TestUpdateAppliesMutation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory(), nil, zap.NewNop())

	updated, err := svc.Update(ctx, func(s *models.SystemSettings) {
		s.AISafetyLock = true
	})
	require.NoError(t, err)
	assert.True(t, updated.AISafetyLock)
	assert.True(t, svc.SafetyLockEngaged(ctx))
}

func TestSafetyLockSeesLiveChanges(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewService(mem, nil, zap.NewNop())

	assert.False(t, svc.SafetyLockEngaged(ctx))

	// Another writer flips the lock directly in the store; the poll must
	// see it without a Watch subscription.
	require.NoError(t, mem.SetDocument(ctx, store.SettingsKey,
		&models.SystemSettings{AISafetyLock: true}))
	assert.True(t, svc.SafetyLockEngaged(ctx))
}

func TestTemplateFallbackChain(t *testing.T) {
	s := &models.SystemSettings{
		Prompts:            models.PromptSet{MCQ: "base {chapter}"},
		PromptsCompetition: models.PromptSet{MCQ: "competition {chapter}"},
	}

	pick := func(p models.PromptSet) string { return p.MCQ }

	assert.Equal(t, "competition {chapter}",
		s.TemplateFor(models.ModeCompetition, models.BoardBSEB, pick))
	assert.Equal(t, "base {chapter}",
		s.TemplateFor(models.ModeSchool, models.BoardBSEB, pick))
	// CBSE competition falls through to the generic competition set.
	assert.Equal(t, "competition {chapter}",
		s.TemplateFor(models.ModeCompetition, models.BoardCBSE, pick))
}

// Package settings manages the global system settings document.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shiksha-ai/study-engine/pkg/localstate"
	"github.com/shiksha-ai/study-engine/pkg/models"
	"github.com/shiksha-ai/study-engine/pkg/store"
)

// Service provides access to system settings.
type Service interface {
	// Current returns the cached settings, loading them on first use.
	// Never returns nil settings on a nil error.
	Current(ctx context.Context) (*models.SystemSettings, error)

	// Refresh re-reads settings from the store, bypassing the cache.
	// Used for live checks such as the safety lock poll.
	Refresh(ctx context.Context) (*models.SystemSettings, error)

	// Save persists the full settings document.
	Save(ctx context.Context, s *models.SystemSettings) error

	// Update applies fn to a copy of the current settings and saves it.
	Update(ctx context.Context, fn func(*models.SystemSettings)) (*models.SystemSettings, error)

	// Watch keeps the cache in sync with store changes until cancelled.
	Watch(ctx context.Context) (store.CancelFunc, error)

	// SafetyLockEngaged polls the live safety lock flag. A failed poll
	// falls back to the last known value.
	SafetyLockEngaged(ctx context.Context) bool
}

type service struct {
	store  store.DocumentStore
	local  *localstate.State
	logger *zap.Logger

	mu     sync.Mutex
	cached *models.SystemSettings
}

// NewService creates the settings service. local may be nil to skip the
// device-local settings cache.
func NewService(st store.DocumentStore, local *localstate.State, logger *zap.Logger) Service {
	return &service{
		store:  st,
		local:  local,
		logger: logger.Named("settings"),
	}
}

func (s *service) Current(ctx context.Context) (*models.SystemSettings, error) {
	s.mu.Lock()
	cached := s.cached
	s.mu.Unlock()
	if cached != nil {
		return cached, nil
	}
	return s.Refresh(ctx)
}

func (s *service) Refresh(ctx context.Context) (*models.SystemSettings, error) {
	loaded := &models.SystemSettings{}
	found, err := store.GetTyped(ctx, s.store, store.SettingsKey, loaded)
	if err != nil {
		s.mu.Lock()
		cached := s.cached
		s.mu.Unlock()
		if cached != nil {
			s.logger.Warn("Settings refresh failed, using cached copy", zap.Error(err))
			return cached, nil
		}
		// Last resort: the device-local blob from a previous run.
		if s.local != nil && s.local.Get(localstate.KeySettingsCache, loaded) {
			s.logger.Warn("Settings refresh failed, using local cache", zap.Error(err))
			s.setCached(loaded)
			return loaded, nil
		}
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if !found {
		loaded = &models.SystemSettings{}
	}

	s.setCached(loaded)
	return loaded, nil
}

func (s *service) Save(ctx context.Context, settings *models.SystemSettings) error {
	settings.UpdatedAt = time.Now().UTC()
	if err := s.store.SetDocument(ctx, store.SettingsKey, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	s.setCached(settings)
	return nil
}

func (s *service) Update(ctx context.Context, fn func(*models.SystemSettings)) (*models.SystemSettings, error) {
	current, err := s.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	next := *current
	fn(&next)
	if err := s.Save(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *service) Watch(ctx context.Context) (store.CancelFunc, error) {
	return s.store.Subscribe(ctx, store.SettingsKey, func(raw json.RawMessage) {
		updated := &models.SystemSettings{}
		if err := json.Unmarshal(raw, updated); err != nil {
			s.logger.Warn("Ignoring malformed settings update", zap.Error(err))
			return
		}
		s.setCached(updated)
		s.logger.Debug("Settings cache refreshed from store")
	})
}

func (s *service) SafetyLockEngaged(ctx context.Context) bool {
	fresh, err := s.Refresh(ctx)
	if err != nil {
		s.logger.Warn("Safety lock poll failed", zap.Error(err))
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.cached != nil && s.cached.AISafetyLock
	}
	return fresh.AISafetyLock
}

func (s *service) setCached(settings *models.SystemSettings) {
	s.mu.Lock()
	s.cached = settings
	s.mu.Unlock()
	if s.local != nil {
		if err := s.local.Set(localstate.KeySettingsCache, settings); err != nil {
			s.logger.Warn("Failed to cache settings locally", zap.Error(err))
		}
	}
}

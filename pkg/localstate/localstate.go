// Package localstate persists small device-local values (flags, cached
// blobs, sync queue) in a single JSON file.
package localstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Stable keys. These names are part of the persisted format and must not
// change.
const (
	KeyTermsAccepted     = "nst_terms_accepted"
	KeyLastSeenVersion   = "nst_last_seen_version"
	KeyDailyStudySeconds = "nst_daily_study_seconds"
	KeyDailyStudyDate    = "nst_daily_study_date"
	KeyLastTrackerDate   = "nst_last_tracker_date"
	KeyLastChallengeDate = "nst_last_challenge_date"
	KeySettingsCache     = "nst_system_settings"
	KeyCurrentUser       = "nst_current_user"
	KeyPendingSync       = "nst_pending_sync"
)

// UpdateDismissedKey returns the per-version key recording when an update
// notice was dismissed.
func UpdateDismissedKey(version string) string {
	return "nst_update_dismissed_" + version
}

// State is a write-through JSON-file key/value store. When the file cannot
// be written, values survive in memory for the process lifetime.
type State struct {
	mu     sync.Mutex
	path   string
	values map[string]json.RawMessage
	logger *zap.Logger
}

// Open loads existing state from path, starting empty if the file is
// missing or unreadable.
func Open(path string, logger *zap.Logger) *State {
	s := &State{
		path:   path,
		values: make(map[string]json.RawMessage),
		logger: logger.Named("localstate"),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read local state file", zap.Error(err))
		}
		return s
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		s.logger.Warn("Local state file is corrupt, starting fresh", zap.Error(err))
		s.values = make(map[string]json.RawMessage)
	}
	return s
}

// Get decodes the value at key into out. Returns false when absent.
func (s *State) Get(key string, out any) bool {
	s.mu.Lock()
	raw, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Warn("Malformed local state value",
			zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set stores the value under key and flushes to disk.
func (s *State) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode local state %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = raw
	s.flushLocked()
	return nil
}

// Delete removes the value under key and flushes to disk.
func (s *State) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	s.flushLocked()
}

func (s *State) flushLocked() {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		s.logger.Error("Failed to encode local state", zap.Error(err))
		return
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil && filepath.Dir(s.path) != "." {
		s.logger.Warn("Failed to create local state directory", zap.Error(err))
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		s.logger.Warn("Failed to write local state, keeping in memory", zap.Error(err))
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Warn("Failed to replace local state file", zap.Error(err))
	}
}

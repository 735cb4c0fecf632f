package store

import (
	"context"
	"encoding/json"
)

// UsageCategory partitions daily AI usage between unattended pilot runs and
// student-triggered generation.
type UsageCategory string

const (
	UsagePilot   UsageCategory = "PILOT"
	UsageStudent UsageCategory = "STUDENT"
)

// Counters is the current day's usage split.
type Counters struct {
	Pilot   int64 `json:"pilotCount"`
	Student int64 `json:"studentCount"`
}

// Total returns the combined usage for the day.
func (c Counters) Total() int64 { return c.Pilot + c.Student }

// CancelFunc stops a subscription.
type CancelFunc func()

// DocumentStore reads and writes JSON documents under stable string keys.
// GetDocument returns (nil, nil) for an absent key; callers treat malformed
// stored JSON as absent after logging.
type DocumentStore interface {
	GetDocument(ctx context.Context, key string) (json.RawMessage, error)
	SetDocument(ctx context.Context, key string, doc any) error
	DeleteDocument(ctx context.Context, key string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)

	// Subscribe delivers the current value (if any) and then every
	// subsequent write to the key until cancelled.
	Subscribe(ctx context.Context, key string, fn func(json.RawMessage)) (CancelFunc, error)
}

// CounterStore tracks day-scoped usage counters.
type CounterStore interface {
	IncrementCounter(ctx context.Context, category UsageCategory) error
	Counters(ctx context.Context) (Counters, error)
}

// Store is the full persistence surface.
type Store interface {
	DocumentStore
	CounterStore
}

// Stable key layout. Content keys are built by pkg/content; everything else
// lives under these prefixes.
const (
	SettingsKey     = "nst_system_settings"
	AdminLogKey     = "nst_admin_interactions"
	AnalysisLogKey  = "nst_analysis_logs"
	userKeyPrefix   = "nst_user_"
	customSyllabusP = "nst_custom_chapters_"
)

// UserKey returns the document key for a user id.
func UserKey(id string) string { return userKeyPrefix + id }

// UserKeyPrefix returns the prefix shared by all user documents.
func UserKeyPrefix() string { return userKeyPrefix }

// CustomSyllabusKey returns the document key for an admin-edited chapter
// list. The suffix is produced by the syllabus cache key builder.
func CustomSyllabusKey(suffix string) string { return customSyllabusP + suffix }

// GetTyped decodes the document at key into out. Returns (false, nil) when
// the key is absent.
func GetTyped(ctx context.Context, s DocumentStore, key string, out any) (bool, error) {
	raw, err := s.GetDocument(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

// Package quota enforces the shared daily AI budget and its split between
// unattended pilot runs and student-triggered generation.
package quota

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shiksha-ai/study-engine/pkg/apperrors"
	"github.com/shiksha-ai/study-engine/pkg/llm"
	"github.com/shiksha-ai/study-engine/pkg/models"
	"github.com/shiksha-ai/study-engine/pkg/retry"
	"github.com/shiksha-ai/study-engine/pkg/store"
)

// capacityFloor is the minimum daily capacity regardless of the configured
// per-key limit.
const capacityFloor = 5000

// SettingsSource supplies the quota knobs from system settings.
type SettingsSource interface {
	Current(ctx context.Context) (*models.SystemSettings, error)
}

// QuotaError reports a category budget breach. Never retried.
type QuotaError struct {
	Category store.UsageCategory
	Used     int64
	Limit    int64
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s quota exceeded (%d/%d)",
		strings.ToLower(string(e.Category)), e.Used, e.Limit)
}

// Unwrap lets errors.Is match the sentinel.
func (e *QuotaError) Unwrap() error { return apperrors.ErrQuotaExceeded }

// IsRetryable implements retry.RetryableError.
func (e *QuotaError) IsRetryable() bool { return false }

// Controller gates completion calls behind the daily budget.
type Controller struct {
	counters store.CounterStore
	settings SettingsSource
	retryCfg *retry.Config
	logger   *zap.Logger
}

// NewController creates a quota controller. retryCfg nil uses the standard
// linear policy: two retries at 1s and 2s.
func NewController(counters store.CounterStore, settings SettingsSource, retryCfg *retry.Config, logger *zap.Logger) *Controller {
	if retryCfg == nil {
		retryCfg = retry.LinearConfig(2, time.Second)
	}
	return &Controller{
		counters: counters,
		settings: settings,
		retryCfg: retryCfg,
		logger:   logger.Named("quota"),
	}
}

// Limits computes the per-category budgets from settings: total capacity is
// max(10 x per-key daily limit, 5000); the pilot share is the configured
// ratio and students get the rest.
func Limits(s *models.SystemSettings) (pilot, student int64) {
	capacity := int64(10 * s.DailyLimitPerKey())
	if capacity < capacityFloor {
		capacity = capacityFloor
	}
	pilot = capacity * int64(s.PilotRatio()) / 100
	student = capacity - pilot
	return pilot, student
}

// check returns a *QuotaError when the category budget is spent. A failed
// counter read is logged and treated as within quota; only a genuine
// breach blocks the call.
func (c *Controller) check(ctx context.Context, category store.UsageCategory) error {
	counters, err := c.counters.Counters(ctx)
	if err != nil {
		c.logger.Warn("Counter read failed, allowing call", zap.Error(err))
		return nil
	}

	s, err := c.settings.Current(ctx)
	if err != nil {
		c.logger.Warn("Settings read failed, using default limits", zap.Error(err))
		s = &models.SystemSettings{}
	}

	pilotLimit, studentLimit := Limits(s)

	var used, limit int64
	switch category {
	case store.UsagePilot:
		used, limit = counters.Pilot, pilotLimit
	default:
		used, limit = counters.Student, studentLimit
	}

	if used >= limit {
		return &QuotaError{Category: category, Used: used, Limit: limit}
	}
	return nil
}

// Execute runs op under the category's budget. On success the category
// counter is incremented exactly once. Transient failures are retried per
// the controller's policy; a run that still fails against a saturated
// upstream surfaces as ErrServiceBusy so raw transport detail never
// reaches callers. Quota breaches are returned immediately, unretried.
func Execute[T any](ctx context.Context, c *Controller, category store.UsageCategory, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if err := c.check(ctx, category); err != nil {
		c.logger.Info("Call blocked by quota",
			zap.String("category", string(category)),
			zap.Error(err))
		return zero, err
	}

	result, err := retry.DoWithResult(ctx, c.retryCfg, func() (T, error) {
		return op(ctx)
	})
	if err != nil {
		if llm.IsOverloaded(err) {
			c.logger.Warn("Upstream saturated after retries", zap.Error(err))
			return zero, apperrors.ErrServiceBusy
		}
		return zero, err
	}

	if incErr := c.counters.IncrementCounter(ctx, category); incErr != nil {
		c.logger.Warn("Failed to record usage",
			zap.String("category", string(category)),
			zap.Error(incErr))
	}
	return result, nil
}

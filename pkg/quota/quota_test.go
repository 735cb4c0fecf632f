package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shiksha-ai/study-engine/pkg/apperrors"
	"github.com/shiksha-ai/study-engine/pkg/models"
	"github.com/shiksha-ai/study-engine/pkg/retry"
	"github.com/shiksha-ai/study-engine/pkg/store"
)

type fixedSettings struct {
	s *models.SystemSettings
}

func (f *fixedSettings) Current(context.Context) (*models.SystemSettings, error) {
	if f.s == nil {
		return &models.SystemSettings{}, nil
	}
	return f.s, nil
}

func fastRetry() *retry.Config {
	return retry.LinearConfig(2, time.Millisecond)
}

func TestLimitsSplit(t *testing.T) {
	// Defaults: 10 x 1500 = 15000 capacity, 80% pilot.
	pilot, student := Limits(&models.SystemSettings{})
	if pilot != 12000 || student != 3000 {
		t.Errorf("default split = (%d, %d)", pilot, student)
	}

	// A tiny per-key limit still yields the 5000 floor.
	pilot, student = Limits(&models.SystemSettings{AIDailyLimitKey: 10, AIPilotRatio: 50})
	if pilot != 2500 || student != 2500 {
		t.Errorf("floored split = (%d, %d)", pilot, student)
	}
}

func TestExecuteIncrementsOncePerSuccess(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := NewController(mem, &fixedSettings{}, fastRetry(), zap.NewNop())

	got, err := Execute(ctx, c, store.UsageStudent, func(context.Context) (string, error) {
		return "notes", nil
	})
	if err != nil || got != "notes" {
		t.Fatalf("got (%q, %v)", got, err)
	}

	counters, _ := mem.Counters(ctx)
	if counters.Student != 1 || counters.Pilot != 0 {
		t.Errorf("unexpected counters: %+v", counters)
	}
}

func TestExecuteRetriesThenSucceeds(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := NewController(mem, &fixedSettings{}, fastRetry(), zap.NewNop())

	attempts := 0
	got, err := Execute(ctx, c, store.UsagePilot, func(context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("HTTP 503 service unavailable")
		}
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Fatalf("got (%d, %v)", got, err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}

	// Retried attempts still count as one successful call.
	counters, _ := mem.Counters(ctx)
	if counters.Pilot != 1 {
		t.Errorf("expected single increment, got %+v", counters)
	}
}

func TestExecuteSaturatedUpstreamBecomesServiceBusy(t *testing.T) {
	ctx := context.Background()
	c := NewController(store.NewMemory(), &fixedSettings{}, fastRetry(), zap.NewNop())

	attempts := 0
	_, err := Execute(ctx, c, store.UsageStudent, func(context.Context) (string, error) {
		attempts++
		return "", errors.New("status 429: too many requests")
	})
	if !errors.Is(err, apperrors.ErrServiceBusy) {
		t.Errorf("expected ErrServiceBusy, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 2 retries (3 attempts), got %d", attempts)
	}
}

func TestExecuteNonTransientErrorPassesThrough(t *testing.T) {
	ctx := context.Background()
	c := NewController(store.NewMemory(), &fixedSettings{}, fastRetry(), zap.NewNop())

	wantErr := errors.New("malformed prompt")
	_, err := Execute(ctx, c, store.UsageStudent, func(context.Context) (string, error) {
		return "", wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected original error, got %v", err)
	}
	if errors.Is(err, apperrors.ErrServiceBusy) {
		t.Error("non-overload failure must not masquerade as busy")
	}
}

func TestExecuteQuotaBreachSkipsOpAndRetry(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	// One student call allowed in total: capacity floor 5000 with 100%
	// pilot leaves zero student budget.
	c := NewController(mem, &fixedSettings{s: &models.SystemSettings{AIPilotRatio: 100}}, fastRetry(), zap.NewNop())

	calls := 0
	_, err := Execute(ctx, c, store.UsageStudent, func(context.Context) (string, error) {
		calls++
		return "x", nil
	})
	if !errors.Is(err, apperrors.ErrQuotaExceeded) {
		t.Fatalf("expected quota breach, got %v", err)
	}
	var qe *QuotaError
	if !errors.As(err, &qe) {
		t.Fatal("expected *QuotaError")
	}
	if calls != 0 {
		t.Errorf("op must not run on a quota breach, ran %d times", calls)
	}

	counters, _ := mem.Counters(ctx)
	if counters.Student != 0 {
		t.Errorf("blocked call must not increment usage: %+v", counters)
	}
}

func TestExecuteToleratesCounterReadFailure(t *testing.T) {
	ctx := context.Background()
	c := NewController(&failingCounters{}, &fixedSettings{}, fastRetry(), zap.NewNop())

	got, err := Execute(ctx, c, store.UsagePilot, func(context.Context) (int, error) {
		return 1, nil
	})
	if err != nil || got != 1 {
		t.Errorf("stale-read policy should allow the call, got (%d, %v)", got, err)
	}
}

type failingCounters struct{}

func (f *failingCounters) IncrementCounter(context.Context, store.UsageCategory) error {
	return errors.New("store down")
}

func (f *failingCounters) Counters(context.Context) (store.Counters, error) {
	return store.Counters{}, errors.New("store down")
}

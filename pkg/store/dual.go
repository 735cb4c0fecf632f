package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Dual combines the realtime and authoritative tiers behind one Store.
// Writes go to every tier; a write succeeds if the authoritative tier or
// the realtime tier accepts it. Reads try realtime first, fall back to the
// authoritative tier, then to the local cache, and backfill the faster
// tiers on a slow-tier hit.
type Dual struct {
	realtime *Redis // may be nil
	primary  Store
	cache    *Memory
	logger   *zap.Logger
}

// NewDual wires the tiers together. realtime may be nil when Redis is not
// configured; everything then flows through the authoritative tier.
func NewDual(primary Store, realtime *Redis, logger *zap.Logger) *Dual {
	return &Dual{
		realtime: realtime,
		primary:  primary,
		cache:    NewMemory(),
		logger:   logger.Named("store"),
	}
}

func (d *Dual) GetDocument(ctx context.Context, key string) (json.RawMessage, error) {
	if d.realtime != nil {
		raw, err := d.realtime.GetDocument(ctx, key)
		if err != nil {
			d.logger.Warn("Realtime read failed, falling back",
				zap.String("key", key), zap.Error(err))
		} else if raw != nil {
			_ = d.cache.SetDocument(ctx, key, json.RawMessage(raw))
			return raw, nil
		}
	}

	raw, err := d.primary.GetDocument(ctx, key)
	if err != nil {
		d.logger.Warn("Primary read failed, falling back to local cache",
			zap.String("key", key), zap.Error(err))
		return d.cache.GetDocument(ctx, key)
	}
	if raw != nil {
		_ = d.cache.SetDocument(ctx, key, json.RawMessage(raw))
		if d.realtime != nil {
			if err := d.realtime.SetDocument(ctx, key, json.RawMessage(raw)); err != nil {
				d.logger.Warn("Realtime backfill failed", zap.String("key", key), zap.Error(err))
			}
		}
		return raw, nil
	}
	return nil, nil
}

func (d *Dual) SetDocument(ctx context.Context, key string, doc any) error {
	// The local cache write cannot fail for serializable documents and
	// keeps reads working through tier outages.
	if err := d.cache.SetDocument(ctx, key, doc); err != nil {
		return fmt.Errorf("failed to encode document %s: %w", key, err)
	}

	var rtErr error
	if d.realtime != nil {
		if rtErr = d.realtime.SetDocument(ctx, key, doc); rtErr != nil {
			d.logger.Warn("Realtime write failed", zap.String("key", key), zap.Error(rtErr))
		}
	}

	if err := d.primary.SetDocument(ctx, key, doc); err != nil {
		d.logger.Error("Primary write failed", zap.String("key", key), zap.Error(err))
		if d.realtime == nil || rtErr != nil {
			return err
		}
	}
	return nil
}

func (d *Dual) DeleteDocument(ctx context.Context, key string) error {
	_ = d.cache.DeleteDocument(ctx, key)
	if d.realtime != nil {
		if err := d.realtime.DeleteDocument(ctx, key); err != nil {
			d.logger.Warn("Realtime delete failed", zap.String("key", key), zap.Error(err))
		}
	}
	return d.primary.DeleteDocument(ctx, key)
}

func (d *Dual) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := d.primary.ListKeys(ctx, prefix)
	if err != nil && d.realtime != nil {
		d.logger.Warn("Primary key scan failed, using realtime tier",
			zap.String("prefix", prefix), zap.Error(err))
		return d.realtime.ListKeys(ctx, prefix)
	}
	return keys, err
}

func (d *Dual) Subscribe(ctx context.Context, key string, fn func(json.RawMessage)) (CancelFunc, error) {
	if d.realtime != nil {
		cancel, err := d.realtime.Subscribe(ctx, key, fn)
		if err == nil {
			return cancel, nil
		}
		d.logger.Warn("Realtime subscribe failed, delivering one-shot snapshot",
			zap.String("key", key), zap.Error(err))
	}
	return d.primary.Subscribe(ctx, key, fn)
}

// IncrementCounter uses a single tier per counter so the split is never
// double counted: realtime when configured, otherwise the primary.
func (d *Dual) IncrementCounter(ctx context.Context, category UsageCategory) error {
	if d.realtime != nil {
		return d.realtime.IncrementCounter(ctx, category)
	}
	return d.primary.IncrementCounter(ctx, category)
}

func (d *Dual) Counters(ctx context.Context) (Counters, error) {
	if d.realtime != nil {
		return d.realtime.Counters(ctx)
	}
	return d.primary.Counters(ctx)
}

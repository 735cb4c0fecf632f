package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig holds realtime tier connection settings.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Redis is the realtime document tier: fast reads, pub/sub change feeds and
// atomic day-scoped usage counters.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedis creates the realtime tier client. Returns nil if Redis is not
// configured (host is empty).
func NewRedis(cfg *RedisConfig, logger *zap.Logger) (*Redis, error) {
	if cfg.Host == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{client: client, logger: logger.Named("redis")}, nil
}

// Close releases the underlying client.
func (r *Redis) Close() error { return r.client.Close() }

func docChannel(key string) string { return "doc:" + key }

func (r *Redis) GetDocument(ctx context.Context, key string) (json.RawMessage, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", key, err)
	}
	return json.RawMessage(val), nil
}

func (r *Redis) SetDocument(ctx context.Context, key string, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to write document %s: %w", key, err)
	}
	if err := r.client.Publish(ctx, docChannel(key), payload).Err(); err != nil {
		r.logger.Warn("Failed to publish document change", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (r *Redis) DeleteDocument(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", key, err)
	}
	return nil
}

func (r *Redis) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys with prefix %s: %w", prefix, err)
	}
	return keys, nil
}

// Subscribe delivers the current value, then streams every published change
// until the cancel function is called or the context ends.
func (r *Redis) Subscribe(ctx context.Context, key string, fn func(json.RawMessage)) (CancelFunc, error) {
	pubsub := r.client.Subscribe(ctx, docChannel(key))
	// Confirm the subscription before delivering the snapshot so no
	// intervening write is lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", key, err)
	}

	if snapshot, err := r.GetDocument(ctx, key); err == nil && snapshot != nil {
		fn(snapshot)
	}

	go func() {
		for msg := range pubsub.Channel() {
			fn(json.RawMessage(msg.Payload))
		}
	}()

	return func() { _ = pubsub.Close() }, nil
}

func usageKey(category UsageCategory) string {
	return fmt.Sprintf("usage:%s:%s", time.Now().UTC().Format("2006-01-02"), category)
}

func (r *Redis) IncrementCounter(ctx context.Context, category UsageCategory) error {
	key := usageKey(category)
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to increment %s counter: %w", category, err)
	}
	if n == 1 {
		// Keep yesterday's counters around briefly for reporting.
		if err := r.client.Expire(ctx, key, 48*time.Hour).Err(); err != nil {
			r.logger.Warn("Failed to set counter expiry", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

func (r *Redis) Counters(ctx context.Context) (Counters, error) {
	var c Counters
	for _, category := range []UsageCategory{UsagePilot, UsageStudent} {
		val, err := r.client.Get(ctx, usageKey(category)).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return Counters{}, fmt.Errorf("failed to read %s counter: %w", category, err)
		}
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return Counters{}, fmt.Errorf("malformed %s counter %q: %w", category, val, err)
		}
		switch category {
		case UsagePilot:
			c.Pilot = n
		case UsageStudent:
			c.Student = n
		}
	}
	return c, nil
}

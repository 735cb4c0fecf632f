package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds connection pool settings.
type PostgresConfig struct {
	URL             string
	MaxConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Postgres is the authoritative document tier backed by a JSONB table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a connection pool and verifies connectivity.
func NewPostgres(ctx context.Context, cfg *PostgresConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConnections
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = 25
	}

	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	if poolConfig.MaxConnLifetime == 0 {
		poolConfig.MaxConnLifetime = time.Hour
	}

	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	if poolConfig.MaxConnIdleTime == 0 {
		poolConfig.MaxConnIdleTime = time.Minute * 30
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) GetDocument(ctx context.Context, key string) (json.RawMessage, error) {
	var doc json.RawMessage
	err := p.pool.QueryRow(ctx,
		`SELECT doc FROM engine_documents WHERE key = $1`, key).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", key, err)
	}
	return doc, nil
}

func (p *Postgres) SetDocument(ctx context.Context, key string, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", key, err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO engine_documents (key, doc, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		key, payload)
	if err != nil {
		return fmt.Errorf("failed to write document %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) DeleteDocument(ctx context.Context, key string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM engine_documents WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT key FROM engine_documents WHERE key LIKE $1 || '%' ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys with prefix %s: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Subscribe on the authoritative tier delivers a single snapshot. Live
// change feeds come from the realtime tier; the dual store prefers that
// when available.
func (p *Postgres) Subscribe(ctx context.Context, key string, fn func(json.RawMessage)) (CancelFunc, error) {
	raw, err := p.GetDocument(ctx, key)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		fn(raw)
	}
	return func() {}, nil
}

func (p *Postgres) IncrementCounter(ctx context.Context, category UsageCategory) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO engine_usage (day, category, count)
		 VALUES (CURRENT_DATE, $1, 1)
		 ON CONFLICT (day, category) DO UPDATE SET count = engine_usage.count + 1`,
		string(category))
	if err != nil {
		return fmt.Errorf("failed to increment %s counter: %w", category, err)
	}
	return nil
}

func (p *Postgres) Counters(ctx context.Context) (Counters, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT category, count FROM engine_usage WHERE day = CURRENT_DATE`)
	if err != nil {
		return Counters{}, fmt.Errorf("failed to read usage counters: %w", err)
	}
	defer rows.Close()

	var c Counters
	for rows.Next() {
		var category string
		var count int64
		if err := rows.Scan(&category, &count); err != nil {
			return Counters{}, err
		}
		switch UsageCategory(category) {
		case UsagePilot:
			c.Pilot = count
		case UsageStudent:
			c.Student = count
		}
	}
	return c, rows.Err()
}

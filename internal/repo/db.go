package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema — таблицы архива истории run. Создаются, если их нет.
const schema = `
CREATE TABLE IF NOT EXISTS chain_runs (
	id          UUID PRIMARY KEY,
	chain       TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	step_ids    JSONB NOT NULL,
	build_error TEXT,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS chain_step_outcomes (
	run_id        UUID NOT NULL REFERENCES chain_runs(id) ON DELETE CASCADE,
	step_id       TEXT NOT NULL,
	position      INT NOT NULL,
	state         TEXT NOT NULL,
	outputs       JSONB,
	error_kind    TEXT,
	error_message TEXT,
	attempts      INT NOT NULL DEFAULT 0,
	started_at    TIMESTAMPTZ,
	finished_at   TIMESTAMPTZ,
	PRIMARY KEY (run_id, step_id)
);

CREATE INDEX IF NOT EXISTS chain_runs_chain_started_idx ON chain_runs (chain, started_at DESC);
`

// NewPool создаёт пул соединений с PostgreSQL и проверяет доступность БД.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 4
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// EnsureSchema создаёт таблицы архива, если их нет.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Package repository persists completed-match history to Postgres. The
// whole layer is optional: an empty database URL yields a nil DB and every
// repository method degrades to a no-op.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DB wraps the pgx connection pool.
type DB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewDB connects to Postgres and verifies the connection. Returns nil
// (not an error) when url is empty, so the server can run without
// persistence.
func NewDB(ctx context.Context, url string, maxConns int32, logger *zap.Logger) (*DB, error) {
	if url == "" {
		logger.Info("database disabled, match history will not persist")
		return nil, nil
	}

	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{pool: pool, logger: logger}
	if err := db.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the connection pool.
func (db *DB) Close() {
	if db == nil || db.pool == nil {
		return
	}
	db.pool.Close()
}

// Stats returns pool statistics for startup logging.
func (db *DB) Stats() *pgxpool.Stat {
	if db == nil || db.pool == nil {
		return nil
	}
	return db.pool.Stat()
}

func (db *DB) ensureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS matches (
	id          TEXT PRIMARY KEY,
	winner_id   TEXT,
	rounds      INT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS match_players (
	match_id         TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
	player_id        TEXT NOT NULL,
	name             TEXT NOT NULL,
	kind             TEXT NOT NULL,
	score            INT NOT NULL,
	cards_played     INT NOT NULL,
	bluffs_attempted INT NOT NULL,
	bluffs_caught    INT NOT NULL,
	challenges_made  INT NOT NULL,
	challenges_won   INT NOT NULL,
	battles_won      INT NOT NULL,
	battles_lost     INT NOT NULL,
	battles_tied     INT NOT NULL,
	PRIMARY KEY (match_id, player_id)
);

CREATE TABLE IF NOT EXISTS match_challenges (
	id            BIGSERIAL PRIMARY KEY,
	match_id      TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
	challenger_id TEXT NOT NULL,
	defender_id   TEXT NOT NULL,
	card_id       TEXT NOT NULL,
	claimed_type  TEXT NOT NULL,
	actual_type   TEXT NOT NULL,
	result        TEXT NOT NULL,
	points_lost   INT NOT NULL,
	occurred_at   TIMESTAMPTZ NOT NULL
);
`
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

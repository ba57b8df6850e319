// Package pgcache stores cache records in a PostgreSQL table so several
// machines can share computed node outputs.
package pgcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/specialistvlad/burstgraph/internal/cache"

	_ "github.com/lib/pq"
)

// Store is a cache.Store backed by PostgreSQL.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ cache.Store = (*Store)(nil)

// Open connects to databaseURL, verifies the connection and migrates the
// schema.
func Open(ctx context.Context, logger *slog.Logger, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := migrate(ctx, logger, db, cacheMigrations()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run cache migrations: %w", err)
	}

	logger.DebugContext(ctx, "PostgreSQL cache initialized.")
	return &Store{db: db, logger: logger.With("component", "pgcache")}, nil
}

// Load implements cache.Store.
func (s *Store) Load(ctx context.Context, fingerprint string) (*cache.Record, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT record FROM node_outputs WHERE fingerprint = $1", fingerprint,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache record: %w", err)
	}
	return cache.Decode(data)
}

// Store implements cache.Store. An existing record for the fingerprint is
// replaced.
func (s *Store) Store(ctx context.Context, fingerprint string, rec *cache.Record) error {
	data, err := cache.Encode(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO node_outputs (fingerprint, node_id, node_type, record, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (fingerprint)
		DO UPDATE SET
			node_id = EXCLUDED.node_id,
			node_type = EXCLUDED.node_type,
			record = EXCLUDED.record,
			created_at = EXCLUDED.created_at
	`, fingerprint, rec.NodeID, rec.NodeType, data, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save cache record: %w", err)
	}
	return nil
}

// Close implements cache.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

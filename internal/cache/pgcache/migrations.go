package pgcache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
)

func cacheMigrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS node_outputs (
				fingerprint TEXT PRIMARY KEY,
				node_id     TEXT NOT NULL,
				node_type   TEXT NOT NULL,
				record      JSONB NOT NULL,
				created_at  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
		2: `CREATE INDEX IF NOT EXISTS idx_node_outputs_node_id ON node_outputs (node_id);`,
	}
}

// migrate applies every migration newer than the recorded schema version,
// each in its own transaction, in ascending version order.
func migrate(ctx context.Context, logger *slog.Logger, db *sql.DB, migrations map[int]string) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS burstgraph_schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM burstgraph_schema_migrations").Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to query current schema version: %w", err)
	}

	versions := make([]int, 0, len(migrations))
	for v := range migrations {
		versions = append(versions, v)
	}
	sort.Ints(versions)

	for _, version := range versions {
		if version <= current {
			continue
		}
		logger.DebugContext(ctx, "Applying cache migration.", "version", version)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[version]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO burstgraph_schema_migrations (version) VALUES ($1)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", version, err)
		}
	}
	return nil
}

package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var postgresSteps = []migrationStep{
	{
		Name: "create_table_datasets",
		SQL: `CREATE TABLE IF NOT EXISTS datasets (
  id             UUID        PRIMARY KEY,
  owner_id       TEXT        NOT NULL,
  file_name      TEXT        NOT NULL,
  original_name  TEXT        NOT NULL,
  file_type      TEXT        NOT NULL CHECK (file_type IN ('csv', 'spreadsheet')),
  columns        JSONB       NOT NULL DEFAULT '[]',
  row_count      INTEGER     NOT NULL DEFAULT 0 CHECK (row_count >= 0),
  preview_data   JSONB       NOT NULL DEFAULT '[]',
  processed_data TEXT        NOT NULL DEFAULT '',
  status         TEXT        NOT NULL CHECK (status IN ('processing', 'completed', 'error')),
  error_kind     TEXT        NOT NULL DEFAULT '',
  error_message  TEXT        NOT NULL DEFAULT '',
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  CHECK (status <> 'completed' OR processed_data <> '')
);`,
	},
	{
		Name: "create_index_datasets_owner_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_datasets_owner_created_at ON datasets (owner_id, created_at DESC);`,
	},
	{
		Name: "create_index_datasets_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_datasets_status ON datasets (status);`,
	},
}

var sqliteSteps = []migrationStep{
	{
		Name: "create_table_datasets",
		SQL: `CREATE TABLE IF NOT EXISTS datasets (
  id             TEXT      PRIMARY KEY,
  owner_id       TEXT      NOT NULL,
  file_name      TEXT      NOT NULL,
  original_name  TEXT      NOT NULL,
  file_type      TEXT      NOT NULL CHECK (file_type IN ('csv', 'spreadsheet')),
  columns        TEXT      NOT NULL DEFAULT '[]',
  row_count      INTEGER   NOT NULL DEFAULT 0 CHECK (row_count >= 0),
  preview_data   TEXT      NOT NULL DEFAULT '[]',
  processed_data TEXT      NOT NULL DEFAULT '',
  status         TEXT      NOT NULL CHECK (status IN ('processing', 'completed', 'error')),
  error_kind     TEXT      NOT NULL DEFAULT '',
  error_message  TEXT      NOT NULL DEFAULT '',
  created_at     TIMESTAMP NOT NULL,
  updated_at     TIMESTAMP NOT NULL,
  CHECK (status <> 'completed' OR processed_data <> '')
);`,
	},
	{
		Name: "create_index_datasets_owner_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_datasets_owner_created_at ON datasets (owner_id, created_at DESC);`,
	},
	{
		Name: "create_index_datasets_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_datasets_status ON datasets (status);`,
	},
}

var sentinelQueries = map[string]string{
	"postgres": `SELECT to_regclass('public.datasets') IS NOT NULL`,
	"sqlite":   `SELECT COUNT(*) > 0 FROM sqlite_master WHERE type = 'table' AND name = 'datasets'`,
}

// EnsureMigrated checks if the 'datasets' table exists and runs migrations if it doesn't.
// dialect is "postgres" or "sqlite".
func EnsureMigrated(ctx context.Context, db *sql.DB, dialect string, logger *slog.Logger) error {
	start := time.Now()

	steps := postgresSteps
	if dialect == "sqlite" {
		steps = sqliteSteps
	}
	query, ok := sentinelQueries[dialect]
	if !ok {
		return fmt.Errorf("unsupported migration dialect %q", dialect)
	}

	log := logger.With("component", "database", "dialect", dialect)
	log.Info("db_migration_check", "status", "starting")

	var exists bool
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			"status", "error",
			"error_message", fmt.Sprintf("failed to check sentinel table: %v", err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			"status", "success",
			"detail", "schema already exists, skipping migration",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.Info("db_migration_start", "status", "in_progress")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	log.Info("db_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

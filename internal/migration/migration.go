package migration

import (
	"context"
	"fmt"
	"log"

	"datastory/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations. The same schema is
// created on PostgreSQL and SQLite; only the timestamp type differs.
type MigrationRunner struct {
	version string
	driver  string
}

// NewRunner creates a new migration runner for the given driver name
func NewRunner(driver string) *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
		driver:  driver,
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	steps := []struct {
		name string
		fn   func(context.Context, *sqlx.DB) error
	}{
		{"sources table", r.createSourcesTable},
		{"analyses table", r.createAnalysesTable},
		{"drafts table", r.createDraftsTable},
		{"llm_usage table", r.createLLMUsageTable},
		{"indexes", r.createIndexes},
	}
	for _, step := range steps {
		if err := step.fn(ctx, db); err != nil {
			return errors.Wrapf(err, "failed to create %s", step.name)
		}
	}
	log.Printf("[Migration] Schema %s applied (%s)", r.version, r.driver)
	return nil
}

func (r *MigrationRunner) timestamp() string {
	if r.driver == "postgres" {
		return "TIMESTAMP WITH TIME ZONE"
	}
	return "TIMESTAMP"
}

func (r *MigrationRunner) createSourcesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS sources (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			mime_type TEXT NOT NULL DEFAULT '',
			format TEXT NOT NULL DEFAULT '',
			blob_key TEXT NOT NULL DEFAULT '',
			size_bytes BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			dataset_json TEXT,
			created_at %s NOT NULL
		)
	`, r.timestamp()))
	return err
}

func (r *MigrationRunner) createAnalysesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
			status VARCHAR(20) NOT NULL,
			result_json TEXT,
			error_message TEXT NOT NULL DEFAULT '',
			created_at %[1]s NOT NULL,
			updated_at %[1]s NOT NULL
		)
	`, r.timestamp()))
	return err
}

func (r *MigrationRunner) createDraftsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS drafts (
			id TEXT PRIMARY KEY,
			analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
			status VARCHAR(20) NOT NULL,
			story_json TEXT,
			content_html TEXT NOT NULL DEFAULT '',
			provenance_json TEXT,
			error_message TEXT NOT NULL DEFAULT '',
			created_at %[1]s NOT NULL,
			updated_at %[1]s NOT NULL
		)
	`, r.timestamp()))
	return err
}

func (r *MigrationRunner) createLLMUsageTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS llm_usage (
			id TEXT PRIMARY KEY,
			record_id TEXT NOT NULL,
			provider VARCHAR(50) NOT NULL,
			model VARCHAR(100) NOT NULL,
			operation_type VARCHAR(50) NOT NULL,
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			created_at %s NOT NULL
		)
	`, r.timestamp()))
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_sources_created_at ON sources(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_source_id ON analyses(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_drafts_analysis_id ON drafts(analysis_id)`,
		`CREATE INDEX IF NOT EXISTS idx_llm_usage_record_id ON llm_usage(record_id)`,
		`CREATE INDEX IF NOT EXISTS idx_llm_usage_created_at ON llm_usage(created_at)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

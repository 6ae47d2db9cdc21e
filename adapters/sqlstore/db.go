// Package sqlstore persists sources, analyses, drafts and usage through sqlx.
// PostgreSQL (lib/pq) and SQLite (modernc) share the same queries; bind
// variables are written as ? and rebound per driver.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "datastory/internal/errors"
	"datastory/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, driver, url string) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, apperrors.ConfigInvalid(fmt.Sprintf("unsupported database driver %q", driver))
	}

	db, err := sqlx.Open(driver, url)
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeDatabaseError, fmt.Errorf("open %s: %w", driver, err))
	}
	if driver == DriverSQLite {
		// One writer; also keeps in-memory databases on a single connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, apperrors.WithCode(apperrors.CodeDatabaseError, fmt.Errorf("ping %s: %w", driver, err))
	}
	if driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			db.Close()
			return nil, apperrors.WithCode(apperrors.CodeDatabaseError, err)
		}
	}
	return db, nil
}

// OpenAndMigrate opens the database and applies the schema.
func OpenAndMigrate(ctx context.Context, driver, url string) (*sqlx.DB, error) {
	db, err := Open(ctx, driver, url)
	if err != nil {
		return nil, err
	}
	if err := migration.NewRunner(driver).Run(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Store bundles the repositories over one connection pool.
type Store struct {
	DB       *sqlx.DB
	Sources  *SourceRepository
	Analyses *AnalysisRepository
	Drafts   *DraftRepository
	Usage    *LLMUsageRepository
}

// NewStore creates every repository over db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		DB:       db,
		Sources:  NewSourceRepository(db),
		Analyses: NewAnalysisRepository(db),
		Drafts:   NewDraftRepository(db),
		Usage:    NewLLMUsageRepository(db),
	}
}

func encodeJSON(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	if string(b) == "null" {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeJSON[T any](s sql.NullString) (*T, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func dbError(err error, resource string) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return apperrors.NotFound(resource)
	}
	return apperrors.WithCode(apperrors.CodeDatabaseError, err)
}

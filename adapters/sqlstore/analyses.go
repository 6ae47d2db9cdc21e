package sqlstore

import (
	"context"
	"database/sql"

	"datastory/domain/core"
	"datastory/domain/story"
	apperrors "datastory/internal/errors"
	"datastory/models"

	"github.com/jmoiron/sqlx"
)

type analysisRow struct {
	models.Analysis
	ResultJSON sql.NullString `db:"result_json"`
}

func newAnalysisRow(a *models.Analysis) (analysisRow, error) {
	var payload sql.NullString
	if a.Result != nil {
		var err error
		if payload, err = encodeJSON(a.Result); err != nil {
			return analysisRow{}, apperrors.WithCode(apperrors.CodeDatabaseError, err)
		}
	}
	return analysisRow{Analysis: *a, ResultJSON: payload}, nil
}

func (r analysisRow) toModel() (*models.Analysis, error) {
	result, err := decodeJSON[story.AnalysisResult](r.ResultJSON)
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeDatabaseError, err)
	}
	a := r.Analysis
	a.Result = result
	return &a, nil
}

const analysisColumns = `id, source_id, status, result_json, error_message, created_at, updated_at`

// AnalysisRepository implements ports.AnalysisRepository.
type AnalysisRepository struct {
	db *sqlx.DB
}

func NewAnalysisRepository(db *sqlx.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Create(ctx context.Context, a *models.Analysis) error {
	row, err := newAnalysisRow(a)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO analyses (`+analysisColumns+`)
		VALUES (:id, :source_id, :status, :result_json, :error_message, :created_at, :updated_at)
	`, row)
	return dbError(err, "analysis")
}

// Update writes the mutable fields of a single analysis.
func (r *AnalysisRepository) Update(ctx context.Context, a *models.Analysis) error {
	row, err := newAnalysisRow(a)
	if err != nil {
		return err
	}
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE analyses
		SET status = :status, result_json = :result_json,
		    error_message = :error_message, updated_at = :updated_at
		WHERE id = :id
	`, row)
	if err != nil {
		return dbError(err, "analysis")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NotFound("analysis")
	}
	return nil
}

func (r *AnalysisRepository) GetByID(ctx context.Context, id core.AnalysisID) (*models.Analysis, error) {
	var row analysisRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+analysisColumns+` FROM analyses WHERE id = ?`), id)
	if err != nil {
		return nil, dbError(err, "analysis")
	}
	return row.toModel()
}

// ListBySource returns the analyses of one source, newest first.
func (r *AnalysisRepository) ListBySource(ctx context.Context, sourceID core.SourceID) ([]*models.Analysis, error) {
	var rows []analysisRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT `+analysisColumns+`
		FROM analyses
		WHERE source_id = ?
		ORDER BY created_at DESC, id DESC
	`), sourceID)
	if err != nil {
		return nil, dbError(err, "analysis")
	}
	out := make([]*models.Analysis, 0, len(rows))
	for _, row := range rows {
		a, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

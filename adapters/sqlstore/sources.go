package sqlstore

import (
	"context"
	"database/sql"

	"datastory/domain/core"
	"datastory/domain/dataset"
	apperrors "datastory/internal/errors"
	"datastory/models"

	"github.com/jmoiron/sqlx"
)

type sourceRow struct {
	models.Source
	DatasetJSON sql.NullString `db:"dataset_json"`
}

func (r sourceRow) toModel() (*models.Source, error) {
	ds, err := decodeJSON[dataset.Dataset](r.DatasetJSON)
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeDatabaseError, err)
	}
	src := r.Source
	src.Dataset = ds
	return &src, nil
}

const sourceColumns = `id, name, mime_type, format, blob_key, size_bytes, status, error_message, dataset_json, created_at`

// SourceRepository implements ports.SourceRepository.
type SourceRepository struct {
	db *sqlx.DB
}

func NewSourceRepository(db *sqlx.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// Create inserts a source together with its parsed dataset.
func (r *SourceRepository) Create(ctx context.Context, src *models.Source) error {
	payload, err := encodeJSON(src.Dataset)
	if err != nil {
		return apperrors.WithCode(apperrors.CodeDatabaseError, err)
	}
	row := sourceRow{Source: *src, DatasetJSON: payload}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO sources (`+sourceColumns+`)
		VALUES (
			:id, :name, :mime_type, :format, :blob_key, :size_bytes,
			:status, :error_message, :dataset_json, :created_at
		)
	`, row)
	return dbError(err, "source")
}

func (r *SourceRepository) GetByID(ctx context.Context, id core.SourceID) (*models.Source, error) {
	var row sourceRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+sourceColumns+` FROM sources WHERE id = ?`), id)
	if err != nil {
		return nil, dbError(err, "source")
	}
	return row.toModel()
}

// List returns sources newest first. Datasets are not loaded.
func (r *SourceRepository) List(ctx context.Context, limit, offset int) ([]*models.Source, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var rows []sourceRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, name, mime_type, format, blob_key, size_bytes, status, error_message, created_at
		FROM sources
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`), limit, offset)
	if err != nil {
		return nil, dbError(err, "source")
	}
	out := make([]*models.Source, 0, len(rows))
	for i := range rows {
		src := rows[i].Source
		out = append(out, &src)
	}
	return out, nil
}

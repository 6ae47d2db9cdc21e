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

type draftRow struct {
	models.Draft
	StoryJSON      sql.NullString `db:"story_json"`
	ProvenanceJSON sql.NullString `db:"provenance_json"`
}

func newDraftRow(d *models.Draft) (draftRow, error) {
	row := draftRow{Draft: *d}
	var err error
	if d.Story != nil {
		if row.StoryJSON, err = encodeJSON(d.Story); err != nil {
			return draftRow{}, apperrors.WithCode(apperrors.CodeDatabaseError, err)
		}
	}
	if d.Provenance != nil {
		if row.ProvenanceJSON, err = encodeJSON(d.Provenance); err != nil {
			return draftRow{}, apperrors.WithCode(apperrors.CodeDatabaseError, err)
		}
	}
	return row, nil
}

func (r draftRow) toModel() (*models.Draft, error) {
	s, err := decodeJSON[story.Draft](r.StoryJSON)
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeDatabaseError, err)
	}
	prov, err := decodeJSON[story.Provenance](r.ProvenanceJSON)
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeDatabaseError, err)
	}
	d := r.Draft
	d.Story = s
	d.Provenance = prov
	return &d, nil
}

const draftColumns = `id, analysis_id, status, story_json, content_html, provenance_json, error_message, created_at, updated_at`

// DraftRepository implements ports.DraftRepository.
type DraftRepository struct {
	db *sqlx.DB
}

func NewDraftRepository(db *sqlx.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

func (r *DraftRepository) Create(ctx context.Context, d *models.Draft) error {
	row, err := newDraftRow(d)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO drafts (`+draftColumns+`)
		VALUES (
			:id, :analysis_id, :status, :story_json, :content_html,
			:provenance_json, :error_message, :created_at, :updated_at
		)
	`, row)
	return dbError(err, "draft")
}

func (r *DraftRepository) Update(ctx context.Context, d *models.Draft) error {
	row, err := newDraftRow(d)
	if err != nil {
		return err
	}
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE drafts
		SET status = :status, story_json = :story_json, content_html = :content_html,
		    provenance_json = :provenance_json, error_message = :error_message,
		    updated_at = :updated_at
		WHERE id = :id
	`, row)
	if err != nil {
		return dbError(err, "draft")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NotFound("draft")
	}
	return nil
}

func (r *DraftRepository) GetByID(ctx context.Context, id core.DraftID) (*models.Draft, error) {
	var row draftRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+draftColumns+` FROM drafts WHERE id = ?`), id)
	if err != nil {
		return nil, dbError(err, "draft")
	}
	return row.toModel()
}

// ListByAnalysis returns the drafts of one analysis, newest first.
func (r *DraftRepository) ListByAnalysis(ctx context.Context, analysisID core.AnalysisID) ([]*models.Draft, error) {
	var rows []draftRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT `+draftColumns+`
		FROM drafts
		WHERE analysis_id = ?
		ORDER BY created_at DESC, id DESC
	`), analysisID)
	if err != nil {
		return nil, dbError(err, "draft")
	}
	out := make([]*models.Draft, 0, len(rows))
	for _, row := range rows {
		d, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

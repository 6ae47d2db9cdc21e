package ports

import (
	"context"

	"datastory/domain/core"
	"datastory/models"
)

// SourceRepository stores uploaded sources and their parsed datasets.
type SourceRepository interface {
	Create(ctx context.Context, src *models.Source) error
	GetByID(ctx context.Context, id core.SourceID) (*models.Source, error)
	List(ctx context.Context, limit, offset int) ([]*models.Source, error)
}

// AnalysisRepository stores analysis records. Update only ever moves a record
// out of processing; earlier analyses of the same source are left alone.
type AnalysisRepository interface {
	Create(ctx context.Context, a *models.Analysis) error
	Update(ctx context.Context, a *models.Analysis) error
	GetByID(ctx context.Context, id core.AnalysisID) (*models.Analysis, error)
	ListBySource(ctx context.Context, sourceID core.SourceID) ([]*models.Analysis, error)
}

// DraftRepository stores story drafts.
type DraftRepository interface {
	Create(ctx context.Context, d *models.Draft) error
	Update(ctx context.Context, d *models.Draft) error
	GetByID(ctx context.Context, id core.DraftID) (*models.Draft, error)
	ListByAnalysis(ctx context.Context, analysisID core.AnalysisID) ([]*models.Draft, error)
}

// BlobStore keeps the raw bytes of uploads.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

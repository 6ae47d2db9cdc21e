package app

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"datastory/adapters/ingest"
	"datastory/domain/core"
	"datastory/domain/dataset"
	apperrors "datastory/internal/errors"
	"datastory/models"
	"datastory/ports"
)

// Upload is one file handed to the ingest service.
type Upload struct {
	Name     string
	MimeType string
	Data     []byte
}

// IngestLimits bounds what an upload may cost.
type IngestLimits struct {
	MaxFileSize   int64 // bytes; 0 disables the check
	MaxStoredRows int   // rows kept with the stored dataset; 0 keeps all
}

// IngestService stores uploads and the datasets parsed from them.
type IngestService struct {
	sources ports.SourceRepository
	blobs   ports.BlobStore
	limits  IngestLimits
	clock   core.Clock
}

func NewIngestService(sources ports.SourceRepository, blobs ports.BlobStore, limits IngestLimits) *IngestService {
	return &IngestService{sources: sources, blobs: blobs, limits: limits, clock: core.SystemClock}
}

// Ingest stores the raw bytes, parses and analyzes them, and persists a
// Source. A parse failure is persisted as a failed Source and also returned.
func (s *IngestService) Ingest(ctx context.Context, up Upload) (*models.Source, error) {
	if s.limits.MaxFileSize > 0 && int64(len(up.Data)) > s.limits.MaxFileSize {
		return nil, apperrors.InvalidInput(fmt.Sprintf("file exceeds the %d byte limit", s.limits.MaxFileSize))
	}

	src := &models.Source{
		ID:        core.NewSourceID(),
		Name:      strings.TrimSpace(up.Name),
		MimeType:  up.MimeType,
		SizeBytes: int64(len(up.Data)),
		CreatedAt: s.clock(),
	}
	if src.Name == "" {
		src.Name = src.ID.String()
	}
	src.BlobKey = src.ID.String() + strings.ToLower(filepath.Ext(src.Name))

	if err := s.blobs.Put(ctx, src.BlobKey, up.Data); err != nil {
		return nil, apperrors.Wrap(err, "store upload")
	}

	ds, format, parseErr := ingest.ParseUpload(up.MimeType, up.Name, up.Data)
	src.Format = string(format)
	if parseErr != nil {
		src.Status = models.StatusFailed
		src.ErrorMessage = apperrors.Localize(parseErr, apperrors.DefaultLanguage)
		log.Printf("[IngestService] Parse failed for %q: %v", src.Name, parseErr)
		if err := s.sources.Create(ctx, src); err != nil {
			return nil, apperrors.Wrap(err, "persist failed source")
		}
		return src, parseErr
	}

	src.Dataset = s.trim(ds)
	src.Status = models.StatusCompleted
	if err := s.sources.Create(ctx, src); err != nil {
		return nil, apperrors.Wrap(err, "persist source")
	}
	log.Printf("[IngestService] Stored source %s (%s, %d rows x %d columns)",
		src.ID, src.Format, ds.RowCount, ds.ColumnCount)
	return src, nil
}

func (s *IngestService) trim(ds *dataset.Dataset) *dataset.Dataset {
	if s.limits.MaxStoredRows > 0 && ds.RowCount > s.limits.MaxStoredRows {
		return ds.DropRows()
	}
	return ds
}

// Get returns a stored source.
func (s *IngestService) Get(ctx context.Context, id core.SourceID) (*models.Source, error) {
	return s.sources.GetByID(ctx, id)
}

// List returns stored sources, newest first.
func (s *IngestService) List(ctx context.Context, limit, offset int) ([]*models.Source, error) {
	return s.sources.List(ctx, limit, offset)
}

// Reprocess parses the stored bytes of a source again into a new Source.
// The original record is left untouched.
func (s *IngestService) Reprocess(ctx context.Context, id core.SourceID) (*models.Source, error) {
	src, err := s.sources.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := s.blobs.Get(ctx, src.BlobKey)
	if err != nil {
		return nil, apperrors.Wrap(err, "load upload")
	}
	return s.Ingest(ctx, Upload{Name: src.Name, MimeType: src.MimeType, Data: data})
}

// readyDataset loads a source and checks that it parsed.
func readyDataset(ctx context.Context, sources ports.SourceRepository, id core.SourceID) (*models.Source, error) {
	src, err := sources.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if src.Status != models.StatusCompleted || src.Dataset == nil {
		return nil, apperrors.ValidationError(fmt.Sprintf("source %s has no usable dataset", id))
	}
	return src, nil
}

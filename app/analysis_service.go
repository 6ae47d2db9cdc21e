package app

import (
	"context"
	"log"

	"datastory/adapters/ingest"
	"datastory/ai"
	"datastory/domain/chart"
	"datastory/domain/core"
	"datastory/domain/dataset"
	"datastory/domain/stats"
	"datastory/domain/story"
	apperrors "datastory/internal/errors"
	"datastory/internal/usage"
	"datastory/models"
	"datastory/ports"
)

// AnalysisService runs statistics, charts and the insight stage over a
// source and records the outcome.
type AnalysisService struct {
	sources  ports.SourceRepository
	analyses ports.AnalysisRepository
	blobs    ports.BlobStore
	insights *InsightOrchestrator
	usage    *usage.Service
	clock    core.Clock
}

func NewAnalysisService(sources ports.SourceRepository, analyses ports.AnalysisRepository, blobs ports.BlobStore, insights *InsightOrchestrator, usageSvc *usage.Service) *AnalysisService {
	return &AnalysisService{
		sources:  sources,
		analyses: analyses,
		blobs:    blobs,
		insights: insights,
		usage:    usageSvc,
		clock:    core.SystemClock,
	}
}

// Run creates a new analysis for sourceID. The record starts in processing
// and ends completed or failed; on failure the record is returned together
// with the error.
func (s *AnalysisService) Run(ctx context.Context, sourceID core.SourceID) (*models.Analysis, error) {
	src, err := readyDataset(ctx, s.sources, sourceID)
	if err != nil {
		return nil, err
	}
	ds := s.fullDataset(ctx, src)

	start := s.clock()
	st := stats.Compute(ds)
	charts := chart.Generate(ds, st)

	a := models.NewAnalysis(src.ID, start)
	if err := s.analyses.Create(ctx, a); err != nil {
		return nil, apperrors.Wrap(err, "create analysis")
	}
	log.Printf("[AnalysisService] Analysis %s started for source %s (%d charts)", a.ID, src.ID, len(charts))

	out, genErr := s.insights.GenerateInsights(ctx, ds, st, src.Name)
	if genErr != nil {
		a.Fail(ai.FailureMessage(genErr), s.clock())
		if err := s.analyses.Update(context.WithoutCancel(ctx), a); err != nil {
			log.Printf("[AnalysisService] ERROR: could not record failure of %s: %v", a.ID, err)
		}
		log.Printf("[AnalysisService] Analysis %s failed: %s", a.ID, a.ErrorMessage)
		return a, genErr
	}

	result := &story.AnalysisResult{
		Statistics:       st,
		Insights:         out.Insights,
		Charts:           charts,
		Provider:         out.Provider,
		Model:            out.Model,
		TokensUsed:       out.TokensUsed,
		ProcessingTimeMs: s.clock.Since(start),
	}
	if result.Charts == nil {
		result.Charts = []chart.Config{}
	}
	a.Complete(result, s.clock())
	if err := s.analyses.Update(ctx, a); err != nil {
		return nil, apperrors.Wrap(err, "complete analysis")
	}
	s.usage.RecordUsage(ctx, a.ID.String(), models.OpInsightGeneration, out.Usage)

	log.Printf("[AnalysisService] Analysis %s completed by %s in %dms", a.ID, out.Provider, result.ProcessingTimeMs)
	return a, nil
}

// fullDataset returns the source's dataset with every row attached. Sources
// stored without rows are parsed again from their upload; if that fails the
// statistics fall back to the preview rows.
func (s *AnalysisService) fullDataset(ctx context.Context, src *models.Source) *dataset.Dataset {
	ds := src.Dataset
	if ds.HasRows() || ds.RowCount <= len(ds.PreviewData) {
		return ds
	}
	if s.blobs == nil {
		log.Printf("[AnalysisService] WARN: source %s has no stored rows; statistics use the %d-row preview", src.ID, len(ds.PreviewData))
		return ds
	}

	data, err := s.blobs.Get(ctx, src.BlobKey)
	if err != nil {
		log.Printf("[AnalysisService] WARN: could not load upload of %s, statistics use the %d-row preview: %v", src.ID, len(ds.PreviewData), err)
		return ds
	}
	full, err := ingest.Parse(ingest.Format(src.Format), data)
	if err != nil {
		log.Printf("[AnalysisService] WARN: could not re-parse %s, statistics use the %d-row preview: %v", src.ID, len(ds.PreviewData), err)
		return ds
	}
	log.Printf("[AnalysisService] Re-parsed %s for statistics (%d rows)", src.ID, full.RowCount)
	return full
}

// Get returns one analysis.
func (s *AnalysisService) Get(ctx context.Context, id core.AnalysisID) (*models.Analysis, error) {
	return s.analyses.GetByID(ctx, id)
}

// ListBySource returns every analysis of a source, newest first.
func (s *AnalysisService) ListBySource(ctx context.Context, sourceID core.SourceID) ([]*models.Analysis, error) {
	if _, err := s.sources.GetByID(ctx, sourceID); err != nil {
		return nil, err
	}
	return s.analyses.ListBySource(ctx, sourceID)
}

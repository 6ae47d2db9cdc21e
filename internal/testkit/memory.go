package testkit

import (
	"context"
	"sort"
	"sync"
	"time"

	"datastory/domain/core"
	apperrors "datastory/internal/errors"
	"datastory/models"
)

// MemoryStore implements every repository port and the blob store in memory.
// Records are copied on the way in and out so callers cannot mutate stored
// state.
type MemoryStore struct {
	mu        sync.RWMutex
	sources   map[core.SourceID]models.Source
	analyses  map[core.AnalysisID]models.Analysis
	drafts    map[core.DraftID]models.Draft
	usage     []models.LLMUsage
	blobs     map[string][]byte
	createSeq []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sources:  make(map[core.SourceID]models.Source),
		analyses: make(map[core.AnalysisID]models.Analysis),
		drafts:   make(map[core.DraftID]models.Draft),
		blobs:    make(map[string][]byte),
	}
}

// Sources

func (s *MemoryStore) Create(ctx context.Context, src *models.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sources[src.ID]; exists {
		return apperrors.DatabaseError("source already exists")
	}
	s.sources[src.ID] = *src
	s.createSeq = append(s.createSeq, src.ID.String())
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id core.SourceID) (*models.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[id]
	if !ok {
		return nil, apperrors.NotFound("source")
	}
	return &src, nil
}

func (s *MemoryStore) List(ctx context.Context, limit, offset int) ([]*models.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Source
	for i := len(s.createSeq) - 1; i >= 0; i-- {
		src, ok := s.sources[core.SourceID(s.createSeq[i])]
		if !ok {
			continue
		}
		out = append(out, &src)
	}
	return page(out, limit, offset), nil
}

// Sources returns the source repository view of the store.
func (s *MemoryStore) Sources() *MemoryStore { return s }

// Analyses returns the analysis repository view of the store.
func (s *MemoryStore) Analyses() *MemoryAnalyses { return &MemoryAnalyses{s} }

// Drafts returns the draft repository view of the store.
func (s *MemoryStore) Drafts() *MemoryDrafts { return &MemoryDrafts{s} }

// Usage returns the usage repository view of the store.
func (s *MemoryStore) Usage() *MemoryUsage { return &MemoryUsage{s} }

// Blobs returns the blob store view of the store.
func (s *MemoryStore) Blobs() *MemoryBlobs { return &MemoryBlobs{s} }

// MemoryAnalyses implements ports.AnalysisRepository.
type MemoryAnalyses struct{ s *MemoryStore }

func (r *MemoryAnalyses) Create(ctx context.Context, a *models.Analysis) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.analyses[a.ID]; exists {
		return apperrors.DatabaseError("analysis already exists")
	}
	r.s.analyses[a.ID] = *a
	return nil
}

func (r *MemoryAnalyses) Update(ctx context.Context, a *models.Analysis) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.analyses[a.ID]; !exists {
		return apperrors.NotFound("analysis")
	}
	r.s.analyses[a.ID] = *a
	return nil
}

func (r *MemoryAnalyses) GetByID(ctx context.Context, id core.AnalysisID) (*models.Analysis, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.analyses[id]
	if !ok {
		return nil, apperrors.NotFound("analysis")
	}
	return &a, nil
}

func (r *MemoryAnalyses) ListBySource(ctx context.Context, sourceID core.SourceID) ([]*models.Analysis, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*models.Analysis
	for _, a := range r.s.analyses {
		if a.SourceID == sourceID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[j].CreatedAt, string(out[i].ID), string(out[j].ID)) })
	return out, nil
}

// MemoryDrafts implements ports.DraftRepository.
type MemoryDrafts struct{ s *MemoryStore }

func (r *MemoryDrafts) Create(ctx context.Context, d *models.Draft) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.drafts[d.ID]; exists {
		return apperrors.DatabaseError("draft already exists")
	}
	r.s.drafts[d.ID] = *d
	return nil
}

func (r *MemoryDrafts) Update(ctx context.Context, d *models.Draft) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.drafts[d.ID]; !exists {
		return apperrors.NotFound("draft")
	}
	r.s.drafts[d.ID] = *d
	return nil
}

func (r *MemoryDrafts) GetByID(ctx context.Context, id core.DraftID) (*models.Draft, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.drafts[id]
	if !ok {
		return nil, apperrors.NotFound("draft")
	}
	return &d, nil
}

func (r *MemoryDrafts) ListByAnalysis(ctx context.Context, analysisID core.AnalysisID) ([]*models.Draft, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*models.Draft
	for _, d := range r.s.drafts {
		if d.AnalysisID == analysisID {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[j].CreatedAt, string(out[i].ID), string(out[j].ID)) })
	return out, nil
}

// MemoryUsage implements ports.LLMUsageRepository.
type MemoryUsage struct{ s *MemoryStore }

func (r *MemoryUsage) RecordUsage(ctx context.Context, usage *models.LLMUsage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.usage = append(r.s.usage, *usage)
	return nil
}

func (r *MemoryUsage) GetRecordUsage(ctx context.Context, recordID string) ([]*models.LLMUsage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*models.LLMUsage
	for _, u := range r.s.usage {
		if u.RecordID == recordID {
			u := u
			out = append(out, &u)
		}
	}
	return out, nil
}

func (r *MemoryUsage) GetUsageSummary(ctx context.Context, start, end time.Time) (*models.UsageSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	summary := &models.UsageSummary{
		PeriodStart: start,
		PeriodEnd:   end,
		ByProvider:  make(map[string]models.ProviderUsage),
	}
	for _, u := range r.s.usage {
		if u.CreatedAt.Before(start) || u.CreatedAt.After(end) {
			continue
		}
		summary.TotalTokens += u.TotalTokens
		summary.RequestCount++
		p := summary.ByProvider[u.Provider]
		p.Provider = u.Provider
		p.TotalTokens += u.TotalTokens
		p.RequestCount++
		summary.ByProvider[u.Provider] = p
	}
	return summary, nil
}

// MemoryBlobs implements ports.BlobStore.
type MemoryBlobs struct{ s *MemoryStore }

func (r *MemoryBlobs) Put(ctx context.Context, key string, data []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (r *MemoryBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.blobs[key]
	if !ok {
		return nil, apperrors.NotFound("blob")
	}
	return append([]byte(nil), b...), nil
}

func newer(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return idA > idB
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

package usage

import (
	"context"
	"log"
	"sync"
	"time"

	"datastory/domain/core"
	"datastory/models"
	"datastory/ports"
)

// Service handles LLM usage tracking and persistence
type Service struct {
	repo    ports.LLMUsageRepository
	clock   core.Clock
	pending sync.WaitGroup
}

// NewService creates a new usage service
func NewService(repo ports.LLMUsageRepository) *Service {
	return &Service{repo: repo, clock: core.SystemClock}
}

// RecordUsage asynchronously records usage for the analysis or draft
// identified by recordID. Tracking problems are logged, never returned.
func (s *Service) RecordUsage(ctx context.Context, recordID, operationType string, usage *models.UsageData) {
	if s == nil || s.repo == nil {
		return
	}
	if usage == nil {
		log.Printf("[UsageService] ERROR: nil usage data provided for %s", recordID)
		return
	}
	if usage.PromptTokens < 0 || usage.CompletionTokens < 0 || usage.TotalTokens < 0 {
		log.Printf("[UsageService] ERROR: invalid token counts: %+v", usage)
		return
	}

	record := &models.LLMUsage{
		ID:               core.NewID(),
		RecordID:         recordID,
		Provider:         usage.Provider,
		Model:            usage.Model,
		OperationType:    operationType,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		CreatedAt:        s.clock(),
	}

	// Persist off the request path; the caller's context may end first.
	bg := context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.persistWithRetry(bg, record); err != nil {
			log.Printf("[UsageService] ERROR: failed to persist usage after retries: %v", err)
		}
	}()
}

// Wait blocks until every pending write has finished.
func (s *Service) Wait() {
	if s != nil {
		s.pending.Wait()
	}
}

// persistWithRetry attempts to persist usage with linear backoff
func (s *Service) persistWithRetry(ctx context.Context, usage *models.LLMUsage) error {
	const maxRetries = 3
	const baseDelay = 100 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err = s.repo.RecordUsage(ctx, usage); err == nil {
			return nil
		}
		if attempt < maxRetries-1 {
			time.Sleep(time.Duration(attempt+1) * baseDelay)
		}
	}
	return err
}

// GetRecordUsage returns the usage rows for one analysis or draft
func (s *Service) GetRecordUsage(ctx context.Context, recordID string) ([]*models.LLMUsage, error) {
	return s.repo.GetRecordUsage(ctx, recordID)
}

// GetUsageSummary returns aggregated usage in a time period
func (s *Service) GetUsageSummary(ctx context.Context, start, end time.Time) (*models.UsageSummary, error) {
	return s.repo.GetUsageSummary(ctx, start, end)
}

package ports

import (
	"context"
	"time"

	"datastory/models"
)

// LLMUsageRepository defines the interface for LLM usage data operations
type LLMUsageRepository interface {
	// Record usage for a provider call
	RecordUsage(ctx context.Context, usage *models.LLMUsage) error

	// Usage attributed to one analysis or draft
	GetRecordUsage(ctx context.Context, recordID string) ([]*models.LLMUsage, error)

	// Aggregated usage within a date range
	GetUsageSummary(ctx context.Context, start, end time.Time) (*models.UsageSummary, error)
}

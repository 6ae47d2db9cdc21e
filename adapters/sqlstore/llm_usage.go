package sqlstore

import (
	"context"
	"time"

	"datastory/domain/core"
	"datastory/models"

	"github.com/jmoiron/sqlx"
)

// LLMUsageRepository implements ports.LLMUsageRepository
type LLMUsageRepository struct {
	db *sqlx.DB
}

// NewLLMUsageRepository creates a new LLM usage repository
func NewLLMUsageRepository(db *sqlx.DB) *LLMUsageRepository {
	return &LLMUsageRepository{db: db}
}

// RecordUsage records LLM usage for an API call
func (r *LLMUsageRepository) RecordUsage(ctx context.Context, usage *models.LLMUsage) error {
	if usage.ID.IsEmpty() {
		usage.ID = core.NewID()
	}
	if usage.CreatedAt.IsZero() {
		usage.CreatedAt = time.Now()
	}
	usage.CreatedAt = usage.CreatedAt.UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO llm_usage (
			id, record_id, provider, model, operation_type,
			prompt_tokens, completion_tokens, total_tokens, created_at
		) VALUES (
			:id, :record_id, :provider, :model, :operation_type,
			:prompt_tokens, :completion_tokens, :total_tokens, :created_at
		)
	`, usage)
	return dbError(err, "usage")
}

// GetRecordUsage retrieves the usage rows of one analysis or draft
func (r *LLMUsageRepository) GetRecordUsage(ctx context.Context, recordID string) ([]*models.LLMUsage, error) {
	var usages []*models.LLMUsage
	err := r.db.SelectContext(ctx, &usages, r.db.Rebind(`
		SELECT id, record_id, provider, model, operation_type,
		       prompt_tokens, completion_tokens, total_tokens, created_at
		FROM llm_usage
		WHERE record_id = ?
		ORDER BY created_at ASC
	`), recordID)
	if err != nil {
		return nil, dbError(err, "usage")
	}
	return usages, nil
}

// GetUsageSummary returns usage aggregated by provider within a date range
func (r *LLMUsageRepository) GetUsageSummary(ctx context.Context, start, end time.Time) (*models.UsageSummary, error) {
	summary := &models.UsageSummary{
		PeriodStart: start,
		PeriodEnd:   end,
		ByProvider:  make(map[string]models.ProviderUsage),
	}

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
		SELECT provider, COALESCE(SUM(total_tokens), 0) AS total_tokens, COUNT(*) AS request_count
		FROM llm_usage
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY provider
	`), start.UTC(), end.UTC())
	if err != nil {
		return nil, dbError(err, "usage")
	}
	defer rows.Close()

	for rows.Next() {
		var provider models.ProviderUsage
		if err := rows.Scan(&provider.Provider, &provider.TotalTokens, &provider.RequestCount); err != nil {
			return nil, dbError(err, "usage")
		}
		summary.ByProvider[provider.Provider] = provider
		summary.TotalTokens += provider.TotalTokens
		summary.RequestCount += provider.RequestCount
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "usage")
	}
	return summary, nil
}

package models

import (
	"time"

	"datastory/domain/core"
)

// LLMUsage represents a single provider call's token usage
type LLMUsage struct {
	ID               core.ID   `json:"id" db:"id"`
	RecordID         string    `json:"record_id" db:"record_id"`           // analysis or draft the call served
	Provider         string    `json:"provider" db:"provider"`             // 'openai', 'gemini', ...
	Model            string    `json:"model" db:"model"`                   // model name reported by the provider
	OperationType    string    `json:"operation_type" db:"operation_type"` // 'insight_generation', 'story_generation'
	PromptTokens     int       `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens" db:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens" db:"total_tokens"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// UsageData represents raw usage data from provider APIs
type UsageData struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
	Provider         string `json:"provider"`
}

// UsageSummary aggregates usage over a period
type UsageSummary struct {
	PeriodStart  time.Time                `json:"period_start"`
	PeriodEnd    time.Time                `json:"period_end"`
	TotalTokens  int                      `json:"total_tokens"`
	ByProvider   map[string]ProviderUsage `json:"by_provider"`
	RequestCount int                      `json:"request_count"`
}

// ProviderUsage represents usage aggregated by provider
type ProviderUsage struct {
	Provider     string `json:"provider"`
	TotalTokens  int    `json:"total_tokens"`
	RequestCount int    `json:"request_count"`
}

// Operation types for categorization
const (
	OpInsightGeneration = "insight_generation"
	OpStoryGeneration   = "story_generation"
)

package ports

import (
	"context"

	"datastory/models"
)

// GenerateRequest is one prompt sent to a provider.
type GenerateRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	// JSONMode asks the provider to constrain its output to a JSON object.
	JSONMode bool
}

// LLMResponse represents a provider response with usage data
type LLMResponse struct {
	Content string
	Usage   *models.UsageData
}

// LLMProvider is a generative text backend. Implementations are constructed
// explicitly and handed to the caller that needs them.
type LLMProvider interface {
	Name() string
	Model() string
	Generate(ctx context.Context, req GenerateRequest) (*LLMResponse, error)
}

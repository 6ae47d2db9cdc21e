package llm

import (
	"fmt"
	"strings"
	"time"

	"datastory/ports"
)

// Provider kinds understood by NewProvider.
const (
	KindOpenAI = "openai"
	KindGemini = "gemini"
)

// Config describes one provider endpoint.
type Config struct {
	Name        string        // label used in provider chains; defaults to Kind
	Kind        string        // "openai" (any chat-completions API) or "gemini"
	Model       string        // e.g., "gpt-4o-mini", "gemini-2.0-flash"
	APIKey      string
	BaseURL     string        // Optional override
	Temperature float64       // 0.0-1.0, lower = more deterministic
	MaxTokens   int           // Max tokens in response
	Timeout     time.Duration // HTTP client timeout
}

// NewProvider builds the provider for cfg.Kind.
func NewProvider(cfg Config) (ports.LLMProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing API key for provider %q", cfg.label())
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("missing model for provider %q", cfg.label())
	}
	cfg.Kind = strings.ToLower(strings.TrimSpace(cfg.Kind))
	switch cfg.Kind {
	case KindOpenAI:
		return NewOpenAIClient(cfg), nil
	case KindGemini:
		return NewGeminiClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
}

func (c Config) label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Kind
}

func (c Config) maxTokens() int {
	if c.MaxTokens <= 0 {
		return 4096
	}
	return c.MaxTokens
}

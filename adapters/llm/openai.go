package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"datastory/models"
	"datastory/ports"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient talks to any chat-completions compatible endpoint.
type OpenAIClient struct {
	config Config
	http   *http.Client
}

// NewOpenAIClient creates a chat-completions client
func NewOpenAIClient(cfg Config) *OpenAIClient {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Kind == "" {
		cfg.Kind = KindOpenAI
	}
	return &OpenAIClient{config: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

func (c *OpenAIClient) Name() string  { return c.config.label() }
func (c *OpenAIClient) Model() string { return c.config.Model }

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature,omitempty"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends one system + user exchange.
func (c *OpenAIClient) Generate(ctx context.Context, req ports.GenerateRequest) (*ports.LLMResponse, error) {
	body := openAIRequest{
		Model:       c.config.Model,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.maxTokens(),
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		body.Temperature = req.Temperature
	}
	if req.System != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, openAIMessage{Role: "user", Content: req.Prompt})
	if req.JSONMode {
		body.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	log.Printf("[OpenAIClient] Sending request to %s - model=%s, promptLength=%d", c.Name(), c.config.Model, len(req.Prompt))
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.Name(), err)
	}
	defer resp.Body.Close()

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var decoded openAIResponse
	decodeErr := json.Unmarshal(respRaw, &decoded)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && decoded.Error != nil && decoded.Error.Message != "" {
			return nil, fmt.Errorf("%s http %d: %s", c.Name(), resp.StatusCode, decoded.Error.Message)
		}
		return nil, fmt.Errorf("%s http %d: %s", c.Name(), resp.StatusCode, strings.TrimSpace(string(respRaw)))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("unmarshal response: %w", decodeErr)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("%s response missing choices", c.Name())
	}

	model := decoded.Model
	if model == "" {
		model = c.config.Model
	}
	log.Printf("[OpenAIClient] Response from %s - model=%s, tokens=%d", c.Name(), model, decoded.Usage.TotalTokens)
	return &ports.LLMResponse{
		Content: decoded.Choices[0].Message.Content,
		Usage: &models.UsageData{
			PromptTokens:     decoded.Usage.PromptTokens,
			CompletionTokens: decoded.Usage.CompletionTokens,
			TotalTokens:      decoded.Usage.TotalTokens,
			Model:            model,
			Provider:         c.Name(),
		},
	}, nil
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"datastory/models"
	"datastory/ports"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient calls the generateContent endpoint.
type GeminiClient struct {
	config Config
	http   *http.Client
}

// NewGeminiClient creates a Gemini client
func NewGeminiClient(cfg Config) *GeminiClient {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	if cfg.Kind == "" {
		cfg.Kind = KindGemini
	}
	return &GeminiClient{config: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

func (c *GeminiClient) Name() string  { return c.config.label() }
func (c *GeminiClient) Model() string { return c.config.Model }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
	Error        *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends the prompt as a single user turn.
func (c *GeminiClient) Generate(ctx context.Context, req ports.GenerateRequest) (*ports.LLMResponse, error) {
	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     c.config.Temperature,
			MaxOutputTokens: c.config.maxTokens(),
		},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.MaxTokens > 0 {
		body.GenerationConfig.MaxOutputTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		body.GenerationConfig.Temperature = req.Temperature
	}
	if req.JSONMode {
		body.GenerationConfig.ResponseMimeType = "application/json"
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent",
		strings.TrimRight(c.config.BaseURL, "/"), url.PathEscape(c.config.Model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	log.Printf("[GeminiClient] Sending request to %s - model=%s, promptLength=%d", c.Name(), c.config.Model, len(req.Prompt))
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.Name(), err)
	}
	defer resp.Body.Close()

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var decoded geminiResponse
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
	if len(decoded.Candidates) == 0 {
		return nil, fmt.Errorf("%s response missing candidates", c.Name())
	}

	var text strings.Builder
	for _, part := range decoded.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("%s returned no text (finish reason %s)", c.Name(), decoded.Candidates[0].FinishReason)
	}

	model := decoded.ModelVersion
	if model == "" {
		model = c.config.Model
	}
	log.Printf("[GeminiClient] Response from %s - model=%s, tokens=%d", c.Name(), model, decoded.UsageMetadata.TotalTokenCount)
	return &ports.LLMResponse{
		Content: text.String(),
		Usage: &models.UsageData{
			PromptTokens:     decoded.UsageMetadata.PromptTokenCount,
			CompletionTokens: decoded.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      decoded.UsageMetadata.TotalTokenCount,
			Model:            model,
			Provider:         c.Name(),
		},
	}, nil
}

package testkit

import (
	"context"
	"sync"

	"datastory/models"
	"datastory/ports"
)

// Reply is one scripted provider outcome.
type Reply struct {
	Content string
	Tokens  int
	Err     error
}

// ScriptedProvider is an LLMProvider that plays back replies in order and
// records every request it receives. Once the script runs out the last reply
// repeats.
type ScriptedProvider struct {
	name    string
	model   string
	replies []Reply

	mu       sync.Mutex
	requests []ports.GenerateRequest
}

// NewScriptedProvider creates a provider that answers with replies.
func NewScriptedProvider(name, model string, replies ...Reply) *ScriptedProvider {
	return &ScriptedProvider{name: name, model: model, replies: replies}
}

// FailingProvider always returns err.
func FailingProvider(name string, err error) *ScriptedProvider {
	return NewScriptedProvider(name, name+"-model", Reply{Err: err})
}

// JSONProvider always answers with content.
func JSONProvider(name, content string, tokens int) *ScriptedProvider {
	return NewScriptedProvider(name, name+"-model", Reply{Content: content, Tokens: tokens})
}

func (p *ScriptedProvider) Name() string  { return p.name }
func (p *ScriptedProvider) Model() string { return p.model }

func (p *ScriptedProvider) Generate(ctx context.Context, req ports.GenerateRequest) (*ports.LLMResponse, error) {
	p.mu.Lock()
	idx := len(p.requests)
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.replies) == 0 {
		return &ports.LLMResponse{Content: "{}"}, nil
	}
	if idx >= len(p.replies) {
		idx = len(p.replies) - 1
	}
	r := p.replies[idx]
	if r.Err != nil {
		return nil, r.Err
	}
	return &ports.LLMResponse{
		Content: r.Content,
		Usage: &models.UsageData{
			TotalTokens: r.Tokens,
			Model:       p.model,
			Provider:    p.name,
		},
	}, nil
}

// Calls is the number of requests received so far.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Requests returns a copy of the received requests.
func (p *ScriptedProvider) Requests() []ports.GenerateRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ports.GenerateRequest(nil), p.requests...)
}

// Package ai runs prompts against a chain of generative providers and
// decodes their JSON answers into typed values.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"datastory/domain/core"
	apperrors "datastory/internal/errors"
	"datastory/models"
	"datastory/ports"

	"golang.org/x/sync/semaphore"
)

// Policy configures one call site: the providers to try, in order, and the
// time each attempt may take. A chain of length one never retries.
type Policy struct {
	Stage   string
	Chain   []string
	Timeout time.Duration
}

// Retries is the number of fallback attempts the policy allows.
func (p Policy) Retries() int {
	if len(p.Chain) == 0 {
		return 0
	}
	return len(p.Chain) - 1
}

// Validator is implemented by response types that can reject a decoded value.
type Validator interface {
	Validate() error
}

// Attempt records the outcome of one provider call.
type Attempt struct {
	Provider string
	Err      error
	Duration time.Duration
}

// CallError is returned when every provider in the chain failed.
type CallError struct {
	Stage    string
	Attempts []Attempt
}

func (e *CallError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Provider, a.Err)
	}
	return fmt.Sprintf("%s: all providers failed (%s)", e.Stage, strings.Join(parts, "; "))
}

// Unwrap exposes the first attempt's error.
func (e *CallError) Unwrap() error {
	return e.Primary()
}

// Primary is the error from the first provider in the chain.
func (e *CallError) Primary() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[0].Err
}

// FailureMessage is the text stored on a failed record: the first provider's
// error exactly as it reported it, or the root message for other failures.
func FailureMessage(err error) string {
	var ce *CallError
	if errors.As(err, &ce) && ce.Primary() != nil {
		return ce.Primary().Error()
	}
	return apperrors.RootMessage(err)
}

// Result describes the attempt that succeeded.
type Result struct {
	Provider         string
	Model            string
	TokensUsed       int
	Usage            *models.UsageData
	Attempts         int
	ProcessingTimeMs int64
}

// Caller owns the configured providers and bounds concurrent outbound calls.
type Caller struct {
	providers map[string]ports.LLMProvider
	sem       *semaphore.Weighted
	clock     core.Clock
}

// NewCaller registers providers by name. maxConcurrent <= 0 means one call at
// a time.
func NewCaller(providers []ports.LLMProvider, maxConcurrent int64) *Caller {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	byName := make(map[string]ports.LLMProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Caller{
		providers: byName,
		sem:       semaphore.NewWeighted(maxConcurrent),
		clock:     core.SystemClock,
	}
}

// Provider looks up a registered provider.
func (c *Caller) Provider(name string) (ports.LLMProvider, bool) {
	p, ok := c.providers[name]
	return p, ok
}

// GenerateJSON sends req to each provider of the policy chain in turn until
// one returns JSON that decodes into T and validates. The prompt is identical
// for every attempt.
func GenerateJSON[T any](ctx context.Context, c *Caller, policy Policy, req ports.GenerateRequest) (*T, *Result, error) {
	if len(policy.Chain) == 0 {
		return nil, nil, apperrors.ConfigInvalid(fmt.Sprintf("%s: provider chain is empty", policy.Stage))
	}
	req.JSONMode = true
	start := c.clock()
	callErr := &CallError{Stage: policy.Stage}

	for i, name := range policy.Chain {
		attemptStart := c.clock()
		out, resp, err := attempt[T](ctx, c, policy, name, req)
		callErr.Attempts = append(callErr.Attempts, Attempt{
			Provider: name,
			Err:      err,
			Duration: c.clock().Sub(attemptStart),
		})
		if err == nil {
			result := &Result{
				Provider:         name,
				Attempts:         i + 1,
				ProcessingTimeMs: c.clock.Since(start),
			}
			if p, ok := c.providers[name]; ok {
				result.Model = p.Model()
			}
			if resp.Usage != nil {
				result.Usage = resp.Usage
				result.TokensUsed = resp.Usage.TotalTokens
				if resp.Usage.Model != "" {
					result.Model = resp.Usage.Model
				}
			}
			log.Printf("[Caller] %s succeeded with %s on attempt %d (%d tokens)", policy.Stage, name, i+1, result.TokensUsed)
			return out, result, nil
		}

		log.Printf("[Caller] %s attempt %d with %s failed: %v", policy.Stage, i+1, name, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, nil, callErr
}

func attempt[T any](ctx context.Context, c *Caller, policy Policy, name string, req ports.GenerateRequest) (*T, *ports.LLMResponse, error) {
	provider, ok := c.providers[name]
	if !ok {
		return nil, nil, fmt.Errorf("provider %q is not configured", name)
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, err
	}
	defer c.sem.Release(1)

	callCtx := ctx
	if policy.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
		defer cancel()
	}

	resp, err := provider.Generate(callCtx, req)
	if err != nil {
		return nil, nil, err
	}
	if resp == nil {
		return nil, nil, fmt.Errorf("%s returned an empty response", name)
	}

	var out T
	content := cleanJSONContent(resp.Content)
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, resp, fmt.Errorf("%s returned malformed JSON: %w", name, err)
	}
	if v, ok := any(&out).(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, resp, fmt.Errorf("%s returned an unusable response: %w", name, err)
		}
	}
	return &out, resp, nil
}

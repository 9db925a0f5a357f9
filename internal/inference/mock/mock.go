// Package mock provides a test double for the inference.Generator interface.
//
// Responses are chosen per prompt: an exact entry in Errors or Responses wins,
// then Respond, then DefaultResponse. Every call is recorded.
//
// Example:
//
//	g := &mock.Generator{DefaultResponse: "こんにちは"}
//	text, err := g.Generate(ctx, prompt, image)
package mock

import (
	"context"
	"sync"

	"github.com/timmy/mojiscan/internal/domain"
)

// GenerateCall records a single invocation of Generate.
type GenerateCall struct {
	Prompt  string
	ImageID string
}

// Generator is a mock implementation of inference.Generator.
type Generator struct {
	mu sync.Mutex

	// Responses maps an exact prompt to the raw text returned for it.
	Responses map[string]string

	// Errors maps an exact prompt to an injected failure.
	Errors map[string]error

	// Respond handles prompts not found in Responses or Errors.
	Respond func(prompt string) (string, error)

	// DefaultResponse is returned when nothing else matches.
	DefaultResponse string

	// Block, if non-nil, is waited on (or ctx) before answering. Injected
	// Errors are returned without waiting.
	Block chan struct{}

	// VerifyErr is returned by Verify.
	VerifyErr error

	ProviderName string
	ModelName    string

	// Calls records every invocation of Generate in order.
	Calls []GenerateCall

	// VerifyCallCount is the number of times Verify was called.
	VerifyCallCount int
}

// Generate records the call and returns the configured response for prompt.
func (g *Generator) Generate(ctx context.Context, prompt string, image domain.ImagePayload) (string, error) {
	g.mu.Lock()
	g.Calls = append(g.Calls, GenerateCall{Prompt: prompt, ImageID: image.ID()})
	block := g.Block
	err, hasErr := g.Errors[prompt]
	text, hasText := g.Responses[prompt]
	respond := g.Respond
	def := g.DefaultResponse
	g.mu.Unlock()

	if hasErr {
		return "", err
	}

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	switch {
	case hasText:
		return text, nil
	case respond != nil:
		return respond(prompt)
	default:
		return def, nil
	}
}

// Verify records the call and returns VerifyErr.
func (g *Generator) Verify(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.VerifyCallCount++
	return g.VerifyErr
}

// Name returns ProviderName, or "mock".
func (g *Generator) Name() string {
	if g.ProviderName == "" {
		return "mock"
	}
	return g.ProviderName
}

// Model returns ModelName, or "mock-model".
func (g *Generator) Model() string {
	if g.ModelName == "" {
		return "mock-model"
	}
	return g.ModelName
}

// CallCount returns the number of Generate calls so far.
func (g *Generator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Calls)
}

// PromptsSeen returns the prompts of all Generate calls in order.
func (g *Generator) PromptsSeen() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.Calls))
	for i, c := range g.Calls {
		out[i] = c.Prompt
	}
	return out
}

// Package llm defines the language-model provider contract consumed by the
// assist and refine layers. The provider is synchronous request/response;
// any streaming presented to callers is simulated client-side.
package llm

import (
	"context"
	"errors"
)

// ErrNoCredential means no API key is configured. Fatal to the calling
// operation, surfaced immediately, never retried.
var ErrNoCredential = errors.New("llm: no provider credential configured")

// ErrProvider means the provider returned a non-2xx or malformed response.
// The operation is aborted with no partial mutation.
var ErrProvider = errors.New("llm: provider error")

// ErrSafetyRejected means provider moderation refused the content. Callers
// substitute PlaceholderText and report succeeded-with-caveat, not failure.
var ErrSafetyRejected = errors.New("llm: content rejected by provider moderation")

// PlaceholderText replaces moderation-flagged output.
const PlaceholderText = "[content removed by provider moderation]"

// Request is a single completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response is the provider's completion plus token accounting.
type Response struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Provider is the interface for any LLM backend.
type Provider interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
	Model() string
}

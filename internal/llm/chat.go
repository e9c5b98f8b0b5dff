// Package llm defines the cross-provider chat model surface the
// Orchestrator calls through, and the provider-error mapping onto the
// taxonomy in spec §7.
package llm

import (
	"context"
	"time"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
)

// Role identifies the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat request.
type Message struct {
	Role    Role
	Content string
}

// ChatRequest is what the Orchestrator sends to a ChatModel. Providers
// translate Model (this module's canonical short model name) to their own wire
// identifier.
type ChatRequest struct {
	Model       domain.Model
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Usage is provider-reported token consumption for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// ChatResponse is a successful call's result.
type ChatResponse struct {
	Content    string
	Usage      Usage
	StopReason string
}

// ChatModel is implemented by each provider (anthropic, openai). The
// Orchestrator owns all retry/backoff/fallback decisions (§4.4); a
// ChatModel call either succeeds once or returns a *ProviderError the
// Orchestrator classifies.
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// ProviderError is returned by a ChatModel on failure, carrying enough
// structure for the Orchestrator to map it onto the taxonomy without
// string matching.
type ProviderError struct {
	Code       domain.Code // CodeRateLimitExceeded | CodeAITimeout | CodeModelUnavailable
	Message    string
	Retryable  bool
	RetryAfter time.Duration // provider-suggested delay, honored when > 0
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// ToDomainError converts a ProviderError into the domain.Error taxonomy
// the Orchestrator's retry decision table switches on.
func (e *ProviderError) ToDomainError() *domain.Error {
	var sentinel *domain.Error
	switch e.Code {
	case domain.CodeRateLimitExceeded:
		sentinel = domain.ErrRateLimitExceeded
	case domain.CodeAITimeout:
		sentinel = domain.ErrAITimeout
	default:
		sentinel = domain.ErrModelUnavailable
	}
	out := sentinel.WithMessage(e.Message).WithCause(e.Cause).WithRetryAfter(e.RetryAfter)
	out.Retryable = e.Retryable
	return out
}

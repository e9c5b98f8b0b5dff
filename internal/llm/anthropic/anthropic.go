// Package anthropic implements llm.ChatModel against the Anthropic Messages
// API for the claude-haiku and claude-sonnet-4 models.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
	"github.com/waynewangyuxuan/graphex-aicore/internal/llm"
)

// wireModel maps this module's canonical short model names to Anthropic's
// dated model identifiers.
var wireModel = map[domain.Model]string{
	domain.ModelClaudeHaiku:   "claude-haiku-4-5-20251001",
	domain.ModelClaudeSonnet4: "claude-sonnet-4-5-20250929",
}

// anthropicClient is the subset of behavior anthropic.ChatModel needs from
// the SDK, kept as an interface so tests can substitute a fake.
type anthropicClient interface {
	createMessage(ctx context.Context, systemPrompt, userPrompt, model string, maxTokens int) (llm.ChatResponse, error)
}

// ChatModel calls Claude Haiku / Sonnet-4 via the official Anthropic SDK.
type ChatModel struct {
	client anthropicClient
}

// New constructs a ChatModel authenticated with apiKey.
func New(apiKey string) *ChatModel {
	return &ChatModel{client: &defaultClient{apiKey: apiKey}}
}

func (m *ChatModel) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return llm.ChatResponse{}, err
	}
	wire, ok := wireModel[req.Model]
	if !ok {
		return llm.ChatResponse{}, &llm.ProviderError{Code: domain.CodeModelUnavailable,
			Message: fmt.Sprintf("anthropic: unsupported model %q", req.Model), Retryable: false}
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	out, err := m.client.createMessage(ctx, req.System, req.User, wire, maxTokens)
	if err != nil {
		var provErr *anthropicAPIError
		if errors.As(err, &provErr) {
			return llm.ChatResponse{}, provErr.classify()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return llm.ChatResponse{}, &llm.ProviderError{Code: domain.CodeAITimeout, Message: "anthropic: request timed out", Retryable: true, Cause: err}
		}
		return llm.ChatResponse{}, &llm.ProviderError{Code: domain.CodeModelUnavailable, Message: "anthropic: call failed", Retryable: true, Cause: err}
	}
	return out, nil
}

// anthropicAPIError wraps the SDK's error shape with the fields needed to
// classify it against the taxonomy.
type anthropicAPIError struct {
	statusCode int
	retryAfter time.Duration
	message    string
}

func (e *anthropicAPIError) Error() string { return e.message }

func (e *anthropicAPIError) classify() *llm.ProviderError {
	switch {
	case e.statusCode == 429:
		return &llm.ProviderError{Code: domain.CodeRateLimitExceeded, Message: e.message, Retryable: true, RetryAfter: e.retryAfter}
	case e.statusCode == 408 || e.statusCode == 504:
		return &llm.ProviderError{Code: domain.CodeAITimeout, Message: e.message, Retryable: true}
	case e.statusCode == 503 || e.statusCode == 529:
		return &llm.ProviderError{Code: domain.CodeModelUnavailable, Message: e.message, Retryable: true}
	default:
		return &llm.ProviderError{Code: domain.CodeModelUnavailable, Message: e.message, Retryable: false}
	}
}

type defaultClient struct {
	apiKey string
}

func (c *defaultClient) createMessage(ctx context.Context, systemPrompt, userPrompt, model string, maxTokens int) (llm.ChatResponse, error) {
	client := anthropicsdk.NewClient(option.WithAPIKey(c.apiKey))

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: systemPrompt}}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return llm.ChatResponse{}, classifySDKError(err)
	}
	return convertResponse(resp), nil
}

func classifySDKError(err error) error {
	var apiErr *anthropicsdk.Error
	if errors.As(err, &apiErr) {
		return &anthropicAPIError{statusCode: apiErr.StatusCode, message: apiErr.Error()}
	}
	return err
}

func convertResponse(resp *anthropicsdk.Message) llm.ChatResponse {
	var texts []string
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropicsdk.TextBlock); ok {
			texts = append(texts, tb.Text)
		}
	}
	return llm.ChatResponse{
		Content:    strings.Join(texts, "\n"),
		Usage:      llm.Usage{InputTokens: int(resp.Usage.InputTokens), OutputTokens: int(resp.Usage.OutputTokens)},
		StopReason: string(resp.StopReason),
	}
}

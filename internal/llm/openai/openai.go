// Package openai implements llm.ChatModel against the OpenAI chat
// completions API for the gpt-4-turbo and gpt-4-vision models.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
	"github.com/waynewangyuxuan/graphex-aicore/internal/llm"
)

// wireModel maps this module's canonical short model names to OpenAI's model
// identifiers.
var wireModel = map[domain.Model]string{
	domain.ModelGPT4Turbo:  "gpt-4-turbo",
	domain.ModelGPT4Vision: "gpt-4-turbo", // vision capability is bundled into gpt-4-turbo's multimodal input
}

// openaiClient is the subset of SDK behavior ChatModel needs, kept as an
// interface so tests can substitute a fake.
type openaiClient interface {
	createChatCompletion(ctx context.Context, systemPrompt, userPrompt, model string, maxTokens int) (llm.ChatResponse, error)
}

// ChatModel calls GPT-4 Turbo / GPT-4 Vision via the official OpenAI SDK.
// Unlike the donor client this wraps, it makes a single attempt per call:
// the Orchestrator is the sole retry authority over the decision table in
// spec §4.4, so classification replaces the donor's retry loop.
type ChatModel struct {
	client openaiClient
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
			Message: fmt.Sprintf("openai: unsupported model %q", req.Model), Retryable: false}
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	out, err := m.client.createChatCompletion(ctx, req.System, req.User, wire, maxTokens)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return llm.ChatResponse{}, &llm.ProviderError{Code: domain.CodeAITimeout, Message: "openai: request timed out", Retryable: true, Cause: err}
		}
		return llm.ChatResponse{}, classify(err)
	}
	return out, nil
}

// classify maps an SDK error into the taxonomy by inspecting its reported
// status, falling back to substring matching against the donor's
// transient-error patterns when the SDK error type isn't available.
func classify(err error) *llm.ProviderError {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return &llm.ProviderError{Code: domain.CodeRateLimitExceeded, Message: apiErr.Error(), Retryable: true, Cause: err}
		case apiErr.StatusCode == 408 || apiErr.StatusCode == 504:
			return &llm.ProviderError{Code: domain.CodeAITimeout, Message: apiErr.Error(), Retryable: true, Cause: err}
		case apiErr.StatusCode == 500 || apiErr.StatusCode == 502 || apiErr.StatusCode == 503:
			return &llm.ProviderError{Code: domain.CodeModelUnavailable, Message: apiErr.Error(), Retryable: true, Cause: err}
		default:
			return &llm.ProviderError{Code: domain.CodeModelUnavailable, Message: apiErr.Error(), Retryable: false, Cause: err}
		}
	}

	msgLower := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "network", "connection", "temporary", "503", "502", "500"} {
		if strings.Contains(msgLower, pattern) {
			return &llm.ProviderError{Code: domain.CodeModelUnavailable, Message: err.Error(), Retryable: true, Cause: err}
		}
	}
	return &llm.ProviderError{Code: domain.CodeModelUnavailable, Message: err.Error(), Retryable: false, Cause: err}
}

type defaultClient struct {
	apiKey string
}

func (c *defaultClient) createChatCompletion(ctx context.Context, systemPrompt, userPrompt, model string, maxTokens int) (llm.ChatResponse, error) {
	if c.apiKey == "" {
		return llm.ChatResponse{}, errors.New("openai: API key is required")
	}

	client := openaisdk.NewClient(option.WithAPIKey(c.apiKey))

	var messages []openaisdk.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openaisdk.SystemMessage(systemPrompt))
	}
	messages = append(messages, openaisdk.UserMessage(userPrompt))

	params := openaisdk.ChatCompletionNewParams{
		Model:     openaisdk.ChatModel(model),
		Messages:  messages,
		MaxTokens: openaisdk.Int(int64(maxTokens)),
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.ChatResponse{}, fmt.Errorf("openai: call failed: %w", err)
	}
	return convertResponse(resp), nil
}

func convertResponse(resp *openaisdk.ChatCompletion) llm.ChatResponse {
	if len(resp.Choices) == 0 {
		return llm.ChatResponse{}
	}
	choice := resp.Choices[0]
	return llm.ChatResponse{
		Content:    choice.Message.Content,
		Usage:      llm.Usage{InputTokens: int(resp.Usage.PromptTokens), OutputTokens: int(resp.Usage.CompletionTokens)},
		StopReason: string(choice.FinishReason),
	}
}

package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
	"github.com/waynewangyuxuan/graphex-aicore/internal/llm"
)

type mockClient struct {
	resp      llm.ChatResponse
	err       error
	callCount int
	lastModel string
}

func (c *mockClient) createChatCompletion(ctx context.Context, systemPrompt, userPrompt, model string, maxTokens int) (llm.ChatResponse, error) {
	c.callCount++
	c.lastModel = model
	return c.resp, c.err
}

func TestChatModel_Chat_MapsCanonicalModelToWireName(t *testing.T) {
	mc := &mockClient{resp: llm.ChatResponse{Content: "hi"}}
	m := &ChatModel{client: mc}

	out, err := m.Chat(context.Background(), llm.ChatRequest{Model: domain.ModelGPT4Turbo, User: "hello"})
	require.NoError(t, err)
	require.Equal(t, "hi", out.Content)
	require.Equal(t, 1, mc.callCount)
	require.Equal(t, wireModel[domain.ModelGPT4Turbo], mc.lastModel)
}

func TestChatModel_Chat_UnsupportedModelIsNonRetryable(t *testing.T) {
	m := &ChatModel{client: &mockClient{}}
	_, err := m.Chat(context.Background(), llm.ChatRequest{Model: domain.ModelClaudeHaiku})

	var provErr *llm.ProviderError
	require.ErrorAs(t, err, &provErr)
	require.False(t, provErr.Retryable)
}

func TestChatModel_Chat_TransientErrorPatternIsRetryable(t *testing.T) {
	mc := &mockClient{err: errors.New("upstream 503 service unavailable")}
	m := &ChatModel{client: mc}

	_, err := m.Chat(context.Background(), llm.ChatRequest{Model: domain.ModelGPT4Turbo})

	var provErr *llm.ProviderError
	require.ErrorAs(t, err, &provErr)
	require.True(t, provErr.Retryable)
}

func TestChatModel_Chat_DoesNotRetryInternally(t *testing.T) {
	mc := &mockClient{err: errors.New("upstream 503 service unavailable")}
	m := &ChatModel{client: mc}

	_, err := m.Chat(context.Background(), llm.ChatRequest{Model: domain.ModelGPT4Vision})
	require.Error(t, err)
	require.Equal(t, 1, mc.callCount, "ChatModel must make exactly one attempt; the orchestrator owns retries")
}

func TestChatModel_Chat_NonTransientErrorIsNotRetryable(t *testing.T) {
	mc := &mockClient{err: errors.New("invalid_request_error: malformed JSON")}
	m := &ChatModel{client: mc}

	_, err := m.Chat(context.Background(), llm.ChatRequest{Model: domain.ModelGPT4Turbo})

	var provErr *llm.ProviderError
	require.ErrorAs(t, err, &provErr)
	require.False(t, provErr.Retryable)
}

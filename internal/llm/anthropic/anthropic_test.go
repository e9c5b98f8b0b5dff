package anthropic

import (
	"context"
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

func (c *mockClient) createMessage(ctx context.Context, systemPrompt, userPrompt, model string, maxTokens int) (llm.ChatResponse, error) {
	c.callCount++
	c.lastModel = model
	return c.resp, c.err
}

func TestChatModel_Chat_MapsCanonicalModelToWireName(t *testing.T) {
	mc := &mockClient{resp: llm.ChatResponse{Content: "hi"}}
	m := &ChatModel{client: mc}

	out, err := m.Chat(context.Background(), llm.ChatRequest{Model: domain.ModelClaudeHaiku, User: "hello"})
	require.NoError(t, err)
	require.Equal(t, "hi", out.Content)
	require.Equal(t, 1, mc.callCount)
	require.Equal(t, wireModel[domain.ModelClaudeHaiku], mc.lastModel)
}

func TestChatModel_Chat_UnsupportedModelIsNonRetryable(t *testing.T) {
	m := &ChatModel{client: &mockClient{}}
	_, err := m.Chat(context.Background(), llm.ChatRequest{Model: domain.ModelGPT4Turbo})

	var provErr *llm.ProviderError
	require.ErrorAs(t, err, &provErr)
	require.False(t, provErr.Retryable)
	require.Equal(t, domain.CodeModelUnavailable, provErr.Code)
}

func TestChatModel_Chat_RateLimitIsClassifiedRetryable(t *testing.T) {
	mc := &mockClient{err: &anthropicAPIError{statusCode: 429, message: "rate limited"}}
	m := &ChatModel{client: mc}

	_, err := m.Chat(context.Background(), llm.ChatRequest{Model: domain.ModelClaudeSonnet4})

	var provErr *llm.ProviderError
	require.ErrorAs(t, err, &provErr)
	require.True(t, provErr.Retryable)
	require.Equal(t, domain.CodeRateLimitExceeded, provErr.Code)
}

func TestChatModel_Chat_DoesNotRetryInternally(t *testing.T) {
	mc := &mockClient{err: &anthropicAPIError{statusCode: 529, message: "overloaded"}}
	m := &ChatModel{client: mc}

	_, err := m.Chat(context.Background(), llm.ChatRequest{Model: domain.ModelClaudeHaiku})
	require.Error(t, err)
	require.Equal(t, 1, mc.callCount, "ChatModel must make exactly one attempt; the orchestrator owns retries")
}

func TestChatModel_Chat_CancelledContextReturnsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mc := &mockClient{}
	m := &ChatModel{client: mc}

	_, err := m.Chat(ctx, llm.ChatRequest{Model: domain.ModelClaudeHaiku})
	require.Error(t, err)
	require.Zero(t, mc.callCount)
}

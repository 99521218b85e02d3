package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClients_MissingKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIOptions{})
	assert.ErrorIs(t, err, ErrMissingKey)

	_, err = NewAnthropicClient(AnthropicOptions{APIKey: "  "})
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestOpenAIClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
		assert.Equal(t, "judge this", req.Messages[1].Content)
		require.NotNil(t, req.ResponseFormat)

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Model: "gpt-test",
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: `{"found":true}`}},
			},
			Usage: openai.Usage{PromptTokens: 12, CompletionTokens: 3},
		})
	}))
	defer server.Close()

	c, err := NewOpenAIClient(OpenAIOptions{APIKey: "test-key", BaseURL: server.URL, Model: "gpt-test"})
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())

	resp, err := c.Do(context.Background(), Request{SystemPrompt: "sys", Prompt: "judge this", JSONMode: true})
	require.NoError(t, err)
	assert.Equal(t, `{"found":true}`, resp.Text)
	assert.Equal(t, 12, resp.TokensIn)
	assert.Equal(t, 3, resp.TokensOut)
}

func TestOpenAIClient_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer server.Close()

	c, err := NewOpenAIClient(OpenAIOptions{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = c.Do(context.Background(), Request{Prompt: "x"})
	assert.True(t, IsRateLimited(err))
}

func TestOpenAIClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer server.Close()

	c, err := NewOpenAIClient(OpenAIOptions{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = c.Do(context.Background(), Request{Prompt: "x"})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.Equal(t, "openai", httpErr.Provider)
}

func TestAnthropicClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req anthropicMsgReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req.Model)
		assert.Equal(t, "sys", req.System)
		assert.Equal(t, 1024, req.MaxTokens)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "hello", req.Messages[0].Content)

		_, _ = w.Write([]byte(`{"model":"claude-test","content":[{"type":"text","text":"hi "},{"type":"text","text":"there"}],"usage":{"input_tokens":5,"output_tokens":2}}`))
	}))
	defer server.Close()

	c, err := NewAnthropicClient(AnthropicOptions{APIKey: "secret", BaseURL: server.URL + "/", Model: "claude-test"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())

	resp, err := c.Do(context.Background(), Request{SystemPrompt: "sys", Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Text)
	assert.Equal(t, 5, resp.TokensIn)
	assert.Equal(t, 2, resp.TokensOut)
}

func TestAnthropicClient_Errors(t *testing.T) {
	status := http.StatusTooManyRequests
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	c, err := NewAnthropicClient(AnthropicOptions{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = c.Do(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrRateLimited)

	status = http.StatusBadGateway
	_, err = c.Do(context.Background(), Request{Prompt: "x"})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)

	status = http.StatusOK
	_, err = c.Do(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrEmpty)
}

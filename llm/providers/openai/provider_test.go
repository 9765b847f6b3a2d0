package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/automateai/agentrun/llm"
	"github.com/automateai/agentrun/types"
)

func TestCompletion_RequestShape(t *testing.T) {
	var captured apiRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": "pong"}, "finish_reason": "stop"}],
			"usage": {"total_tokens": 21}
		}`))
	}))
	defer srv.Close()

	p := New(Config{APIKey: "sk-test", BaseURL: srv.URL}, zap.NewNop())
	resp, err := p.Completion(context.Background(), &llm.Request{
		Prompt:       "ping",
		SystemPrompt: "echo",
		Model:        "gpt-4o-mini",
	})

	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Content)
	assert.Equal(t, "openai", resp.Provider)
	assert.Equal(t, 21, resp.TokensUsed)

	assert.Equal(t, "Bearer sk-test", auth)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "echo", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
}

func TestCompletion_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model": "gpt-4o-mini", "choices": [], "usage": {}}`))
	}))
	defer srv.Close()

	p := New(Config{APIKey: "k", BaseURL: srv.URL}, zap.NewNop())
	_, err := p.Completion(context.Background(), &llm.Request{Prompt: "hi"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestCompletion_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
	}))
	defer srv.Close()

	p := New(Config{APIKey: "k", BaseURL: srv.URL}, zap.NewNop())
	_, err := p.Completion(context.Background(), &llm.Request{Prompt: "hi"})

	require.Error(t, err)
	assert.True(t, types.IsRetryable(err))
}

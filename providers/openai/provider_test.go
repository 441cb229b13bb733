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

	"github.com/agentverse/agentverse/llm"
	"github.com/agentverse/agentverse/providers"
	"github.com/agentverse/agentverse/types"
)

func TestProvider_Name(t *testing.T) {
	p := New(providers.OpenAIConfig{}, zap.NewNop())
	assert.Equal(t, "openai", p.Name())
}

func TestProvider_Generate(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotBody chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"id": "cmpl-1",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": "pong"}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 7, "completion_tokens": 2, "total_tokens": 9},
		})
	}))
	defer srv.Close()

	p := New(providers.OpenAIConfig{BaseURL: srv.URL}, zap.NewNop())
	resp, err := p.Generate(context.Background(), &llm.GenerateRequest{
		System: "be terse",
		Prompt: "ping",
		APIKey: "sk-test",
		Model:  "gpt-4o",
	})
	require.NoError(t, err)

	assert.Equal(t, "pong", resp.Content)
	assert.Equal(t, "gpt-4o", resp.Model)
	assert.Equal(t, 2, resp.CompletionTokens)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "be terse", gotBody.Messages[0].Content)
	assert.Equal(t, "user", gotBody.Messages[1].Role)
}

func TestProvider_StatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		status    int
		wantCode  types.ErrorCode
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, types.ErrAuthRejected, false},
		{"forbidden", http.StatusForbidden, types.ErrAuthRejected, false},
		{"rate_limited", http.StatusTooManyRequests, types.ErrProviderUnavailable, true},
		{"server_error", http.StatusInternalServerError, types.ErrProviderUnavailable, true},
		{"bad_request", http.StatusBadRequest, types.ErrProviderUnavailable, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(c.status)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{"message": "nope"},
				})
			}))
			defer srv.Close()

			p := New(providers.OpenAIConfig{BaseURL: srv.URL}, zap.NewNop())
			_, err := p.Generate(context.Background(), &llm.GenerateRequest{Prompt: "x"})
			require.Error(t, err)
			assert.Equal(t, c.wantCode, types.GetErrorCode(err))
			assert.Equal(t, c.retryable, types.IsRetryable(err))
		})
	}
}

func TestProvider_EmptyContentIsInvalidResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "cmpl-2", "choices": []any{}})
	}))
	defer srv.Close()

	p := New(providers.OpenAIConfig{BaseURL: srv.URL}, zap.NewNop())
	_, err := p.Generate(context.Background(), &llm.GenerateRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidResponse, types.GetErrorCode(err))
}

func TestProvider_NetworkFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	p := New(providers.OpenAIConfig{BaseURL: srv.URL}, zap.NewNop())
	_, err := p.Generate(context.Background(), &llm.GenerateRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, types.ErrProviderUnavailable, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
}

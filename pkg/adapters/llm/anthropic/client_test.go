package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aescanero/dagocrew/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(Options{})
	assert.ErrorContains(t, err, "API key is required")
}

func TestGenerateCompletion(t *testing.T) {
	var captured map[string]any
	srv := newTestServer(t, http.StatusOK, `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-test",
		"content": [{"type": "text", "text": "Hello "}, {"type": "text", "text": "world"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 12, "output_tokens": 7}
	}`, &captured)

	client, err := NewClient(Options{APIKey: "test-key", BaseURL: srv.URL, DefaultModel: "claude-test", DefaultMaxTokens: 256})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", client.Name())

	resp, err := client.GenerateCompletion(context.Background(), &domain.LLMRequest{
		System:      "You are a researcher",
		Messages:    []domain.Message{{Role: domain.RoleUser, Content: "Summarise"}},
		Temperature: 0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello world", resp.Content)
	assert.Equal(t, "claude-test", resp.Model)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, domain.TokenUsage{InputTokens: 12, OutputTokens: 7}, resp.Usage)

	assert.Equal(t, "claude-test", captured["model"])
	assert.EqualValues(t, 256, captured["max_tokens"])
	assert.InDelta(t, 0.2, captured["temperature"], 1e-9)
	system, ok := captured["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
	assert.Equal(t, "You are a researcher", system[0].(map[string]any)["text"])
}

func TestGenerateCompletion_ProviderError(t *testing.T) {
	srv := newTestServer(t, http.StatusBadRequest,
		`{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`, nil)

	client, err := NewClient(Options{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.GenerateCompletion(context.Background(), &domain.LLMRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	})

	var providerErr *domain.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "anthropic", providerErr.Provider)
}

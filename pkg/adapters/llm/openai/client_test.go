package openai

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

func TestGenerateCompletion(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-test",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "planned"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 30, "completion_tokens": 4, "total_tokens": 34}
		}`))
	}))
	defer srv.Close()

	client, err := NewClient(Options{APIKey: "test-key", BaseURL: srv.URL + "/v1/", DefaultModel: "gpt-test"})
	require.NoError(t, err)
	assert.Equal(t, "openai", client.Name())

	resp, err := client.GenerateCompletion(context.Background(), &domain.LLMRequest{
		System: "plan carefully",
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "first"},
			{Role: domain.RoleAssistant, Content: "ack"},
			{Role: domain.RoleUser, Content: "second"},
		},
		MaxTokens: 128,
	})
	require.NoError(t, err)

	assert.Equal(t, "planned", resp.Content)
	assert.Equal(t, "gpt-test", resp.Model)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 34, resp.Usage.Total())

	assert.Equal(t, "gpt-test", captured["model"])
	assert.EqualValues(t, 128, captured["max_completion_tokens"])
	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", messages[2].(map[string]any)["role"])
}

func TestGenerateCompletion_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	client, err := NewClient(Options{APIKey: "k", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)

	_, err = client.GenerateCompletion(context.Background(), &domain.LLMRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	})
	var providerErr *domain.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.ErrorContains(t, err, "no choices")
}

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicfinder/internal/domain/providers"
	"github.com/zatekoja/clinicfinder/pkg/config"
	apperrors "github.com/zatekoja/clinicfinder/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.OpenAIConfig{
		APIKey:            "sk-test",
		Model:             "gpt-4o",
		BaseURL:           server.URL,
		RequestsPerSecond: 100,
	}, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(&config.OpenAIConfig{}, zerolog.Nop())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
}

func TestComplete_SendsRequestAndStripsFence(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o", body["model"])
		assert.Equal(t, map[string]interface{}{"type": "json_object"}, body["response_format"])
		messages := body["messages"].([]interface{})
		assert.Len(t, messages, 2)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"` + "```json\\n{\\\"TAGS_CURRENT\\\":[]}\\n```" + `"}}]}`))
	})

	out, err := client.Complete(context.Background(), providers.ChatRequest{
		Messages: []providers.ChatMessage{
			{Role: "system", Content: "triage"},
			{Role: "user", Content: "chest pain"},
		},
		JSONMode: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"TAGS_CURRENT":[]}`, out)
}

func TestComplete_PlainModeOmitsResponseFormat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, present := body["response_format"]
		assert.False(t, present)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"[]"}}]}`))
	})

	out, err := client.Complete(context.Background(), providers.ChatRequest{
		Messages: []providers.ChatMessage{{Role: "user", Content: "pick"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestComplete_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Complete(context.Background(), providers.ChatRequest{
		Messages: []providers.ChatMessage{{Role: "user", Content: "x"}},
	})
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestComplete_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Complete(context.Background(), providers.ChatRequest{
		Messages: []providers.ChatMessage{{Role: "user", Content: "x"}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
}

func TestComplete_NoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Complete(context.Background(), providers.ChatRequest{
		Messages: []providers.ChatMessage{{Role: "user", Content: "x"}},
	})
	assert.Error(t, err)
}

func TestComplete_RequiresMessages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.Complete(context.Background(), providers.ChatRequest{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

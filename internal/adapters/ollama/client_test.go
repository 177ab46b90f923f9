package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func tagsHandler(models ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := make([]modelEntry, len(models))
		for i, m := range models {
			entries[i] = modelEntry{Name: m}
		}
		json.NewEncoder(w).Encode(tagsResponse{Models: entries})
	}
}

func TestIsRunning(t *testing.T) {
	srv := httptest.NewServer(tagsHandler())
	defer srv.Close()

	assert.True(t, NewHTTPClient(srv.URL).IsRunning(context.Background()))
	assert.False(t, NewHTTPClient("http://127.0.0.1:1").IsRunning(context.Background()))
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(tagsHandler("gpt-oss:20b", "llama3.2:3b"))
	defer srv.Close()

	models, err := NewHTTPClient(srv.URL).ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-oss:20b", "llama3.2:3b"}, models)
}

func TestHasModelMatchesTagSuffix(t *testing.T) {
	srv := httptest.NewServer(tagsHandler("gpt-oss:20b"))
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	ctx := context.Background()
	assert.True(t, client.HasModel(ctx, "gpt-oss:20b"))
	assert.True(t, client.HasModel(ctx, "gpt-oss"), "bare name matches tagged model")
	assert.False(t, client.HasModel(ctx, "llama3.2"))
}

func TestChatSendsJSONFormatOnDemand(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		got = chatRequest{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(chatResponse{
			Message: Message{Role: "assistant", Content: `{"category":"none"}`},
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	messages := []Message{
		{Role: "system", Content: "categorize"},
		{Role: "user", Content: "From: a@b.c"},
	}

	content, err := client.Chat(context.Background(), "gpt-oss:20b", messages, true)
	require.NoError(t, err)
	assert.Equal(t, `{"category":"none"}`, content)
	assert.Equal(t, "json", got.Format)
	assert.False(t, got.Stream)
	assert.Equal(t, messages, got.Messages)

	_, err = client.Chat(context.Background(), "gpt-oss:20b", messages, false)
	require.NoError(t, err)
	assert.Empty(t, got.Format, "format omitted without structured output")
}

func TestChatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL).Chat(context.Background(), "missing", nil, false)
	assert.ErrorContains(t, err, "404")
}

func TestBackendCheckHealth(t *testing.T) {
	srv := httptest.NewServer(tagsHandler("gpt-oss:20b"))
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	logger := zap.NewNop()

	assert.NoError(t, NewBackend(client, "gpt-oss:20b", logger).CheckHealth(context.Background()))

	err := NewBackend(client, "mistral", logger).CheckHealth(context.Background())
	assert.ErrorContains(t, err, "not available")

	down := NewHTTPClient("http://127.0.0.1:1")
	err = NewBackend(down, "gpt-oss:20b", logger).CheckHealth(context.Background())
	assert.ErrorContains(t, err, "not reachable")
}

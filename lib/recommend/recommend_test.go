package recommend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"io"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubCompletion returns a client wired to a fake completion endpoint that
// replies with the given message content, and a pointer to the last request
// it saw.
func stubCompletion(t *testing.T, content string) (*openai.Client, *openai.ChatCompletionRequest) {
	t.Helper()

	var lastReq openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&lastReq))

		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return openai.NewClientWithConfig(cfg), &lastReq
}

func TestSuggestEmptyWatchHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no external call should be made for an empty watch history")
	}))
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	r := New(openai.NewClientWithConfig(cfg), nil, testLogger())

	_, err := r.Suggest(context.Background(), "   ", "Comedy", 5)
	assert.ErrorIs(t, err, ErrEmptyWatchHistory)
}

func TestSuggest(t *testing.T) {
	client, _ := stubCompletion(t, `{"suggestions": ["Blade Runner", " Stalker ", "Solaris"]}`)
	r := New(client, nil, testLogger())

	suggestions, err := r.Suggest(context.Background(), "Dune, Arrival", "Sci-Fi, Drama", 5)
	require.NoError(t, err)
	require.Len(t, suggestions, 3)
	assert.Equal(t, "Blade Runner", suggestions[0].Title)
	assert.Equal(t, "Stalker", suggestions[1].Title)
	assert.Empty(t, suggestions[0].PosterURL)
}

func TestSuggestTruncatesToCount(t *testing.T) {
	client, _ := stubCompletion(t, `{"suggestions": ["A", "B", "C", "D", "E"]}`)
	r := New(client, nil, testLogger())

	suggestions, err := r.Suggest(context.Background(), "Dune", "Sci-Fi", 2)
	require.NoError(t, err)
	assert.Len(t, suggestions, 2)
}

func TestSuggestDefaultCount(t *testing.T) {
	client, lastReq := stubCompletion(t, `{"suggestions": ["A"]}`)
	r := New(client, nil, testLogger())

	_, err := r.Suggest(context.Background(), "Dune", "Sci-Fi", 0)
	require.NoError(t, err)

	require.Len(t, lastReq.Messages, 2)
	userPrompt := lastReq.Messages[1].Content
	assert.Contains(t, userPrompt, "Suggest 3 movies")
	assert.Contains(t, userPrompt, "Watch History: Dune")
	assert.Contains(t, userPrompt, "Preferred Genres: Sci-Fi")
}

func TestSuggestRequestsJSONMode(t *testing.T) {
	client, lastReq := stubCompletion(t, `{"suggestions": ["A"]}`)
	r := New(client, nil, testLogger())

	_, err := r.Suggest(context.Background(), "Dune", "", 1)
	require.NoError(t, err)

	require.NotNil(t, lastReq.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, lastReq.ResponseFormat.Type)
}

func TestSuggestMalformedResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"prose", "Sure, here are some movies!"},
		{"wrong shape", `{"movies": ["A"]}`},
		{"non-strings", `{"suggestions": [{"title": "A"}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := stubCompletion(t, tc.content)
			r := New(client, nil, testLogger())

			_, err := r.Suggest(context.Background(), "Dune", "Sci-Fi", 3)
			assert.Error(t, err)
		})
	}
}

func TestSuggestCallFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	r := New(openai.NewClientWithConfig(cfg), nil, testLogger())

	_, err := r.Suggest(context.Background(), "Dune", "Sci-Fi", 3)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to get completion"))
}

// Package recommend asks a language model for movie suggestions based on
// the user's watch history and preferred genres. It is a thin boundary: one
// structured request, shape validation of the response, no retries and no
// caching.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"reeldreams/lib/recommend/prompts"
	"reeldreams/lib/tmdb"
	"reeldreams/lib/validation"
	"reeldreams/models"
)

// DefaultCount is the number of suggestions requested when the caller does
// not ask for a specific count.
const DefaultCount = 3

// ErrEmptyWatchHistory is returned before any external call when the user
// has not watched anything yet.
var ErrEmptyWatchHistory = errors.New("watch history is empty, watch some movies first")

type Recommender struct {
	openai *openai.Client
	tmdb   *tmdb.Client
	logger *slog.Logger
}

type promptContext struct {
	WatchHistory    string
	PreferredGenres string
	Count           int
}

// New creates a recommender. tmdbClient may be nil, in which case
// suggestions are returned without poster enrichment.
func New(client *openai.Client, tmdbClient *tmdb.Client, logger *slog.Logger) *Recommender {
	return &Recommender{
		openai: client,
		tmdb:   tmdbClient,
		logger: logger,
	}
}

// Suggest requests count movie suggestions for the given comma-joined watch
// history and preferred genres. A non-positive count falls back to
// DefaultCount. The precondition check happens before the external call;
// call failures surface to the caller and are never retried here.
func (r *Recommender) Suggest(ctx context.Context, watchHistory, preferredGenres string, count int) ([]models.Suggestion, error) {
	if strings.TrimSpace(watchHistory) == "" {
		return nil, ErrEmptyWatchHistory
	}
	if count <= 0 {
		count = DefaultCount
	}

	systemPrompt, err := renderPrompt("system.txt", nil)
	if err != nil {
		return nil, err
	}
	userPrompt, err := renderPrompt("suggest.txt", promptContext{
		WatchHistory:    watchHistory,
		PreferredGenres: preferredGenres,
		Count:           count,
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Requesting suggestions",
		slog.Int("count", count),
		slog.String("genres", preferredGenres))

	resp, err := r.openai.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4oMini,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			Temperature: 0.7,
			MaxTokens:   500,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	parsed, err := validation.ValidateAndParseSuggestions([]byte(resp.Choices[0].Message.Content))
	if err != nil {
		return nil, fmt.Errorf("invalid suggestion response: %w", err)
	}
	validation.SanitizeSuggestions(parsed)

	titles := parsed.Suggestions
	if len(titles) > count {
		titles = titles[:count]
	}

	suggestions := make([]models.Suggestion, 0, len(titles))
	for _, title := range titles {
		suggestions = append(suggestions, models.Suggestion{
			Title:     title,
			PosterURL: r.findPoster(ctx, title),
		})
	}

	r.logger.Info("Got suggestions", slog.Int("count", len(suggestions)))
	return suggestions, nil
}

// findPoster looks the title up on TMDb. Enrichment is best effort; any
// failure degrades to a bare title.
func (r *Recommender) findPoster(ctx context.Context, title string) string {
	if r.tmdb == nil {
		return ""
	}
	poster, err := r.tmdb.FindPoster(ctx, title)
	if err != nil {
		r.logger.Debug("TMDb lookup failed", slog.String("title", title), slog.Any("error", err))
		return ""
	}
	return poster
}

func renderPrompt(filename string, data any) (string, error) {
	content, err := prompts.FS.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}

	tmpl, err := template.New(filename).Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse prompt template %s: %w", filename, err)
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", filename, err)
	}
	return out.String(), nil
}

// Package tmdb is a minimal TMDb search client used to decorate suggestion
// titles with poster artwork.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"log/slog"
)

const (
	apiBase    = "https://api.themoviedb.org/3"
	imageBase  = "https://image.tmdb.org/t/p/w500"
	reqTimeout = 10 * time.Second
)

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(apiKey string, logger *slog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: apiBase,
		http:    &http.Client{Timeout: reqTimeout},
		logger:  logger,
	}
}

type searchPage struct {
	Results []struct {
		Title      string `json:"title"`
		PosterPath string `json:"poster_path"`
	} `json:"results"`
}

// FindPoster searches TMDb for the title and returns the full poster URL of
// the first hit, or "" when nothing matches or the hit has no artwork.
func (c *Client) FindPoster(ctx context.Context, title string) (string, error) {
	endpoint := fmt.Sprintf("%s/search/movie?api_key=%s&query=%s",
		c.baseURL, c.apiKey, url.QueryEscape(title))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to search TMDb: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status from TMDb: %s", resp.Status)
	}

	var page searchPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	if len(page.Results) == 0 || page.Results[0].PosterPath == "" {
		return "", nil
	}
	return imageBase + page.Results[0].PosterPath, nil
}

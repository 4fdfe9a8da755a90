// Package plex pulls movie titles and watched state from a Plex server so
// a library can seed the watchlist through the normal bulk-insert path.
package plex

import (
	"context"
	"fmt"
	"strconv"

	"log/slog"

	"github.com/LukeHagar/plexgo"
	"github.com/LukeHagar/plexgo/models/operations"

	"reeldreams/models"
)

type Client struct {
	api     *plexgo.PlexAPI
	plexURL string
	logger  *slog.Logger
}

func NewClient(plexURL, plexToken string, logger *slog.Logger) *Client {
	api := plexgo.New(
		plexgo.WithSecurity(plexToken),
		plexgo.WithServerURL(plexURL),
	)

	return &Client{
		api:     api,
		plexURL: plexURL,
		logger:  logger,
	}
}

// FetchMovieCandidates lists every movie library on the server and converts
// its items into insertion candidates. A view count above zero marks the
// movie watched; the store stamps watchedAt at insertion time.
func (c *Client) FetchMovieCandidates(ctx context.Context) ([]models.Candidate, error) {
	c.logger.Debug("Fetching libraries from Plex", slog.String("url", c.plexURL))

	resp, err := c.api.Library.GetAllLibraries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get libraries: %w", err)
	}
	if resp.Object == nil {
		return nil, fmt.Errorf("invalid response from Plex API")
	}

	var candidates []models.Candidate
	for _, lib := range resp.Object.MediaContainer.Directory {
		if lib.Type != "movie" {
			continue
		}

		items, err := c.getLibraryItems(ctx, lib.Key)
		if err != nil {
			return nil, err
		}

		for _, item := range items {
			watched := item.ViewCount != nil && *item.ViewCount > 0
			candidates = append(candidates, models.Candidate{
				Title:   item.Title,
				Watched: watched,
			})
		}
	}

	c.logger.Info("Fetched movie candidates from Plex", slog.Int("count", len(candidates)))
	return candidates, nil
}

// getLibraryItems pages through one library section.
func (c *Client) getLibraryItems(ctx context.Context, libraryKey string) ([]operations.GetLibraryItemsMetadata, error) {
	sectionKey, err := strconv.Atoi(libraryKey)
	if err != nil {
		return nil, fmt.Errorf("invalid library key: %w", err)
	}

	containerSize := 50
	containerStart := 0
	includeGuids1 := operations.IncludeGuids(1)
	includeMeta1 := operations.GetLibraryItemsQueryParamIncludeMeta(1)
	movieType := operations.GetLibraryItemsQueryParamType(1)

	var allItems []operations.GetLibraryItemsMetadata
	for {
		request := operations.GetLibraryItemsRequest{
			SectionKey:          sectionKey,
			Type:                movieType,
			IncludeGuids:        &includeGuids1,
			IncludeMeta:         &includeMeta1,
			XPlexContainerSize:  &containerSize,
			XPlexContainerStart: &containerStart,
			Tag:                 operations.Tag("all"),
		}

		resp, err := c.api.Library.GetLibraryItems(ctx, request)
		if err != nil {
			return nil, fmt.Errorf("failed to get items from library: %w", err)
		}

		c.logger.Debug("Got page from Plex",
			slog.Int("start", containerStart),
			slog.Int("page_size", len(resp.Object.MediaContainer.Metadata)),
			slog.Int("total_size", int(resp.Object.MediaContainer.TotalSize)))

		allItems = append(allItems, resp.Object.MediaContainer.Metadata...)

		if len(resp.Object.MediaContainer.Metadata) == 0 ||
			containerStart+len(resp.Object.MediaContainer.Metadata) >= int(resp.Object.MediaContainer.TotalSize) {
			break
		}
		containerStart += containerSize
	}

	return allItems, nil
}

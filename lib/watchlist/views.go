package watchlist

import (
	"sort"
	"strings"

	"reeldreams/models"
)

// Derived views operate on snapshots from Query. They never touch store
// internals, so callers can compose them freely.

// FilterTitle keeps movies whose title contains the search term,
// case-insensitively. An empty term keeps everything.
func FilterTitle(movies []models.Movie, term string) []models.Movie {
	if strings.TrimSpace(term) == "" {
		return movies
	}
	term = strings.ToLower(term)

	var out []models.Movie
	for _, m := range movies {
		if strings.Contains(strings.ToLower(m.Title), term) {
			out = append(out, m)
		}
	}
	return out
}

// ToWatch returns the unwatched subset sorted by title ascending.
func ToWatch(movies []models.Movie) []models.Movie {
	var out []models.Movie
	for _, m := range movies {
		if !m.Watched {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
	})
	return out
}

// Watched returns the watched subset in input order.
func Watched(movies []models.Movie) []models.Movie {
	var out []models.Movie
	for _, m := range movies {
		if m.Watched {
			out = append(out, m)
		}
	}
	return out
}

// Stats computes collection statistics from a snapshot.
func Stats(movies []models.Movie) models.StatsData {
	stats := models.StatsData{Total: len(movies)}

	var ratingSum int
	for _, m := range movies {
		if m.Watched {
			stats.Watched++
		} else {
			stats.ToWatch++
		}
		if m.Rating != nil {
			stats.Rated++
			ratingSum += *m.Rating
		}
	}
	if stats.Rated > 0 {
		stats.AverageRating = float64(ratingSum) / float64(stats.Rated)
	}
	return stats
}

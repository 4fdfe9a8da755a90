package models

import "time"

// Movie is the single persisted entity. Field names and the epoch-millisecond
// timestamps match the JSON layout stored in the persistence slot.
type Movie struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Watched   bool    `json:"watched"`
	CreatedAt int64   `json:"createdAt"`
	WatchedAt *int64  `json:"watchedAt"`
	Rating    *int    `json:"rating"`
	Notes     *string `json:"notes"`
}

// Clone returns a copy whose pointer fields do not alias the receiver's, so
// the copy can be handed out without exposing shared state.
func (m Movie) Clone() Movie {
	if m.WatchedAt != nil {
		watchedAt := *m.WatchedAt
		m.WatchedAt = &watchedAt
	}
	if m.Rating != nil {
		rating := *m.Rating
		m.Rating = &rating
	}
	if m.Notes != nil {
		notes := *m.Notes
		m.Notes = &notes
	}
	return m
}

// Candidate is a validated row produced by the tabular importer, waiting for
// the store to assign an ID and insert it.
type Candidate struct {
	Title     string
	Watched   bool
	Rating    *int
	Notes     *string
	WatchedAt *int64
}

// InsertionReport summarizes a bulk insert. Inserted + Skipped equals the
// number of rows the batch started with.
type InsertionReport struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// Suggestion is a single recommended title, optionally enriched with a
// poster image from TMDb.
type Suggestion struct {
	Title     string `json:"title"`
	PosterURL string `json:"posterUrl,omitempty"`
}

// StatsData represents statistics about the watchlist.
type StatsData struct {
	Total         int     `json:"total"`
	ToWatch       int     `json:"toWatch"`
	Watched       int     `json:"watched"`
	Rated         int     `json:"rated"`
	AverageRating float64 `json:"averageRating"`
}

// TimeToMillis converts a time to the epoch-millisecond representation used
// on the wire.
func TimeToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// MillisToTime converts an epoch-millisecond timestamp back to a time.
func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

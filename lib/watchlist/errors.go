package watchlist

import "errors"

var (
	// ErrDuplicateTitle is returned when a create or title edit collides
	// with an existing title, compared case-insensitively.
	ErrDuplicateTitle = errors.New("a movie with this title already exists")

	// ErrEmptyTitle is returned when a title is empty after trimming.
	ErrEmptyTitle = errors.New("movie title must not be empty")

	// ErrNotFound is returned when an operation targets an unknown movie ID.
	ErrNotFound = errors.New("movie not found")
)

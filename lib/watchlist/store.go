// Package watchlist owns the canonical movie collection. All mutations go
// through the Store, which enforces title uniqueness, assigns IDs, and
// writes the collection through to a persistence slot after every
// successful change. Consumers only ever see snapshot copies.
package watchlist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"log/slog"

	"reeldreams/lib/validation"
	"reeldreams/models"
)

// Slot is the persistence side-channel for the collection. The SQLite-backed
// implementation lives in lib/storage; tests substitute an in-memory fake.
type Slot interface {
	Load(ctx context.Context) ([]byte, bool, error)
	Save(ctx context.Context, payload []byte) error
}

// Store holds the movie collection in memory and persists it on mutation.
// Operations are serialized by a single mutex, so each one is atomic with
// respect to the others. A failed persist rolls the in-memory change back,
// keeping memory and the slot in step.
type Store struct {
	mu     sync.Mutex
	movies []models.Movie
	nextID int64
	slot   Slot
	logger *slog.Logger
	clock  func() time.Time
}

// New creates a store backed by the given slot. Call Restore before use to
// rehydrate previously persisted state.
func New(slot Slot, logger *slog.Logger) *Store {
	return &Store{
		nextID: 1,
		slot:   slot,
		logger: logger,
		clock:  time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (s *Store) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

// Restore loads the collection from the slot. A missing or corrupt payload
// yields an empty collection and a warning log, never an error.
func (s *Store) Restore(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, ok, err := s.slot.Load(ctx)
	if err != nil {
		s.logger.Warn("Failed to load persisted watchlist, starting empty", slog.Any("error", err))
		s.movies = nil
		return
	}
	if !ok {
		s.logger.Debug("No persisted watchlist found, starting empty")
		s.movies = nil
		return
	}

	movies, err := validation.ValidateAndParseMovies(payload)
	if err != nil {
		s.logger.Warn("Persisted watchlist is corrupt, starting empty", slog.Any("error", err))
		s.movies = nil
		return
	}

	s.movies = movies
	for _, m := range movies {
		if m.ID >= s.nextID {
			s.nextID = m.ID + 1
		}
	}
	s.logger.Info("Restored watchlist", slog.Int("count", len(movies)))
}

// Create adds a new unwatched movie at the front of the collection.
func (s *Store) Create(ctx context.Context, title string) (models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	title = strings.TrimSpace(title)
	if title == "" {
		return models.Movie{}, ErrEmptyTitle
	}
	if s.titleExistsLocked(title, 0) {
		return models.Movie{}, ErrDuplicateTitle
	}

	movie := models.Movie{
		ID:        s.claimIDLocked(),
		Title:     title,
		Watched:   false,
		CreatedAt: models.TimeToMillis(s.clock()),
	}
	s.movies = append([]models.Movie{movie}, s.movies...)

	if err := s.persistLocked(ctx); err != nil {
		s.movies = s.movies[1:]
		return models.Movie{}, err
	}
	return movie, nil
}

// ToggleWatched flips the watched flag. Moving to watched stamps watchedAt;
// moving back clears it. Rating and notes are retained either way so a
// re-queued movie keeps its history.
func (s *Store) ToggleWatched(ctx context.Context, id int64) (models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return models.Movie{}, ErrNotFound
	}

	prev := s.movies[i].Clone()
	m := &s.movies[i]
	m.Watched = !m.Watched
	if m.Watched {
		now := models.TimeToMillis(s.clock())
		m.WatchedAt = &now
	} else {
		m.WatchedAt = nil
	}

	if err := s.persistLocked(ctx); err != nil {
		s.movies[i] = prev
		return models.Movie{}, err
	}
	return m.Clone(), nil
}

// SetRating stores a rating, clamped to [1,5]. Out-of-range values are a
// normalization case, not an error.
func (s *Store) SetRating(ctx context.Context, id int64, rating int) (models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return models.Movie{}, ErrNotFound
	}

	prev := s.movies[i].Clone()
	rating = ClampRating(rating)
	s.movies[i].Rating = &rating

	if err := s.persistLocked(ctx); err != nil {
		s.movies[i] = prev
		return models.Movie{}, err
	}
	return s.movies[i].Clone(), nil
}

// SetNotes replaces the free-text notes. An empty string clears them.
func (s *Store) SetNotes(ctx context.Context, id int64, notes string) (models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return models.Movie{}, ErrNotFound
	}

	prev := s.movies[i].Clone()
	if notes == "" {
		s.movies[i].Notes = nil
	} else {
		s.movies[i].Notes = &notes
	}

	if err := s.persistLocked(ctx); err != nil {
		s.movies[i] = prev
		return models.Movie{}, err
	}
	return s.movies[i].Clone(), nil
}

// EditTitle renames a movie, applying the same uniqueness check as Create
// but excluding the movie being edited.
func (s *Store) EditTitle(ctx context.Context, id int64, newTitle string) (models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return models.Movie{}, ErrNotFound
	}

	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" {
		return models.Movie{}, ErrEmptyTitle
	}
	if s.titleExistsLocked(newTitle, id) {
		return models.Movie{}, ErrDuplicateTitle
	}

	prev := s.movies[i].Title
	s.movies[i].Title = newTitle

	if err := s.persistLocked(ctx); err != nil {
		s.movies[i].Title = prev
		return models.Movie{}, err
	}
	return s.movies[i].Clone(), nil
}

// Delete removes a movie. Deleting an unknown ID is a no-op.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return nil
	}

	prev := s.movies
	next := make([]models.Movie, 0, len(s.movies)-1)
	next = append(next, s.movies[:i]...)
	next = append(next, s.movies[i+1:]...)
	s.movies = next

	if err := s.persistLocked(ctx); err != nil {
		s.movies = prev
		return err
	}
	return nil
}

// BulkInsert applies the Create rules to each candidate in order, so an
// earlier candidate in the batch blocks later duplicates. Accepted movies
// are prepended as a block, keeping batch order. The report never carries
// partial errors; rejected candidates are counted, not surfaced.
func (s *Store) BulkInsert(ctx context.Context, candidates []models.Candidate) (models.InsertionReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := models.TimeToMillis(s.clock())
	var accepted []models.Movie
	report := models.InsertionReport{}

	for _, c := range candidates {
		title := strings.TrimSpace(c.Title)
		if title == "" || s.titleExistsLocked(title, 0) || containsTitle(accepted, title) {
			report.Skipped++
			continue
		}

		movie := models.Movie{
			ID:        s.claimIDLocked(),
			Title:     title,
			Watched:   c.Watched,
			CreatedAt: now,
		}
		if c.Notes != nil {
			notes := *c.Notes
			movie.Notes = &notes
		}
		if c.Rating != nil {
			rating := ClampRating(*c.Rating)
			movie.Rating = &rating
		}
		// watchedAt is present iff watched, regardless of what the
		// candidate carried.
		if c.Watched {
			watchedAt := now
			if c.WatchedAt != nil {
				watchedAt = *c.WatchedAt
			}
			movie.WatchedAt = &watchedAt
		}

		accepted = append(accepted, movie)
		report.Inserted++
	}

	if len(accepted) > 0 {
		s.movies = append(accepted, s.movies...)
		if err := s.persistLocked(ctx); err != nil {
			s.movies = s.movies[len(accepted):]
			return models.InsertionReport{}, err
		}
	}

	s.logger.Info("Bulk insert finished",
		slog.Int("inserted", report.Inserted),
		slog.Int("skipped", report.Skipped))
	return report, nil
}

// Query returns a snapshot of the collection in storage order. Elements are
// deep copies, so writing through a snapshot's pointer fields cannot reach
// internal state.
func (s *Store) Query() []models.Movie {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Movie, len(s.movies))
	for i, m := range s.movies {
		out[i] = m.Clone()
	}
	return out
}

// Titles returns all current titles, for duplicate checks outside the store.
func (s *Store) Titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	titles := make([]string, len(s.movies))
	for i, m := range s.movies {
		titles[i] = m.Title
	}
	return titles
}

// ClampRating normalizes a rating into [1,5].
func ClampRating(rating int) int {
	if rating < 1 {
		return 1
	}
	if rating > 5 {
		return 5
	}
	return rating
}

func (s *Store) claimIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Store) indexLocked(id int64) int {
	for i, m := range s.movies {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// titleExistsLocked reports whether a title is taken, ignoring the movie
// with excludeID (zero means exclude nothing).
func (s *Store) titleExistsLocked(title string, excludeID int64) bool {
	for _, m := range s.movies {
		if m.ID != excludeID && strings.EqualFold(m.Title, title) {
			return true
		}
	}
	return false
}

func containsTitle(movies []models.Movie, title string) bool {
	for _, m := range movies {
		if strings.EqualFold(m.Title, title) {
			return true
		}
	}
	return false
}

func (s *Store) persistLocked(ctx context.Context) error {
	movies := s.movies
	if movies == nil {
		movies = []models.Movie{}
	}
	payload, err := json.Marshal(movies)
	if err != nil {
		return fmt.Errorf("failed to marshal watchlist: %w", err)
	}
	if err := s.slot.Save(ctx, payload); err != nil {
		return fmt.Errorf("failed to persist watchlist: %w", err)
	}
	return nil
}

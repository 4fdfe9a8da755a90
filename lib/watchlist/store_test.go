package watchlist

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"io"
	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reeldreams/models"
)

// memSlot is an in-memory stand-in for the SQLite-backed slot.
type memSlot struct {
	payload []byte
	exists  bool
	saves   int
	saveErr error
}

func (s *memSlot) Load(ctx context.Context) ([]byte, bool, error) {
	return s.payload, s.exists, nil
}

func (s *memSlot) Save(ctx context.Context, payload []byte) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.payload = payload
	s.exists = true
	s.saves++
	return nil
}

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *memSlot) {
	t.Helper()
	slot := &memSlot{}
	store := New(slot, slog.New(slog.NewTextHandler(io.Discard, nil)))
	store.SetClock(func() time.Time { return testTime })
	return store, slot
}

func TestCreate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	movie, err := store.Create(ctx, "  Dune  ")
	require.NoError(t, err)
	assert.Equal(t, "Dune", movie.Title)
	assert.False(t, movie.Watched)
	assert.Nil(t, movie.WatchedAt)
	assert.Nil(t, movie.Rating)
	assert.Nil(t, movie.Notes)
	assert.Equal(t, models.TimeToMillis(testTime), movie.CreatedAt)
}

func TestCreateEmptyTitle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyTitle)
	assert.Empty(t, store.Query())
}

func TestCreateCaseInsensitiveDuplicate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "The Matrix")
	require.NoError(t, err)

	_, err = store.Create(ctx, "the matrix")
	assert.ErrorIs(t, err, ErrDuplicateTitle)
	assert.Len(t, store.Query(), 1)
}

func TestCreatePrepends(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "First")
	require.NoError(t, err)
	_, err = store.Create(ctx, "Second")
	require.NoError(t, err)

	movies := store.Query()
	require.Len(t, movies, 2)
	assert.Equal(t, "Second", movies[0].Title)
	assert.Equal(t, "First", movies[1].Title)
}

func TestToggleWatchedRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	movie, err := store.Create(ctx, "Arrival")
	require.NoError(t, err)

	watched, err := store.ToggleWatched(ctx, movie.ID)
	require.NoError(t, err)
	assert.True(t, watched.Watched)
	require.NotNil(t, watched.WatchedAt)
	assert.Equal(t, models.TimeToMillis(testTime), *watched.WatchedAt)

	// Rating and notes set while watched survive the trip back.
	_, err = store.SetRating(ctx, movie.ID, 4)
	require.NoError(t, err)
	_, err = store.SetNotes(ctx, movie.ID, "slow but great")
	require.NoError(t, err)

	unwatched, err := store.ToggleWatched(ctx, movie.ID)
	require.NoError(t, err)
	assert.False(t, unwatched.Watched)
	assert.Nil(t, unwatched.WatchedAt)
	require.NotNil(t, unwatched.Rating)
	assert.Equal(t, 4, *unwatched.Rating)
	require.NotNil(t, unwatched.Notes)
	assert.Equal(t, "slow but great", *unwatched.Notes)
}

func TestToggleWatchedNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.ToggleWatched(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetRatingClamps(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-3, 1},
		{0, 1},
		{1, 1},
		{3, 3},
		{5, 5},
		{6, 5},
		{99, 5},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d", tc.in), func(t *testing.T) {
			store, _ := newTestStore(t)
			ctx := context.Background()

			movie, err := store.Create(ctx, "Heat")
			require.NoError(t, err)

			updated, err := store.SetRating(ctx, movie.ID, tc.in)
			require.NoError(t, err)
			require.NotNil(t, updated.Rating)
			assert.Equal(t, tc.want, *updated.Rating)
		})
	}
}

func TestSetRatingNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.SetRating(context.Background(), 42, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetNotes(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	movie, err := store.Create(ctx, "Alien")
	require.NoError(t, err)

	updated, err := store.SetNotes(ctx, movie.ID, "rewatch soon")
	require.NoError(t, err)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "rewatch soon", *updated.Notes)

	cleared, err := store.SetNotes(ctx, movie.ID, "")
	require.NoError(t, err)
	assert.Nil(t, cleared.Notes)
}

func TestEditTitle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, "Blade Runner")
	require.NoError(t, err)
	_, err = store.Create(ctx, "Brazil")
	require.NoError(t, err)

	updated, err := store.EditTitle(ctx, first.ID, "Blade Runner 2049")
	require.NoError(t, err)
	assert.Equal(t, "Blade Runner 2049", updated.Title)

	_, err = store.EditTitle(ctx, first.ID, "brazil")
	assert.ErrorIs(t, err, ErrDuplicateTitle)

	// Re-casing a movie's own title is not a collision.
	recased, err := store.EditTitle(ctx, first.ID, "BLADE RUNNER 2049")
	require.NoError(t, err)
	assert.Equal(t, "BLADE RUNNER 2049", recased.Title)

	_, err = store.EditTitle(ctx, first.ID, "  ")
	assert.ErrorIs(t, err, ErrEmptyTitle)

	_, err = store.EditTitle(ctx, 42, "Whatever")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	movie, err := store.Create(ctx, "Stalker")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, movie.ID))
	assert.Empty(t, store.Query())

	// Deleting again is a no-op, not an error.
	require.NoError(t, store.Delete(ctx, movie.ID))
}

func TestBulkInsertDedupes(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "Dune")
	require.NoError(t, err)

	candidates := []models.Candidate{
		{Title: "Arrival"},
		{Title: "dune"},    // duplicate of an existing title
		{Title: "Arrival"}, // duplicate of an earlier candidate
		{Title: "   "},     // blank after trim
		{Title: "Sicario"},
	}

	report, err := store.BulkInsert(ctx, candidates)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, len(candidates), report.Inserted+report.Skipped)

	movies := store.Query()
	require.Len(t, movies, 3)
	// Batch is prepended as a block, in batch order.
	assert.Equal(t, "Arrival", movies[0].Title)
	assert.Equal(t, "Sicario", movies[1].Title)
	assert.Equal(t, "Dune", movies[2].Title)
}

func TestBulkInsertWatchedAtRules(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	imported := models.TimeToMillis(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	candidates := []models.Candidate{
		{Title: "Watched with date", Watched: true, WatchedAt: &imported},
		{Title: "Watched without date", Watched: true},
		{Title: "Unwatched with date", Watched: false, WatchedAt: &imported},
	}

	report, err := store.BulkInsert(ctx, candidates)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Inserted)

	movies := store.Query()
	require.NotNil(t, movies[0].WatchedAt)
	assert.Equal(t, imported, *movies[0].WatchedAt)
	require.NotNil(t, movies[1].WatchedAt)
	assert.Equal(t, models.TimeToMillis(testTime), *movies[1].WatchedAt)
	assert.Nil(t, movies[2].WatchedAt)
}

func TestBulkInsertClampsRatings(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	nine := 9
	zero := 0
	candidates := []models.Candidate{
		{Title: "Too high", Rating: &nine},
		{Title: "Too low", Rating: &zero},
		{Title: "Absent"},
	}

	_, err := store.BulkInsert(ctx, candidates)
	require.NoError(t, err)

	movies := store.Query()
	require.NotNil(t, movies[0].Rating)
	assert.Equal(t, 5, *movies[0].Rating)
	require.NotNil(t, movies[1].Rating)
	assert.Equal(t, 1, *movies[1].Rating)
	assert.Nil(t, movies[2].Rating)
}

func TestBulkInsertLargeBatchUniqueIDs(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// All candidates share one wall-clock instant; IDs must still be unique.
	candidates := make([]models.Candidate, 600)
	for i := range candidates {
		candidates[i] = models.Candidate{Title: fmt.Sprintf("Movie %03d", i)}
	}

	report, err := store.BulkInsert(ctx, candidates)
	require.NoError(t, err)
	assert.Equal(t, 600, report.Inserted)

	seen := make(map[int64]struct{})
	for _, m := range store.Query() {
		_, dup := seen[m.ID]
		require.False(t, dup, "duplicate id %d", m.ID)
		seen[m.ID] = struct{}{}
	}
}

func TestQuerySnapshotDoesNotAlias(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	movie, err := store.Create(ctx, "Original")
	require.NoError(t, err)
	_, err = store.ToggleWatched(ctx, movie.ID)
	require.NoError(t, err)
	_, err = store.SetRating(ctx, movie.ID, 4)
	require.NoError(t, err)
	_, err = store.SetNotes(ctx, movie.ID, "keep")
	require.NoError(t, err)

	snapshot := store.Query()
	snapshot[0].Title = "Mutated"
	*snapshot[0].Rating = 99
	*snapshot[0].Notes = "scribbled over"
	*snapshot[0].WatchedAt = 0

	fresh := store.Query()[0]
	assert.Equal(t, "Original", fresh.Title)
	assert.Equal(t, 4, *fresh.Rating)
	assert.Equal(t, "keep", *fresh.Notes)
	assert.Equal(t, models.TimeToMillis(testTime), *fresh.WatchedAt)
}

func TestMutatorResultsDoNotAlias(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	movie, err := store.Create(ctx, "Solaris")
	require.NoError(t, err)

	rated, err := store.SetRating(ctx, movie.ID, 3)
	require.NoError(t, err)
	*rated.Rating = 99

	noted, err := store.SetNotes(ctx, movie.ID, "rewatch")
	require.NoError(t, err)
	*noted.Notes = "scribbled over"

	watched, err := store.ToggleWatched(ctx, movie.ID)
	require.NoError(t, err)
	*watched.WatchedAt = 0

	fresh := store.Query()[0]
	assert.Equal(t, 3, *fresh.Rating)
	assert.Equal(t, "rewatch", *fresh.Notes)
	assert.Equal(t, models.TimeToMillis(testTime), *fresh.WatchedAt)
}

func TestBulkInsertDoesNotAliasCandidates(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	rating := 4
	notes := "from import"
	candidates := []models.Candidate{
		{Title: "Heat", Rating: &rating, Notes: &notes},
	}

	_, err := store.BulkInsert(ctx, candidates)
	require.NoError(t, err)

	rating = 99
	notes = "scribbled over"

	fresh := store.Query()[0]
	assert.Equal(t, 4, *fresh.Rating)
	assert.Equal(t, "from import", *fresh.Notes)
}

func TestPersistWriteThrough(t *testing.T) {
	store, slot := newTestStore(t)
	ctx := context.Background()

	movie, err := store.Create(ctx, "Ran")
	require.NoError(t, err)
	assert.Equal(t, 1, slot.saves)

	_, err = store.ToggleWatched(ctx, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, slot.saves)

	var persisted []models.Movie
	require.NoError(t, json.Unmarshal(slot.payload, &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, "Ran", persisted[0].Title)
	assert.True(t, persisted[0].Watched)
}

func TestPersistFailureSurfaces(t *testing.T) {
	store, slot := newTestStore(t)
	slot.saveErr = fmt.Errorf("disk full")

	_, err := store.Create(context.Background(), "Akira")
	assert.Error(t, err)
}

func TestPersistFailureRollsBack(t *testing.T) {
	store, slot := newTestStore(t)
	ctx := context.Background()

	movie, err := store.Create(ctx, "Akira")
	require.NoError(t, err)

	slot.saveErr = fmt.Errorf("disk full")

	_, err = store.Create(ctx, "Tetsuo")
	require.Error(t, err)
	require.Len(t, store.Query(), 1)

	_, err = store.ToggleWatched(ctx, movie.ID)
	require.Error(t, err)
	assert.False(t, store.Query()[0].Watched)

	_, err = store.SetRating(ctx, movie.ID, 5)
	require.Error(t, err)
	assert.Nil(t, store.Query()[0].Rating)

	_, err = store.SetNotes(ctx, movie.ID, "classic")
	require.Error(t, err)
	assert.Nil(t, store.Query()[0].Notes)

	_, err = store.EditTitle(ctx, movie.ID, "Akira (1988)")
	require.Error(t, err)
	assert.Equal(t, "Akira", store.Query()[0].Title)

	require.Error(t, store.Delete(ctx, movie.ID))
	require.Len(t, store.Query(), 1)

	_, err = store.BulkInsert(ctx, []models.Candidate{{Title: "Paprika"}})
	require.Error(t, err)
	require.Len(t, store.Query(), 1)

	// Once the slot recovers, the store picks up where it left off.
	slot.saveErr = nil
	_, err = store.Create(ctx, "Tetsuo")
	require.NoError(t, err)
	assert.Len(t, store.Query(), 2)
}

func TestRestoreMissingSlot(t *testing.T) {
	store, _ := newTestStore(t)

	store.Restore(context.Background())
	assert.Empty(t, store.Query())
}

func TestRestoreCorruptPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "{{{"},
		{"wrong shape", `{"movies": []}`},
		{"missing fields", `[{"title": "Dune"}]`},
		{"unknown field", `[{"id": 1, "title": "Dune", "watched": false, "createdAt": 1, "extra": true}]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, slot := newTestStore(t)
			slot.payload = []byte(tc.payload)
			slot.exists = true

			store.Restore(context.Background())
			assert.Empty(t, store.Query())
		})
	}
}

func TestRestoreSeedsIDCounter(t *testing.T) {
	store, slot := newTestStore(t)
	slot.payload = []byte(`[
		{"id": 7, "title": "Dune", "watched": false, "createdAt": 1000},
		{"id": 3, "title": "Arrival", "watched": true, "createdAt": 1000, "watchedAt": 2000, "rating": 5, "notes": "good"}
	]`)
	slot.exists = true

	ctx := context.Background()
	store.Restore(ctx)
	require.Len(t, store.Query(), 2)

	movie, err := store.Create(ctx, "Sicario")
	require.NoError(t, err)
	assert.Equal(t, int64(8), movie.ID)
}

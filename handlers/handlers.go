// Package handlers wires the watchlist core to HTTP. Store errors stay
// sentinel values inside the core and are translated to status codes here.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"reeldreams/handlers/templates"
	"reeldreams/lib/guard"
	"reeldreams/lib/health"
	"reeldreams/lib/plex"
	"reeldreams/lib/recommend"
	"reeldreams/lib/tabular"
	"reeldreams/lib/validation"
	"reeldreams/lib/watchlist"
	"reeldreams/models"
)

// Routes builds the full router. plexClient may be nil when no Plex server
// is configured; the import route then reports the feature unavailable.
func Routes(db *gorm.DB, store *watchlist.Store, rec *recommend.Recommender, plexClient *plex.Client) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// One pending recommendation at a time; shared across requests.
	recommendGuard := &guard.Guard{}

	r.Get("/", HandleHome(store))
	r.Get("/healthz", health.Check(db))

	r.Route("/api", func(r chi.Router) {
		r.Get("/movies", HandleListMovies(store))
		r.Post("/movies", HandleCreateMovie(store))
		r.Post("/movies/{id}/toggle", HandleToggleWatched(store))
		r.Put("/movies/{id}/rating", HandleSetRating(store))
		r.Put("/movies/{id}/notes", HandleSetNotes(store))
		r.Put("/movies/{id}/title", HandleEditTitle(store))
		r.Delete("/movies/{id}", HandleDeleteMovie(store))
		r.Post("/import", HandleImport(store))
		r.Get("/export", HandleExport(store))
		r.Get("/stats", HandleStats(store))
		r.Post("/recommendations", HandleRecommendations(store, rec, recommendGuard))
		r.Post("/plex/import", HandlePlexImport(store, plexClient))
	})

	return r
}

type errorData struct {
	Message string
}

func renderError(w http.ResponseWriter, message string, status int) {
	tmpl, err := templates.ParseTemplates("base.html", "error.html")
	if err != nil {
		slog.Error("Failed to parse error template", slog.Any("error", err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base", errorData{Message: message}); err != nil {
		slog.Error("Failed to execute error template", slog.Any("error", err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

type homeData struct {
	Query   string
	ToWatch []models.Movie
	Watched []models.Movie
}

// HandleHome renders the watchlist split into to-watch and watched views,
// optionally filtered by the q query parameter.
func HandleHome(store *watchlist.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		query := req.URL.Query().Get("q")
		movies := watchlist.FilterTitle(store.Query(), query)

		tmpl, err := templates.ParseTemplates("base.html", "home.html")
		if err != nil {
			slog.Error("Failed to parse template", slog.Any("error", err))
			renderError(w, "Something went wrong while loading the page.", http.StatusInternalServerError)
			return
		}

		data := homeData{
			Query:   query,
			ToWatch: watchlist.ToWatch(movies),
			Watched: watchlist.Watched(movies),
		}
		if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
			slog.Error("Failed to execute template", slog.Any("error", err))
			renderError(w, "Something went wrong while displaying the page.", http.StatusInternalServerError)
		}
	}
}

type movieListResponse struct {
	ToWatch []models.Movie `json:"toWatch"`
	Watched []models.Movie `json:"watched"`
}

func HandleListMovies(store *watchlist.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		movies := watchlist.FilterTitle(store.Query(), req.URL.Query().Get("q"))
		validation.WriteJSON(w, movieListResponse{
			ToWatch: watchlist.ToWatch(movies),
			Watched: watchlist.Watched(movies),
		}, http.StatusOK)
	}
}

type titleRequest struct {
	Title string `json:"title"`
}

func HandleCreateMovie(store *watchlist.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body titleRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			validation.WriteError(w, fmt.Errorf("invalid request body"), http.StatusBadRequest)
			return
		}

		movie, err := store.Create(req.Context(), body.Title)
		if err != nil {
			validation.WriteError(w, err, storeErrorStatus(err))
			return
		}
		validation.WriteJSON(w, movie, http.StatusCreated)
	}
}

func HandleToggleWatched(store *watchlist.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id, err := movieID(req)
		if err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		movie, err := store.ToggleWatched(req.Context(), id)
		if err != nil {
			validation.WriteError(w, err, storeErrorStatus(err))
			return
		}
		validation.WriteJSON(w, movie, http.StatusOK)
	}
}

type ratingRequest struct {
	Rating int `json:"rating"`
}

func HandleSetRating(store *watchlist.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id, err := movieID(req)
		if err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		var body ratingRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			validation.WriteError(w, fmt.Errorf("invalid request body"), http.StatusBadRequest)
			return
		}

		movie, err := store.SetRating(req.Context(), id, body.Rating)
		if err != nil {
			validation.WriteError(w, err, storeErrorStatus(err))
			return
		}
		validation.WriteJSON(w, movie, http.StatusOK)
	}
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func HandleSetNotes(store *watchlist.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id, err := movieID(req)
		if err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		var body notesRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			validation.WriteError(w, fmt.Errorf("invalid request body"), http.StatusBadRequest)
			return
		}

		movie, err := store.SetNotes(req.Context(), id, body.Notes)
		if err != nil {
			validation.WriteError(w, err, storeErrorStatus(err))
			return
		}
		validation.WriteJSON(w, movie, http.StatusOK)
	}
}

func HandleEditTitle(store *watchlist.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id, err := movieID(req)
		if err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		var body titleRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			validation.WriteError(w, fmt.Errorf("invalid request body"), http.StatusBadRequest)
			return
		}

		movie, err := store.EditTitle(req.Context(), id, body.Title)
		if err != nil {
			validation.WriteError(w, err, storeErrorStatus(err))
			return
		}
		validation.WriteJSON(w, movie, http.StatusOK)
	}
}

func HandleDeleteMovie(store *watchlist.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id, err := movieID(req)
		if err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		if err := store.Delete(req.Context(), id); err != nil {
			validation.WriteError(w, err, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type importRequest struct {
	Text string `json:"text"`
}

// HandleImport parses pasted tab-separated text and inserts the accepted
// rows. Parse-stage skips and insert-stage skips fold into one report.
func HandleImport(store *watchlist.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body importRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			validation.WriteError(w, fmt.Errorf("invalid request body"), http.StatusBadRequest)
			return
		}

		parsed := tabular.Parse(body.Text, store.Titles(), time.Now())
		report, err := store.BulkInsert(req.Context(), parsed.Candidates)
		if err != nil {
			validation.WriteError(w, err, http.StatusInternalServerError)
			return
		}
		report.Skipped += parsed.Skipped

		validation.WriteJSON(w, report, http.StatusOK)
	}
}

func HandleExport(store *watchlist.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/tab-separated-values; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="reel-dreams.tsv"`)
		if _, err := w.Write([]byte(tabular.Format(store.Query()))); err != nil {
			slog.Error("Failed to write export", slog.Any("error", err))
		}
	}
}

func HandleStats(store *watchlist.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		validation.WriteJSON(w, watchlist.Stats(store.Query()), http.StatusOK)
	}
}

type recommendRequest struct {
	PreferredGenres string `json:"preferredGenres"`
	Count           int    `json:"count"`
}

type recommendResponse struct {
	Suggestions []models.Suggestion `json:"suggestions"`
}

// HandleRecommendations joins the watched titles into a history string and
// asks the model for suggestions. Only one request may be in flight; the
// guard is released on every path so a failed call is immediately
// retryable.
func HandleRecommendations(store *watchlist.Store, rec *recommend.Recommender, g *guard.Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body recommendRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			validation.WriteError(w, fmt.Errorf("invalid request body"), http.StatusBadRequest)
			return
		}

		if !g.TryAcquire() {
			validation.WriteError(w, fmt.Errorf("a recommendation request is already in progress"), http.StatusConflict)
			return
		}
		defer g.Release()

		watched := watchlist.Watched(store.Query())
		titles := make([]string, len(watched))
		for i, m := range watched {
			titles[i] = m.Title
		}

		suggestions, err := rec.Suggest(req.Context(), strings.Join(titles, ", "), body.PreferredGenres, body.Count)
		if err != nil {
			if errors.Is(err, recommend.ErrEmptyWatchHistory) {
				validation.WriteError(w, err, http.StatusUnprocessableEntity)
				return
			}
			slog.Error("Recommendation request failed", slog.Any("error", err))
			validation.WriteError(w, fmt.Errorf("couldn't get recommendations right now, try again"), http.StatusBadGateway)
			return
		}

		validation.WriteJSON(w, recommendResponse{Suggestions: suggestions}, http.StatusOK)
	}
}

// HandlePlexImport pulls the movie libraries from the configured Plex
// server and feeds them through the normal bulk-insert path.
func HandlePlexImport(store *watchlist.Store, plexClient *plex.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if plexClient == nil {
			validation.WriteError(w, fmt.Errorf("no Plex server configured"), http.StatusServiceUnavailable)
			return
		}

		candidates, err := plexClient.FetchMovieCandidates(req.Context())
		if err != nil {
			slog.Error("Plex import failed", slog.Any("error", err))
			validation.WriteError(w, fmt.Errorf("couldn't fetch movies from Plex"), http.StatusBadGateway)
			return
		}

		report, err := store.BulkInsert(req.Context(), candidates)
		if err != nil {
			validation.WriteError(w, err, http.StatusInternalServerError)
			return
		}
		validation.WriteJSON(w, report, http.StatusOK)
	}
}

func movieID(req *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid movie id")
	}
	return id, nil
}

func storeErrorStatus(err error) int {
	switch {
	case errors.Is(err, watchlist.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, watchlist.ErrDuplicateTitle):
		return http.StatusConflict
	case errors.Is(err, watchlist.ErrEmptyTitle):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

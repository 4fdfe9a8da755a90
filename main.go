package main

import (
	"context"
	"net/http"
	"os"

	"log/slog"

	"github.com/go-chi/chi/v5"
	openai "github.com/sashabaranov/go-openai"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"reeldreams/handlers"
	"reeldreams/lib/db"
	"reeldreams/lib/plex"
	"reeldreams/lib/recommend"
	"reeldreams/lib/storage"
	"reeldreams/lib/tmdb"
	"reeldreams/lib/watchlist"
)

type App struct {
	db     *gorm.DB
	store  *watchlist.Store
	router *chi.Mux
	logger *slog.Logger
}

func NewApp(logger *slog.Logger) (*App, error) {
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "reeldreams.db"
	}

	gormDB, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: db.NewGormLogger(logger),
	})
	if err != nil {
		return nil, err
	}

	if err := db.RunMigrations(gormDB, logger); err != nil {
		return nil, err
	}

	slot := storage.NewSlot(gormDB, storage.MovieSlotName, logger)
	store := watchlist.New(slot, logger)
	store.Restore(context.Background())

	var tmdbClient *tmdb.Client
	if key := os.Getenv("TMDB_API_KEY"); key != "" {
		tmdbClient = tmdb.NewClient(key, logger)
	}

	openaiClient := openai.NewClient(os.Getenv("OPENAI_API_KEY"))
	recommender := recommend.New(openaiClient, tmdbClient, logger)

	var plexClient *plex.Client
	if url := os.Getenv("PLEX_URL"); url != "" {
		plexClient = plex.NewClient(url, os.Getenv("PLEX_TOKEN"), logger)
	}

	return &App{
		db:     gormDB,
		store:  store,
		router: handlers.Routes(gormDB, store, recommender, plexClient),
		logger: logger,
	}, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	app, err := NewApp(logger)
	if err != nil {
		logger.Error("Failed to start", slog.Any("error", err))
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info("Starting server", slog.String("port", port))
	if err := http.ListenAndServe(":"+port, app.router); err != nil {
		logger.Error("Server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

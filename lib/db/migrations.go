package db

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"reeldreams/lib/storage"
)

// RunMigrations prepares the database: SQLite tuning pragmas first, then the
// slot table schema.
func RunMigrations(db *gorm.DB, logger *slog.Logger) error {
	ctx := context.Background()

	if err := applyPragmas(ctx, db, logger); err != nil {
		return fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := db.AutoMigrate(&storage.SlotRecord{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// applyPragmas tunes the SQLite connection. A pragma that fails is logged
// and skipped rather than aborting startup.
func applyPragmas(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if err := db.WithContext(ctx).Exec(pragma).Error; err != nil {
			logger.Warn("Failed to execute pragma", slog.String("pragma", pragma), slog.Any("error", err))
		} else {
			logger.Debug("Executed pragma", slog.String("pragma", pragma))
		}
	}

	return nil
}

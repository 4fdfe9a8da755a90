// Package storage persists named payload slots in SQLite. The watchlist
// lives in a single slot holding the JSON-serialized movie array, mirroring
// the one-key layout the data originally used.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"gorm.io/gorm"
)

// MovieSlotName is the fixed namespace key for the watchlist payload.
const MovieSlotName = "reel-dreams-movies"

// SlotRecord is a single named key-value entry.
type SlotRecord struct {
	Name      string `gorm:"primaryKey"`
	Payload   []byte
	UpdatedAt time.Time
}

// TableName sets the table name for slot records.
func (SlotRecord) TableName() string { return "slots" }

// Slot reads and writes one named entry.
type Slot struct {
	db     *gorm.DB
	name   string
	logger *slog.Logger
}

// NewSlot returns a slot bound to the given name.
func NewSlot(db *gorm.DB, name string, logger *slog.Logger) *Slot {
	return &Slot{db: db, name: name, logger: logger}
}

// Load returns the slot payload. A missing slot is not an error; the second
// return value reports whether the slot existed.
func (s *Slot) Load(ctx context.Context) ([]byte, bool, error) {
	var rec SlotRecord
	err := s.db.WithContext(ctx).First(&rec, "name = ?", s.name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load slot %s: %w", s.name, err)
	}
	return rec.Payload, true, nil
}

// Save replaces the slot payload.
func (s *Slot) Save(ctx context.Context, payload []byte) error {
	rec := SlotRecord{Name: s.name, Payload: payload, UpdatedAt: time.Now()}
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("failed to save slot %s: %w", s.name, err)
	}
	s.logger.Debug("Saved slot", slog.String("name", s.name), slog.Int("bytes", len(payload)))
	return nil
}

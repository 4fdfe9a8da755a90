// Package health exposes the liveness endpoint.
package health

import (
	"context"
	"net/http"
	"time"

	"gorm.io/gorm"

	"reeldreams/lib/validation"
)

type status struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Detail   string `json:"detail,omitempty"`
}

// Check reports whether the process is serving and its database answers a
// ping within the timeout.
func Check(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := ping(ctx, db); err != nil {
			validation.WriteJSON(w, status{
				Status:   "degraded",
				Database: "error",
				Detail:   err.Error(),
			}, http.StatusServiceUnavailable)
			return
		}

		validation.WriteJSON(w, status{Status: "ok", Database: "ok"}, http.StatusOK)
	}
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

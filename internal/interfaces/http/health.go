package http

import (
	"context"
	"log"
	"net/http"
	"time"
)

// Pinger is satisfied by *sql.DB and the postgres wrapper.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HandleHealth reports ok when the database answers a ping within two
// seconds. A nil db skips the check.
func HandleHealth(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := db.PingContext(ctx); err != nil {
				log.Printf("Health check: database ping failed: %v", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}

		w.Write([]byte(`{"status":"ok"}`))
	}
}

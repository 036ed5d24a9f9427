package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/primadev/licensehub/internal/http/respond"
)

const pingTimeout = 2 * time.Second

type Pinger interface {
	PingContext(ctx context.Context) error
}

type response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Handler reports liveness along with database reachability.
func Handler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			slog.Error("health check failed", "error", err)
			respond.JSON(w, http.StatusServiceUnavailable, response{Status: "unhealthy", Database: "unreachable"})

			return
		}

		respond.JSON(w, http.StatusOK, response{Status: "ok", Database: "ok"})
	}
}

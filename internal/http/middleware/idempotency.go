package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/primadev/licensehub/internal/idempotency"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "X-Idempotent-Replayed"
)

type IdempotencyStore interface {
	Get(ctx context.Context, key, path string) (*idempotency.Response, error)
	Save(ctx context.Context, key, path string, resp *idempotency.Response) error
}

type responseCapture struct {
	http.ResponseWriter
	body       bytes.Buffer
	statusCode int
}

func newResponseCapture(w http.ResponseWriter) *responseCapture {
	return &responseCapture{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rc *responseCapture) WriteHeader(code int) {
	rc.statusCode = code
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the stored response of a POST that carries an
// Idempotency-Key header seen before on the same path. Only 2xx responses are
// stored, so failed attempts can be retried with the same key. Store errors
// never block the request.
func Idempotency(store IdempotencyStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyKeyHeader)
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}

			path := strings.TrimSuffix(r.URL.Path, "/")
			ctx := r.Context()

			cached, err := store.Get(ctx, key, path)
			if err != nil {
				logger.Error("failed to check idempotency cache", "error", err)
				next.ServeHTTP(w, r)

				return
			}

			if cached != nil {
				logger.Debug("replaying idempotent response", "key", key, "path", path, "status", cached.Status)

				contentType := cached.ContentType
				if contentType == "" {
					contentType = "application/json"
				}

				w.Header().Set("Content-Type", contentType)
				w.Header().Set(replayedHeader, "true")
				w.WriteHeader(cached.Status)
				w.Write([]byte(cached.Body))

				return
			}

			capture := newResponseCapture(w)
			next.ServeHTTP(capture, r)

			if capture.statusCode < 200 || capture.statusCode >= 300 {
				return
			}

			resp := &idempotency.Response{
				Status:      capture.statusCode,
				ContentType: w.Header().Get("Content-Type"),
				Body:        capture.body.String(),
				CreatedAt:   time.Now().UTC(),
			}

			if err := store.Save(ctx, key, path, resp); err != nil {
				logger.Error("failed to store idempotency key", "key", key, "error", err)
			}
		})
	}
}

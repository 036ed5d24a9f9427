package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primadev/licensehub/internal/auth"
	"github.com/primadev/licensehub/internal/http/middleware"
)

func TestRequireAdmin(t *testing.T) {
	v, err := auth.NewVerifier("s3cret", "")
	require.NoError(t, err)

	valid, err := v.Sign("admin@primadev.id", time.Hour, time.Now())
	require.NoError(t, err)

	var seen string

	handler := middleware.RequireAdmin(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.FromContext(r.Context())
		if ok {
			seen = claims.Subject
		}

		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"NoHeader", "", http.StatusUnauthorized},
		{"WrongScheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"EmptyToken", "Bearer ", http.StatusUnauthorized},
		{"InvalidToken", "Bearer not.a.token", http.StatusForbidden},
		{"Valid", "Bearer " + valid, http.StatusNoContent},
		{"LowercaseScheme", "bearer " + valid, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""

			req := httptest.NewRequest(http.MethodGet, "/admin/transactions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusNoContent {
				assert.Equal(t, "admin@primadev.id", seen)
			} else {
				assert.Empty(t, seen)
			}
		})
	}
}

package invoice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/primadev/licensehub/internal/http/respond"
	"github.com/primadev/licensehub/internal/invoice"
	"github.com/primadev/licensehub/internal/license"
)

type Licenses interface {
	GetLicense(ctx context.Context, key string) (*license.License, error)
}

type Handler struct {
	licenses Licenses
	renderer *invoice.Renderer
}

func NewHandler(licenses Licenses, renderer *invoice.Renderer) *Handler {
	return &Handler{licenses: licenses, renderer: renderer}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/{key}", h.get)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	lic, err := h.licenses.GetLicense(r.Context(), key)
	if err != nil {
		if errors.Is(err, license.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "invoice not found")
			return
		}

		slog.Error("failed to get license", "key", key, "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")

		return
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, lic); err != nil {
		slog.Error("failed to render invoice", "key", key, "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")

		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%s.pdf", invoice.Number(lic.Key)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write invoice", "key", key, "error", err)
	}
}

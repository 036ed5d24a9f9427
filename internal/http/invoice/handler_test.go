package invoice_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	invoicehttp "github.com/primadev/licensehub/internal/http/invoice"
	"github.com/primadev/licensehub/internal/invoice"
	"github.com/primadev/licensehub/internal/license"
)

type fakeLicenses map[string]*license.License

func (f fakeLicenses) GetLicense(_ context.Context, key string) (*license.License, error) {
	if key == "PRIMA-BOOM-BOOM-BOOM" {
		return nil, errors.New("db down")
	}

	lic, ok := f[key]
	if !ok {
		return nil, license.ErrNotFound
	}

	return lic, nil
}

func TestHandler_Get(t *testing.T) {
	licenses := fakeLicenses{
		"PRIMA-AB12-CD34-EF56": {
			Key:     "PRIMA-AB12-CD34-EF56",
			Type:    license.DurationYearly,
			Price:   450000,
			Name:    "Budi",
			AppName: "Struk SPBU",
		},
	}

	r := chi.NewRouter()
	r.Route("/invoices", invoicehttp.NewHandler(licenses, invoice.NewRenderer(invoice.Options{})).Routes)

	tests := []struct {
		name       string
		key        string
		wantStatus int
		wantType   string
	}{
		{"Found", "PRIMA-AB12-CD34-EF56", http.StatusOK, "application/pdf"},
		{"Missing", "PRIMA-0000-0000-0000", http.StatusNotFound, "application/json"},
		{"StoreError", "PRIMA-BOOM-BOOM-BOOM", http.StatusInternalServerError, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/"+tt.key, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantType, rec.Header().Get("Content-Type"))

			if tt.wantStatus == http.StatusOK {
				assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
				assert.Contains(t, rec.Header().Get("Content-Disposition"), "INV-AB12CD34.pdf")
			}
		})
	}
}

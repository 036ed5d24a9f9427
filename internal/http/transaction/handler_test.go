package transaction_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	txhttp "github.com/primadev/licensehub/internal/http/transaction"
	"github.com/primadev/licensehub/internal/license"
	"github.com/primadev/licensehub/internal/reconcile"
	"github.com/primadev/licensehub/internal/transaction"
)

type fakeTransactions struct {
	txs    []*transaction.Transaction
	filter transaction.ListFilter
	err    error
}

func (f *fakeTransactions) List(_ context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	f.filter = filter
	return f.txs, f.err
}

func (f *fakeTransactions) Get(_ context.Context, orderID string) (*transaction.Transaction, error) {
	for _, tx := range f.txs {
		if tx.OrderID == orderID {
			return tx, nil
		}
	}

	return nil, transaction.ErrNotFound
}

type fakeVerifier struct {
	res *reconcile.Result
	err error
}

func (f fakeVerifier) Verify(context.Context, string) (*reconcile.Result, error) {
	return f.res, f.err
}

func newRouter(txs *fakeTransactions, v fakeVerifier) http.Handler {
	r := chi.NewRouter()
	r.Route("/transactions", txhttp.NewHandler(txs, v).Routes)

	return r
}

func sample() *transaction.Transaction {
	return &transaction.Transaction{
		OrderID:       "ORDER-1",
		Status:        transaction.StatusPending,
		Amount:        50000,
		OrderType:     transaction.OrderTypeNew,
		Duration:      license.DurationMonthly,
		CustomerName:  "Budi",
		CustomerEmail: "budi@example.com",
		CreatedAt:     time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
	}
}

func TestHandler_List(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
		wantFilter transaction.ListFilter
	}{
		{
			name:       "Default",
			wantStatus: http.StatusOK,
			wantFilter: transaction.ListFilter{Limit: 100},
		},
		{
			name:       "ByStatus",
			query:      "?status=pending&limit=10",
			wantStatus: http.StatusOK,
			wantFilter: transaction.ListFilter{Status: new(transaction.StatusPending), Limit: 10},
		},
		{
			name:       "LimitCapped",
			query:      "?limit=10000",
			wantStatus: http.StatusOK,
			wantFilter: transaction.ListFilter{Limit: 500},
		},
		{name: "BadStatus", query: "?status=paid", wantStatus: http.StatusBadRequest},
		{name: "BadLimit", query: "?limit=-1", wantStatus: http.StatusBadRequest},
		{name: "StoreError", err: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs := &fakeTransactions{txs: []*transaction.Transaction{sample()}, err: tt.err}

			rec := httptest.NewRecorder()
			newRouter(txs, fakeVerifier{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus != http.StatusOK {
				return
			}

			assert.Equal(t, tt.wantFilter, txs.filter)

			var out []map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			require.Len(t, out, 1)
			assert.Equal(t, "ORDER-1", out[0]["orderId"])
			assert.Equal(t, "pending", out[0]["status"])
			assert.NotContains(t, out[0], "targetLicenseKey")
		})
	}
}

func TestHandler_Get(t *testing.T) {
	txs := &fakeTransactions{txs: []*transaction.Transaction{sample()}}

	rec := httptest.NewRecorder()
	newRouter(txs, fakeVerifier{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions/ORDER-1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	newRouter(txs, fakeVerifier{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions/ORDER-9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Reconcile(t *testing.T) {
	tests := []struct {
		name       string
		verifier   fakeVerifier
		wantStatus int
		wantBody   string
	}{
		{
			name: "Applied",
			verifier: fakeVerifier{res: &reconcile.Result{
				OrderID:       "ORDER-1",
				Outcome:       reconcile.OutcomeSuccess,
				Status:        transaction.StatusSuccess,
				GatewayStatus: "settlement",
				LicenseKey:    "PRIMA-AAAA-BBBB-CCCC",
				Applied:       true,
			}},
			wantStatus: http.StatusOK,
			wantBody: `{"orderId":"ORDER-1","outcome":"success","status":"success","gatewayStatus":"settlement",` +
				`"licenseKey":"PRIMA-AAAA-BBBB-CCCC","applied":true,"alreadyProcessed":false}`,
		},
		{
			name: "MissingTargetKey",
			verifier: fakeVerifier{err: &reconcile.IntegrityError{
				OrderID: "ORDER-1", Err: reconcile.ErrMissingTargetKey,
			}},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `{"error":"target license key missing in transaction"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter(&fakeTransactions{}, tt.verifier).
				ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/transactions/ORDER-1/reconcile", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

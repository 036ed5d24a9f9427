package transaction

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/primadev/licensehub/internal/auth"
	"github.com/primadev/licensehub/internal/http/respond"
	"github.com/primadev/licensehub/internal/reconcile"
	"github.com/primadev/licensehub/internal/transaction"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

type Transactions interface {
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
	Get(ctx context.Context, orderID string) (*transaction.Transaction, error)
}

type Verifier interface {
	Verify(ctx context.Context, orderID string) (*reconcile.Result, error)
}

// Handler is the operator view of orders.
type Handler struct {
	svc      Transactions
	verifier Verifier
}

func NewHandler(svc Transactions, verifier Verifier) *Handler {
	return &Handler{svc: svc, verifier: verifier}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{orderId}", h.get)
	r.Post("/{orderId}/reconcile", h.reconcile)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := transaction.ListFilter{Limit: defaultLimit}

	if s := r.URL.Query().Get("status"); s != "" {
		status := transaction.Status(s)
		if !status.Valid() {
			respond.Error(w, http.StatusBadRequest, "invalid status")
			return
		}

		filter.Status = new(status)
	}

	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 {
			respond.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}

		filter.Limit = min(limit, maxLimit)
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list transactions", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")

		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(txs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.Get(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "transaction not found")
			return
		}

		slog.Error("failed to get transaction", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")

		return
	}

	respond.JSON(w, http.StatusOK, toResponse(tx))
}

type reconcileResponse struct {
	OrderID          string             `json:"orderId"`
	Outcome          reconcile.Outcome  `json:"outcome"`
	Status           transaction.Status `json:"status"`
	GatewayStatus    string             `json:"gatewayStatus"`
	LicenseKey       string             `json:"licenseKey,omitempty"`
	Applied          bool               `json:"applied"`
	AlreadyProcessed bool               `json:"alreadyProcessed"`
}

// reconcile re-runs verification for one order against the gateway.
func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	res, err := h.verifier.Verify(r.Context(), orderID)
	if err != nil {
		respond.ReconcileError(w, err)
		return
	}

	admin := ""
	if claims, ok := auth.FromContext(r.Context()); ok {
		admin = claims.Subject
	}

	slog.Info("manual reconcile", "order_id", orderID, "admin", admin, "status", res.Status, "applied", res.Applied)

	respond.JSON(w, http.StatusOK, reconcileResponse{
		OrderID:          res.OrderID,
		Outcome:          res.Outcome,
		Status:           res.Status,
		GatewayStatus:    res.GatewayStatus,
		LicenseKey:       res.LicenseKey,
		Applied:          res.Applied,
		AlreadyProcessed: res.AlreadyProcessed,
	})
}

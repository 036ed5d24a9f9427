package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/primadev/licensehub/internal/http/respond"
	"github.com/primadev/licensehub/internal/payment"
	"github.com/primadev/licensehub/internal/reconcile"
	"github.com/primadev/licensehub/internal/transaction"
)

const maxNotificationSize = 1 << 20

type Authenticator interface {
	VerifyNotification(ctx context.Context, raw []byte) (*payment.Status, error)
}

type Processor interface {
	Process(ctx context.Context, st *payment.Status) (*reconcile.Result, error)
}

type Verifier interface {
	Verify(ctx context.Context, orderID string) (*reconcile.Result, error)
}

// NotificationLog is the audit trail of webhook deliveries.
type NotificationLog interface {
	RecordNotification(ctx context.Context, st *payment.Status, payload []byte) (*transaction.Notification, error)
	FinishNotification(ctx context.Context, n *transaction.Notification, handleErr error)
}

type Handler struct {
	auth      Authenticator
	processor Processor
	verifier  Verifier
	log       NotificationLog
}

func NewHandler(auth Authenticator, processor Processor, verifier Verifier, log NotificationLog) *Handler {
	return &Handler{auth: auth, processor: processor, verifier: verifier, log: log}
}

// Routes serves client-side verification under /payments.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/verify", h.verify)
}

// WebhookRoutes serves gateway notifications under /webhooks.
func (h *Handler) WebhookRoutes(r chi.Router) {
	r.Post("/midtrans", h.webhook)
}

type verifyRequest struct {
	OrderID string `json:"orderId"`
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.OrderID == "" {
		respond.Error(w, http.StatusBadRequest, "missing orderId")
		return
	}

	res, err := h.verifier.Verify(r.Context(), req.OrderID)
	if err != nil {
		respond.ReconcileError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, respond.FromResult(res))
}

type webhookResponse struct {
	Status  string `json:"status"`
	OrderID string `json:"orderId,omitempty"`
}

// webhook answers 200 for every authentic notification, including no-ops and
// orders that cannot be applied. Only internal failures answer 500.
func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxNotificationSize))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()

	st, err := h.auth.VerifyNotification(ctx, raw)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrMalformedNotification):
			respond.Error(w, http.StatusBadRequest, "malformed notification")
		case errors.Is(err, payment.ErrInvalidSignature), errors.Is(err, payment.ErrTransactionNotFound):
			slog.Warn("rejected payment notification", "error", err)
			respond.Error(w, http.StatusUnauthorized, "unauthorized")
		default:
			slog.Error("failed to verify notification", "error", err)
			respond.Error(w, http.StatusInternalServerError, "internal error")
		}

		return
	}

	n, err := h.log.RecordNotification(ctx, st, raw)
	if err != nil {
		slog.Error("failed to record notification", "order_id", st.OrderID, "error", err)
	}

	res, err := h.processor.Process(ctx, st)

	if n != nil {
		h.log.FinishNotification(ctx, n, err)
	}

	if err != nil {
		var integrity *reconcile.IntegrityError
		if errors.As(err, &integrity) {
			slog.Warn("acknowledged unusable notification", "order_id", st.OrderID, "error", err)
			respond.JSON(w, http.StatusOK, webhookResponse{Status: "ignored", OrderID: st.OrderID})

			return
		}

		slog.Error("failed to process notification", "order_id", st.OrderID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")

		return
	}

	status := "ok"
	if res.AlreadyProcessed {
		status = "already_processed"
	}

	respond.JSON(w, http.StatusOK, webhookResponse{Status: status, OrderID: res.OrderID})
}

package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/primadev/licensehub/internal/payment"
	"github.com/primadev/licensehub/internal/reconcile"
)

type errorResponse struct {
	Error string `json:"error"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorResponse{Error: msg})
}

// ReconcileError writes the client-facing answer for a failed verification.
// Order integrity problems map to 404/422; anything else is internal.
func ReconcileError(w http.ResponseWriter, err error) {
	var integrity *reconcile.IntegrityError

	switch {
	case errors.Is(err, payment.ErrTransactionNotFound), errors.Is(err, reconcile.ErrTransactionNotFound):
		Error(w, http.StatusNotFound, "transaction not found")
	case errors.Is(err, reconcile.ErrLicenseNotFound):
		Error(w, http.StatusNotFound, "license not found")
	case errors.Is(err, reconcile.ErrMissingTargetKey):
		Error(w, http.StatusUnprocessableEntity, "target license key missing in transaction")
	case errors.As(err, &integrity):
		Error(w, http.StatusUnprocessableEntity, integrity.Err.Error())
	default:
		slog.Error("failed to verify payment", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

type VerifyResponse struct {
	Status    string `json:"status"`
	IsSuccess bool   `json:"isSuccess"`
	Key       string `json:"key,omitempty"`
	Message   string `json:"message,omitempty"`
}

func FromResult(res *reconcile.Result) VerifyResponse {
	if !res.IsSuccess() {
		return VerifyResponse{Status: res.GatewayStatus}
	}

	resp := VerifyResponse{Status: "success", IsSuccess: true, Key: res.LicenseKey}
	if res.AlreadyProcessed {
		resp.Message = "Already processed"
	}

	return resp
}

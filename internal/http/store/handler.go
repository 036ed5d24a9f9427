package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/primadev/licensehub/internal/catalog"
	"github.com/primadev/licensehub/internal/http/respond"
	"github.com/primadev/licensehub/internal/license"
	"github.com/primadev/licensehub/internal/payment"
	"github.com/primadev/licensehub/internal/reconcile"
	"github.com/primadev/licensehub/internal/transaction"
)

const maxBodySize = 64 << 10

const (
	actionCreateTransaction = "create_transaction"
	actionVerifyPayment     = "verify_payment"
)

type Orders interface {
	CreateCharge(ctx context.Context, p transaction.ChargeParams) (*payment.ChargeResponse, error)
	CreateSnapCheckout(ctx context.Context, p transaction.SnapParams) (*transaction.SnapCheckout, error)
}

type Catalog interface {
	List(ctx context.Context) (catalog.Catalog, error)
}

type Verifier interface {
	Verify(ctx context.Context, orderID string) (*reconcile.Result, error)
}

type Handler struct {
	orders       Orders
	catalog      Catalog
	verifier     Verifier
	clientKey    string
	isProduction bool
	validate     *validator.Validate
}

func NewHandler(orders Orders, cat Catalog, verifier Verifier, clientKey string, isProduction bool) *Handler {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return &Handler{
		orders:       orders,
		catalog:      cat,
		verifier:     verifier,
		clientKey:    clientKey,
		isProduction: isProduction,
		validate:     validate,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.getCatalog)
	r.Post("/", h.post)
}

type catalogResponse struct {
	Catalog      catalog.Catalog `json:"catalog"`
	ClientKey    string          `json:"clientKey"`
	IsProduction bool            `json:"isProduction"`
}

func (h *Handler) getCatalog(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		slog.Error("failed to list catalog", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")

		return
	}

	respond.JSON(w, http.StatusOK, catalogResponse{
		Catalog:      products,
		ClientKey:    h.clientKey,
		IsProduction: h.isProduction,
	})
}

type envelope struct {
	Action string `json:"action"`
}

type createTransactionRequest struct {
	AppID         string           `json:"appId" validate:"required"`
	Duration      license.Duration `json:"duration" validate:"required,oneof=monthly yearly lifetime"`
	BuyerName     string           `json:"buyerName" validate:"required,max=100"`
	BuyerEmail    string           `json:"buyerEmail" validate:"required,email"`
	BuyerPhone    string           `json:"buyerPhone" validate:"max=20"`
	PaymentMethod string           `json:"paymentMethod" validate:"required"`
}

type verifyPaymentRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}

type snapCheckoutRequest struct {
	Name       string                `json:"name" validate:"max=100"`
	Email      string                `json:"email" validate:"required,email"`
	Phone      string                `json:"phone" validate:"max=20"`
	Amount     int64                 `json:"amount" validate:"gt=0"`
	Duration   license.Duration      `json:"duration" validate:"oneof=monthly yearly lifetime"`
	AppName    string                `json:"appName" validate:"max=100"`
	AppID      string                `json:"appId" validate:"max=100"`
	LicenseKey string                `json:"licenseKey" validate:"required_if=OrderType RENEWAL"`
	OrderType  transaction.OrderType `json:"orderType" validate:"oneof=NEW RENEWAL"`
}

func (r *snapCheckoutRequest) applyDefaults() {
	if r.Name == "" {
		r.Name = "Customer"
	}

	if r.Email == "" {
		r.Email = "no-email@example.com"
	}

	if r.Duration == "" {
		r.Duration = license.DurationMonthly
	}

	if r.AppName == "" {
		r.AppName = "Struk SPBU"
	}

	if r.OrderType == "" {
		r.OrderType = transaction.OrderTypeNew
	}
}

// post dispatches on the body's action field. A body without an action is a
// Snap checkout request.
func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch env.Action {
	case actionCreateTransaction:
		var req createTransactionRequest
		if !h.decode(w, body, &req) {
			return
		}

		h.createTransaction(w, r, req)
	case actionVerifyPayment:
		var req verifyPaymentRequest
		if !h.decode(w, body, &req) {
			return
		}

		h.verifyPayment(w, r, req)
	case "":
		var req snapCheckoutRequest
		if err := json.Unmarshal(body, &req); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.applyDefaults()

		if !h.check(w, &req) {
			return
		}

		h.snapCheckout(w, r, req)
	default:
		respond.Error(w, http.StatusBadRequest, "invalid action or request")
	}
}

func (h *Handler) decode(w http.ResponseWriter, body []byte, v any) bool {
	if err := json.Unmarshal(body, v); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	return h.check(w, v)
}

func (h *Handler) check(w http.ResponseWriter, v any) bool {
	err := h.validate.Struct(v)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		respond.Error(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", verrs[0].Field()))
		return false
	}

	respond.Error(w, http.StatusBadRequest, "invalid request")

	return false
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request, req createTransactionRequest) {
	resp, err := h.orders.CreateCharge(r.Context(), transaction.ChargeParams{
		AppID:         req.AppID,
		Duration:      req.Duration,
		BuyerName:     req.BuyerName,
		BuyerEmail:    req.BuyerEmail,
		BuyerPhone:    req.BuyerPhone,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}

	if len(resp.Raw) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(resp.Raw)

		return
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request, req verifyPaymentRequest) {
	res, err := h.verifier.Verify(r.Context(), req.OrderID)
	if err != nil {
		respond.ReconcileError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, respond.FromResult(res))
}

func (h *Handler) snapCheckout(w http.ResponseWriter, r *http.Request, req snapCheckoutRequest) {
	checkout, err := h.orders.CreateSnapCheckout(r.Context(), transaction.SnapParams{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Amount:     req.Amount,
		Duration:   req.Duration,
		AppName:    req.AppName,
		AppID:      req.AppID,
		LicenseKey: req.LicenseKey,
		OrderType:  req.OrderType,
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, checkout)
}

func writeOrderError(w http.ResponseWriter, err error) {
	var apiErr *payment.APIError

	switch {
	case errors.Is(err, transaction.ErrInvalidProduct):
		respond.Error(w, http.StatusBadRequest, "invalid product")
	case errors.Is(err, payment.ErrUnsupportedMethod):
		respond.Error(w, http.StatusBadRequest, "payment method not available")
	case errors.Is(err, transaction.ErrInvalidAmount):
		respond.Error(w, http.StatusBadRequest, "invalid amount")
	case errors.Is(err, transaction.ErrMissingLicense):
		respond.Error(w, http.StatusBadRequest, "license key required for renewal")
	case errors.Is(err, transaction.ErrLicenseNotFound):
		respond.Error(w, http.StatusNotFound, "license not found")
	case errors.As(err, &apiErr):
		slog.Error("payment gateway rejected order", "status", apiErr.StatusCode, "error", err)
		respond.Error(w, http.StatusBadGateway, apiErr.Message)
	default:
		slog.Error("failed to create order", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}

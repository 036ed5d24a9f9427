package payment

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrInvalidSignature is returned when a notification's signature_key does not match.
	ErrInvalidSignature      = errors.New("invalid notification signature")
	// ErrMalformedNotification is returned when a notification body is not a status object.
	ErrMalformedNotification = errors.New("malformed notification")
	// ErrTransactionNotFound is returned when the gateway has no record of the order id.
	ErrTransactionNotFound   = errors.New("gateway transaction not found")
	// ErrUnsupportedMethod is returned for payment methods the storefront does not offer.
	ErrUnsupportedMethod     = errors.New("unsupported payment method")
)

// APIError is a non-success answer from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("midtrans api error %d: %s", e.StatusCode, e.Message)
}

// Transaction statuses reported by the gateway.
const (
	StatusCapture    = "capture"
	StatusSettlement = "settlement"
	StatusPending    = "pending"
	StatusDeny       = "deny"
	StatusCancel     = "cancel"
	StatusExpire     = "expire"
	StatusRefund     = "refund"

	FraudAccept    = "accept"
	FraudChallenge = "challenge"
	FraudDeny      = "deny"
)

type TransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type CustomerDetails struct {
	FirstName string `json:"first_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type ItemDetail struct {
	ID       string `json:"id,omitempty"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

type BankTransfer struct {
	Bank string `json:"bank"`
}

type EChannel struct {
	BillInfo1 string `json:"bill_info1"`
	BillInfo2 string `json:"bill_info2"`
}

type QRIS struct {
	Acquirer string `json:"acquirer,omitempty"`
}

type Callback struct {
	EnableCallback bool   `json:"enable_callback,omitempty"`
	CallbackURL    string `json:"callback_url"`
}

// ChargeRequest is the Core API charge body.
type ChargeRequest struct {
	PaymentType        string             `json:"payment_type"`
	TransactionDetails TransactionDetails `json:"transaction_details"`
	CustomerDetails    *CustomerDetails   `json:"customer_details,omitempty"`
	ItemDetails        []ItemDetail       `json:"item_details,omitempty"`
	BankTransfer       *BankTransfer      `json:"bank_transfer,omitempty"`
	EChannel           *EChannel          `json:"echannel,omitempty"`
	QRIS               *QRIS              `json:"qris,omitempty"`
	GoPay              *Callback          `json:"gopay,omitempty"`
	ShopeePay          *Callback          `json:"shopeepay,omitempty"`
	CustomField1       string             `json:"custom_field1,omitempty"`
	CustomField2       string             `json:"custom_field2,omitempty"`
	CustomField3       string             `json:"custom_field3,omitempty"`
}

// ChargeResponse holds the fields the service inspects plus the raw body,
// which carries method specific data (VA numbers, QR actions) for the buyer.
type ChargeResponse struct {
	StatusCode        string          `json:"status_code"`
	StatusMessage     string          `json:"status_message"`
	TransactionID     string          `json:"transaction_id"`
	OrderID           string          `json:"order_id"`
	TransactionStatus string          `json:"transaction_status"`
	PaymentType       string          `json:"payment_type"`
	Raw               json.RawMessage `json:"-"`
}

// SnapRequest is the Snap transaction body.
type SnapRequest struct {
	TransactionDetails TransactionDetails `json:"transaction_details"`
	CustomerDetails    *CustomerDetails   `json:"customer_details,omitempty"`
	ItemDetails        []ItemDetail       `json:"item_details,omitempty"`
}

type SnapResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// Status is the gateway's view of one order. It is the only input the
// reconciliation engine trusts.
type Status struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	StatusCode        string `json:"status_code"`
	StatusMessage     string `json:"status_message"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key,omitempty"`
}

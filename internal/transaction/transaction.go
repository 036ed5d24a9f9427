package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/primadev/licensehub/internal/license"
)

var ErrNotFound = errors.New("transaction not found")

// Status represents the lifecycle state of a transaction.
// pending moves to success or failed exactly once; both are terminal.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed:
		return true
	}

	return false
}

// OrderType decides whether a paid order creates or extends a license.
type OrderType string

const (
	OrderTypeNew     OrderType = "NEW"
	OrderTypeRenewal OrderType = "RENEWAL"
)

// Transaction mirrors a single payment attempt tracked by the gateway.
type Transaction struct {
	OrderID          string
	Status           Status
	Amount           int64 // Amount in rupiah
	OrderType        OrderType
	TargetLicenseKey string // set iff OrderType is RENEWAL
	Duration         license.Duration
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	AppName          string
	AppID            string
	PaymentMethod    string // chosen by the buyer
	PaymentType      string // reported by the gateway on success
	CreatedAt        time.Time
	PaidAt           *time.Time
}

// NotificationStatus tracks how an inbound gateway notification was handled.
type NotificationStatus string

const (
	NotificationReceived     NotificationStatus = "received"
	NotificationHandled      NotificationStatus = "handled"
	NotificationHandleFailed NotificationStatus = "handle_failed"
)

// Notification is the audit record of one verified webhook delivery.
type Notification struct {
	ID                uuid.UUID
	OrderID           string
	TransactionStatus string
	Payload           []byte
	Status            NotificationStatus
	Error             string
	ReceivedAt        time.Time
	HandledAt         *time.Time
}

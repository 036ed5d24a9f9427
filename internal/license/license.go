package license

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("license not found")

// Status is the administrative state of a license.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusExpired   Status = "expired"
)

// Duration is the billing period a license or order was bought for.
type Duration string

const (
	DurationMonthly  Duration = "monthly"
	DurationYearly   Duration = "yearly"
	DurationLifetime Duration = "lifetime"
)

// Valid reports whether d is one of the durations the storefront sells.
func (d Duration) Valid() bool {
	switch d {
	case DurationMonthly, DurationYearly, DurationLifetime:
		return true
	}

	return false
}

// License is an issued access credential, identified by its key.
type License struct {
	Key               string
	Status            Status
	Type              Duration
	Price             int64
	AppName           string
	AppID             string
	Name              string
	Email             string
	DeviceID          string // bound later by the activation flow
	ExpiryDate        string // YYYY-MM-DD
	PaymentMethod     string
	TransactionID     string // order that created the license
	LastRenewalDate   *time.Time
	LastTransactionID string
	CreatedAt         time.Time
}

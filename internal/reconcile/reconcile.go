package reconcile

import (
	"errors"
	"fmt"

	"github.com/primadev/licensehub/internal/payment"
	"github.com/primadev/licensehub/internal/transaction"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrMissingTargetKey    = errors.New("renewal order has no target license key")
	ErrLicenseNotFound     = errors.New("license not found")

	// ErrKeyCollision is returned by CreateLicense when the generated key is taken.
	ErrKeyCollision = errors.New("license key already exists")
	// ErrAlreadyApplied is returned when a license write for the order already exists.
	ErrAlreadyApplied = errors.New("order already applied")
	// ErrStaleTransaction is returned when the transaction left pending under our feet.
	ErrStaleTransaction = errors.New("transaction is no longer pending")
)

// IntegrityError reports stored data that makes an order impossible to apply.
// Retrying will not help, so entry points acknowledge it instead of failing.
type IntegrityError struct {
	OrderID string
	Err     error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("order %s: %v", e.OrderID, e.Err)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// Outcome is the engine's reading of a gateway status.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeChallenge Outcome = "challenge"
	OutcomeFailed    Outcome = "failed"
	OutcomePending   Outcome = "pending"
)

// Classify maps a gateway status to an outcome. A captured card payment
// flagged for fraud review is held as a challenge and never applied.
func Classify(st payment.Status) Outcome {
	switch st.TransactionStatus {
	case payment.StatusCapture:
		if st.FraudStatus == payment.FraudChallenge {
			return OutcomeChallenge
		}

		return OutcomeSuccess
	case payment.StatusSettlement:
		return OutcomeSuccess
	case payment.StatusCancel, payment.StatusDeny, payment.StatusExpire:
		return OutcomeFailed
	default:
		return OutcomePending
	}
}

// Result is what one Process call did to an order.
type Result struct {
	OrderID       string
	Outcome       Outcome
	Status        transaction.Status // stored status after processing
	GatewayStatus string
	LicenseKey    string
	// Applied is set when this call changed stored state.
	Applied bool
	// AlreadyProcessed is set when the order had reached a terminal state earlier.
	AlreadyProcessed bool
}

func (r *Result) IsSuccess() bool {
	return r.Status == transaction.StatusSuccess
}

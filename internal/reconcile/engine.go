package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/primadev/licensehub/internal/license"
	"github.com/primadev/licensehub/internal/notify"
	"github.com/primadev/licensehub/internal/payment"
	"github.com/primadev/licensehub/internal/transaction"
)

const maxKeyAttempts = 3

//go:generate mockgen -source=engine.go -destination=repository_mock.go -package=reconcile
type Repository interface {
	// BeginReconcile opens a unit of work that holds an exclusive lock on
	// orderID until Commit or Rollback.
	BeginReconcile(ctx context.Context, orderID string) (UnitOfWork, error)
}

type UnitOfWork interface {
	GetTransaction(ctx context.Context, orderID string) (*transaction.Transaction, error)
	FindLicenseByTransactionID(ctx context.Context, orderID string) (*license.License, error)
	GetLicenseForUpdate(ctx context.Context, key string) (*license.License, error)
	CreateLicense(ctx context.Context, lic *license.License) error
	RenewLicense(ctx context.Context, r Renewal) error
	// MarkTransaction moves a pending transaction to status and reports
	// whether a row changed.
	MarkTransaction(ctx context.Context, orderID string, status transaction.Status, paymentType string, at time.Time) (bool, error)
	Commit() error
	Rollback() error
}

type Notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}

// Renewal is one applied RENEWAL order.
type Renewal struct {
	OrderID    string
	LicenseKey string
	OldExpiry  string
	NewExpiry  string
	RenewedAt  time.Time
}

// Engine applies verified gateway statuses to transactions and licenses.
type Engine struct {
	repo     Repository
	notifier Notifier
	logger   *slog.Logger
	newKey   func() string
	now      func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithKeyGenerator(gen func() string) Option {
	return func(e *Engine) { e.newKey = gen }
}

func NewEngine(repo Repository, notifier Notifier, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		newKey:   license.GenerateKey,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Process applies st to its order exactly once. Calling it again with the
// same order, from any entry point, returns the stored outcome unchanged.
func (e *Engine) Process(ctx context.Context, st *payment.Status) (*Result, error) {
	outcome := Classify(*st)
	log := e.logger.With("order_id", st.OrderID, "gateway_status", st.TransactionStatus)

	res := &Result{
		OrderID:       st.OrderID,
		Outcome:       outcome,
		GatewayStatus: st.TransactionStatus,
	}

	switch outcome {
	case OutcomeChallenge:
		log.Warn("payment held for fraud review", "fraud_status", st.FraudStatus)
		res.Status = transaction.StatusPending

		return res, nil
	case OutcomePending:
		res.Status = transaction.StatusPending
		return res, nil
	}

	uow, err := e.repo.BeginReconcile(ctx, st.OrderID)
	if err != nil {
		return nil, fmt.Errorf("begin reconcile: %w", err)
	}
	defer uow.Rollback()

	tx, err := uow.GetTransaction(ctx, st.OrderID)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			return nil, &IntegrityError{OrderID: st.OrderID, Err: ErrTransactionNotFound}
		}

		return nil, fmt.Errorf("get transaction: %w", err)
	}

	switch tx.Status {
	case transaction.StatusSuccess:
		res.Status = transaction.StatusSuccess
		res.AlreadyProcessed = true

		res.LicenseKey, err = e.existingKey(ctx, uow, tx)
		if err != nil {
			return nil, err
		}

		log.Info("order already processed", "license_key", res.LicenseKey)

		return res, nil
	case transaction.StatusFailed:
		if outcome == OutcomeSuccess {
			log.Warn("success reported for failed order, ignoring")
		}

		res.Status = transaction.StatusFailed
		res.AlreadyProcessed = true

		return res, nil
	}

	if outcome == OutcomeFailed {
		if err := e.mark(ctx, uow, tx.OrderID, transaction.StatusFailed, st.PaymentType); err != nil {
			return nil, err
		}

		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("commit failed order: %w", err)
		}

		log.Info("order marked failed")

		res.Status = transaction.StatusFailed
		res.Applied = true

		return res, nil
	}

	if tx.OrderType == transaction.OrderTypeRenewal {
		return e.renew(ctx, uow, tx, st, res, log)
	}

	return e.issue(ctx, uow, tx, st, res, log)
}

func (e *Engine) renew(
	ctx context.Context,
	uow UnitOfWork,
	tx *transaction.Transaction,
	st *payment.Status,
	res *Result,
	log *slog.Logger,
) (*Result, error) {
	if tx.TargetLicenseKey == "" {
		return nil, &IntegrityError{OrderID: tx.OrderID, Err: ErrMissingTargetKey}
	}

	lic, err := uow.GetLicenseForUpdate(ctx, tx.TargetLicenseKey)
	if err != nil {
		if errors.Is(err, license.ErrNotFound) {
			return nil, &IntegrityError{OrderID: tx.OrderID, Err: fmt.Errorf("%w: %s", ErrLicenseNotFound, tx.TargetLicenseKey)}
		}

		return nil, fmt.Errorf("get license: %w", err)
	}

	var current *time.Time

	if lic.ExpiryDate != "" {
		t, err := license.ParseExpiry(lic.ExpiryDate)
		if err != nil {
			log.Warn("unreadable expiry date, renewing from today", "license_key", lic.Key, "expiry_date", lic.ExpiryDate, "error", err)
		} else {
			current = &t
		}
	}

	now := e.now().UTC()
	newExpiry := license.FormatDate(license.RenewedExpiry(current, now, tx.Duration))

	if err := uow.RenewLicense(ctx, Renewal{
		OrderID:    tx.OrderID,
		LicenseKey: lic.Key,
		OldExpiry:  lic.ExpiryDate,
		NewExpiry:  newExpiry,
		RenewedAt:  now,
	}); err != nil {
		return nil, fmt.Errorf("renew license: %w", err)
	}

	if err := e.mark(ctx, uow, tx.OrderID, transaction.StatusSuccess, st.PaymentType); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("commit renewal: %w", err)
	}

	log.Info("license renewed", "license_key", lic.Key, "old_expiry", lic.ExpiryDate, "new_expiry", newExpiry)

	e.send(ctx, notify.Message{
		Kind:          notify.KindRenewal,
		Name:          lic.Name,
		Email:         lic.Email,
		LicenseKey:    lic.Key,
		AppName:       lic.AppName,
		Type:          string(tx.Duration),
		ExpiryDate:    newExpiry,
		TransactionID: tx.OrderID,
	}, log)

	res.Status = transaction.StatusSuccess
	res.LicenseKey = lic.Key
	res.Applied = true

	return res, nil
}

func (e *Engine) issue(
	ctx context.Context,
	uow UnitOfWork,
	tx *transaction.Transaction,
	st *payment.Status,
	res *Result,
	log *slog.Logger,
) (*Result, error) {
	existing, err := uow.FindLicenseByTransactionID(ctx, tx.OrderID)

	switch {
	case err == nil:
		// A license without a success mark is left over from an interrupted run.
		if err := e.mark(ctx, uow, tx.OrderID, transaction.StatusSuccess, st.PaymentType); err != nil {
			return nil, err
		}

		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("commit repaired order: %w", err)
		}

		log.Info("license already issued, order marked success", "license_key", existing.Key)

		res.Status = transaction.StatusSuccess
		res.LicenseKey = existing.Key
		res.AlreadyProcessed = true

		return res, nil
	case !errors.Is(err, license.ErrNotFound):
		return nil, fmt.Errorf("find license by transaction: %w", err)
	}

	now := e.now().UTC()

	lic := &license.License{
		Status:        license.StatusActive,
		Type:          tx.Duration,
		Price:         tx.Amount,
		AppName:       tx.AppName,
		AppID:         tx.AppID,
		Name:          tx.CustomerName,
		Email:         tx.CustomerEmail,
		ExpiryDate:    license.FormatDate(license.InitialExpiry(now, tx.Duration)),
		PaymentMethod: fmt.Sprintf("Midtrans (%s)", st.PaymentType),
		TransactionID: tx.OrderID,
		CreatedAt:     now,
	}

	if err := e.createLicense(ctx, uow, lic); err != nil {
		return nil, err
	}

	if err := e.mark(ctx, uow, tx.OrderID, transaction.StatusSuccess, st.PaymentType); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("commit new license: %w", err)
	}

	log.Info("license issued", "license_key", lic.Key, "expiry_date", lic.ExpiryDate)

	e.send(ctx, notify.Message{
		Kind:          notify.KindNewLicense,
		Name:          lic.Name,
		Email:         lic.Email,
		LicenseKey:    lic.Key,
		AppName:       lic.AppName,
		Type:          string(lic.Type),
		ExpiryDate:    lic.ExpiryDate,
		TransactionID: tx.OrderID,
	}, log)

	res.Status = transaction.StatusSuccess
	res.LicenseKey = lic.Key
	res.Applied = true

	return res, nil
}

func (e *Engine) createLicense(ctx context.Context, uow UnitOfWork, lic *license.License) error {
	for range maxKeyAttempts {
		lic.Key = e.newKey()

		err := uow.CreateLicense(ctx, lic)
		if err == nil {
			return nil
		}

		if !errors.Is(err, ErrKeyCollision) {
			return fmt.Errorf("create license: %w", err)
		}
	}

	return fmt.Errorf("create license: %w after %d attempts", ErrKeyCollision, maxKeyAttempts)
}

func (e *Engine) mark(ctx context.Context, uow UnitOfWork, orderID string, status transaction.Status, paymentType string) error {
	changed, err := uow.MarkTransaction(ctx, orderID, status, paymentType, e.now().UTC())
	if err != nil {
		return fmt.Errorf("mark transaction %s: %w", status, err)
	}

	if !changed {
		return fmt.Errorf("mark transaction %s: %w", status, ErrStaleTransaction)
	}

	return nil
}

func (e *Engine) existingKey(ctx context.Context, uow UnitOfWork, tx *transaction.Transaction) (string, error) {
	if tx.OrderType == transaction.OrderTypeRenewal {
		return tx.TargetLicenseKey, nil
	}

	lic, err := uow.FindLicenseByTransactionID(ctx, tx.OrderID)
	if err != nil {
		if errors.Is(err, license.ErrNotFound) {
			e.logger.Warn("successful order has no license", "order_id", tx.OrderID)
			return "", nil
		}

		return "", fmt.Errorf("find license by transaction: %w", err)
	}

	return lic.Key, nil
}

// send delivers msg after the order is committed. Delivery failures do not
// undo the order.
func (e *Engine) send(ctx context.Context, msg notify.Message, log *slog.Logger) {
	if err := e.notifier.Send(ctx, msg); err != nil {
		log.Error("failed to send license email", "kind", msg.Kind, "email", msg.Email, "error", err)
	}
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/primadev/licensehub/internal/license"
	licensestore "github.com/primadev/licensehub/internal/license/store"
	"github.com/primadev/licensehub/internal/reconcile"
	"github.com/primadev/licensehub/internal/transaction"
	txstore "github.com/primadev/licensehub/internal/transaction/store"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ reconcile.Repository = (*Store)(nil)

// orderLockKey maps an order id onto the advisory lock space shared by
// every entry point that reconciles orders.
func orderLockKey(orderID string) int64 {
	h := fnv.New64a()
	h.Write([]byte("reconcile"))
	h.Write([]byte{0})
	h.Write([]byte(orderID))

	return int64(h.Sum64())
}

type unitOfWork struct {
	tx *sql.Tx
}

func (s *Store) BeginReconcile(ctx context.Context, orderID string) (reconcile.UnitOfWork, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning reconcile tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", orderLockKey(orderID)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring order lock: %w", err)
	}

	return &unitOfWork{tx: dbTx}, nil
}

func (u *unitOfWork) Commit() error   { return u.tx.Commit() }
func (u *unitOfWork) Rollback() error { return u.tx.Rollback() }

func (u *unitOfWork) GetTransaction(ctx context.Context, orderID string) (*transaction.Transaction, error) {
	query := `SELECT ` + txstore.Columns + ` FROM transactions WHERE order_id = $1 FOR UPDATE`

	tx, err := txstore.ScanTransaction(u.tx.QueryRowContext(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (u *unitOfWork) FindLicenseByTransactionID(ctx context.Context, orderID string) (*license.License, error) {
	query := `SELECT ` + licensestore.Columns + ` FROM licenses WHERE transaction_id = $1`

	lic, err := licensestore.ScanLicense(u.tx.QueryRowContext(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, license.ErrNotFound
		}

		return nil, fmt.Errorf("finding license by transaction: %w", err)
	}

	return lic, nil
}

func (u *unitOfWork) GetLicenseForUpdate(ctx context.Context, key string) (*license.License, error) {
	query := `SELECT ` + licensestore.Columns + ` FROM licenses WHERE key = $1 FOR UPDATE`

	lic, err := licensestore.ScanLicense(u.tx.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, license.ErrNotFound
		}

		return nil, fmt.Errorf("locking license: %w", err)
	}

	return lic, nil
}

func (u *unitOfWork) CreateLicense(ctx context.Context, lic *license.License) error {
	query := `
		INSERT INTO licenses (
			key, status, type, price, app_name, app_id, name, email, device_id,
			expiry_date, payment_method, transaction_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (key) DO NOTHING
	`

	res, err := u.tx.ExecContext(ctx, query,
		lic.Key,
		lic.Status,
		lic.Type,
		lic.Price,
		lic.AppName,
		lic.AppID,
		lic.Name,
		lic.Email,
		lic.DeviceID,
		lic.ExpiryDate,
		lic.PaymentMethod,
		lic.TransactionID,
		lic.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("creating license: %w", reconcile.ErrAlreadyApplied)
		}

		return fmt.Errorf("creating license: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("creating license: %w", err)
	}

	if n == 0 {
		return reconcile.ErrKeyCollision
	}

	return nil
}

func (u *unitOfWork) RenewLicense(ctx context.Context, r reconcile.Renewal) error {
	marker := `
		INSERT INTO license_renewals (order_id, license_key, old_expiry, new_expiry, renewed_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := u.tx.ExecContext(ctx, marker, r.OrderID, r.LicenseKey, r.OldExpiry, r.NewExpiry, r.RenewedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("recording renewal: %w", reconcile.ErrAlreadyApplied)
		}

		return fmt.Errorf("recording renewal: %w", err)
	}

	update := `
		UPDATE licenses
		SET status = $1, expiry_date = $2, last_renewal_date = $3, last_transaction_id = $4
		WHERE key = $5
	`

	res, err := u.tx.ExecContext(ctx, update, license.StatusActive, r.NewExpiry, r.RenewedAt, r.OrderID, r.LicenseKey)
	if err != nil {
		return fmt.Errorf("updating license: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating license: %w", err)
	}

	if n == 0 {
		return license.ErrNotFound
	}

	return nil
}

func (u *unitOfWork) MarkTransaction(
	ctx context.Context,
	orderID string,
	status transaction.Status,
	paymentType string,
	at time.Time,
) (bool, error) {
	query := `
		UPDATE transactions
		SET status = $1,
			payment_type = COALESCE(NULLIF($2, ''), payment_type),
			paid_at = CASE WHEN $1 = 'success' THEN $3::timestamptz ELSE paid_at END
		WHERE order_id = $4 AND status = 'pending'
	`

	res, err := u.tx.ExecContext(ctx, query, string(status), paymentType, at, orderID)
	if err != nil {
		return false, fmt.Errorf("marking transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("marking transaction: %w", err)
	}

	return n == 1, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/primadev/licensehub/internal/license"
	"github.com/primadev/licensehub/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Scanner is satisfied by both *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Columns is the column order ScanTransaction expects.
const Columns = `
	order_id, status, amount, order_type, target_license_key, duration,
	customer_name, customer_email, customer_phone, app_name, app_id,
	payment_method, payment_type, created_at, paid_at
`

// ScanTransaction reads a row selected with Columns.
func ScanTransaction(s Scanner) (*transaction.Transaction, error) {
	var (
		tx                          transaction.Transaction
		status, orderType, duration string
		targetKey, paymentType      sql.NullString
	)

	if err := s.Scan(
		&tx.OrderID, &status, &tx.Amount, &orderType, &targetKey, &duration,
		&tx.CustomerName, &tx.CustomerEmail, &tx.CustomerPhone, &tx.AppName, &tx.AppID,
		&tx.PaymentMethod, &paymentType, &tx.CreatedAt, &tx.PaidAt,
	); err != nil {
		return nil, err
	}

	tx.Status = transaction.Status(status)
	tx.OrderType = transaction.OrderType(orderType)
	tx.Duration = license.Duration(duration)
	tx.TargetLicenseKey = targetKey.String
	tx.PaymentType = paymentType.String

	return &tx, nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (
			order_id, status, amount, order_type, target_license_key, duration,
			customer_name, customer_email, customer_phone, app_name, app_id,
			payment_method, created_at
		)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.db.ExecContext(ctx, query,
		tx.OrderID,
		tx.Status,
		tx.Amount,
		tx.OrderType,
		tx.TargetLicenseKey,
		tx.Duration,
		tx.CustomerName,
		tx.CustomerEmail,
		tx.CustomerPhone,
		tx.AppName,
		tx.AppID,
		tx.PaymentMethod,
		tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

func (s *Store) GetTransaction(ctx context.Context, orderID string) (*transaction.Transaction, error) {
	query := `SELECT ` + Columns + ` FROM transactions WHERE order_id = $1`

	tx, err := ScanTransaction(s.db.QueryRowContext(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + Columns + ` FROM transactions WHERE 1 = 1`

	var args []any

	argIdx := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)

		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := ScanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return txs, nil
}

func (s *Store) RecordNotification(ctx context.Context, n *transaction.Notification) error {
	query := `
		INSERT INTO payment_notifications (id, order_id, transaction_status, payload, status, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		n.ID, n.OrderID, n.TransactionStatus, string(n.Payload), n.Status, n.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("recording notification: %w", err)
	}

	return nil
}

func (s *Store) FinishNotification(ctx context.Context, id uuid.UUID, status transaction.NotificationStatus, errText string) error {
	query := `
		UPDATE payment_notifications
		SET status = $1, error = $2, handled_at = NOW()
		WHERE id = $3
	`

	_, err := s.db.ExecContext(ctx, query, status, errText, id)
	if err != nil {
		return fmt.Errorf("finishing notification: %w", err)
	}

	return nil
}

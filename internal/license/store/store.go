package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/primadev/licensehub/internal/license"
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

// Columns is the column list ScanLicense expects, in order.
const Columns = `
	key, status, type, price, app_name, app_id, name, email, device_id, expiry_date,
	payment_method, transaction_id, last_renewal_date, last_transaction_id, created_at
`

func ScanLicense(s Scanner) (*license.License, error) {
	var lic license.License

	var statusStr, typeStr string

	var txID, lastTxID sql.NullString

	if err := s.Scan(
		&lic.Key, &statusStr, &typeStr, &lic.Price, &lic.AppName, &lic.AppID,
		&lic.Name, &lic.Email, &lic.DeviceID, &lic.ExpiryDate, &lic.PaymentMethod,
		&txID, &lic.LastRenewalDate, &lastTxID, &lic.CreatedAt,
	); err != nil {
		return nil, err
	}

	lic.Status = license.Status(statusStr)
	lic.Type = license.Duration(typeStr)
	lic.TransactionID = txID.String
	lic.LastTransactionID = lastTxID.String

	return &lic, nil
}

func (s *Store) GetLicense(ctx context.Context, key string) (*license.License, error) {
	query := `SELECT ` + Columns + ` FROM licenses WHERE key = $1`

	lic, err := ScanLicense(s.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, license.ErrNotFound
		}

		return nil, fmt.Errorf("getting license: %w", err)
	}

	return lic, nil
}

func (s *Store) LicenseExists(ctx context.Context, key string) (bool, error) {
	var exists bool

	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM licenses WHERE key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking license: %w", err)
	}

	return exists, nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/primadev/licensehub/internal/catalog"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*catalog.Product, error) {
	var (
		p      catalog.Product
		prices []byte
	)

	if err := s.Scan(&p.AppID, &p.Name, &prices); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(prices, &p.Prices); err != nil {
		return nil, fmt.Errorf("decoding prices of %s: %w", p.AppID, err)
	}

	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) (catalog.Catalog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT app_id, name, prices FROM products ORDER BY app_id`)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	products := catalog.Catalog{}

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}

		products[p.AppID] = p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product rows: %w", err)
	}

	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, appID string) (*catalog.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT app_id, name, prices FROM products WHERE app_id = $1`, appID)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}

		return nil, fmt.Errorf("getting product: %w", err)
	}

	return p, nil
}

// UpsertProducts writes every product of c in one transaction, replacing the
// name and prices of products that already exist.
func (s *Store) UpsertProducts(ctx context.Context, c catalog.Catalog) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for appID, p := range c {
		prices, err := json.Marshal(p.Prices)
		if err != nil {
			return fmt.Errorf("encoding prices of %s: %w", appID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO products (app_id, name, prices)
			VALUES ($1, $2, $3)
			ON CONFLICT (app_id) DO UPDATE SET name = EXCLUDED.name, prices = EXCLUDED.prices`,
			appID, p.Name, string(prices),
		)
		if err != nil {
			return fmt.Errorf("upserting product %s: %w", appID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing products: %w", err)
	}

	return nil
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/primadev/licensehub/internal/license"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=catalog
type Repository interface {
	ListProducts(ctx context.Context) (Catalog, error)
	GetProduct(ctx context.Context, appID string) (*Product, error)
}

// Service reads products from the store and falls back to the seed
// catalog while the products table is empty.
type Service struct {
	repo   Repository
	seed   Catalog
	logger *slog.Logger
}

func NewService(repo Repository, seed Catalog, logger *slog.Logger) *Service {
	return &Service{repo: repo, seed: seed, logger: logger}
}

func (s *Service) List(ctx context.Context) (Catalog, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	if len(products) > 0 {
		return products, nil
	}

	if s.seed == nil {
		return Catalog{}, nil
	}

	s.logger.Debug("products table empty, serving seed catalog", "products", len(s.seed))

	return s.seed, nil
}

func (s *Service) Get(ctx context.Context, appID string) (*Product, error) {
	p, err := s.repo.GetProduct(ctx, appID)
	if err == nil {
		return p, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("getting product %s: %w", appID, err)
	}

	// The seed only stands in for an empty products table.
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	if len(products) > 0 {
		return nil, ErrNotFound
	}

	if p, ok := s.seed[appID]; ok {
		return p, nil
	}

	return nil, ErrNotFound
}

// Quote resolves the price of appID for duration d.
func (s *Service) Quote(ctx context.Context, appID string, d license.Duration) (*Product, int64, error) {
	p, err := s.Get(ctx, appID)
	if err != nil {
		return nil, 0, err
	}

	price, ok := p.Price(d)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s %s", ErrNoPrice, appID, d)
	}

	return p, price, nil
}

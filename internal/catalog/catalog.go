package catalog

import (
	"errors"

	"github.com/primadev/licensehub/internal/license"
)

var (
	ErrNotFound = errors.New("product not found")
	ErrNoPrice  = errors.New("product has no price for duration")
)

// Product is a sellable app with a price per license duration, in rupiah.
type Product struct {
	AppID  string                     `json:"-" yaml:"-"`
	Name   string                     `json:"name" yaml:"name"`
	Prices map[license.Duration]int64 `json:"price" yaml:"price"`
}

// Price returns the price for d. Zero and negative prices count as absent.
func (p *Product) Price(d license.Duration) (int64, bool) {
	price, ok := p.Prices[d]
	if !ok || price <= 0 {
		return 0, false
	}

	return price, true
}

// Catalog maps app ids to products. It marshals to the storefront shape
// {"<appId>": {"name": ..., "price": {"monthly": ...}}}.
type Catalog map[string]*Product

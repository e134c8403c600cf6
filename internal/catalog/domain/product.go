package domain

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fadhriza/indobat/internal/apperr"
	"github.com/fadhriza/indobat/internal/pricing"
)

// MaxStock is the largest stock a product row can hold (an INTEGER column).
const MaxStock = math.MaxInt32

type Product struct {
	ID        int64
	Name      string
	Stock     int
	Price     decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProductInput is the administrative create/update payload.
type ProductInput struct {
	Name  string
	Stock int
	Price decimal.Decimal
}

func (in ProductInput) Normalize() ProductInput {
	in.Name = strings.TrimSpace(in.Name)
	return in
}

func (in ProductInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Invalid("name is required")
	}
	if in.Stock < 0 || in.Stock > MaxStock {
		return apperr.Invalid("stock must be between 0 and %d", MaxStock)
	}
	if !in.Price.IsPositive() {
		return apperr.Invalid("price must be greater than 0")
	}
	if in.Price.GreaterThanOrEqual(pricing.PriceLimit) {
		return apperr.Invalid("price must be below %s", pricing.PriceLimit.String())
	}
	if !in.Price.Equal(in.Price.Round(pricing.CentPlaces)) {
		return apperr.Invalid("price allows at most %d decimal places", pricing.CentPlaces)
	}
	return nil
}

// ValidateRestock checks an administrative stock increase.
func ValidateRestock(quantity int) error {
	if quantity < 1 || quantity > MaxStock {
		return apperr.Invalid("restock quantity must be between 1 and %d", MaxStock)
	}
	return nil
}

// Restock returns p with quantity units added, refusing to exceed MaxStock.
// Callers hold the product's row lock.
func (p Product) Restock(quantity int) (Product, error) {
	if err := ValidateRestock(quantity); err != nil {
		return p, err
	}
	if quantity > MaxStock-p.Stock {
		return p, apperr.Invalid("restock would raise stock above %d (currently %d)", MaxStock, p.Stock)
	}
	p.Stock += quantity
	return p, nil
}

// Package pricing computes order totals in fixed-point currency.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/fadhriza/indobat/internal/apperr"
)

// CentPlaces is the number of fractional digits kept for currency amounts.
const CentPlaces = 2

var hundred = decimal.NewFromInt(100)

// PriceLimit and TotalLimit are the exclusive upper bounds of the price and
// total_price columns, NUMERIC(14,2) and NUMERIC(16,2).
var (
	PriceLimit = decimal.New(1, 12)
	TotalLimit = decimal.New(1, 14)
)

// ComputeTotal returns unitPrice*quantity reduced by discountPercent, rounded
// half away from zero to whole cents.
func ComputeTotal(unitPrice decimal.Decimal, quantity int, discountPercent decimal.Decimal) (decimal.Decimal, error) {
	if err := Validate(unitPrice, quantity, discountPercent); err != nil {
		return decimal.Zero, err
	}
	subtotal := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	// Shift keeps the division by 100 exact.
	discount := subtotal.Mul(discountPercent).Shift(-2)
	total := subtotal.Sub(discount).Round(CentPlaces)
	if total.GreaterThanOrEqual(TotalLimit) {
		return decimal.Zero, apperr.Invalid("order total must be below %s", TotalLimit.String())
	}
	return total, nil
}

// Validate reports the first violated pricing precondition.
func Validate(unitPrice decimal.Decimal, quantity int, discountPercent decimal.Decimal) error {
	if !unitPrice.IsPositive() {
		return apperr.Invalid("unit price must be greater than 0")
	}
	if unitPrice.GreaterThanOrEqual(PriceLimit) {
		return apperr.Invalid("unit price must be below %s", PriceLimit.String())
	}
	if quantity < 1 {
		return apperr.Invalid("quantity must be at least 1")
	}
	return ValidateDiscount(discountPercent)
}

// ValidateDiscount checks 0 <= d <= 100 with at most two fractional digits.
func ValidateDiscount(d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThan(hundred) {
		return apperr.Invalid("discount_percent must be between 0 and 100")
	}
	if !d.Equal(d.Round(CentPlaces)) {
		return apperr.Invalid("discount_percent allows at most %d decimal places", CentPlaces)
	}
	return nil
}

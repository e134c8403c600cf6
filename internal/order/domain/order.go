package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fadhriza/indobat/internal/apperr"
	catalog "github.com/fadhriza/indobat/internal/catalog/domain"
	"github.com/fadhriza/indobat/internal/pricing"
)

// MaxRequestKeyLen bounds the Idempotency-Key header.
const MaxRequestKeyLen = 128

// Order is an immutable sale record. ProductName is read from the product
// at query time and is not owned by the order.
type Order struct {
	ID              int64
	ProductID       int64
	ProductName     string
	Quantity        int
	DiscountPercent decimal.Decimal
	UnitPrice       decimal.Decimal
	TotalPrice      decimal.Decimal
	StockAfter      int
	RequestKey      string
	CreatedAt       time.Time
}

// PlaceOrder is the order engine command.
type PlaceOrder struct {
	ProductID       int64
	Quantity        int
	DiscountPercent decimal.Decimal
	RequestKey      string
}

func (c PlaceOrder) Validate() error {
	if c.ProductID < 1 {
		return apperr.Invalid("product_id is required")
	}
	if c.Quantity < 1 {
		return apperr.Invalid("quantity must be at least 1")
	}
	if err := pricing.ValidateDiscount(c.DiscountPercent); err != nil {
		return err
	}
	if len(c.RequestKey) > MaxRequestKeyLen || strings.TrimSpace(c.RequestKey) != c.RequestKey {
		return apperr.Invalid("idempotency key must be at most %d characters without surrounding spaces", MaxRequestKeyLen)
	}
	return nil
}

// Matches reports whether o was produced by the same command, so a replayed
// request key cannot return a receipt for a different sale.
func (c PlaceOrder) Matches(o Order) bool {
	return o.ProductID == c.ProductID &&
		o.Quantity == c.Quantity &&
		o.DiscountPercent.Equal(c.DiscountPercent)
}

// Receipt is the result of a committed (or replayed) order.
type Receipt struct {
	Order          Order
	RemainingStock int
	Replayed       bool
}

// Decision runs inside the product's critical section with the stock read
// under the lock. It returns the order to record or a business error.
type Decision func(p catalog.Product) (Order, error)

// Decide is the order engine's decision: authoritative stock check, then
// pricing on the product's current price.
func Decide(cmd PlaceOrder) Decision {
	return func(p catalog.Product) (Order, error) {
		if cmd.Quantity > p.Stock {
			return Order{}, &apperr.InsufficientStockError{
				ProductID: p.ID,
				Requested: cmd.Quantity,
				Available: p.Stock,
			}
		}
		total, err := pricing.ComputeTotal(p.Price, cmd.Quantity, cmd.DiscountPercent)
		if err != nil {
			return Order{}, err
		}
		return Order{
			ProductID:       p.ID,
			ProductName:     p.Name,
			Quantity:        cmd.Quantity,
			DiscountPercent: cmd.DiscountPercent,
			UnitPrice:       p.Price,
			TotalPrice:      total,
			StockAfter:      p.Stock - cmd.Quantity,
			RequestKey:      cmd.RequestKey,
		}, nil
	}
}

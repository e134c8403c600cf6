// Package redis implements the order receipt cache on pkg/idempotency.
package redis

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fadhriza/indobat/internal/order/domain"
	"github.com/fadhriza/indobat/pkg/idempotency"
)

type ReceiptCache struct {
	store *idempotency.Store
}

func NewReceiptCache(store *idempotency.Store) *ReceiptCache {
	return &ReceiptCache{store: store}
}

type receipt struct {
	OrderID         int64           `json:"order_id"`
	ProductID       int64           `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	StockAfter      int             `json:"stock_after"`
	RemainingStock  int             `json:"remaining_stock"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (c *ReceiptCache) Load(ctx context.Context, key string) (domain.Receipt, bool, error) {
	var r receipt
	ok, err := c.store.Get(ctx, key, &r)
	if err != nil || !ok {
		return domain.Receipt{}, false, err
	}
	return domain.Receipt{
		Order: domain.Order{
			ID:              r.OrderID,
			ProductID:       r.ProductID,
			ProductName:     r.ProductName,
			Quantity:        r.Quantity,
			DiscountPercent: r.DiscountPercent,
			UnitPrice:       r.UnitPrice,
			TotalPrice:      r.TotalPrice,
			StockAfter:      r.StockAfter,
			RequestKey:      key,
			CreatedAt:       r.CreatedAt,
		},
		RemainingStock: r.RemainingStock,
	}, true, nil
}

func (c *ReceiptCache) Save(ctx context.Context, key string, rc domain.Receipt) error {
	o := rc.Order
	return c.store.Put(ctx, key, receipt{
		OrderID:         o.ID,
		ProductID:       o.ProductID,
		ProductName:     o.ProductName,
		Quantity:        o.Quantity,
		DiscountPercent: o.DiscountPercent,
		UnitPrice:       o.UnitPrice,
		TotalPrice:      o.TotalPrice,
		StockAfter:      o.StockAfter,
		RemainingStock:  rc.RemainingStock,
		CreatedAt:       o.CreatedAt,
	})
}

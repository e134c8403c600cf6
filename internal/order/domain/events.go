package domain

import "time"

const OrderPlacedEvent = "OrderPlaced"

type OrderPlaced struct {
	OrderID         int64     `json:"order_id"`
	ProductID       int64     `json:"product_id"`
	Quantity        int       `json:"quantity"`
	DiscountPercent string    `json:"discount_percent"`
	UnitPrice       string    `json:"unit_price"`
	TotalPrice      string    `json:"total_price"`
	RemainingStock  int       `json:"remaining_stock"`
	CreatedAt       time.Time `json:"created_at"`
}

func NewOrderPlaced(o Order) OrderPlaced {
	return OrderPlaced{
		OrderID:         o.ID,
		ProductID:       o.ProductID,
		Quantity:        o.Quantity,
		DiscountPercent: o.DiscountPercent.String(),
		UnitPrice:       o.UnitPrice.StringFixed(2),
		TotalPrice:      o.TotalPrice.StringFixed(2),
		RemainingStock:  o.StockAfter,
		CreatedAt:       o.CreatedAt,
	}
}

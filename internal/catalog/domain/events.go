package domain

import "time"

type ChangeKind string

const (
	ChangeCreated   ChangeKind = "created"
	ChangeUpdated   ChangeKind = "updated"
	ChangeRestocked ChangeKind = "restocked"
	ChangeDeleted   ChangeKind = "deleted"
)

const ProductChangedEvent = "ProductChanged"

type ProductChanged struct {
	ProductID int64      `json:"product_id"`
	Change    ChangeKind `json:"change"`
	Name      string     `json:"name,omitempty"`
	Stock     int        `json:"stock"`
	Price     string     `json:"price,omitempty"`
	At        time.Time  `json:"at"`
}

func NewProductChanged(p Product, kind ChangeKind) ProductChanged {
	return ProductChanged{
		ProductID: p.ID,
		Change:    kind,
		Name:      p.Name,
		Stock:     p.Stock,
		Price:     p.Price.StringFixed(2),
		At:        p.UpdatedAt,
	}
}

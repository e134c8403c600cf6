package application

import (
	"context"

	"github.com/fadhriza/indobat/internal/catalog/domain"
)

// ProductRepository mutations on an existing product must serialize with the
// order engine's lock on the same row.
type ProductRepository interface {
	CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error)
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, in domain.ProductInput) (domain.Product, error)
	RestockProduct(ctx context.Context, id int64, quantity int) (domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int, error)
}

package application

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fadhriza/indobat/internal/apperr"
	"github.com/fadhriza/indobat/internal/catalog/domain"
)

type Service struct {
	log    *slog.Logger
	repo   ProductRepository
	tracer trace.Tracer
}

func NewService(log *slog.Logger, repo ProductRepository) *Service {
	return &Service{log: log, repo: repo, tracer: otel.Tracer("catalog")}
}

func (s *Service) Create(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return domain.Product{}, err
	}
	ctx, span := s.tracer.Start(ctx, "CreateProduct")
	defer span.End()

	p, err := s.repo.CreateProduct(ctx, in)
	if err != nil {
		return domain.Product{}, err
	}
	s.log.Info("product created", "product_id", p.ID, "stock", p.Stock)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id int64) (domain.Product, error) {
	if id < 1 {
		return domain.Product{}, apperr.ErrProductNotFound
	}
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, in domain.ProductInput) (domain.Product, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return domain.Product{}, err
	}
	if id < 1 {
		return domain.Product{}, apperr.ErrProductNotFound
	}
	ctx, span := s.tracer.Start(ctx, "UpdateProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	p, err := s.repo.UpdateProduct(ctx, id, in)
	if err != nil {
		return domain.Product{}, err
	}
	s.log.Info("product updated", "product_id", p.ID, "stock", p.Stock)
	return p, nil
}

// Restock adds quantity units to the product's stock.
func (s *Service) Restock(ctx context.Context, id int64, quantity int) (domain.Product, error) {
	if err := domain.ValidateRestock(quantity); err != nil {
		return domain.Product{}, err
	}
	if id < 1 {
		return domain.Product{}, apperr.ErrProductNotFound
	}
	ctx, span := s.tracer.Start(ctx, "RestockProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	p, err := s.repo.RestockProduct(ctx, id, quantity)
	if err != nil {
		return domain.Product{}, err
	}
	s.log.Info("product restocked", "product_id", p.ID, "added", quantity, "stock", p.Stock)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return apperr.ErrProductNotFound
	}
	ctx, span := s.tracer.Start(ctx, "DeleteProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.log.Info("product deleted", "product_id", id)
	return nil
}

// ProductPage is one page of the product listing.
type ProductPage struct {
	Products []domain.Product
	Total    int
	Page     int
	Limit    int
}

func (s *Service) List(ctx context.Context, f domain.ProductFilter) (ProductPage, error) {
	f, err := f.Normalize()
	if err != nil {
		return ProductPage{}, err
	}
	ctx, span := s.tracer.Start(ctx, "ListProducts")
	defer span.End()

	products, total, err := s.repo.ListProducts(ctx, f)
	if err != nil {
		return ProductPage{}, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return ProductPage{Products: products, Total: total, Page: f.Page.Page, Limit: f.Limit}, nil
}

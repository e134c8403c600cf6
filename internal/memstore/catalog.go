package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/fadhriza/indobat/internal/apperr"
	catalog "github.com/fadhriza/indobat/internal/catalog/domain"
)

func (s *Store) CreateProduct(_ context.Context, in catalog.ProductInput) (catalog.Product, error) {
	now := s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProduct++
	p := catalog.Product{
		ID:        s.nextProduct,
		Name:      in.Name,
		Stock:     in.Stock,
		Price:     in.Price,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.rows[p.ID] = &row{lock: make(chan struct{}, 1), product: p}
	return p, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[id]
	if !ok {
		return catalog.Product{}, apperr.ErrProductNotFound
	}
	return r.product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id int64, in catalog.ProductInput) (catalog.Product, error) {
	return s.mutate(ctx, id, func(p catalog.Product) (catalog.Product, error) {
		p.Name = in.Name
		p.Stock = in.Stock
		p.Price = in.Price
		return p, nil
	})
}

func (s *Store) RestockProduct(ctx context.Context, id int64, quantity int) (catalog.Product, error) {
	return s.mutate(ctx, id, func(p catalog.Product) (catalog.Product, error) { return p.Restock(quantity) })
}

// mutate applies an administrative change under the same row lock the order
// engine uses.
func (s *Store) mutate(ctx context.Context, id int64, fn func(catalog.Product) (catalog.Product, error)) (catalog.Product, error) {
	r, release, err := s.lockProduct(ctx, id)
	if err != nil {
		return catalog.Product{}, err
	}
	defer release()

	s.mu.RLock()
	current := r.product
	s.mu.RUnlock()
	next, err := fn(current)
	if err != nil {
		return catalog.Product{}, err
	}

	next.UpdatedAt = s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	r.product = next
	return next, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	r, release, err := s.lockProduct(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sold[id] > 0 {
		return apperr.ErrProductInUse
	}
	r.deleted = true
	delete(s.rows, id)
	return nil
}

func (s *Store) ListProducts(_ context.Context, f catalog.ProductFilter) ([]catalog.Product, int, error) {
	needle := strings.ToLower(f.Search)

	s.mu.RLock()
	matched := make([]catalog.Product, 0, len(s.rows))
	for _, r := range s.rows {
		if needle == "" || strings.Contains(strings.ToLower(r.product.Name), needle) {
			matched = append(matched, r.product)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b catalog.Product) int {
		var c int
		switch f.SortBy {
		case "name":
			c = cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case "stock":
			c = cmp.Compare(a.Stock, b.Stock)
		case "price":
			c = a.Price.Cmp(b.Price)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		return direction(f.Order, c)
	})
	return paginate(matched, f.Page), len(matched), nil
}

func direction(o catalog.SortOrder, c int) int {
	if o == catalog.Desc {
		return -c
	}
	return c
}

func paginate[T any](items []T, p catalog.Page) []T {
	start := p.Offset()
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := min(start+p.Limit, len(items))
	return items[start:end]
}

package memstore

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fadhriza/indobat/internal/apperr"
	order "github.com/fadhriza/indobat/internal/order/domain"
)

// snapshot copies the committed orders with current product names.
func (s *Store) snapshot(since time.Time) []order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if !since.IsZero() && o.CreatedAt.Before(since) {
			continue
		}
		if r, ok := s.rows[o.ProductID]; ok {
			o.ProductName = r.product.Name
		}
		out = append(out, o)
	}
	return out
}

func (s *Store) GetOrder(_ context.Context, id int64) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 1 || id > int64(len(s.orders)) {
		return order.Order{}, apperr.ErrOrderNotFound
	}
	o := s.orders[id-1]
	if r, ok := s.rows[o.ProductID]; ok {
		o.ProductName = r.product.Name
	}
	return o, nil
}

func (s *Store) ListOrders(_ context.Context, f order.OrderFilter) ([]order.Order, int, error) {
	orders := s.snapshot(time.Time{})
	slices.SortFunc(orders, func(a, b order.Order) int {
		var c int
		switch f.SortBy {
		case "quantity":
			c = cmp.Compare(a.Quantity, b.Quantity)
		case "total_price":
			c = a.TotalPrice.Cmp(b.TotalPrice)
		case "created_at":
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		return direction(f.Order, c)
	})
	return paginate(orders, f.Page), len(orders), nil
}

func (s *Store) ListProductSales(_ context.Context, f order.OrderFilter) ([]order.ProductSales, int, error) {
	byProduct := map[int64]*order.ProductSales{}
	var rows []*order.ProductSales
	for _, o := range s.snapshot(time.Time{}) {
		ps, ok := byProduct[o.ProductID]
		if !ok {
			ps = &order.ProductSales{ProductID: o.ProductID, ProductName: o.ProductName, TotalPrice: decimal.Zero}
			byProduct[o.ProductID] = ps
			rows = append(rows, ps)
		}
		ps.Quantity += int64(o.Quantity)
		ps.TotalPrice = ps.TotalPrice.Add(o.TotalPrice)
		ps.Orders++
		if o.CreatedAt.After(ps.LatestAt) {
			ps.LatestAt = o.CreatedAt
		}
	}

	sales := make([]order.ProductSales, 0, len(rows))
	for _, ps := range rows {
		sales = append(sales, *ps)
	}
	slices.SortFunc(sales, func(a, b order.ProductSales) int {
		var c int
		switch f.SortBy {
		case "quantity":
			c = cmp.Compare(a.Quantity, b.Quantity)
		case "total_price":
			c = a.TotalPrice.Cmp(b.TotalPrice)
		case "created_at":
			c = a.LatestAt.Compare(b.LatestAt)
		}
		if c == 0 {
			c = cmp.Compare(a.ProductID, b.ProductID)
		}
		return direction(f.Order, c)
	})
	return paginate(sales, f.Page), len(sales), nil
}

func (s *Store) Analytics(_ context.Context, since time.Time) ([]order.DayRevenue, []order.ProductQuantity, error) {
	revenue := map[time.Time]decimal.Decimal{}
	qty := map[int64]*order.ProductQuantity{}
	for _, o := range s.snapshot(since) {
		day := o.CreatedAt.UTC().Truncate(24 * time.Hour)
		revenue[day] = revenue[day].Add(o.TotalPrice)
		pq, ok := qty[o.ProductID]
		if !ok {
			pq = &order.ProductQuantity{ProductID: o.ProductID, ProductName: o.ProductName}
			qty[o.ProductID] = pq
		}
		pq.Quantity += int64(o.Quantity)
	}

	days := make([]order.DayRevenue, 0, len(revenue))
	for day, amount := range revenue {
		days = append(days, order.DayRevenue{Day: day, Revenue: amount})
	}
	slices.SortFunc(days, func(a, b order.DayRevenue) int { return a.Day.Compare(b.Day) })

	products := make([]order.ProductQuantity, 0, len(qty))
	for _, pq := range qty {
		products = append(products, *pq)
	}
	slices.SortFunc(products, func(a, b order.ProductQuantity) int {
		if c := cmp.Compare(b.Quantity, a.Quantity); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return days, products, nil
}

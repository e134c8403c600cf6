package application

import (
	"context"

	"github.com/fadhriza/indobat/internal/order/domain"
)

// OrderPage is either a flat or a grouped listing; exactly one slice is set.
type OrderPage struct {
	Orders  []domain.Order
	Grouped []domain.ProductSales
	Total   int
	Page    int
	Limit   int
}

func (s *Service) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	return s.query.GetOrder(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, f domain.OrderFilter) (OrderPage, error) {
	f, err := f.Normalize()
	if err != nil {
		return OrderPage{}, err
	}
	ctx, span := s.tracer.Start(ctx, "ListOrders")
	defer span.End()

	page := OrderPage{Page: f.Page.Page, Limit: f.Limit}
	if f.Grouped() {
		page.Grouped, page.Total, err = s.query.ListProductSales(ctx, f)
		if page.Grouped == nil {
			page.Grouped = []domain.ProductSales{}
		}
	} else {
		page.Orders, page.Total, err = s.query.ListOrders(ctx, f)
		if page.Orders == nil {
			page.Orders = []domain.Order{}
		}
	}
	return page, err
}

func (s *Service) Analytics(ctx context.Context, window string) (domain.Analytics, error) {
	w, err := domain.ParseWindow(window)
	if err != nil {
		return domain.Analytics{}, err
	}
	ctx, span := s.tracer.Start(ctx, "OrderAnalytics")
	defer span.End()

	revenue, qty, err := s.query.Analytics(ctx, w.Since(s.now().UTC()))
	if err != nil {
		return domain.Analytics{}, err
	}
	return domain.Analytics{Window: w, RevenueByDay: revenue, QuantityByProduct: qty}, nil
}

package application

import (
	"context"
	"time"

	"github.com/fadhriza/indobat/internal/order/domain"
)

// OrderRepository runs decide inside one product's critical section and
// commits the stock decrement together with the order row.
type OrderRepository interface {
	PlaceOrder(ctx context.Context, cmd domain.PlaceOrder, decide domain.Decision) (domain.Receipt, error)
}

// OrderQuery is the read side; implementations only return committed rows.
type OrderQuery interface {
	GetOrder(ctx context.Context, id int64) (domain.Order, error)
	ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int, error)
	ListProductSales(ctx context.Context, f domain.OrderFilter) ([]domain.ProductSales, int, error)
	Analytics(ctx context.Context, since time.Time) ([]domain.DayRevenue, []domain.ProductQuantity, error)
}

// ReceiptCache is a best-effort lookaside for request-key replays. The
// repository remains authoritative.
type ReceiptCache interface {
	Load(ctx context.Context, key string) (domain.Receipt, bool, error)
	Save(ctx context.Context, key string, r domain.Receipt) error
}

type noCache struct{}

func (noCache) Load(context.Context, string) (domain.Receipt, bool, error) {
	return domain.Receipt{}, false, nil
}
func (noCache) Save(context.Context, string, domain.Receipt) error { return nil }

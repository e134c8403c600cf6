package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fadhriza/indobat/internal/apperr"
	catalog "github.com/fadhriza/indobat/internal/catalog/domain"
	"github.com/fadhriza/indobat/internal/order/domain"
	"github.com/fadhriza/indobat/internal/platform/database"
)

// Product names are joined at read time; orders never own them.
const selectOrder = `SELECT o.id, o.product_id, COALESCE(p.name, ''), o.quantity, o.discount_percent,
	o.unit_price, o.total_price, o.stock_after, COALESCE(o.request_key, ''), o.created_at
	FROM orders o LEFT JOIN products p ON p.id = o.product_id`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.ProductID, &o.ProductName, &o.Quantity, &o.DiscountPercent,
		&o.UnitPrice, &o.TotalPrice, &o.StockAfter, &o.RequestKey, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, apperr.ErrOrderNotFound
	}
	return o, err
}

func direction(o catalog.SortOrder) string {
	if o == catalog.Desc {
		return "DESC"
	}
	return "ASC"
}

func (r *Repository) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, selectOrder+` WHERE o.id=$1`, id))
	if err != nil {
		return domain.Order{}, database.Classify(err)
	}
	return o, nil
}

var orderSortColumns = map[string]string{
	"id":          "o.id",
	"quantity":    "o.quantity",
	"total_price": "o.total_price",
	"created_at":  "o.created_at",
}

func (r *Repository) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int, error) {
	col, ok := orderSortColumns[f.SortBy]
	if !ok {
		return nil, 0, apperr.Invalid("unsupported sortBy %q", f.SortBy)
	}
	dir := direction(f.Order)

	var (
		total  int
		orders []domain.Order
	)
	err := database.ReadSnapshot(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&total); err != nil {
			return err
		}
		q := fmt.Sprintf(`%s ORDER BY %s %s, o.id %s LIMIT %d OFFSET %d`, selectOrder, col, dir, dir, f.Limit, f.Offset())
		rows, err := tx.Query(ctx, q)
		if err != nil {
			return err
		}
		orders, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) {
			return scanOrder(row)
		})
		return err
	})
	if err != nil {
		return nil, 0, database.Classify(err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, total, nil
}

var salesSortColumns = map[string]string{
	"id":          "product_id",
	"quantity":    "quantity",
	"total_price": "total_price",
	"created_at":  "latest_at",
}

func (r *Repository) ListProductSales(ctx context.Context, f domain.OrderFilter) ([]domain.ProductSales, int, error) {
	col, ok := salesSortColumns[f.SortBy]
	if !ok {
		return nil, 0, apperr.Invalid("unsupported sortBy %q", f.SortBy)
	}
	dir := direction(f.Order)

	var (
		total int
		sales []domain.ProductSales
	)
	err := database.ReadSnapshot(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT count(DISTINCT product_id) FROM orders`).Scan(&total); err != nil {
			return err
		}
		q := fmt.Sprintf(`SELECT s.product_id, COALESCE(p.name, ''), s.quantity, s.total_price, s.orders, s.latest_at
			FROM (
				SELECT product_id, SUM(quantity) AS quantity, SUM(total_price) AS total_price,
				       COUNT(*) AS orders, MAX(created_at) AS latest_at
				FROM orders GROUP BY product_id
			) s LEFT JOIN products p ON p.id = s.product_id
			ORDER BY %s %s, s.product_id %s LIMIT %d OFFSET %d`, "s."+col, dir, dir, f.Limit, f.Offset())
		rows, err := tx.Query(ctx, q)
		if err != nil {
			return err
		}
		sales, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ProductSales, error) {
			var ps domain.ProductSales
			err := row.Scan(&ps.ProductID, &ps.ProductName, &ps.Quantity, &ps.TotalPrice, &ps.Orders, &ps.LatestAt)
			return ps, err
		})
		return err
	})
	if err != nil {
		return nil, 0, database.Classify(err)
	}
	if sales == nil {
		sales = []domain.ProductSales{}
	}
	return sales, total, nil
}

// Analytics buckets revenue by UTC day and quantity by product. A zero since
// covers every order.
func (r *Repository) Analytics(ctx context.Context, since time.Time) ([]domain.DayRevenue, []domain.ProductQuantity, error) {
	var lower *time.Time
	if !since.IsZero() {
		lower = &since
	}

	var (
		days     []domain.DayRevenue
		products []domain.ProductQuantity
	)
	err := database.ReadSnapshot(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day, SUM(total_price)
			FROM orders
			WHERE $1::timestamptz IS NULL OR created_at >= $1
			GROUP BY day
			ORDER BY day`, lower)
		if err != nil {
			return err
		}
		days, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DayRevenue, error) {
			var d domain.DayRevenue
			err := row.Scan(&d.Day, &d.Revenue)
			// timestamp without time zone scans as UTC wall clock.
			d.Day = time.Date(d.Day.Year(), d.Day.Month(), d.Day.Day(), 0, 0, 0, 0, time.UTC)
			return d, err
		})
		if err != nil {
			return err
		}

		rows, err = tx.Query(ctx, `
			SELECT o.product_id, COALESCE(p.name, ''), SUM(o.quantity) AS quantity
			FROM orders o LEFT JOIN products p ON p.id = o.product_id
			WHERE $1::timestamptz IS NULL OR o.created_at >= $1
			GROUP BY o.product_id, p.name
			ORDER BY quantity DESC, o.product_id`, lower)
		if err != nil {
			return err
		}
		products, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ProductQuantity, error) {
			var pq domain.ProductQuantity
			err := row.Scan(&pq.ProductID, &pq.ProductName, &pq.Quantity)
			return pq, err
		})
		return err
	})
	if err != nil {
		return nil, nil, database.Classify(err)
	}
	if days == nil {
		days = []domain.DayRevenue{}
	}
	if products == nil {
		products = []domain.ProductQuantity{}
	}
	return days, products, nil
}

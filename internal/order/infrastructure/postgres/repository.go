package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fadhriza/indobat/internal/apperr"
	catalog "github.com/fadhriza/indobat/internal/catalog/domain"
	"github.com/fadhriza/indobat/internal/order/domain"
	"github.com/fadhriza/indobat/internal/platform/database"
	"github.com/fadhriza/indobat/pkg/outbox"
)

// Order events are keyed by product so the relay keeps per-product order.
const productAggregate = "product"

type Repository struct {
	log         *slog.Logger
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool, lockTimeout time.Duration) *Repository {
	return &Repository{log: log, pool: pool, lockTimeout: lockTimeout}
}

// PlaceOrder holds the product row lock for the whole decision, so the stock
// passed to decide is the stock the decrement is applied to.
func (r *Repository) PlaceOrder(ctx context.Context, cmd domain.PlaceOrder, decide domain.Decision) (domain.Receipt, error) {
	var receipt domain.Receipt
	err := database.WithTx(ctx, r.pool, r.lockTimeout, func(tx pgx.Tx) error {
		var p catalog.Product
		err := tx.QueryRow(ctx, `SELECT id, name, stock, price, created_at, updated_at
			FROM products WHERE id=$1 FOR UPDATE`, cmd.ProductID).
			Scan(&p.ID, &p.Name, &p.Stock, &p.Price, &p.CreatedAt, &p.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrProductNotFound
		}
		if err != nil {
			return err
		}

		if cmd.RequestKey != "" {
			prev, err := scanOrder(tx.QueryRow(ctx, selectOrder+` WHERE o.request_key=$1`, cmd.RequestKey))
			if err == nil {
				receipt = domain.Receipt{Order: prev, RemainingStock: prev.StockAfter, Replayed: true}
				return nil
			}
			if !errors.Is(err, apperr.ErrOrderNotFound) {
				return err
			}
		}

		o, err := decide(p)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE products SET stock=$2, updated_at=now() WHERE id=$1`, p.ID, p.Stock-o.Quantity)
		if err != nil {
			return err
		}

		var key *string
		if cmd.RequestKey != "" {
			key = &cmd.RequestKey
		}
		o.ProductID = p.ID
		o.ProductName = p.Name
		o.StockAfter = p.Stock - o.Quantity
		o.RequestKey = cmd.RequestKey
		err = tx.QueryRow(ctx, `INSERT INTO orders (product_id, quantity, discount_percent, unit_price, total_price, stock_after, request_key)
			VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at`,
			o.ProductID, o.Quantity, o.DiscountPercent, o.UnitPrice, o.TotalPrice, o.StockAfter, key).
			Scan(&o.ID, &o.CreatedAt)
		if err != nil {
			return err
		}

		ev, err := outbox.NewEvent(productAggregate, o.ProductID, domain.OrderPlacedEvent, domain.NewOrderPlaced(o))
		if err != nil {
			return err
		}
		if err := outbox.Enqueue(ctx, tx, ev); err != nil {
			return err
		}
		receipt = domain.Receipt{Order: o, RemainingStock: o.StockAfter}
		return nil
	})
	if err != nil {
		return domain.Receipt{}, database.Classify(err)
	}
	return receipt, nil
}

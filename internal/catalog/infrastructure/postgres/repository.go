package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fadhriza/indobat/internal/apperr"
	"github.com/fadhriza/indobat/internal/catalog/domain"
	"github.com/fadhriza/indobat/internal/platform/database"
	"github.com/fadhriza/indobat/pkg/outbox"
)

const productAggregate = "product"

const productColumns = `id, name, stock, price, created_at, updated_at`

type Repository struct {
	log         *slog.Logger
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool, lockTimeout time.Duration) *Repository {
	return &Repository{log: log, pool: pool, lockTimeout: lockTimeout}
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Stock, &p.Price, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, apperr.ErrProductNotFound
	}
	return p, err
}

func enqueueChange(ctx context.Context, tx pgx.Tx, p domain.Product, kind domain.ChangeKind) error {
	ev, err := outbox.NewEvent(productAggregate, p.ID, domain.ProductChangedEvent, domain.NewProductChanged(p, kind))
	if err != nil {
		return err
	}
	return outbox.Enqueue(ctx, tx, ev)
}

func (r *Repository) CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	var p domain.Product
	err := database.WithTx(ctx, r.pool, r.lockTimeout, func(tx pgx.Tx) error {
		var err error
		p, err = scanProduct(tx.QueryRow(ctx, `INSERT INTO products (name, stock, price) VALUES ($1,$2,$3)
			RETURNING `+productColumns, in.Name, in.Stock, in.Price))
		if err != nil {
			return err
		}
		return enqueueChange(ctx, tx, p, domain.ChangeCreated)
	})
	if err != nil {
		return domain.Product{}, database.Classify(err)
	}
	return p, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if err != nil {
		return domain.Product{}, database.Classify(err)
	}
	return p, nil
}

// mutate locks the product row with the same FOR UPDATE the order engine
// takes, applies fn and writes the result back.
func (r *Repository) mutate(ctx context.Context, id int64, kind domain.ChangeKind, fn func(domain.Product) (domain.Product, error)) (domain.Product, error) {
	var p domain.Product
	err := database.WithTx(ctx, r.pool, r.lockTimeout, func(tx pgx.Tx) error {
		var err error
		p, err = scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if p, err = fn(p); err != nil {
			return err
		}
		err = tx.QueryRow(ctx, `UPDATE products SET name=$2, stock=$3, price=$4, updated_at=now()
			WHERE id=$1 RETURNING updated_at`, p.ID, p.Name, p.Stock, p.Price).Scan(&p.UpdatedAt)
		if err != nil {
			return err
		}
		return enqueueChange(ctx, tx, p, kind)
	})
	if err != nil {
		return domain.Product{}, database.Classify(err)
	}
	return p, nil
}

func (r *Repository) UpdateProduct(ctx context.Context, id int64, in domain.ProductInput) (domain.Product, error) {
	return r.mutate(ctx, id, domain.ChangeUpdated, func(p domain.Product) (domain.Product, error) {
		p.Name = in.Name
		p.Stock = in.Stock
		p.Price = in.Price
		return p, nil
	})
}

func (r *Repository) RestockProduct(ctx context.Context, id int64, quantity int) (domain.Product, error) {
	return r.mutate(ctx, id, domain.ChangeRestocked, func(p domain.Product) (domain.Product, error) {
		return p.Restock(quantity)
	})
}

// DeleteProduct fails with ErrProductInUse once any order references the
// product; the foreign key enforces it.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	err := database.WithTx(ctx, r.pool, r.lockTimeout, func(tx pgx.Tx) error {
		p, err := scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM products WHERE id=$1`, id); err != nil {
			return err
		}
		return enqueueChange(ctx, tx, p, domain.ChangeDeleted)
	})
	return database.Classify(err)
}

var productSortColumns = map[string]string{
	"id":    "id",
	"name":  "lower(name)",
	"stock": "stock",
	"price": "price",
}

func (r *Repository) ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int, error) {
	col, ok := productSortColumns[f.SortBy]
	if !ok {
		return nil, 0, apperr.Invalid("unsupported sortBy %q", f.SortBy)
	}
	dir := "ASC"
	if f.Order == domain.Desc {
		dir = "DESC"
	}
	where, args := "", []any{}
	if f.Search != "" {
		where = `WHERE name ILIKE $1`
		args = append(args, database.LikePattern(f.Search))
	}

	var (
		total    int
		products []domain.Product
	)
	err := database.ReadSnapshot(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM products `+where, args...).Scan(&total); err != nil {
			return err
		}
		q := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY %s %s, id %s LIMIT %d OFFSET %d`,
			productColumns, where, col, dir, dir, f.Limit, f.Offset())
		rows, err := tx.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		products, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Product, error) {
			return scanProduct(row)
		})
		return err
	})
	if err != nil {
		return nil, 0, database.Classify(err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, total, nil
}

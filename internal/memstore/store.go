// Package memstore is the in-process storage driver. Each product row owns a
// one-slot channel used as a context-aware lock, so orders on different
// products never wait on each other; the store-wide mutex is only held for
// the instant a committed change is applied.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/fadhriza/indobat/internal/apperr"
	catalog "github.com/fadhriza/indobat/internal/catalog/domain"
	order "github.com/fadhriza/indobat/internal/order/domain"
)

type row struct {
	lock chan struct{}

	// guarded by Store.mu
	product catalog.Product
	deleted bool
}

type Store struct {
	mu          sync.RWMutex
	rows        map[int64]*row
	orders      []order.Order
	keys        map[string]int
	sold        map[int64]int
	nextProduct int64

	now          func() time.Time
	beforeCommit func(order.Order) error
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCommitHook runs fn after the decision and before the order is applied.
// A non-nil error aborts the order as a storage failure.
func WithCommitHook(fn func(order.Order) error) Option {
	return func(s *Store) { s.beforeCommit = fn }
}

func New(opts ...Option) *Store {
	s := &Store{
		rows: make(map[int64]*row),
		keys: make(map[string]int),
		sold: make(map[int64]int),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lockProduct blocks until the product's row lock is held or ctx is done.
func (s *Store) lockProduct(ctx context.Context, id int64) (*row, func(), error) {
	s.mu.RLock()
	r, ok := s.rows[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, apperr.ErrProductNotFound
	}

	select {
	case r.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, apperr.Transient(ctx.Err())
	}
	release := func() { <-r.lock }

	s.mu.RLock()
	deleted := r.deleted
	s.mu.RUnlock()
	if deleted {
		release()
		return nil, nil, apperr.ErrProductNotFound
	}
	return r, release, nil
}

// PlaceOrder implements the order engine's critical section. Once the row
// lock is held the section runs to completion regardless of ctx.
func (s *Store) PlaceOrder(ctx context.Context, cmd order.PlaceOrder, decide order.Decision) (order.Receipt, error) {
	r, release, err := s.lockProduct(ctx, cmd.ProductID)
	if err != nil {
		return order.Receipt{}, err
	}
	defer release()

	s.mu.RLock()
	p := r.product
	if cmd.RequestKey != "" {
		if idx, ok := s.keys[cmd.RequestKey]; ok {
			prev := s.orders[idx]
			s.mu.RUnlock()
			return order.Receipt{Order: prev, RemainingStock: prev.StockAfter, Replayed: true}, nil
		}
	}
	s.mu.RUnlock()

	o, err := decide(p)
	if err != nil {
		return order.Receipt{}, err
	}
	if o.Quantity < 1 || o.Quantity > p.Stock {
		return order.Receipt{}, &apperr.InsufficientStockError{ProductID: p.ID, Requested: o.Quantity, Available: p.Stock}
	}
	if s.beforeCommit != nil {
		if err := s.beforeCommit(o); err != nil {
			return order.Receipt{}, apperr.Transient(err)
		}
	}

	now := s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	if cmd.RequestKey != "" {
		if _, taken := s.keys[cmd.RequestKey]; taken {
			return order.Receipt{}, apperr.ErrDuplicateRequest
		}
	}
	r.product.Stock = p.Stock - o.Quantity
	r.product.UpdatedAt = now

	o.ID = int64(len(s.orders) + 1)
	o.ProductID = p.ID
	o.ProductName = p.Name
	o.StockAfter = r.product.Stock
	o.CreatedAt = now
	o.RequestKey = cmd.RequestKey
	s.orders = append(s.orders, o)
	if cmd.RequestKey != "" {
		s.keys[cmd.RequestKey] = len(s.orders) - 1
	}
	s.sold[p.ID]++

	return order.Receipt{Order: o, RemainingStock: o.StockAfter}, nil
}

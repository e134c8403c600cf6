package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fadhriza/indobat/internal/apperr"
	"github.com/fadhriza/indobat/internal/order/domain"
)

const defaultConflictRetries = 3

type Service struct {
	log     *slog.Logger
	repo    OrderRepository
	query   OrderQuery
	cache   ReceiptCache
	tracer  trace.Tracer
	retries uint64
	backoff func() backoff.BackOff
	now     func() time.Time
}

type Option func(*Service)

// WithReceiptCache enables request-key replays from a cache before the store
// is consulted.
func WithReceiptCache(c ReceiptCache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithConflictRetries bounds how often a conflicting transaction is retried.
func WithConflictRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.retries = uint64(n)
		}
	}
}

// WithBackOff replaces the retry schedule; tests use backoff.ZeroBackOff.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(s *Service) { s.backoff = f }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(log *slog.Logger, repo OrderRepository, query OrderQuery, opts ...Option) *Service {
	s := &Service{
		log:     log,
		repo:    repo,
		query:   query,
		cache:   noCache{},
		tracer:  otel.Tracer("order-engine"),
		retries: defaultConflictRetries,
		now:     time.Now,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 5 * time.Millisecond
			b.MaxInterval = 100 * time.Millisecond
			return b
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder sells cmd.Quantity units of one product. The stock check and the
// decrement happen under the product's exclusive lock inside the repository.
func (s *Service) PlaceOrder(ctx context.Context, cmd domain.PlaceOrder) (domain.Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "PlaceOrder", trace.WithAttributes(
		attribute.Int64("product.id", cmd.ProductID),
		attribute.Int("order.quantity", cmd.Quantity),
	))
	defer span.End()

	if err := cmd.Validate(); err != nil {
		return domain.Receipt{}, err
	}

	if cmd.RequestKey != "" {
		if r, ok := s.cached(ctx, cmd.RequestKey); ok {
			return s.replay(cmd, r)
		}
	}

	var receipt domain.Receipt
	attempt := 0
	op := func() error {
		attempt++
		r, err := s.repo.PlaceOrder(ctx, cmd, domain.Decide(cmd))
		if err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				s.log.Warn("order conflict, retrying", "product_id", cmd.ProductID, "attempt", attempt, "err", err)
				return err
			}
			return backoff.Permanent(err)
		}
		receipt = r
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(s.backoff(), s.retries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return domain.Receipt{}, s.fail(span, cmd, err)
	}

	if receipt.Replayed {
		return s.replay(cmd, receipt)
	}
	if cmd.RequestKey != "" {
		if err := s.cache.Save(ctx, cmd.RequestKey, receipt); err != nil {
			s.log.Warn("receipt cache save failed", "order_id", receipt.Order.ID, "err", err)
		}
	}
	span.SetAttributes(attribute.Int64("order.id", receipt.Order.ID))
	s.log.Info("order placed",
		"order_id", receipt.Order.ID,
		"product_id", receipt.Order.ProductID,
		"quantity", receipt.Order.Quantity,
		"total_price", receipt.Order.TotalPrice.StringFixed(2),
		"remaining_stock", receipt.RemainingStock,
	)
	return receipt, nil
}

func (s *Service) cached(ctx context.Context, key string) (domain.Receipt, bool) {
	r, ok, err := s.cache.Load(ctx, key)
	if err != nil {
		s.log.Warn("receipt cache lookup failed", "err", err)
		return domain.Receipt{}, false
	}
	return r, ok
}

func (s *Service) replay(cmd domain.PlaceOrder, r domain.Receipt) (domain.Receipt, error) {
	if !cmd.Matches(r.Order) {
		return domain.Receipt{}, apperr.Invalid("idempotency key was already used for a different order")
	}
	r.Replayed = true
	s.log.Info("order replayed", "order_id", r.Order.ID, "product_id", r.Order.ProductID)
	return r, nil
}

func (s *Service) fail(span trace.Span, cmd domain.PlaceOrder, err error) error {
	switch {
	case errors.Is(err, apperr.ErrInsufficientStock):
		s.log.Info("order rejected", "product_id", cmd.ProductID, "quantity", cmd.Quantity, "err", err)
		return err
	case errors.Is(err, apperr.ErrDuplicateRequest):
		return apperr.Invalid("idempotency key was already used for a different order")
	case errors.Is(err, apperr.ErrInvalidInput), errors.Is(err, apperr.ErrProductNotFound):
		return err
	}
	// Conflicts that survived every retry, cancellations and storage faults
	// all leave the outcome to a caller-initiated retry.
	err = apperr.Transient(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, "place order failed")
	s.log.Error("place order failed", "product_id", cmd.ProductID, "err", err)
	return err
}

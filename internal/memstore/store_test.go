package memstore

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fadhriza/indobat/internal/apperr"
	catalog "github.com/fadhriza/indobat/internal/catalog/domain"
	order "github.com/fadhriza/indobat/internal/order/domain"
)

func seed(t *testing.T, s *Store, name string, stock int, price string) catalog.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), catalog.ProductInput{
		Name:  name,
		Stock: stock,
		Price: decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	return p
}

func place(s *Store, productID int64, qty int) (order.Receipt, error) {
	cmd := order.PlaceOrder{ProductID: productID, Quantity: qty, DiscountPercent: decimal.Zero}
	return s.PlaceOrder(context.Background(), cmd, order.Decide(cmd))
}

func TestPlaceOrderDecrementsAndRecords(t *testing.T) {
	s := New()
	p := seed(t, s, "Ibuprofen", 10, "1000")

	r, err := place(s, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.Order.ID)
	assert.Equal(t, 7, r.RemainingStock)
	assert.True(t, r.Order.TotalPrice.Equal(decimal.NewFromInt(3000)))

	got, err := s.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)
	assert.False(t, got.UpdatedAt.Before(p.UpdatedAt))
}

func TestLastUnitRace(t *testing.T) {
	s := New()
	p := seed(t, s, "Insulin", 1, "150000")

	var wg sync.WaitGroup
	results := make([]error, 2)
	remaining := make([]int, 2)
	start := make(chan struct{})
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			r, err := place(s, p.ID, 1)
			results[i], remaining[i] = err, r.RemainingStock
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, rejected int
	for i, err := range results {
		switch {
		case err == nil:
			ok++
			assert.Equal(t, 0, remaining[i])
		case errors.Is(err, apperr.ErrInsufficientStock):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)
}

func TestNoOversellUnderContention(t *testing.T) {
	s := New()
	const initial = 50
	p := seed(t, s, "Vitamin C", initial, "2500")

	var sold atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			r, err := place(s, p.ID, qty)
			if err == nil {
				sold.Add(int64(qty))
				assert.GreaterOrEqual(t, r.RemainingStock, 0)
				return
			}
			assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
		}(i%3 + 1)
	}
	wg.Wait()

	got, err := s.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Stock, 0)
	assert.LessOrEqual(t, sold.Load(), int64(initial))

	// Conservation: stock = initial - sum(committed quantities).
	orders, total, err := s.ListOrders(context.Background(), order.OrderFilter{
		Page:   catalog.Page{Page: 1, Limit: catalog.MaxLimit},
		SortBy: "id",
		Order:  catalog.Asc,
	})
	require.NoError(t, err)
	require.LessOrEqual(t, total, catalog.MaxLimit)
	var committed int
	for _, o := range orders {
		committed += o.Quantity
	}
	assert.Equal(t, initial-committed, got.Stock)
	assert.Equal(t, int64(committed), sold.Load())
}

func TestRestockCountsTowardConservation(t *testing.T) {
	s := New()
	p := seed(t, s, "ORS", 2, "3000")

	_, err := place(s, p.ID, 2)
	require.NoError(t, err)
	_, err = place(s, p.ID, 1)
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)

	restocked, err := s.RestockProduct(context.Background(), p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, restocked.Stock)

	r, err := place(s, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, r.RemainingStock)
}

func TestRestockBeyondMaxStockIsRejected(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seed(t, s, "Saline", 5, "8000")

	_, err := s.RestockProduct(ctx, p.ID, math.MaxInt)
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = s.RestockProduct(ctx, p.ID, catalog.MaxStock-4)
	require.ErrorIs(t, err, apperr.ErrInvalidInput)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
	assert.Equal(t, p.UpdatedAt, got.UpdatedAt)

	got, err = s.RestockProduct(ctx, p.ID, catalog.MaxStock-5)
	require.NoError(t, err)
	assert.Equal(t, catalog.MaxStock, got.Stock)
}

func TestPaginateNegativeOffset(t *testing.T) {
	assert.Empty(t, paginate([]int{1, 2, 3}, catalog.Page{Page: 0, Limit: 10}))
	assert.Empty(t, paginate([]int{1, 2, 3}, catalog.Page{Page: -5, Limit: 100}))
	assert.Equal(t, []int{3}, paginate([]int{1, 2, 3}, catalog.Page{Page: 2, Limit: 2}))
}

func TestCommitFailureLeavesNoTrace(t *testing.T) {
	boom := errors.New("disk full")
	s := New(WithCommitHook(func(order.Order) error { return boom }))
	p := seed(t, s, "Amlodipine", 4, "800")

	_, err := place(s, p.ID, 2)
	require.ErrorIs(t, err, apperr.ErrTransient)
	require.ErrorIs(t, err, boom)

	got, err := s.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Stock)

	_, total, err := s.ListOrders(context.Background(), order.OrderFilter{Page: catalog.Page{Page: 1, Limit: 10}})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestProductsDoNotContend(t *testing.T) {
	s := New()
	a := seed(t, s, "A", 5, "1")
	b := seed(t, s, "B", 5, "1")

	// Hold A's row lock as an in-flight order would.
	_, release, err := s.lockProduct(context.Background(), a.ID)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cmd := order.PlaceOrder{ProductID: b.ID, Quantity: 1, DiscountPercent: decimal.Zero}
	r, err := s.PlaceOrder(ctx, cmd, order.Decide(cmd))
	require.NoError(t, err)
	assert.Equal(t, 4, r.RemainingStock)

	// A stays blocked until its holder releases; the waiter gives up cleanly.
	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	cmd.ProductID = a.ID
	_, err = s.PlaceOrder(short, cmd, order.Decide(cmd))
	assert.ErrorIs(t, err, apperr.ErrTransient)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	got, err := s.GetProduct(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
}

func TestRequestKeyReplay(t *testing.T) {
	s := New()
	p := seed(t, s, "Cetirizine", 5, "1200")

	cmd := order.PlaceOrder{ProductID: p.ID, Quantity: 2, DiscountPercent: decimal.Zero, RequestKey: "req-1"}
	first, err := s.PlaceOrder(context.Background(), cmd, order.Decide(cmd))
	require.NoError(t, err)
	again, err := s.PlaceOrder(context.Background(), cmd, order.Decide(cmd))
	require.NoError(t, err)

	assert.True(t, again.Replayed)
	assert.Equal(t, first.Order.ID, again.Order.ID)
	assert.Equal(t, 3, again.RemainingStock)

	got, err := s.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
}

func TestDeleteProduct(t *testing.T) {
	s := New()
	sold := seed(t, s, "Sold", 3, "10")
	unsold := seed(t, s, "Unsold", 3, "10")
	_, err := place(s, sold.ID, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteProduct(context.Background(), sold.ID), apperr.ErrProductInUse)
	require.NoError(t, s.DeleteProduct(context.Background(), unsold.ID))

	_, err = s.GetProduct(context.Background(), unsold.ID)
	assert.ErrorIs(t, err, apperr.ErrProductNotFound)
	_, err = place(s, unsold.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrProductNotFound)
}

func TestListProducts(t *testing.T) {
	s := New()
	seed(t, s, "Paracetamol", 10, "500")
	seed(t, s, "paracetamol syrup", 3, "1500")
	seed(t, s, "Amoxicillin", 7, "900")

	f, err := catalog.ProductFilter{Search: "PARA", SortBy: "stock"}.Normalize()
	require.NoError(t, err)
	got, total, err := s.ListProducts(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, "paracetamol syrup", got[0].Name)

	f, err = catalog.ProductFilter{Page: catalog.Page{Page: 2, Limit: 2}, SortBy: "price", Order: "desc"}.Normalize()
	require.NoError(t, err)
	got, total, err = s.ListProducts(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, got, 1)
	assert.Equal(t, "Paracetamol", got[0].Name)
}

func TestGroupedOrdersAndAnalytics(t *testing.T) {
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return clock }))
	a := seed(t, s, "A", 100, "10")
	b := seed(t, s, "B", 100, "20")

	_, err := place(s, a.ID, 2)
	require.NoError(t, err)
	clock = clock.Add(26 * time.Hour)
	_, err = place(s, b.ID, 5)
	require.NoError(t, err)
	_, err = place(s, a.ID, 1)
	require.NoError(t, err)

	f, err := order.OrderFilter{GroupBy: "product", SortBy: "quantity"}.Normalize()
	require.NoError(t, err)
	sales, total, err := s.ListProductSales(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, sales, 2)
	assert.Equal(t, b.ID, sales[0].ProductID)
	assert.Equal(t, int64(5), sales[0].Quantity)
	assert.Equal(t, int64(3), sales[1].Quantity)
	assert.Equal(t, int64(2), sales[1].Orders)
	assert.Equal(t, clock, sales[1].LatestAt)
	assert.True(t, sales[1].TotalPrice.Equal(decimal.NewFromInt(30)))

	revenue, qty, err := s.Analytics(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, revenue, 2)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), revenue[0].Day)
	assert.True(t, revenue[0].Revenue.Equal(decimal.NewFromInt(20)))
	assert.True(t, revenue[1].Revenue.Equal(decimal.NewFromInt(110)))
	require.Len(t, qty, 2)
	assert.Equal(t, b.ID, qty[0].ProductID)

	revenue, _, err = s.Analytics(context.Background(), clock.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, revenue, 1)
}

func TestListOrdersIsStableAcrossUnrelatedWrites(t *testing.T) {
	s := New()
	a := seed(t, s, "A", 10, "1")
	b := seed(t, s, "B", 10, "1")
	for i := 0; i < 3; i++ {
		_, err := place(s, a.ID, 1)
		require.NoError(t, err)
	}
	f, err := order.OrderFilter{SortBy: "id", Order: "asc", Page: catalog.Page{Page: 1, Limit: 3}}.Normalize()
	require.NoError(t, err)

	first, _, err := s.ListOrders(context.Background(), f)
	require.NoError(t, err)
	_, err = s.RestockProduct(context.Background(), b.ID, 4)
	require.NoError(t, err)
	second, _, err := s.ListOrders(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

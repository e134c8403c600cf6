package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fadhriza/indobat/internal/apperr"
	catalog "github.com/fadhriza/indobat/internal/catalog/domain"
)

func TestPlaceOrderValidate(t *testing.T) {
	require.NoError(t, PlaceOrder{ProductID: 1, Quantity: 1, DiscountPercent: decimal.Zero}.Validate())

	bad := map[string]PlaceOrder{
		"missing product": {Quantity: 1},
		"zero quantity":   {ProductID: 1},
		"discount > 100":  {ProductID: 1, Quantity: 1, DiscountPercent: decimal.NewFromInt(101)},
		"long key":        {ProductID: 1, Quantity: 1, RequestKey: strings.Repeat("k", MaxRequestKeyLen+1)},
		"padded key":      {ProductID: 1, Quantity: 1, RequestKey: " abc"},
	}
	for name, cmd := range bad {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, cmd.Validate(), apperr.ErrInvalidInput)
		})
	}
}

func TestDecide(t *testing.T) {
	p := catalog.Product{ID: 9, Name: "Amoxicillin", Stock: 5, Price: decimal.NewFromInt(1000)}

	o, err := Decide(PlaceOrder{ProductID: 9, Quantity: 3, DiscountPercent: decimal.NewFromInt(10)})(p)
	require.NoError(t, err)
	assert.True(t, o.TotalPrice.Equal(decimal.NewFromInt(2700)))
	assert.True(t, o.UnitPrice.Equal(p.Price))
	assert.Equal(t, 2, o.StockAfter)
	assert.Equal(t, "Amoxicillin", o.ProductName)

	_, err = Decide(PlaceOrder{ProductID: 9, Quantity: 6})(p)
	var ise *apperr.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 5, ise.Available)
	assert.Equal(t, 6, ise.Requested)
}

func TestPlaceOrderMatches(t *testing.T) {
	cmd := PlaceOrder{ProductID: 1, Quantity: 2, DiscountPercent: decimal.RequireFromString("5")}
	assert.True(t, cmd.Matches(Order{ProductID: 1, Quantity: 2, DiscountPercent: decimal.RequireFromString("5.00")}))
	assert.False(t, cmd.Matches(Order{ProductID: 1, Quantity: 3, DiscountPercent: decimal.RequireFromString("5")}))
	assert.False(t, cmd.Matches(Order{ProductID: 2, Quantity: 2, DiscountPercent: decimal.RequireFromString("5")}))
}

func TestOrderFilterNormalize(t *testing.T) {
	f, err := OrderFilter{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "created_at", f.SortBy)
	assert.Equal(t, catalog.Desc, f.Order)
	assert.False(t, f.Grouped())

	f, err = OrderFilter{GroupBy: "Product", SortBy: "quantity", Order: "asc"}.Normalize()
	require.NoError(t, err)
	assert.True(t, f.Grouped())
	assert.Equal(t, catalog.Asc, f.Order)

	_, err = OrderFilter{SortBy: "name"}.Normalize()
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = OrderFilter{GroupBy: "day"}.Normalize()
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	w, err := ParseWindow("")
	require.NoError(t, err)
	assert.Equal(t, Window7d, w)
	assert.Equal(t, time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC), w.Since(now))

	assert.Equal(t, now.Add(-24*time.Hour), Window24h.Since(now))
	assert.Equal(t, time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC), Window4w.Since(now))
	assert.True(t, WindowAll.Since(now).IsZero())

	_, err = ParseWindow("1y")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

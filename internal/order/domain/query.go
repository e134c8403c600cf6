package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fadhriza/indobat/internal/apperr"
	catalog "github.com/fadhriza/indobat/internal/catalog/domain"
)

const GroupByProduct = "product"

var orderSortFields = map[string]bool{"id": true, "quantity": true, "total_price": true, "created_at": true}

type OrderFilter struct {
	catalog.Page
	SortBy  string
	Order   catalog.SortOrder
	GroupBy string
}

func (f OrderFilter) Normalize() (OrderFilter, error) {
	var err error
	if f.Page, err = f.Page.Normalize(); err != nil {
		return f, err
	}
	if f.SortBy == "" {
		f.SortBy = "created_at"
	}
	if !orderSortFields[f.SortBy] {
		return f, apperr.Invalid("sortBy must be one of id, quantity, total_price, created_at")
	}
	if f.Order, err = catalog.ParseSortOrder(string(f.Order), catalog.Desc); err != nil {
		return f, err
	}
	f.GroupBy = strings.ToLower(strings.TrimSpace(f.GroupBy))
	if f.GroupBy != "" && f.GroupBy != GroupByProduct {
		return f, apperr.Invalid("groupBy must be empty or product")
	}
	return f, nil
}

func (f OrderFilter) Grouped() bool { return f.GroupBy == GroupByProduct }

// ProductSales is one row of the grouped order view. Sorting by "id" means
// product id; the other sort names apply to the aggregates.
type ProductSales struct {
	ProductID   int64
	ProductName string
	Quantity    int64
	TotalPrice  decimal.Decimal
	Orders      int64
	LatestAt    time.Time
}

// Window is an analytics time window.
type Window string

const (
	Window24h Window = "24h"
	Window7d  Window = "7d"
	Window4w  Window = "4w"
	WindowAll Window = "all"
)

func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case "":
		return Window7d, nil
	case Window24h, Window7d, Window4w, WindowAll:
		return w, nil
	}
	return "", apperr.Invalid("window must be one of 24h, 7d, 4w, all")
}

// Since returns the inclusive lower bound of w relative to now; the zero
// time means unbounded.
func (w Window) Since(now time.Time) time.Time {
	switch w {
	case Window24h:
		return now.Add(-24 * time.Hour)
	case Window7d:
		return now.AddDate(0, 0, -7)
	case Window4w:
		return now.AddDate(0, 0, -28)
	}
	return time.Time{}
}

type DayRevenue struct {
	Day     time.Time
	Revenue decimal.Decimal
}

type ProductQuantity struct {
	ProductID   int64
	ProductName string
	Quantity    int64
}

type Analytics struct {
	Window            Window
	RevenueByDay      []DayRevenue
	QuantityByProduct []ProductQuantity
}

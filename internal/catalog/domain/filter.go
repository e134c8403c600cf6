package domain

import (
	"math"
	"strings"

	"github.com/fadhriza/indobat/internal/apperr"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps Offset within an int32 for every allowed limit.
	MaxPage = math.MaxInt32 / MaxLimit
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// ParseSortOrder accepts "", "asc" and "desc" in any case.
func ParseSortOrder(s string, def SortOrder) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	}
	return "", apperr.Invalid("order must be asc or desc")
}

// Page is the shared pagination window.
type Page struct {
	Page  int
	Limit int
}

// Normalize applies defaults and rejects negative or oversized windows.
func (p Page) Normalize() (Page, error) {
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Page < 1 || p.Page > MaxPage {
		return p, apperr.Invalid("page must be between 1 and %d", MaxPage)
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return p, apperr.Invalid("limit must be between 1 and %d", MaxLimit)
	}
	return p, nil
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

var productSortFields = map[string]bool{"id": true, "name": true, "stock": true, "price": true}

type ProductFilter struct {
	Page
	Search string
	SortBy string
	Order  SortOrder
}

func (f ProductFilter) Normalize() (ProductFilter, error) {
	var err error
	if f.Page, err = f.Page.Normalize(); err != nil {
		return f, err
	}
	f.Search = strings.TrimSpace(f.Search)
	if f.SortBy == "" {
		f.SortBy = "id"
	}
	if !productSortFields[f.SortBy] {
		return f, apperr.Invalid("sortBy must be one of id, name, stock, price")
	}
	if f.Order, err = ParseSortOrder(string(f.Order), Asc); err != nil {
		return f, err
	}
	return f, nil
}

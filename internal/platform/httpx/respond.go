// Package httpx holds the JSON response helpers and middleware shared by the
// catalog and order handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/fadhriza/indobat/internal/apperr"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error     string `json:"error"`
	Available *int   `json:"available,omitempty"`
}

// PageBody is the envelope of every paginated listing.
type PageBody[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusOf maps the error taxonomy onto HTTP status codes.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrProductNotFound), errors.Is(err, apperr.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInsufficientStock), errors.Is(err, apperr.ErrProductInUse):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrTransient), errors.Is(err, apperr.ErrConflict):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// WriteError writes {"error": ...}. Insufficient stock also reports the
// available quantity. Messages of unclassified errors are not exposed.
func WriteError(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	body := errorBody{Error: err.Error()}

	var ise *apperr.InsufficientStockError
	switch {
	case errors.As(err, &ise):
		body.Available = &ise.Available
	case status == http.StatusServiceUnavailable:
		body.Error = "temporarily unavailable, retry the request"
	case status == http.StatusInternalServerError:
		body.Error = "internal error"
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status,
			"request_id", RequestIDFromContext(r.Context()), "err", err)
	}
	WriteJSON(w, status, body)
}

// DecodeJSON reads exactly one JSON object into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Invalid("malformed body: %v", err)
	}
	if dec.More() {
		return apperr.Invalid("malformed body: trailing data")
	}
	return nil
}

// QueryInt parses an optional integer query parameter; absent means 0.
func QueryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Invalid("%s must be an integer", name)
	}
	return n, nil
}

// PathID parses a positive int64 path segment; anything else is reported
// with notFound.
func PathID(raw string, notFound error) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %q", notFound, raw)
	}
	return id, nil
}

// Money renders d with two decimals as a JSON number.
func Money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// Package server assembles the HTTP API.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	cataloghttp "github.com/fadhriza/indobat/internal/catalog/infrastructure/http"
	orderhttp "github.com/fadhriza/indobat/internal/order/infrastructure/http"
	"github.com/fadhriza/indobat/internal/platform/httpx"
)

// Pinger reports whether the storage backend is reachable.
type Pinger func(ctx context.Context) error

// NewRouter mounts the API. CORS is enabled only for the listed origins.
func NewRouter(log *slog.Logger, products *cataloghttp.Handler, orders *orderhttp.Handler, ping Pinger, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(httpx.RequestID)
	r.Use(httpx.Logging(log))
	r.Use(middleware.Recoverer)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", orderhttp.IdempotencyKeyHeader, httpx.RequestIDHeader},
			ExposedHeaders: []string{httpx.RequestIDHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			log.Warn("health check failed", "err", err)
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		products.Routes(r)
		orders.Routes(r)
	})
	return r
}

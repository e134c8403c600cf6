package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fadhriza/indobat/internal/apperr"
	"github.com/fadhriza/indobat/internal/catalog/application"
	"github.com/fadhriza/indobat/internal/catalog/domain"
	"github.com/fadhriza/indobat/internal/platform/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("catalog-http"),
	}
}

type productReq struct {
	Name  *string          `json:"name"`
	Stock *int             `json:"stock"`
	Price *decimal.Decimal `json:"price"`
}

func (req productReq) input() (domain.ProductInput, error) {
	switch {
	case req.Name == nil:
		return domain.ProductInput{}, apperr.Invalid("name is required")
	case req.Stock == nil:
		return domain.ProductInput{}, apperr.Invalid("stock is required")
	case req.Price == nil:
		return domain.ProductInput{}, apperr.Invalid("price is required")
	}
	return domain.ProductInput{Name: *req.Name, Stock: *req.Stock, Price: *req.Price}, nil
}

type restockReq struct {
	Quantity *int `json:"quantity"`
}

type productResp struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Stock     int         `json:"stock"`
	Price     json.Number `json:"price"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func toProductResp(p domain.Product) productResp {
	return productResp{
		ID:        p.ID,
		Name:      p.Name,
		Stock:     p.Stock,
		Price:     httpx.Money(p.Price),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/products", h.list)
	r.Post("/products", h.create)
	r.Get("/products/{id}", h.get)
	r.Put("/products/{id}", h.update)
	r.Delete("/products/{id}", h.delete)
	r.Post("/products/{id}/restock", h.restock)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateProduct")
	defer span.End()

	var req productReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	p, err := h.service.Create(ctx, in)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	span.SetAttributes(attribute.Int64("product.id", p.ID))
	httpx.WriteJSON(w, http.StatusCreated, toProductResp(p))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetProduct")
	defer span.End()

	id, err := httpx.PathID(chi.URLParam(r, "id"), apperr.ErrProductNotFound)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	span.SetAttributes(attribute.Int64("product.id", id))
	p, err := h.service.Get(ctx, id)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProductResp(p))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateProduct")
	defer span.End()

	id, err := httpx.PathID(chi.URLParam(r, "id"), apperr.ErrProductNotFound)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	span.SetAttributes(attribute.Int64("product.id", id))
	var req productReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	p, err := h.service.Update(ctx, id, in)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProductResp(p))
}

func (h *Handler) restock(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RestockProduct")
	defer span.End()

	id, err := httpx.PathID(chi.URLParam(r, "id"), apperr.ErrProductNotFound)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	span.SetAttributes(attribute.Int64("product.id", id))
	var req restockReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(h.log, w, r, apperr.Invalid("quantity is required"))
		return
	}
	p, err := h.service.Restock(ctx, id, *req.Quantity)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProductResp(p))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DeleteProduct")
	defer span.End()

	id, err := httpx.PathID(chi.URLParam(r, "id"), apperr.ErrProductNotFound)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	span.SetAttributes(attribute.Int64("product.id", id))
	if err := h.service.Delete(ctx, id); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListProducts")
	defer span.End()

	page, err := httpx.QueryInt(r, "page")
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	limit, err := httpx.QueryInt(r, "limit")
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	q := r.URL.Query()
	res, err := h.service.List(ctx, domain.ProductFilter{
		Page:   domain.Page{Page: page, Limit: limit},
		Search: q.Get("search"),
		SortBy: q.Get("sortBy"),
		Order:  domain.SortOrder(q.Get("order")),
	})
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	data := make([]productResp, 0, len(res.Products))
	for _, p := range res.Products {
		data = append(data, toProductResp(p))
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.PageBody[productResp]{Data: data, Total: res.Total, Page: res.Page, Limit: res.Limit})
}

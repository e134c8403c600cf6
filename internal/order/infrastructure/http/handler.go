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
	catalog "github.com/fadhriza/indobat/internal/catalog/domain"
	"github.com/fadhriza/indobat/internal/order/application"
	"github.com/fadhriza/indobat/internal/order/domain"
	"github.com/fadhriza/indobat/internal/platform/httpx"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
	}
}

// Pointers tell a missing field apart from an explicit zero.
type createOrderReq struct {
	ProductID       *int64           `json:"product_id"`
	Quantity        *int             `json:"quantity"`
	DiscountPercent *decimal.Decimal `json:"discount_percent"`
}

type receiptResp struct {
	OrderID        int64       `json:"order_id"`
	ProductID      int64       `json:"product_id"`
	ProductName    string      `json:"product_name"`
	Quantity       int         `json:"quantity"`
	TotalPrice     json.Number `json:"total_price"`
	RemainingStock int         `json:"remaining_stock"`
	Replayed       bool        `json:"replayed"`
}

type orderResp struct {
	ID              int64       `json:"id"`
	ProductID       int64       `json:"product_id"`
	ProductName     string      `json:"product_name"`
	Quantity        int         `json:"quantity"`
	DiscountPercent json.Number `json:"discount_percent"`
	UnitPrice       json.Number `json:"unit_price"`
	TotalPrice      json.Number `json:"total_price"`
	StockAfter      int         `json:"stock_after"`
	CreatedAt       time.Time   `json:"created_at"`
}

type productSalesResp struct {
	ProductID   int64       `json:"product_id"`
	ProductName string      `json:"product_name"`
	Quantity    int64       `json:"quantity"`
	TotalPrice  json.Number `json:"total_price"`
	Orders      int64       `json:"orders"`
	LatestAt    time.Time   `json:"latest_at"`
}

type dayRevenueResp struct {
	Day     string      `json:"day"`
	Revenue json.Number `json:"revenue"`
}

type productQuantityResp struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
}

type analyticsResp struct {
	Window            domain.Window         `json:"window"`
	RevenueByDay      []dayRevenueResp      `json:"revenue_by_day"`
	QuantityByProduct []productQuantityResp `json:"quantity_by_product"`
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Post("/order", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/analytics", h.analytics)
	r.Get("/orders/{id}", h.getOrder)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	if req.ProductID == nil {
		httpx.WriteError(h.log, w, r, apperr.Invalid("product_id is required"))
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(h.log, w, r, apperr.Invalid("quantity is required"))
		return
	}
	cmd := domain.PlaceOrder{
		ProductID:       *req.ProductID,
		Quantity:        *req.Quantity,
		DiscountPercent: decimal.Zero,
		RequestKey:      r.Header.Get(IdempotencyKeyHeader),
	}
	if req.DiscountPercent != nil {
		cmd.DiscountPercent = *req.DiscountPercent
	}
	span.SetAttributes(attribute.Int64("product.id", cmd.ProductID))

	receipt, err := h.service.PlaceOrder(ctx, cmd)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	o := receipt.Order
	httpx.WriteJSON(w, http.StatusCreated, receiptResp{
		OrderID:        o.ID,
		ProductID:      o.ProductID,
		ProductName:    o.ProductName,
		Quantity:       o.Quantity,
		TotalPrice:     httpx.Money(o.TotalPrice),
		RemainingStock: receipt.RemainingStock,
		Replayed:       receipt.Replayed,
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(chi.URLParam(r, "id"), apperr.ErrOrderNotFound)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	o, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toOrderResp(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
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
	res, err := h.service.ListOrders(r.Context(), domain.OrderFilter{
		Page:    catalog.Page{Page: page, Limit: limit},
		SortBy:  q.Get("sortBy"),
		Order:   catalog.SortOrder(q.Get("order")),
		GroupBy: q.Get("groupBy"),
	})
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	if res.Grouped != nil {
		data := make([]productSalesResp, 0, len(res.Grouped))
		for _, ps := range res.Grouped {
			data = append(data, productSalesResp{
				ProductID:   ps.ProductID,
				ProductName: ps.ProductName,
				Quantity:    ps.Quantity,
				TotalPrice:  httpx.Money(ps.TotalPrice),
				Orders:      ps.Orders,
				LatestAt:    ps.LatestAt,
			})
		}
		httpx.WriteJSON(w, http.StatusOK, httpx.PageBody[productSalesResp]{Data: data, Total: res.Total, Page: res.Page, Limit: res.Limit})
		return
	}
	data := make([]orderResp, 0, len(res.Orders))
	for _, o := range res.Orders {
		data = append(data, toOrderResp(o))
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.PageBody[orderResp]{Data: data, Total: res.Total, Page: res.Page, Limit: res.Limit})
}

func (h *Handler) analytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Analytics(r.Context(), r.URL.Query().Get("window"))
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	resp := analyticsResp{
		Window:            a.Window,
		RevenueByDay:      make([]dayRevenueResp, 0, len(a.RevenueByDay)),
		QuantityByProduct: make([]productQuantityResp, 0, len(a.QuantityByProduct)),
	}
	for _, d := range a.RevenueByDay {
		resp.RevenueByDay = append(resp.RevenueByDay, dayRevenueResp{Day: d.Day.Format(time.DateOnly), Revenue: httpx.Money(d.Revenue)})
	}
	for _, pq := range a.QuantityByProduct {
		resp.QuantityByProduct = append(resp.QuantityByProduct, productQuantityResp(pq))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func toOrderResp(o domain.Order) orderResp {
	return orderResp{
		ID:              o.ID,
		ProductID:       o.ProductID,
		ProductName:     o.ProductName,
		Quantity:        o.Quantity,
		DiscountPercent: httpx.Money(o.DiscountPercent),
		UnitPrice:       httpx.Money(o.UnitPrice),
		TotalPrice:      httpx.Money(o.TotalPrice),
		StockAfter:      o.StockAfter,
		CreatedAt:       o.CreatedAt,
	}
}

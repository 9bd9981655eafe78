package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/base2-shop/api/internal/database"
	"github.com/base2-shop/api/internal/middleware"
	"github.com/base2-shop/api/internal/pricing"
	"github.com/base2-shop/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	UpdateStatus(ctx context.Context, id int64, status string) (database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	CountOrders(ctx context.Context, filter database.OrderFilter) (int64, error)
	ListOrderItemsByOrderIDs(ctx context.Context, orderIDs []int64) ([]database.OrderItem, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc         OrderServicer
	store       OrderStore
	readTimeout time.Duration
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, readTimeout time.Duration) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, readTimeout: readTimeout}
}

// RegisterPublicRoutes registers the storefront endpoint. Expected to sit
// behind OptionalAuthenticate.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/", h.Create)
}

// RegisterAdminRoutes registers the back-office order endpoints.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Put("/{id}/status", h.UpdateStatus)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	Items               []createOrderItemRequest `json:"items" validate:"required,min=1,dive"`
	CustomerName        string                   `json:"customer_name" validate:"required,max=255"`
	CustomerPhone       string                   `json:"customer_phone" validate:"required,max=50"`
	SpecialInstructions string                   `json:"special_instructions" validate:"max=2000"`
}

type createOrderItemRequest struct {
	ID       int64 `json:"id" validate:"gt=0"`
	Quantity int32 `json:"quantity" validate:"gte=1,lte=9999"`
}

type createOrderResponse struct {
	ID         int64  `json:"id"`
	TotalPrice string `json:"total_price"`
	Status     string `json:"status"`
}

type orderResponse struct {
	ID                  int64               `json:"id"`
	UserID              *int64              `json:"user_id"`
	TotalPrice          string              `json:"total_price"`
	CustomerName        string              `json:"customer_name"`
	CustomerPhone       string              `json:"customer_phone"`
	SpecialInstructions *string             `json:"special_instructions"`
	Status              string              `json:"status"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
	Items               []orderItemResponse `json:"items"`
}

type orderItemResponse struct {
	ID          int64  `json:"id"`
	MenuItemID  *int64 `json:"menu_item_id"`
	ItemName    string `json:"item_name"`
	Quantity    int32  `json:"quantity"`
	PriceAtTime string `json:"price_at_time"`
}

type orderListResponse struct {
	Success bool            `json:"success"`
	Data    []orderResponse `json:"data"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// --- Handlers ---

// Create handles POST /api/orders. Every domain failure is reported as 400.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[createOrderRequest](w, r)
	if !ok {
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.CreateOrderItemRequest{MenuItemID: item.ID, Quantity: item.Quantity}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		Principal:           middleware.PrincipalFromContext(r.Context()),
		CustomerName:        req.CustomerName,
		CustomerPhone:       req.CustomerPhone,
		SpecialInstructions: req.SpecialInstructions,
		Items:               items,
	})
	if err != nil {
		if errorStatus(err) != 0 {
			writeFail(w, http.StatusBadRequest, err.Error())
			return
		}
		writeInternal(w, "create order", err)
		return
	}

	writeData(w, http.StatusCreated, "Order placed successfully", createOrderResponse{
		ID:         result.Order.ID,
		TotalPrice: database.FormatNumeric(result.Order.TotalPrice, pricing.CurrencyPlaces),
		Status:     result.Order.Status,
	})
}

// List handles GET /api/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaging(r, 50, 200)

	filter := database.OrderFilter{
		Status: r.URL.Query().Get("status"),
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
	}
	var ok bool
	if filter.StartDate, ok = parseDate(w, r, "startDate"); !ok {
		return
	}
	if filter.EndDate, ok = parseDate(w, r, "endDate"); !ok {
		return
	}

	ctx, cancel := readContext(r, h.readTimeout)
	defer cancel()

	orders, err := h.store.ListOrders(ctx, database.ListOrdersParams{
		Filter: filter,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		writeReadError(w, "list orders", "order not found", err)
		return
	}
	total, err := h.store.CountOrders(ctx, filter)
	if err != nil {
		writeReadError(w, "count orders", "order not found", err)
		return
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	byOrder := map[int64][]orderItemResponse{}
	if len(ids) > 0 {
		items, err := h.store.ListOrderItemsByOrderIDs(ctx, ids)
		if err != nil {
			writeReadError(w, "list order items", "order not found", err)
			return
		}
		for _, it := range items {
			byOrder[it.OrderID] = append(byOrder[it.OrderID], toOrderItemResponse(it))
		}
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, byOrder[o.ID])
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Success: true,
		Data:    resp,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// UpdateStatus handles PUT/PATCH /api/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	req, ok := decodeRequest[updateStatusRequest](w, r)
	if !ok {
		return
	}

	order, err := h.svc.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}

	ctx, cancel := readContext(r, h.readTimeout)
	defer cancel()
	items, err := h.store.ListOrderItemsByOrderIDs(ctx, []int64{order.ID})
	if err != nil {
		writeReadError(w, "list order items", "order not found", err)
		return
	}
	lines := make([]orderItemResponse, len(items))
	for i, it := range items {
		lines[i] = toOrderItemResponse(it)
	}

	writeData(w, http.StatusOK, "Order status updated", toOrderResponse(order, lines))
}

// --- Helpers ---

func toOrderResponse(o database.Order, items []orderItemResponse) orderResponse {
	if items == nil {
		items = []orderItemResponse{}
	}
	resp := orderResponse{
		ID:            o.ID,
		TotalPrice:    database.FormatNumeric(o.TotalPrice, pricing.CurrencyPlaces),
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Items:         items,
	}
	if o.UserID.Valid {
		resp.UserID = &o.UserID.Int64
	}
	if o.SpecialInstructions.Valid {
		resp.SpecialInstructions = &o.SpecialInstructions.String
	}
	return resp
}

func toOrderItemResponse(it database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:          it.ID,
		ItemName:    it.ItemName,
		Quantity:    it.Quantity,
		PriceAtTime: database.FormatNumeric(it.PriceAtTime, pricing.CurrencyPlaces),
	}
	if it.MenuItemID.Valid {
		resp.MenuItemID = &it.MenuItemID.Int64
	}
	return resp
}

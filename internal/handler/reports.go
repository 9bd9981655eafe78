package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/base2-shop/api/internal/database"
	"github.com/base2-shop/api/internal/pricing"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	GetDailySales(ctx context.Context) ([]database.GetDailySalesRow, error)
	GetPopularItems(ctx context.Context) ([]database.GetPopularItemsRow, error)
	GetOrderStats(ctx context.Context) (database.GetOrderStatsRow, error)
}

// ReportsHandler handles order analytics.
type ReportsHandler struct {
	store       ReportsStore
	readTimeout time.Duration
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportsStore, readTimeout time.Duration) *ReportsHandler {
	return &ReportsHandler{store: store, readTimeout: readTimeout}
}

// RegisterRoutes registers report endpoints. Expected under /api/orders.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/analytics", h.Analytics)
}

// --- Response types ---

type dailySalesResponse struct {
	Date    string `json:"date"`
	Revenue string `json:"revenue"`
	Orders  int64  `json:"orders"`
}

type popularItemResponse struct {
	ItemName string `json:"item_name"`
	Count    int64  `json:"count"`
}

type orderStatsResponse struct {
	TotalOrders   int64  `json:"total_orders"`
	TotalRevenue  string `json:"total_revenue"`
	AvgOrderValue string `json:"avg_order_value"`
}

type analyticsResponse struct {
	DailySales   []dailySalesResponse  `json:"daily_sales"`
	PopularItems []popularItemResponse `json:"popular_items"`
	Stats        orderStatsResponse    `json:"stats"`
}

// --- Handlers ---

// Analytics returns 30-day daily revenue (cancelled excluded), the five
// best-selling items and overall order stats.
func (h *ReportsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := readContext(r, h.readTimeout)
	defer cancel()

	daily, err := h.store.GetDailySales(ctx)
	if err != nil {
		writeReadError(w, "get daily sales", "no data", err)
		return
	}
	popular, err := h.store.GetPopularItems(ctx)
	if err != nil {
		writeReadError(w, "get popular items", "no data", err)
		return
	}
	stats, err := h.store.GetOrderStats(ctx)
	if err != nil {
		writeReadError(w, "get order stats", "no data", err)
		return
	}

	resp := analyticsResponse{
		DailySales:   make([]dailySalesResponse, len(daily)),
		PopularItems: make([]popularItemResponse, len(popular)),
		Stats: orderStatsResponse{
			TotalOrders:   stats.TotalOrders,
			TotalRevenue:  database.FormatNumeric(stats.TotalRevenue, pricing.CurrencyPlaces),
			AvgOrderValue: database.FormatNumeric(stats.AvgOrderValue, pricing.CurrencyPlaces),
		},
	}
	for i, row := range daily {
		resp.DailySales[i] = dailySalesResponse{
			Date:    row.Date,
			Revenue: database.FormatNumeric(row.Revenue, pricing.CurrencyPlaces),
			Orders:  row.Orders,
		}
	}
	for i, row := range popular {
		resp.PopularItems[i] = popularItemResponse{ItemName: row.ItemName, Count: row.Count}
	}

	writeData(w, http.StatusOK, "", resp)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gocarina/gocsv"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/base2-shop/api/internal/auth"
	"github.com/base2-shop/api/internal/database"
	"github.com/base2-shop/api/internal/middleware"
	"github.com/base2-shop/api/internal/pricing"
	"github.com/base2-shop/api/internal/service"
)

const (
	exportLimit = 10000
	dateLayout  = "2006-01-02"
)

// WorkOrderServicer defines the service methods needed by work order handlers.
// Satisfied by *service.WorkOrderService; narrow interface for testability.
type WorkOrderServicer interface {
	Create(ctx context.Context, principal auth.Principal, in service.WorkOrderInput) (*service.WorkOrderResult, error)
	Update(ctx context.Context, id int64, in service.WorkOrderInput) (*service.WorkOrderResult, error)
	SetStatus(ctx context.Context, id int64, status string) (database.WorkOrder, error)
	Delete(ctx context.Context, id int64) error
}

// WorkOrderStore defines the database methods needed by work order reads.
// Satisfied by *database.Queries; narrow interface for testability.
type WorkOrderStore interface {
	GetWorkOrder(ctx context.Context, id int64) (database.GetWorkOrderRow, error)
	ListWorkOrderItems(ctx context.Context, workOrderID int64) ([]database.WorkOrderItem, error)
	ListWorkOrders(ctx context.Context, arg database.ListWorkOrdersParams) ([]database.ListWorkOrdersRow, error)
	CountWorkOrders(ctx context.Context, filter database.WorkOrderFilter) (int64, error)
}

// WorkOrderRenderer renders a printable work order. Satisfied by
// *document.Renderer.
type WorkOrderRenderer interface {
	RenderWorkOrder(w io.Writer, wo database.GetWorkOrderRow, items []database.WorkOrderItem) error
}

// WorkOrderHandler handles work order endpoints.
type WorkOrderHandler struct {
	svc         WorkOrderServicer
	store       WorkOrderStore
	renderer    WorkOrderRenderer
	readTimeout time.Duration
}

// NewWorkOrderHandler creates a new WorkOrderHandler.
func NewWorkOrderHandler(svc WorkOrderServicer, store WorkOrderStore, renderer WorkOrderRenderer, readTimeout time.Duration) *WorkOrderHandler {
	return &WorkOrderHandler{svc: svc, store: store, renderer: renderer, readTimeout: readTimeout}
}

// RegisterRoutes registers work order endpoints. Expected to be mounted
// behind admin authentication at /api/workorders.
func (h *WorkOrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/export.csv", h.ExportCSV)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/pdf", h.PDF)
}

// --- Request / Response types ---

// looseInt accepts a JSON integer or a numeric string. null and "" leave
// it unset.
type looseInt struct {
	v   int32
	set bool
}

func (n *looseInt) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid integer %q", s)
	}
	n.v, n.set = int32(v), true
	return nil
}

func (n looseInt) ptr() *int32 {
	if !n.set {
		return nil
	}
	v := n.v
	return &v
}

type workOrderRequest struct {
	ClientName          *string                `json:"clientName" validate:"omitempty,max=255"`
	ClientAddress       *string                `json:"clientAddress" validate:"omitempty,max=255"`
	ClientCity          *string                `json:"clientCity" validate:"omitempty,max=100"`
	ClientState         *string                `json:"clientState" validate:"omitempty,max=50"`
	ClientZip           *string                `json:"clientZip" validate:"omitempty,max=20"`
	ClientPhone         *string                `json:"clientPhone" validate:"omitempty,max=50"`
	ClientDlLicense     *string                `json:"clientDlLicense" validate:"omitempty,max=50"`
	VehicleVin          *string                `json:"vehicleVin" validate:"omitempty,max=50"`
	VehicleOdometer     looseInt               `json:"vehicleOdometer"`
	VehicleYear         looseInt               `json:"vehicleYear"`
	VehicleMake         *string                `json:"vehicleMake" validate:"omitempty,max=100"`
	VehicleModel        *string                `json:"vehicleModel" validate:"omitempty,max=100"`
	VehicleLicensePlate *string                `json:"vehicleLicensePlate" validate:"omitempty,max=20"`
	Items               []workOrderItemRequest `json:"items" validate:"omitempty,dive"`
	TaxRate             *looseNumber           `json:"taxRate"`
	ClientSalePrice     *looseNumber           `json:"clientSalePrice"`
	OtherComments       *string                `json:"otherComments"`
	Status              *string                `json:"status"`
}

type workOrderItemRequest struct {
	Description string      `json:"description" validate:"required,max=500"`
	Taxed       *bool       `json:"taxed"`
	UnitPrice   looseNumber `json:"unitPrice"`
	Quantity    int32       `json:"quantity" validate:"gte=1,lte=9999"`
}

func (req *workOrderRequest) toInput() service.WorkOrderInput {
	in := service.WorkOrderInput{
		ClientName:          req.ClientName,
		ClientAddress:       req.ClientAddress,
		ClientCity:          req.ClientCity,
		ClientState:         req.ClientState,
		ClientZip:           req.ClientZip,
		ClientPhone:         req.ClientPhone,
		ClientDlLicense:     req.ClientDlLicense,
		VehicleVin:          req.VehicleVin,
		VehicleOdometer:     req.VehicleOdometer.ptr(),
		VehicleYear:         req.VehicleYear.ptr(),
		VehicleMake:         req.VehicleMake,
		VehicleModel:        req.VehicleModel,
		VehicleLicensePlate: req.VehicleLicensePlate,
		TaxRate:             req.TaxRate.ptr(),
		ClientSalePrice:     req.ClientSalePrice.ptr(),
		OtherComments:       req.OtherComments,
		Status:              req.Status,
	}
	if req.Items != nil {
		in.Items = make([]service.WorkOrderItemInput, len(req.Items))
		for i, it := range req.Items {
			in.Items[i] = service.WorkOrderItemInput{
				Description: it.Description,
				Taxed:       it.Taxed,
				UnitPrice:   string(it.UnitPrice),
				Quantity:    it.Quantity,
			}
		}
	}
	return in
}

type workOrderResponse struct {
	ID                  int64                   `json:"id"`
	WorkOrderNumber     string                  `json:"work_order_number"`
	Date                *string                 `json:"date"`
	ClientName          string                  `json:"client_name"`
	ClientAddress       *string                 `json:"client_address"`
	ClientCity          *string                 `json:"client_city"`
	ClientState         *string                 `json:"client_state"`
	ClientZip           *string                 `json:"client_zip"`
	ClientPhone         *string                 `json:"client_phone"`
	ClientDlLicense     *string                 `json:"client_dl_license"`
	VehicleVin          *string                 `json:"vehicle_vin"`
	VehicleOdometer     *int32                  `json:"vehicle_odometer"`
	VehicleYear         *int32                  `json:"vehicle_year"`
	VehicleMake         *string                 `json:"vehicle_make"`
	VehicleModel        *string                 `json:"vehicle_model"`
	VehicleLicensePlate *string                 `json:"vehicle_license_plate"`
	Subtotal            string                  `json:"subtotal"`
	TaxRate             string                  `json:"tax_rate"`
	TaxAmount           string                  `json:"tax_amount"`
	Total               string                  `json:"total"`
	ClientSalePrice     *string                 `json:"client_sale_price"`
	Profit              *string                 `json:"profit"`
	OtherComments       *string                 `json:"other_comments"`
	Status              string                  `json:"status"`
	CreatedBy           *int64                  `json:"created_by"`
	CreatedByName       *string                 `json:"created_by_name,omitempty"`
	ItemCount           *int64                  `json:"item_count,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
	Items               []workOrderItemResponse `json:"items,omitempty"`
}

type workOrderItemResponse struct {
	ID          int64  `json:"id"`
	WorkOrderID int64  `json:"work_order_id"`
	Description string `json:"description"`
	Taxed       bool   `json:"taxed"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int32  `json:"quantity"`
	Total       string `json:"total"`
}

type workOrderEnvelope struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message,omitempty"`
	WorkOrder workOrderResponse `json:"workOrder"`
}

type workOrderListResponse struct {
	Success    bool                `json:"success"`
	WorkOrders []workOrderResponse `json:"workOrders"`
	Total      int64               `json:"total"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

// workOrderCSVRow is one line of the CSV export.
type workOrderCSVRow struct {
	Number     string `csv:"work_order_number"`
	Date       string `csv:"date"`
	ClientName string `csv:"client_name"`
	Phone      string `csv:"client_phone"`
	Vehicle    string `csv:"vehicle"`
	VIN        string `csv:"vehicle_vin"`
	Status     string `csv:"status"`
	ItemCount  int64  `csv:"item_count"`
	Subtotal   string `csv:"subtotal"`
	TaxRate    string `csv:"tax_rate"`
	TaxAmount  string `csv:"tax_amount"`
	Total      string `csv:"total"`
	SalePrice  string `csv:"client_sale_price"`
	Profit     string `csv:"profit"`
	CreatedBy  string `csv:"created_by"`
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func toWorkOrderResponse(wo database.WorkOrder, items []database.WorkOrderItem) workOrderResponse {
	resp := workOrderResponse{
		ID:                  wo.ID,
		WorkOrderNumber:     wo.WorkOrderNumber,
		ClientName:          wo.ClientName,
		ClientAddress:       textPtr(wo.ClientAddress),
		ClientCity:          textPtr(wo.ClientCity),
		ClientState:         textPtr(wo.ClientState),
		ClientZip:           textPtr(wo.ClientZip),
		ClientPhone:         textPtr(wo.ClientPhone),
		ClientDlLicense:     textPtr(wo.ClientDlLicense),
		VehicleVin:          textPtr(wo.VehicleVin),
		VehicleMake:         textPtr(wo.VehicleMake),
		VehicleModel:        textPtr(wo.VehicleModel),
		VehicleLicensePlate: textPtr(wo.VehicleLicensePlate),
		Subtotal:            database.FormatNumeric(wo.Subtotal, pricing.CurrencyPlaces),
		TaxRate:             database.FormatNumeric(wo.TaxRate, service.TaxRatePlaces),
		TaxAmount:           database.FormatNumeric(wo.TaxAmount, pricing.CurrencyPlaces),
		Total:               database.FormatNumeric(wo.Total, pricing.CurrencyPlaces),
		ClientSalePrice:     database.FormatNullableNumeric(wo.ClientSalePrice, pricing.CurrencyPlaces),
		Profit:              database.FormatNullableNumeric(wo.Profit, pricing.CurrencyPlaces),
		OtherComments:       textPtr(wo.OtherComments),
		Status:              wo.Status,
		CreatedAt:           wo.CreatedAt,
		UpdatedAt:           wo.UpdatedAt,
	}
	if wo.Date.Valid {
		d := wo.Date.Time.Format(dateLayout)
		resp.Date = &d
	}
	if wo.VehicleOdometer.Valid {
		resp.VehicleOdometer = &wo.VehicleOdometer.Int32
	}
	if wo.VehicleYear.Valid {
		resp.VehicleYear = &wo.VehicleYear.Int32
	}
	if wo.CreatedBy.Valid {
		resp.CreatedBy = &wo.CreatedBy.Int64
	}
	if items != nil {
		resp.Items = make([]workOrderItemResponse, len(items))
		for i, it := range items {
			resp.Items[i] = workOrderItemResponse{
				ID:          it.ID,
				WorkOrderID: it.WorkOrderID,
				Description: it.Description,
				Taxed:       it.Taxed,
				UnitPrice:   database.FormatNumeric(it.UnitPrice, pricing.CurrencyPlaces),
				Quantity:    it.Quantity,
				Total:       database.FormatNumeric(it.Total, pricing.CurrencyPlaces),
			}
		}
	}
	return resp
}

func toWorkOrderCSVRow(row database.ListWorkOrdersRow) workOrderCSVRow {
	wo := row.WorkOrder
	out := workOrderCSVRow{
		Number:     wo.WorkOrderNumber,
		ClientName: wo.ClientName,
		Phone:      wo.ClientPhone.String,
		VIN:        wo.VehicleVin.String,
		Status:     wo.Status,
		ItemCount:  row.ItemCount,
		Subtotal:   database.FormatNumeric(wo.Subtotal, pricing.CurrencyPlaces),
		TaxRate:    database.FormatNumeric(wo.TaxRate, service.TaxRatePlaces),
		TaxAmount:  database.FormatNumeric(wo.TaxAmount, pricing.CurrencyPlaces),
		Total:      database.FormatNumeric(wo.Total, pricing.CurrencyPlaces),
		CreatedBy:  row.CreatedByName.String,
	}
	if wo.Date.Valid {
		out.Date = wo.Date.Time.Format(dateLayout)
	}
	var vehicle []string
	if wo.VehicleYear.Valid {
		vehicle = append(vehicle, strconv.Itoa(int(wo.VehicleYear.Int32)))
	}
	for _, part := range []string{wo.VehicleMake.String, wo.VehicleModel.String} {
		if part != "" {
			vehicle = append(vehicle, part)
		}
	}
	out.Vehicle = strings.Join(vehicle, " ")
	if s := database.FormatNullableNumeric(wo.ClientSalePrice, pricing.CurrencyPlaces); s != nil {
		out.SalePrice = *s
	}
	if s := database.FormatNullableNumeric(wo.Profit, pricing.CurrencyPlaces); s != nil {
		out.Profit = *s
	}
	return out
}

// parseWorkOrderFilter reads status/startDate/endDate/search.
func parseWorkOrderFilter(w http.ResponseWriter, r *http.Request) (database.WorkOrderFilter, bool) {
	filter := database.WorkOrderFilter{
		Status: r.URL.Query().Get("status"),
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
	}
	var ok bool
	if filter.StartDate, ok = parseDate(w, r, "startDate"); !ok {
		return filter, false
	}
	if filter.EndDate, ok = parseDate(w, r, "endDate"); !ok {
		return filter, false
	}
	return filter, true
}

// --- Handlers ---

// Create handles POST /api/workorders.
func (h *WorkOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[workOrderRequest](w, r)
	if !ok {
		return
	}

	result, err := h.svc.Create(r.Context(), middleware.PrincipalFromContext(r.Context()), req.toInput())
	if err != nil {
		writeServiceError(w, "create work order", err)
		return
	}

	writeJSON(w, http.StatusCreated, workOrderEnvelope{
		Success:   true,
		Message:   "Work order created successfully",
		WorkOrder: toWorkOrderResponse(result.WorkOrder, result.Items),
	})
}

// List handles GET /api/workorders.
func (h *WorkOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaging(r, 50, 200)
	filter, ok := parseWorkOrderFilter(w, r)
	if !ok {
		return
	}

	ctx, cancel := readContext(r, h.readTimeout)
	defer cancel()

	rows, err := h.store.ListWorkOrders(ctx, database.ListWorkOrdersParams{
		Filter: filter,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		writeReadError(w, "list work orders", "Work order not found", err)
		return
	}
	total, err := h.store.CountWorkOrders(ctx, filter)
	if err != nil {
		writeReadError(w, "count work orders", "Work order not found", err)
		return
	}

	resp := make([]workOrderResponse, len(rows))
	for i, row := range rows {
		resp[i] = toWorkOrderResponse(row.WorkOrder, nil)
		if row.CreatedByName.Valid {
			name := row.CreatedByName.String
			resp[i].CreatedByName = &name
		}
		count := row.ItemCount
		resp[i].ItemCount = &count
	}

	writeJSON(w, http.StatusOK, workOrderListResponse{
		Success:    true,
		WorkOrders: resp,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
	})
}

// Get handles GET /api/workorders/{id}.
func (h *WorkOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	ctx, cancel := readContext(r, h.readTimeout)
	defer cancel()

	row, items, err := h.load(ctx, id)
	if err != nil {
		writeReadError(w, "get work order", service.ErrWorkOrderNotFound.Error(), err)
		return
	}

	resp := toWorkOrderResponse(row.WorkOrder, items)
	if row.CreatedByName.Valid {
		resp.CreatedByName = &row.CreatedByName.String
	}
	writeJSON(w, http.StatusOK, workOrderEnvelope{Success: true, WorkOrder: resp})
}

// Update handles PUT /api/workorders/{id}.
func (h *WorkOrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	req, ok := decodeRequest[workOrderRequest](w, r)
	if !ok {
		return
	}

	result, err := h.svc.Update(r.Context(), id, req.toInput())
	if err != nil {
		writeServiceError(w, "update work order", err)
		return
	}

	writeJSON(w, http.StatusOK, workOrderEnvelope{
		Success:   true,
		Message:   "Work order updated successfully",
		WorkOrder: toWorkOrderResponse(result.WorkOrder, result.Items),
	})
}

// UpdateStatus handles PATCH /api/workorders/{id}/status.
func (h *WorkOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	req, ok := decodeRequest[updateStatusRequest](w, r)
	if !ok {
		return
	}

	wo, err := h.svc.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, "update work order status", err)
		return
	}

	writeJSON(w, http.StatusOK, workOrderEnvelope{
		Success:   true,
		Message:   "Work order status updated",
		WorkOrder: toWorkOrderResponse(wo, nil),
	})
}

// Delete handles DELETE /api/workorders/{id}.
func (h *WorkOrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, "delete work order", err)
		return
	}

	writeData(w, http.StatusOK, "Work order deleted successfully", nil)
}

// PDF handles GET /api/workorders/{id}/pdf.
func (h *WorkOrderHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	ctx, cancel := readContext(r, h.readTimeout)
	defer cancel()

	row, items, err := h.load(ctx, id)
	if err != nil {
		writeReadError(w, "get work order for pdf", service.ErrWorkOrderNotFound.Error(), err)
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.RenderWorkOrder(&buf, row, items); err != nil {
		writeInternal(w, "render work order pdf", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="WorkOrder_%s.pdf"`, row.WorkOrder.WorkOrderNumber))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		zap.S().Warnw("write work order pdf", "error", err)
	}
}

// ExportCSV handles GET /api/workorders/export.csv with the list filters.
func (h *WorkOrderHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseWorkOrderFilter(w, r)
	if !ok {
		return
	}

	ctx, cancel := readContext(r, h.readTimeout)
	defer cancel()

	rows, err := h.store.ListWorkOrders(ctx, database.ListWorkOrdersParams{Filter: filter, Limit: exportLimit})
	if err != nil {
		writeReadError(w, "export work orders", "Work order not found", err)
		return
	}

	out := make([]workOrderCSVRow, len(rows))
	for i, row := range rows {
		out[i] = toWorkOrderCSVRow(row)
	}
	var buf bytes.Buffer
	if err := gocsv.Marshal(out, &buf); err != nil {
		writeInternal(w, "encode work order csv", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="work_orders_%s.csv"`, time.Now().Format("20060102")))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		zap.S().Warnw("write work order csv", "error", err)
	}
}

// load reads a work order header and its lines.
func (h *WorkOrderHandler) load(ctx context.Context, id int64) (database.GetWorkOrderRow, []database.WorkOrderItem, error) {
	row, err := h.store.GetWorkOrder(ctx, id)
	if err != nil {
		return database.GetWorkOrderRow{}, nil, err
	}
	items, err := h.store.ListWorkOrderItems(ctx, id)
	if err != nil {
		return database.GetWorkOrderRow{}, nil, err
	}
	return row, items, nil
}

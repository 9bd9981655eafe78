package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/base2-shop/api/internal/auth"
	"github.com/base2-shop/api/internal/database"
	"github.com/base2-shop/api/internal/enum"
	"github.com/base2-shop/api/internal/pricing"
)

// TaxRatePlaces is the stored precision of work order tax rates.
const TaxRatePlaces = 4

// WorkOrderStore defines the DB methods used by work order writes.
// Satisfied by *database.Queries (and its WithTx variant).
type WorkOrderStore interface {
	NextWorkOrderNumber(ctx context.Context) (string, error)
	CreateWorkOrder(ctx context.Context, arg database.CreateWorkOrderParams) (database.WorkOrder, error)
	CreateWorkOrderItem(ctx context.Context, arg database.CreateWorkOrderItemParams) (database.WorkOrderItem, error)
	GetWorkOrderForUpdate(ctx context.Context, id int64) (database.WorkOrder, error)
	UpdateWorkOrder(ctx context.Context, arg database.UpdateWorkOrderParams) (database.WorkOrder, error)
	DeleteWorkOrderItems(ctx context.Context, workOrderID int64) error
	ListWorkOrderItems(ctx context.Context, workOrderID int64) ([]database.WorkOrderItem, error)
	UpdateWorkOrderStatus(ctx context.Context, arg database.UpdateWorkOrderStatusParams) (database.WorkOrder, error)
	DeleteWorkOrder(ctx context.Context, id int64) (int64, error)
}

// NewWorkOrderStore creates a WorkOrderStore from a DBTX (pool or tx).
type NewWorkOrderStore func(db database.DBTX) WorkOrderStore

// WorkOrderItemInput is one free-form job line.
type WorkOrderItemInput struct {
	Description string
	Taxed       *bool // nil means taxed
	UnitPrice   string
	Quantity    int32
}

// WorkOrderInput carries a create or update request. On update a nil field
// keeps the stored value; on create a nil field is stored as NULL.
type WorkOrderInput struct {
	ClientName          *string
	ClientAddress       *string
	ClientCity          *string
	ClientState         *string
	ClientZip           *string
	ClientPhone         *string
	ClientDlLicense     *string
	VehicleVin          *string
	VehicleOdometer     *int32
	VehicleYear         *int32
	VehicleMake         *string
	VehicleModel        *string
	VehicleLicensePlate *string

	// Nil keeps the stored lines on update. A non-nil empty slice is
	// always rejected.
	Items []WorkOrderItemInput

	// Raw rate text; nil, blank or non-numeric falls back to the default.
	// Ignored on update unless Items is supplied.
	TaxRate *string

	// Nil or blank means no sale price on create and "keep" on update.
	ClientSalePrice *string

	OtherComments *string

	// Update only.
	Status *string
}

// WorkOrderResult is a committed work order with its lines.
type WorkOrderResult struct {
	WorkOrder database.WorkOrder
	Items     []database.WorkOrderItem
}

// WorkOrderService handles work order business logic.
type WorkOrderService struct {
	pool           TxBeginner
	newStore       NewWorkOrderStore
	defaultTaxRate decimal.Decimal
	opts           options
}

func NewWorkOrderService(pool TxBeginner, newStore NewWorkOrderStore, defaultTaxRate decimal.Decimal, opts ...Option) *WorkOrderService {
	return &WorkOrderService{
		pool:           pool,
		newStore:       newStore,
		defaultTaxRate: defaultTaxRate,
		opts:           buildOptions(opts),
	}
}

// pricedItems is a validated item list with computed totals.
type pricedItems struct {
	inputs []WorkOrderItemInput
	lines  []pricing.Line
	totals pricing.Totals
}

// Create validates the request, draws a work order number and writes the
// header and lines in one transaction. The principal must be authenticated.
func (s *WorkOrderService) Create(ctx context.Context, principal auth.Principal, in WorkOrderInput) (*WorkOrderResult, error) {
	// --- Validate before touching the database ---
	creator, ok := auth.AsAuthenticated(principal)
	if !ok {
		return nil, ErrPrincipalRequired
	}
	if in.ClientName == nil || strings.TrimSpace(*in.ClientName) == "" {
		return nil, ErrClientNameRequired
	}
	if len(in.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if err := validateVehicle(in); err != nil {
		return nil, err
	}
	rate, err := resolveTaxRate(in.TaxRate, s.defaultTaxRate)
	if err != nil {
		return nil, err
	}
	priced, err := priceItems(in.Items, rate)
	if err != nil {
		return nil, err
	}
	salePrice, _, err := parseSalePrice(in.ClientSalePrice)
	if err != nil {
		return nil, err
	}

	fields := database.WorkOrderFields{Status: enum.WorkOrderStatusPending}
	applyHeader(&fields, in)
	applyTotals(&fields, priced.totals)
	fields.ClientSalePrice = database.NullableNumeric(salePrice, pricing.CurrencyPlaces)
	fields.Profit = database.NullableNumeric(pricing.Profit(salePrice, priced.totals.Total), pricing.CurrencyPlaces)

	ctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	result, err := s.createTx(ctx, creator.ID, fields, priced)
	if err != nil {
		if errors.Is(err, ErrTransactionFailed) {
			s.opts.rolledBack("create_work_order", err)
		}
		return nil, err
	}

	if s.opts.metrics != nil {
		s.opts.metrics.WorkOrdersCreated.Inc()
	}
	s.opts.publish(enum.TopicWorkOrders, enum.EventWorkOrderCreated, workOrderEvent(result.WorkOrder))
	return result, nil
}

func (s *WorkOrderService) createTx(ctx context.Context, createdBy int64, fields database.WorkOrderFields, priced pricedItems) (*WorkOrderResult, error) {
	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, txFailed("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Generate work order number ---
	number, err := store.NextWorkOrderNumber(ctx)
	if err != nil {
		return nil, txFailed("next work order number", err)
	}

	// --- Insert header ---
	wo, err := store.CreateWorkOrder(ctx, database.CreateWorkOrderParams{
		WorkOrderNumber: number,
		WorkOrderFields: fields,
		CreatedBy:       pgtype.Int8{Int64: createdBy, Valid: true},
	})
	if err != nil {
		return nil, txFailed("create work order", err)
	}

	// --- Insert lines ---
	items, err := insertItems(ctx, store, wo.ID, priced)
	if err != nil {
		return nil, err
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, txFailed("commit", err)
	}

	return &WorkOrderResult{WorkOrder: wo, Items: items}, nil
}

// Update merges in onto the stored work order field by field. When Items is
// supplied the totals are recomputed and every stored line is replaced;
// otherwise lines and totals stay as they are.
func (s *WorkOrderService) Update(ctx context.Context, id int64, in WorkOrderInput) (*WorkOrderResult, error) {
	// --- Validate before touching the database ---
	if in.ClientName != nil && strings.TrimSpace(*in.ClientName) == "" {
		return nil, ErrClientNameRequired
	}
	if in.Items != nil && len(in.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if in.Status != nil {
		if err := WorkOrderStatuses.Validate(*in.Status); err != nil {
			return nil, err
		}
	}
	if err := validateVehicle(in); err != nil {
		return nil, err
	}

	var priced *pricedItems
	if in.Items != nil {
		rate, err := resolveTaxRate(in.TaxRate, s.defaultTaxRate)
		if err != nil {
			return nil, err
		}
		p, err := priceItems(in.Items, rate)
		if err != nil {
			return nil, err
		}
		priced = &p
	}

	salePrice, saleSupplied, err := parseSalePrice(in.ClientSalePrice)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	result, prevStatus, err := s.updateTx(ctx, id, in, priced, salePrice, saleSupplied)
	if err != nil {
		if errors.Is(err, ErrTransactionFailed) {
			s.opts.rolledBack("update_work_order", err)
		}
		return nil, err
	}

	if result.WorkOrder.Status != prevStatus {
		s.opts.statusChanged("work_order", result.WorkOrder.Status)
	}
	s.opts.publish(enum.TopicWorkOrders, enum.EventWorkOrderUpdated, workOrderEvent(result.WorkOrder))
	return result, nil
}

func (s *WorkOrderService) updateTx(
	ctx context.Context,
	id int64,
	in WorkOrderInput,
	priced *pricedItems,
	salePrice *decimal.Decimal,
	saleSupplied bool,
) (*WorkOrderResult, string, error) {
	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, "", txFailed("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Lock the stored header ---
	existing, err := store.GetWorkOrderForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrWorkOrderNotFound
		}
		return nil, "", txFailed("get work order", err)
	}

	// --- Merge ---
	fields := fieldsOf(existing)
	applyHeader(&fields, in)
	if in.Status != nil {
		fields.Status = *in.Status
	}
	total := database.NumericToDecimal(existing.Total)
	if priced != nil {
		applyTotals(&fields, priced.totals)
		total = priced.totals.Total
	}

	effectiveSale := salePrice
	if !saleSupplied && existing.ClientSalePrice.Valid {
		d := database.NumericToDecimal(existing.ClientSalePrice)
		effectiveSale = &d
	}
	fields.ClientSalePrice = database.NullableNumeric(effectiveSale, pricing.CurrencyPlaces)
	fields.Profit = database.NullableNumeric(pricing.Profit(effectiveSale, total), pricing.CurrencyPlaces)

	wo, err := store.UpdateWorkOrder(ctx, database.UpdateWorkOrderParams{ID: id, WorkOrderFields: fields})
	if err != nil {
		return nil, "", txFailed("update work order", err)
	}

	// --- Replace or reload lines ---
	var items []database.WorkOrderItem
	if priced != nil {
		if err := store.DeleteWorkOrderItems(ctx, id); err != nil {
			return nil, "", txFailed("delete work order items", err)
		}
		items, err = insertItems(ctx, store, id, *priced)
		if err != nil {
			return nil, "", err
		}
	} else {
		items, err = store.ListWorkOrderItems(ctx, id)
		if err != nil {
			return nil, "", txFailed("list work order items", err)
		}
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, "", txFailed("commit", err)
	}

	return &WorkOrderResult{WorkOrder: wo, Items: items}, existing.Status, nil
}

// SetStatus sets a work order's status. Lines and totals are untouched.
func (s *WorkOrderService) SetStatus(ctx context.Context, id int64, status string) (database.WorkOrder, error) {
	if err := WorkOrderStatuses.Validate(status); err != nil {
		return database.WorkOrder{}, err
	}

	ctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	wo, err := s.setStatusTx(ctx, id, status)
	if err != nil {
		if errors.Is(err, ErrTransactionFailed) {
			s.opts.rolledBack("update_work_order_status", err)
		}
		return database.WorkOrder{}, err
	}

	s.opts.statusChanged("work_order", status)
	s.opts.publish(enum.TopicWorkOrders, enum.EventWorkOrderStatusChange, workOrderEvent(wo))
	return wo, nil
}

func (s *WorkOrderService) setStatusTx(ctx context.Context, id int64, status string) (database.WorkOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.WorkOrder{}, txFailed("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	wo, err := s.newStore(tx).UpdateWorkOrderStatus(ctx, database.UpdateWorkOrderStatusParams{ID: id, Status: status})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.WorkOrder{}, ErrWorkOrderNotFound
		}
		return database.WorkOrder{}, txFailed("update work order status", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.WorkOrder{}, txFailed("commit", err)
	}
	return wo, nil
}

// Delete removes a work order; its lines go with it (ON DELETE CASCADE).
func (s *WorkOrderService) Delete(ctx context.Context, id int64) error {
	ctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	err := s.deleteTx(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTransactionFailed) {
			s.opts.rolledBack("delete_work_order", err)
		}
		return err
	}

	s.opts.publish(enum.TopicWorkOrders, enum.EventWorkOrderDeleted, map[string]interface{}{"id": id})
	return nil
}

func (s *WorkOrderService) deleteTx(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return txFailed("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := s.newStore(tx).DeleteWorkOrder(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrWorkOrderNotFound
		}
		return txFailed("delete work order", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return txFailed("commit", err)
	}
	return nil
}

// --- Helpers ---

func insertItems(ctx context.Context, store WorkOrderStore, workOrderID int64, priced pricedItems) ([]database.WorkOrderItem, error) {
	items := make([]database.WorkOrderItem, 0, len(priced.inputs))
	for i, in := range priced.inputs {
		line := priced.lines[i]
		item, err := store.CreateWorkOrderItem(ctx, database.CreateWorkOrderItemParams{
			WorkOrderID: workOrderID,
			Description: strings.TrimSpace(in.Description),
			Taxed:       line.Taxed,
			UnitPrice:   database.DecimalToNumeric(line.UnitPrice, pricing.CurrencyPlaces),
			Quantity:    line.Quantity,
			Total:       database.DecimalToNumeric(priced.totals.LineTotals[i], pricing.CurrencyPlaces),
		})
		if err != nil {
			return nil, txFailed(fmt.Sprintf("create work order item[%d]", i), err)
		}
		items = append(items, item)
	}
	return items, nil
}

func priceItems(items []WorkOrderItemInput, rate decimal.Decimal) (pricedItems, error) {
	lines := make([]pricing.Line, len(items))
	for i, it := range items {
		if strings.TrimSpace(it.Description) == "" {
			return pricedItems{}, fmt.Errorf("item[%d]: %w", i, ErrDescriptionRequired)
		}
		if it.Quantity < 1 || it.Quantity > MaxQuantity {
			return pricedItems{}, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		price, err := pricing.ParseAmount(it.UnitPrice)
		if err != nil || !price.IsPositive() {
			return pricedItems{}, fmt.Errorf("item[%d]: %w", i, ErrInvalidUnitPrice)
		}
		lines[i] = pricing.Line{
			UnitPrice: price,
			Quantity:  it.Quantity,
			Taxed:     it.Taxed == nil || *it.Taxed,
		}
	}
	totals := pricing.Compute(lines, rate)
	if totals.Total.GreaterThan(pricing.MaxAmount) {
		return pricedItems{}, ErrAmountTooLarge
	}
	return pricedItems{inputs: items, lines: lines, totals: totals}, nil
}

// resolveTaxRate applies the default for a missing or non-numeric rate and
// rejects rates outside [0, 1]. An explicit zero is kept.
func resolveTaxRate(raw *string, fallback decimal.Decimal) (decimal.Decimal, error) {
	rate := fallback
	if raw != nil {
		var err error
		if rate, err = pricing.ParseRate(*raw, fallback); err != nil {
			return decimal.Zero, ErrInvalidTaxRate
		}
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, ErrInvalidTaxRate
	}
	return rate.Round(TaxRatePlaces), nil
}

// parseSalePrice reports the sale price and whether one was supplied.
func parseSalePrice(raw *string) (*decimal.Decimal, bool, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, false, nil
	}
	d, err := pricing.ParseAmount(*raw)
	if err != nil || d.IsNegative() {
		return nil, false, ErrInvalidSalePrice
	}
	return &d, true, nil
}

func validateVehicle(in WorkOrderInput) error {
	if in.VehicleYear != nil && (*in.VehicleYear < 1900 || *in.VehicleYear > 2100) {
		return ErrInvalidVehicleYear
	}
	if in.VehicleOdometer != nil && *in.VehicleOdometer < 0 {
		return ErrInvalidOdometer
	}
	return nil
}

func applyTotals(f *database.WorkOrderFields, t pricing.Totals) {
	f.Subtotal = database.DecimalToNumeric(t.Subtotal, pricing.CurrencyPlaces)
	f.TaxRate = database.DecimalToNumeric(t.TaxRate, TaxRatePlaces)
	f.TaxAmount = database.DecimalToNumeric(t.TaxAmount, pricing.CurrencyPlaces)
	f.Total = database.DecimalToNumeric(t.Total, pricing.CurrencyPlaces)
}

// applyHeader overwrites every header field present in in.
func applyHeader(f *database.WorkOrderFields, in WorkOrderInput) {
	if in.ClientName != nil {
		f.ClientName = strings.TrimSpace(*in.ClientName)
	}
	setText(&f.ClientAddress, in.ClientAddress)
	setText(&f.ClientCity, in.ClientCity)
	setText(&f.ClientState, in.ClientState)
	setText(&f.ClientZip, in.ClientZip)
	setText(&f.ClientPhone, in.ClientPhone)
	setText(&f.ClientDlLicense, in.ClientDlLicense)
	setText(&f.VehicleVin, in.VehicleVin)
	setInt4(&f.VehicleOdometer, in.VehicleOdometer)
	setInt4(&f.VehicleYear, in.VehicleYear)
	setText(&f.VehicleMake, in.VehicleMake)
	setText(&f.VehicleModel, in.VehicleModel)
	setText(&f.VehicleLicensePlate, in.VehicleLicensePlate)
	setText(&f.OtherComments, in.OtherComments)
}

// setText leaves dst alone for nil and stores blank strings as NULL.
func setText(dst *pgtype.Text, v *string) {
	if v == nil {
		return
	}
	s := strings.TrimSpace(*v)
	*dst = pgtype.Text{String: s, Valid: s != ""}
}

func setInt4(dst *pgtype.Int4, v *int32) {
	if v == nil {
		return
	}
	*dst = pgtype.Int4{Int32: *v, Valid: true}
}

func fieldsOf(wo database.WorkOrder) database.WorkOrderFields {
	return database.WorkOrderFields{
		ClientName:          wo.ClientName,
		ClientAddress:       wo.ClientAddress,
		ClientCity:          wo.ClientCity,
		ClientState:         wo.ClientState,
		ClientZip:           wo.ClientZip,
		ClientPhone:         wo.ClientPhone,
		ClientDlLicense:     wo.ClientDlLicense,
		VehicleVin:          wo.VehicleVin,
		VehicleOdometer:     wo.VehicleOdometer,
		VehicleYear:         wo.VehicleYear,
		VehicleMake:         wo.VehicleMake,
		VehicleModel:        wo.VehicleModel,
		VehicleLicensePlate: wo.VehicleLicensePlate,
		Subtotal:            wo.Subtotal,
		TaxRate:             wo.TaxRate,
		TaxAmount:           wo.TaxAmount,
		Total:               wo.Total,
		ClientSalePrice:     wo.ClientSalePrice,
		Profit:              wo.Profit,
		OtherComments:       wo.OtherComments,
		Status:              wo.Status,
	}
}

func workOrderEvent(wo database.WorkOrder) map[string]interface{} {
	return map[string]interface{}{
		"id":                wo.ID,
		"work_order_number": wo.WorkOrderNumber,
		"client_name":       wo.ClientName,
		"status":            wo.Status,
		"total":             database.FormatNumeric(wo.Total, pricing.CurrencyPlaces),
	}
}

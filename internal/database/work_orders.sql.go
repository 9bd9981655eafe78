package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const workOrderColumns = `wo.id, wo.work_order_number, wo.date, wo.client_name, wo.client_address,
    wo.client_city, wo.client_state, wo.client_zip, wo.client_phone, wo.client_dl_license,
    wo.vehicle_vin, wo.vehicle_odometer, wo.vehicle_year, wo.vehicle_make, wo.vehicle_model,
    wo.vehicle_license_plate, wo.subtotal, wo.tax_rate, wo.tax_amount, wo.total,
    wo.client_sale_price, wo.profit, wo.other_comments, wo.status, wo.created_by,
    wo.created_at, wo.updated_at`

func scanWorkOrder(row interface{ Scan(...interface{}) error }, i *WorkOrder, extra ...interface{}) error {
	dest := []interface{}{
		&i.ID,
		&i.WorkOrderNumber,
		&i.Date,
		&i.ClientName,
		&i.ClientAddress,
		&i.ClientCity,
		&i.ClientState,
		&i.ClientZip,
		&i.ClientPhone,
		&i.ClientDlLicense,
		&i.VehicleVin,
		&i.VehicleOdometer,
		&i.VehicleYear,
		&i.VehicleMake,
		&i.VehicleModel,
		&i.VehicleLicensePlate,
		&i.Subtotal,
		&i.TaxRate,
		&i.TaxAmount,
		&i.Total,
		&i.ClientSalePrice,
		&i.Profit,
		&i.OtherComments,
		&i.Status,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

const nextWorkOrderNumber = `-- name: NextWorkOrderNumber :one
SELECT generate_work_order_number()
`

// NextWorkOrderNumber draws the next number from the database sequence.
// Numbers drawn by a transaction that later rolls back are not reused.
func (q *Queries) NextWorkOrderNumber(ctx context.Context) (string, error) {
	row := q.db.QueryRow(ctx, nextWorkOrderNumber)
	var number string
	err := row.Scan(&number)
	return number, err
}

const createWorkOrder = `-- name: CreateWorkOrder :one
INSERT INTO work_orders AS wo (
    work_order_number, client_name, client_address, client_city,
    client_state, client_zip, client_phone, client_dl_license,
    vehicle_vin, vehicle_odometer, vehicle_year, vehicle_make,
    vehicle_model, vehicle_license_plate,
    subtotal, tax_rate, tax_amount, total, client_sale_price, profit,
    other_comments, status, created_by
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
    $15, $16, $17, $18, $19, $20, $21, $22, $23
)
RETURNING ` + workOrderColumns

// WorkOrderFields is the writable header of a work order.
type WorkOrderFields struct {
	ClientName          string         `json:"client_name"`
	ClientAddress       pgtype.Text    `json:"client_address"`
	ClientCity          pgtype.Text    `json:"client_city"`
	ClientState         pgtype.Text    `json:"client_state"`
	ClientZip           pgtype.Text    `json:"client_zip"`
	ClientPhone         pgtype.Text    `json:"client_phone"`
	ClientDlLicense     pgtype.Text    `json:"client_dl_license"`
	VehicleVin          pgtype.Text    `json:"vehicle_vin"`
	VehicleOdometer     pgtype.Int4    `json:"vehicle_odometer"`
	VehicleYear         pgtype.Int4    `json:"vehicle_year"`
	VehicleMake         pgtype.Text    `json:"vehicle_make"`
	VehicleModel        pgtype.Text    `json:"vehicle_model"`
	VehicleLicensePlate pgtype.Text    `json:"vehicle_license_plate"`
	Subtotal            pgtype.Numeric `json:"subtotal"`
	TaxRate             pgtype.Numeric `json:"tax_rate"`
	TaxAmount           pgtype.Numeric `json:"tax_amount"`
	Total               pgtype.Numeric `json:"total"`
	ClientSalePrice     pgtype.Numeric `json:"client_sale_price"`
	Profit              pgtype.Numeric `json:"profit"`
	OtherComments       pgtype.Text    `json:"other_comments"`
	Status              string         `json:"status"`
}

func (f WorkOrderFields) args() []interface{} {
	return []interface{}{
		f.ClientName,
		f.ClientAddress,
		f.ClientCity,
		f.ClientState,
		f.ClientZip,
		f.ClientPhone,
		f.ClientDlLicense,
		f.VehicleVin,
		f.VehicleOdometer,
		f.VehicleYear,
		f.VehicleMake,
		f.VehicleModel,
		f.VehicleLicensePlate,
		f.Subtotal,
		f.TaxRate,
		f.TaxAmount,
		f.Total,
		f.ClientSalePrice,
		f.Profit,
		f.OtherComments,
		f.Status,
	}
}

type CreateWorkOrderParams struct {
	WorkOrderNumber string `json:"work_order_number"`
	WorkOrderFields
	CreatedBy pgtype.Int8 `json:"created_by"`
}

func (q *Queries) CreateWorkOrder(ctx context.Context, arg CreateWorkOrderParams) (WorkOrder, error) {
	args := append([]interface{}{arg.WorkOrderNumber}, arg.WorkOrderFields.args()...)
	args = append(args, arg.CreatedBy)
	row := q.db.QueryRow(ctx, createWorkOrder, args...)
	var i WorkOrder
	err := scanWorkOrder(row, &i)
	return i, err
}

const getWorkOrderForUpdate = `-- name: GetWorkOrderForUpdate :one
SELECT ` + workOrderColumns + `
FROM work_orders wo
WHERE wo.id = $1
FOR UPDATE
`

// GetWorkOrderForUpdate row-locks the header for the rest of the transaction.
func (q *Queries) GetWorkOrderForUpdate(ctx context.Context, id int64) (WorkOrder, error) {
	row := q.db.QueryRow(ctx, getWorkOrderForUpdate, id)
	var i WorkOrder
	err := scanWorkOrder(row, &i)
	return i, err
}

const updateWorkOrder = `-- name: UpdateWorkOrder :one
UPDATE work_orders AS wo SET
    client_name = $2, client_address = $3, client_city = $4, client_state = $5,
    client_zip = $6, client_phone = $7, client_dl_license = $8,
    vehicle_vin = $9, vehicle_odometer = $10, vehicle_year = $11, vehicle_make = $12,
    vehicle_model = $13, vehicle_license_plate = $14,
    subtotal = $15, tax_rate = $16, tax_amount = $17, total = $18,
    client_sale_price = $19, profit = $20, other_comments = $21, status = $22,
    updated_at = now()
WHERE wo.id = $1
RETURNING ` + workOrderColumns

type UpdateWorkOrderParams struct {
	ID int64 `json:"id"`
	WorkOrderFields
}

func (q *Queries) UpdateWorkOrder(ctx context.Context, arg UpdateWorkOrderParams) (WorkOrder, error) {
	args := append([]interface{}{arg.ID}, arg.WorkOrderFields.args()...)
	row := q.db.QueryRow(ctx, updateWorkOrder, args...)
	var i WorkOrder
	err := scanWorkOrder(row, &i)
	return i, err
}

const updateWorkOrderStatus = `-- name: UpdateWorkOrderStatus :one
UPDATE work_orders AS wo SET status = $2, updated_at = now()
WHERE wo.id = $1
RETURNING ` + workOrderColumns

type UpdateWorkOrderStatusParams struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

func (q *Queries) UpdateWorkOrderStatus(ctx context.Context, arg UpdateWorkOrderStatusParams) (WorkOrder, error) {
	row := q.db.QueryRow(ctx, updateWorkOrderStatus, arg.ID, arg.Status)
	var i WorkOrder
	err := scanWorkOrder(row, &i)
	return i, err
}

const deleteWorkOrder = `-- name: DeleteWorkOrder :one
DELETE FROM work_orders WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteWorkOrder(ctx context.Context, id int64) (int64, error) {
	row := q.db.QueryRow(ctx, deleteWorkOrder, id)
	var deleted int64
	err := row.Scan(&deleted)
	return deleted, err
}

const getWorkOrder = `-- name: GetWorkOrder :one
SELECT ` + workOrderColumns + `, u.name AS created_by_name
FROM work_orders wo
LEFT JOIN users u ON wo.created_by = u.id
WHERE wo.id = $1
`

type GetWorkOrderRow struct {
	WorkOrder     WorkOrder   `json:"work_order"`
	CreatedByName pgtype.Text `json:"created_by_name"`
}

func (q *Queries) GetWorkOrder(ctx context.Context, id int64) (GetWorkOrderRow, error) {
	row := q.db.QueryRow(ctx, getWorkOrder, id)
	var i GetWorkOrderRow
	err := scanWorkOrder(row, &i.WorkOrder, &i.CreatedByName)
	return i, err
}

const createWorkOrderItem = `-- name: CreateWorkOrderItem :one
INSERT INTO work_order_items (work_order_id, description, taxed, unit_price, quantity, total)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, work_order_id, description, taxed, unit_price, quantity, total
`

type CreateWorkOrderItemParams struct {
	WorkOrderID int64          `json:"work_order_id"`
	Description string         `json:"description"`
	Taxed       bool           `json:"taxed"`
	UnitPrice   pgtype.Numeric `json:"unit_price"`
	Quantity    int32          `json:"quantity"`
	Total       pgtype.Numeric `json:"total"`
}

func (q *Queries) CreateWorkOrderItem(ctx context.Context, arg CreateWorkOrderItemParams) (WorkOrderItem, error) {
	row := q.db.QueryRow(ctx, createWorkOrderItem,
		arg.WorkOrderID,
		arg.Description,
		arg.Taxed,
		arg.UnitPrice,
		arg.Quantity,
		arg.Total,
	)
	var i WorkOrderItem
	err := row.Scan(&i.ID, &i.WorkOrderID, &i.Description, &i.Taxed, &i.UnitPrice, &i.Quantity, &i.Total)
	return i, err
}

const deleteWorkOrderItems = `-- name: DeleteWorkOrderItems :exec
DELETE FROM work_order_items WHERE work_order_id = $1
`

func (q *Queries) DeleteWorkOrderItems(ctx context.Context, workOrderID int64) error {
	_, err := q.db.Exec(ctx, deleteWorkOrderItems, workOrderID)
	return err
}

const listWorkOrderItems = `-- name: ListWorkOrderItems :many
SELECT id, work_order_id, description, taxed, unit_price, quantity, total
FROM work_order_items
WHERE work_order_id = $1
ORDER BY id
`

func (q *Queries) ListWorkOrderItems(ctx context.Context, workOrderID int64) ([]WorkOrderItem, error) {
	rows, err := q.db.Query(ctx, listWorkOrderItems, workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []WorkOrderItem{}
	for rows.Next() {
		var i WorkOrderItem
		if err := rows.Scan(&i.ID, &i.WorkOrderID, &i.Description, &i.Taxed, &i.UnitPrice, &i.Quantity, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// WorkOrderFilter narrows ListWorkOrders / CountWorkOrders. Zero values are
// ignored.
type WorkOrderFilter struct {
	Status    string
	StartDate *time.Time // inclusive, compared against the work order date
	EndDate   *time.Time // inclusive
	Search    string     // client name or work order number
}

func (f WorkOrderFilter) build() *Filter {
	w := &Filter{}
	if f.Status != "" {
		w.Eq("wo.status", f.Status)
	}
	if f.StartDate != nil {
		w.Gte("wo.date", pgtype.Date{Time: *f.StartDate, Valid: true})
	}
	if f.EndDate != nil {
		w.Lte("wo.date", pgtype.Date{Time: *f.EndDate, Valid: true})
	}
	if f.Search != "" {
		w.ILikeAny(f.Search, "wo.client_name", "wo.work_order_number")
	}
	return w
}

type ListWorkOrdersParams struct {
	Filter WorkOrderFilter
	Limit  int32
	Offset int32
}

type ListWorkOrdersRow struct {
	WorkOrder     WorkOrder   `json:"work_order"`
	CreatedByName pgtype.Text `json:"created_by_name"`
	ItemCount     int64       `json:"item_count"`
}

func (q *Queries) ListWorkOrders(ctx context.Context, arg ListWorkOrdersParams) ([]ListWorkOrdersRow, error) {
	w := arg.Filter.build()
	page, args := w.Page(arg.Limit, arg.Offset)
	sql := "SELECT " + workOrderColumns + `, u.name AS created_by_name,
    (SELECT COUNT(*) FROM work_order_items woi WHERE woi.work_order_id = wo.id) AS item_count
FROM work_orders wo
LEFT JOIN users u ON wo.created_by = u.id` + w.Where() +
		" ORDER BY wo.created_at DESC, wo.id DESC" + page

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListWorkOrdersRow{}
	for rows.Next() {
		var i ListWorkOrdersRow
		if err := scanWorkOrder(rows, &i.WorkOrder, &i.CreatedByName, &i.ItemCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) CountWorkOrders(ctx context.Context, filter WorkOrderFilter) (int64, error) {
	w := filter.build()
	row := q.db.QueryRow(ctx, "SELECT COUNT(*) FROM work_orders wo"+w.Where(), w.Args()...)
	var count int64
	err := row.Scan(&count)
	return count, err
}

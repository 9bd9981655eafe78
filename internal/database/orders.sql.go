package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `o.id, o.user_id, o.total_price, o.customer_name, o.customer_phone, o.special_instructions, o.status, o.created_at, o.updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }, i *Order) error {
	return row.Scan(
		&i.ID,
		&i.UserID,
		&i.TotalPrice,
		&i.CustomerName,
		&i.CustomerPhone,
		&i.SpecialInstructions,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders AS o (user_id, total_price, customer_name, customer_phone, special_instructions, status)
VALUES ($1, $2, $3, $4, $5, 'pending')
RETURNING ` + orderColumns

type CreateOrderParams struct {
	UserID              pgtype.Int8    `json:"user_id"`
	TotalPrice          pgtype.Numeric `json:"total_price"`
	CustomerName        string         `json:"customer_name"`
	CustomerPhone       string         `json:"customer_phone"`
	SpecialInstructions pgtype.Text    `json:"special_instructions"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.UserID,
		arg.TotalPrice,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.SpecialInstructions,
	)
	var i Order
	err := scanOrder(row, &i)
	return i, err
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, menu_item_id, quantity, price_at_time, item_name)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, menu_item_id, quantity, price_at_time, item_name
`

type CreateOrderItemParams struct {
	OrderID     int64          `json:"order_id"`
	MenuItemID  pgtype.Int8    `json:"menu_item_id"`
	Quantity    int32          `json:"quantity"`
	PriceAtTime pgtype.Numeric `json:"price_at_time"`
	ItemName    string         `json:"item_name"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.MenuItemID,
		arg.Quantity,
		arg.PriceAtTime,
		arg.ItemName,
	)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Quantity, &i.PriceAtTime, &i.ItemName)
	return i, err
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders AS o SET status = $2, updated_at = now()
WHERE o.id = $1
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status)
	var i Order
	err := scanOrder(row, &i)
	return i, err
}

const listOrderItemsByOrderIDs = `-- name: ListOrderItemsByOrderIDs :many
SELECT id, order_id, menu_item_id, quantity, price_at_time, item_name
FROM order_items
WHERE order_id = ANY($1::bigint[])
ORDER BY order_id, id
`

func (q *Queries) ListOrderItemsByOrderIDs(ctx context.Context, orderIDs []int64) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrderIDs, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Quantity, &i.PriceAtTime, &i.ItemName); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// OrderFilter narrows ListOrders / CountOrders. Zero values are ignored.
type OrderFilter struct {
	Status    string
	StartDate *time.Time // inclusive, compared against created_at
	EndDate   *time.Time // inclusive calendar day
	Search    string     // customer name or phone
}

func (f OrderFilter) build() *Filter {
	w := &Filter{}
	if f.Status != "" {
		w.Eq("o.status", f.Status)
	}
	if f.StartDate != nil {
		w.Gte("o.created_at", *f.StartDate)
	}
	if f.EndDate != nil {
		w.Lt("o.created_at", f.EndDate.AddDate(0, 0, 1))
	}
	if f.Search != "" {
		w.ILikeAny(f.Search, "o.customer_name", "o.customer_phone")
	}
	return w
}

type ListOrdersParams struct {
	Filter OrderFilter
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	w := arg.Filter.build()
	page, args := w.Page(arg.Limit, arg.Offset)
	sql := "SELECT " + orderColumns + " FROM orders o" + w.Where() +
		" ORDER BY o.created_at DESC, o.id DESC" + page

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		var i Order
		if err := scanOrder(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) CountOrders(ctx context.Context, filter OrderFilter) (int64, error) {
	w := filter.build()
	row := q.db.QueryRow(ctx, "SELECT COUNT(*) FROM orders o"+w.Where(), w.Args()...)
	var count int64
	err := row.Scan(&count)
	return count, err
}

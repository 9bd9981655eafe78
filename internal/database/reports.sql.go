package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getDailySales = `-- name: GetDailySales :many
SELECT TO_CHAR(created_at, 'YYYY-MM-DD') AS date,
       COALESCE(SUM(total_price), 0)::numeric AS revenue,
       COUNT(*) AS orders
FROM orders
WHERE status <> 'cancelled' AND created_at > now() - INTERVAL '30 days'
GROUP BY 1
ORDER BY 1 ASC
`

type GetDailySalesRow struct {
	Date    string         `json:"date"`
	Revenue pgtype.Numeric `json:"revenue"`
	Orders  int64          `json:"orders"`
}

func (q *Queries) GetDailySales(ctx context.Context) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySales)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetDailySalesRow{}
	for rows.Next() {
		var i GetDailySalesRow
		if err := rows.Scan(&i.Date, &i.Revenue, &i.Orders); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getPopularItems = `-- name: GetPopularItems :many
SELECT item_name, SUM(quantity)::bigint AS count
FROM order_items
GROUP BY item_name
ORDER BY 2 DESC, item_name ASC
LIMIT 5
`

type GetPopularItemsRow struct {
	ItemName string `json:"item_name"`
	Count    int64  `json:"count"`
}

func (q *Queries) GetPopularItems(ctx context.Context) ([]GetPopularItemsRow, error) {
	rows, err := q.db.Query(ctx, getPopularItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetPopularItemsRow{}
	for rows.Next() {
		var i GetPopularItemsRow
		if err := rows.Scan(&i.ItemName, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getOrderStats = `-- name: GetOrderStats :one
SELECT COUNT(*) AS total_orders,
       COALESCE(SUM(CASE WHEN status <> 'cancelled' THEN total_price ELSE 0 END), 0)::numeric AS total_revenue,
       COALESCE(AVG(CASE WHEN status <> 'cancelled' THEN total_price ELSE 0 END), 0)::numeric AS avg_order_value
FROM orders
`

type GetOrderStatsRow struct {
	TotalOrders   int64          `json:"total_orders"`
	TotalRevenue  pgtype.Numeric `json:"total_revenue"`
	AvgOrderValue pgtype.Numeric `json:"avg_order_value"`
}

func (q *Queries) GetOrderStats(ctx context.Context) (GetOrderStatsRow, error) {
	row := q.db.QueryRow(ctx, getOrderStats)
	var i GetOrderStatsRow
	err := row.Scan(&i.TotalOrders, &i.TotalRevenue, &i.AvgOrderValue)
	return i, err
}

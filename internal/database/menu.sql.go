package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listCategories = `-- name: ListCategories :many
SELECT id, name, display_order, created_at FROM categories
ORDER BY display_order ASC, id ASC
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Category{}
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.Name, &i.DisplayOrder, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createCategory = `-- name: CreateCategory :one
INSERT INTO categories (name, display_order)
VALUES ($1, $2)
RETURNING id, name, display_order, created_at
`

type CreateCategoryParams struct {
	Name         string `json:"name"`
	DisplayOrder int32  `json:"display_order"`
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, createCategory, arg.Name, arg.DisplayOrder)
	var i Category
	err := row.Scan(&i.ID, &i.Name, &i.DisplayOrder, &i.CreatedAt)
	return i, err
}

const menuItemColumns = `m.id, m.category_id, m.name, m.description, m.price, m.image_url, m.spiciness_level, m.is_available, m.created_at, m.updated_at`

func scanMenuItem(row interface{ Scan(...interface{}) error }, i *MenuItem, extra ...interface{}) error {
	dest := []interface{}{
		&i.ID, &i.CategoryID, &i.Name, &i.Description, &i.Price,
		&i.ImageUrl, &i.SpicinessLevel, &i.IsAvailable, &i.CreatedAt, &i.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

const listAvailableMenuItems = `-- name: ListAvailableMenuItems :many
SELECT ` + menuItemColumns + `, c.name AS category_name
FROM menu_items m
LEFT JOIN categories c ON m.category_id = c.id
WHERE m.is_available = true
ORDER BY c.display_order ASC, m.id ASC
`

type ListAvailableMenuItemsRow struct {
	MenuItem     MenuItem    `json:"menu_item"`
	CategoryName pgtype.Text `json:"category_name"`
}

func (q *Queries) ListAvailableMenuItems(ctx context.Context) ([]ListAvailableMenuItemsRow, error) {
	rows, err := q.db.Query(ctx, listAvailableMenuItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListAvailableMenuItemsRow{}
	for rows.Next() {
		var i ListAvailableMenuItemsRow
		if err := scanMenuItem(rows, &i.MenuItem, &i.CategoryName); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createMenuItem = `-- name: CreateMenuItem :one
INSERT INTO menu_items AS m (category_id, name, description, price, image_url, spiciness_level, is_available)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	CategoryID     pgtype.Int8    `json:"category_id"`
	Name           string         `json:"name"`
	Description    pgtype.Text    `json:"description"`
	Price          pgtype.Numeric `json:"price"`
	ImageUrl       pgtype.Text    `json:"image_url"`
	SpicinessLevel int32          `json:"spiciness_level"`
	IsAvailable    bool           `json:"is_available"`
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.ImageUrl,
		arg.SpicinessLevel,
		arg.IsAvailable,
	)
	var i MenuItem
	err := scanMenuItem(row, &i)
	return i, err
}

const updateMenuItem = `-- name: UpdateMenuItem :one
UPDATE menu_items AS m SET
    category_id     = COALESCE($2, m.category_id),
    name            = COALESCE($3, m.name),
    description     = COALESCE($4, m.description),
    price           = COALESCE($5, m.price),
    image_url       = COALESCE($6, m.image_url),
    spiciness_level = COALESCE($7, m.spiciness_level),
    is_available    = COALESCE($8, m.is_available),
    updated_at      = now()
WHERE m.id = $1
RETURNING ` + menuItemColumns

// UpdateMenuItemParams uses NULL (Valid=false) for "keep the stored value".
type UpdateMenuItemParams struct {
	ID             int64          `json:"id"`
	CategoryID     pgtype.Int8    `json:"category_id"`
	Name           pgtype.Text    `json:"name"`
	Description    pgtype.Text    `json:"description"`
	Price          pgtype.Numeric `json:"price"`
	ImageUrl       pgtype.Text    `json:"image_url"`
	SpicinessLevel pgtype.Int4    `json:"spiciness_level"`
	IsAvailable    pgtype.Bool    `json:"is_available"`
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, updateMenuItem,
		arg.ID,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.ImageUrl,
		arg.SpicinessLevel,
		arg.IsAvailable,
	)
	var i MenuItem
	err := scanMenuItem(row, &i)
	return i, err
}

const deleteMenuItem = `-- name: DeleteMenuItem :one
DELETE FROM menu_items WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteMenuItem(ctx context.Context, id int64) (int64, error) {
	row := q.db.QueryRow(ctx, deleteMenuItem, id)
	var deleted int64
	err := row.Scan(&deleted)
	return deleted, err
}

const getMenuItemForOrder = `-- name: GetMenuItemForOrder :one
SELECT id, name, price, is_available
FROM menu_items
WHERE id = $1
FOR SHARE
`

type GetMenuItemForOrderRow struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Price       pgtype.Numeric `json:"price"`
	IsAvailable bool           `json:"is_available"`
}

// GetMenuItemForOrder share-locks the row so the price and availability read
// stay valid until the ordering transaction ends.
func (q *Queries) GetMenuItemForOrder(ctx context.Context, id int64) (GetMenuItemForOrderRow, error) {
	row := q.db.QueryRow(ctx, getMenuItemForOrder, id)
	var i GetMenuItemForOrderRow
	err := row.Scan(&i.ID, &i.Name, &i.Price, &i.IsAvailable)
	return i, err
}

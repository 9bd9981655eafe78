package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/base2-shop/api/internal/database"
)

// CatalogStore resolves menu items. Satisfied by *database.Queries.
type CatalogStore interface {
	GetMenuItemForOrder(ctx context.Context, id int64) (database.GetMenuItemForOrderRow, error)
}

// CatalogItem is the price and name snapshot copied into an order line.
type CatalogItem struct {
	ID          int64
	Name        string
	Price       decimal.Decimal
	IsAvailable bool
}

// ResolveCatalogItem looks up a menu item inside the caller's transaction.
// It returns ErrItemNotFound for unknown ids and ErrItemUnavailable for
// items that exist but are switched off.
func ResolveCatalogItem(ctx context.Context, store CatalogStore, id int64) (CatalogItem, error) {
	row, err := store.GetMenuItemForOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CatalogItem{}, fmt.Errorf("item %d: %w", id, ErrItemNotFound)
		}
		return CatalogItem{}, txFailed(fmt.Sprintf("resolve item %d", id), err)
	}
	item := CatalogItem{
		ID:          row.ID,
		Name:        row.Name,
		Price:       database.NumericToDecimal(row.Price),
		IsAvailable: row.IsAvailable,
	}
	if !item.IsAvailable {
		return item, fmt.Errorf("%s: %w", item.Name, ErrItemUnavailable)
	}
	return item, nil
}

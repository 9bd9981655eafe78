package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/base2-shop/api/internal/auth"
	"github.com/base2-shop/api/internal/database"
	"github.com/base2-shop/api/internal/enum"
	"github.com/base2-shop/api/internal/pricing"
)

// OrderStore defines the DB methods needed to create orders and move them
// through their statuses. Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	CatalogStore
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// MaxQuantity bounds a single line's quantity on orders and work orders.
const MaxQuantity = 9999

// CreateOrderRequest is the input for placing an order. Principal may be
// Anonymous; an Authenticated principal becomes the order's user_id.
type CreateOrderRequest struct {
	Principal           auth.Principal
	CustomerName        string
	CustomerPhone       string
	SpecialInstructions string
	Items               []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single cart line.
type CreateOrderItemRequest struct {
	MenuItemID int64
	Quantity   int32
}

// CreateOrderResult is the committed order with its lines.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	opts     options
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore, opts ...Option) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, opts: buildOptions(opts)}
}

// CreateOrder validates the cart, prices it from the catalog and writes the
// order header and lines in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	// --- Validate before touching the database ---
	if strings.TrimSpace(req.CustomerName) == "" || strings.TrimSpace(req.CustomerPhone) == "" {
		return nil, ErrCustomerRequired
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for i, item := range req.Items {
		if item.MenuItemID <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidItemID)
		}
		if item.Quantity < 1 || item.Quantity > MaxQuantity {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
	}

	ctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	result, err := s.createOrderTx(ctx, req)
	if err != nil {
		if errors.Is(err, ErrTransactionFailed) {
			s.opts.rolledBack("create_order", err)
		}
		return nil, err
	}

	if s.opts.metrics != nil {
		s.opts.metrics.OrdersCreated.Inc()
	}
	s.opts.publish(enum.TopicOrders, enum.EventOrderCreated, map[string]interface{}{
		"id":            result.Order.ID,
		"total_price":   database.FormatNumeric(result.Order.TotalPrice, pricing.CurrencyPlaces),
		"status":        result.Order.Status,
		"customer_name": result.Order.CustomerName,
		"item_count":    len(result.Items),
	})
	return result, nil
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, txFailed("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Resolve every line against the catalog ---
	lines := make([]pricing.Line, len(req.Items))
	snapshots := make([]CatalogItem, len(req.Items))
	for i, item := range req.Items {
		ci, err := ResolveCatalogItem(ctx, store, item.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, err)
		}
		snapshots[i] = ci
		lines[i] = pricing.Line{UnitPrice: ci.Price, Quantity: item.Quantity}
	}

	total := pricing.Subtotal(lines)
	if total.GreaterThan(pricing.MaxAmount) {
		return nil, ErrAmountTooLarge
	}

	// --- Insert header ---
	userID := pgtype.Int8{}
	if p, ok := auth.AsAuthenticated(req.Principal); ok {
		userID = pgtype.Int8{Int64: p.ID, Valid: true}
	}
	instructions := pgtype.Text{}
	if si := strings.TrimSpace(req.SpecialInstructions); si != "" {
		instructions = pgtype.Text{String: si, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		UserID:              userID,
		TotalPrice:          database.DecimalToNumeric(total, pricing.CurrencyPlaces),
		CustomerName:        strings.TrimSpace(req.CustomerName),
		CustomerPhone:       strings.TrimSpace(req.CustomerPhone),
		SpecialInstructions: instructions,
	})
	if err != nil {
		return nil, txFailed("create order", err)
	}

	// --- Insert lines with price snapshots ---
	items := make([]database.OrderItem, 0, len(req.Items))
	for i, item := range req.Items {
		ci := snapshots[i]
		created, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:     order.ID,
			MenuItemID:  pgtype.Int8{Int64: ci.ID, Valid: true},
			Quantity:    item.Quantity,
			PriceAtTime: database.DecimalToNumeric(ci.Price, pricing.CurrencyPlaces),
			ItemName:    ci.Name,
		})
		if err != nil {
			return nil, txFailed(fmt.Sprintf("create order item[%d]", i), err)
		}
		items = append(items, created)
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, txFailed("commit", err)
	}

	return &CreateOrderResult{Order: order, Items: items}, nil
}

// UpdateStatus sets an order's status. Any legal status is accepted from
// any current status.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status string) (database.Order, error) {
	if err := OrderStatuses.Validate(status); err != nil {
		return database.Order{}, err
	}

	ctx, cancel := s.opts.writeContext(ctx)
	defer cancel()

	order, err := s.updateStatusTx(ctx, id, status)
	if err != nil {
		if errors.Is(err, ErrTransactionFailed) {
			s.opts.rolledBack("update_order_status", err)
		}
		return database.Order{}, err
	}

	s.opts.statusChanged("order", status)
	s.opts.publish(enum.TopicOrders, enum.EventOrderStatusChanged, map[string]interface{}{
		"id":     order.ID,
		"status": order.Status,
	})
	return order, nil
}

func (s *OrderService) updateStatusTx(ctx context.Context, id int64, status string) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, txFailed("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	order, err := s.newStore(tx).UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{ID: id, Status: status})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, txFailed("update order status", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, txFailed("commit", err)
	}
	return order, nil
}

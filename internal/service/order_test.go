package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/base2-shop/api/internal/auth"
	"github.com/base2-shop/api/internal/database"
	"github.com/base2-shop/api/internal/enum"
)

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getMenuItemForOrderFn func(ctx context.Context, id int64) (database.GetMenuItemForOrderRow, error)
	createOrderFn         func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn     func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	updateOrderStatusFn   func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)

	createOrderCalls int
	createItemCalls  int
}

func (m *mockOrderStore) GetMenuItemForOrder(ctx context.Context, id int64) (database.GetMenuItemForOrderRow, error) {
	return m.getMenuItemForOrderFn(ctx, id)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	m.createOrderCalls++
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	m.createItemCalls++
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatusFn(ctx, arg)
}

// newTestOrderService creates an OrderService with mocked dependencies.
func newTestOrderService(store *mockOrderStore) (*OrderService, *mockTx, *recordingPublisher) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	pub := &recordingPublisher{}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore, WithPublisher(pub)), tx, pub
}

// menu: 1 = Burger 8.50, 2 = Fries 2.00, 3 = Soup (unavailable) 5.00
func defaultOrderStore() *mockOrderStore {
	menu := map[int64]database.GetMenuItemForOrderRow{
		1: {ID: 1, Name: "Burger", Price: makeNumeric("8.50"), IsAvailable: true},
		2: {ID: 2, Name: "Fries", Price: makeNumeric("2.00"), IsAvailable: true},
		3: {ID: 3, Name: "Soup", Price: makeNumeric("5.00"), IsAvailable: false},
	}
	var nextItemID int64
	return &mockOrderStore{
		getMenuItemForOrderFn: func(ctx context.Context, id int64) (database.GetMenuItemForOrderRow, error) {
			row, ok := menu[id]
			if !ok {
				return database.GetMenuItemForOrderRow{}, pgx.ErrNoRows
			}
			return row, nil
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:                  42,
				UserID:              arg.UserID,
				TotalPrice:          arg.TotalPrice,
				CustomerName:        arg.CustomerName,
				CustomerPhone:       arg.CustomerPhone,
				SpecialInstructions: arg.SpecialInstructions,
				Status:              enum.OrderStatusPending,
			}, nil
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			nextItemID++
			return database.OrderItem{
				ID:          nextItemID,
				OrderID:     arg.OrderID,
				MenuItemID:  arg.MenuItemID,
				Quantity:    arg.Quantity,
				PriceAtTime: arg.PriceAtTime,
				ItemName:    arg.ItemName,
			}, nil
		},
		updateOrderStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			if arg.ID != 42 {
				return database.Order{}, pgx.ErrNoRows
			}
			return database.Order{ID: arg.ID, Status: arg.Status}, nil
		},
	}
}

func basicOrderReq(items ...CreateOrderItemRequest) CreateOrderRequest {
	return CreateOrderRequest{
		Principal:     auth.Anonymous{},
		CustomerName:  "Ana",
		CustomerPhone: "555-0100",
		Items:         items,
	}
}

// =====================
// Validation tests
// =====================

func TestCreateOrder_EmptyItems(t *testing.T) {
	store := defaultOrderStore()
	svc, tx, _ := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq())
	if !errors.Is(err, ErrEmptyItems) {
		t.Fatalf("expected ErrEmptyItems, got: %v", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation kind, got: %v", err)
	}
	if tx.committed || store.createOrderCalls != 0 {
		t.Fatal("nothing should be written for an invalid cart")
	}
}

func TestCreateOrder_MissingCustomer(t *testing.T) {
	svc, _, _ := newTestOrderService(defaultOrderStore())

	req := basicOrderReq(CreateOrderItemRequest{MenuItemID: 1, Quantity: 1})
	req.CustomerPhone = "   "
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrCustomerRequired) {
		t.Fatalf("expected ErrCustomerRequired, got: %v", err)
	}
}

func TestCreateOrder_ZeroQuantity(t *testing.T) {
	svc, _, _ := newTestOrderService(defaultOrderStore())

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(
		CreateOrderItemRequest{MenuItemID: 1, Quantity: 1},
		CreateOrderItemRequest{MenuItemID: 2, Quantity: 0},
	))
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
}

func TestCreateOrder_QuantityAboveLimit(t *testing.T) {
	store := defaultOrderStore()
	svc, _, _ := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(CreateOrderItemRequest{MenuItemID: 1, Quantity: 2000000000}))
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
	if store.createOrderCalls != 0 {
		t.Fatal("no rows should be inserted")
	}
}

func TestCreateOrder_TotalAboveColumnLimit(t *testing.T) {
	store := defaultOrderStore()
	store.getMenuItemForOrderFn = func(ctx context.Context, id int64) (database.GetMenuItemForOrderRow, error) {
		return database.GetMenuItemForOrderRow{ID: id, Name: "Catering tray", Price: makeNumeric("99999999.99"), IsAvailable: true}, nil
	}
	svc, tx, pub := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(CreateOrderItemRequest{MenuItemID: 1, Quantity: 2}))
	if !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got: %v", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation kind, got: %v", err)
	}
	if tx.committed || store.createOrderCalls != 0 || pub.count() != 0 {
		t.Fatal("nothing should be written or published")
	}
}

func TestCreateOrder_InvalidItemID(t *testing.T) {
	svc, _, _ := newTestOrderService(defaultOrderStore())

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(CreateOrderItemRequest{MenuItemID: 0, Quantity: 1}))
	if !errors.Is(err, ErrInvalidItemID) {
		t.Fatalf("expected ErrInvalidItemID, got: %v", err)
	}
}

// =====================
// Catalog resolution
// =====================

func TestCreateOrder_ItemNotFound_NothingCommitted(t *testing.T) {
	store := defaultOrderStore()
	svc, tx, pub := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(
		CreateOrderItemRequest{MenuItemID: 1, Quantity: 1},
		CreateOrderItemRequest{MenuItemID: 99, Quantity: 1},
	))
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got: %v", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found kind, got: %v", err)
	}
	if tx.committed {
		t.Fatal("transaction must not commit")
	}
	if store.createOrderCalls != 0 || store.createItemCalls != 0 {
		t.Fatal("no rows should be inserted")
	}
	if pub.count() != 0 {
		t.Fatal("no event should be published")
	}
}

func TestCreateOrder_ItemUnavailable(t *testing.T) {
	store := defaultOrderStore()
	svc, tx, _ := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(CreateOrderItemRequest{MenuItemID: 3, Quantity: 1}))
	if !errors.Is(err, ErrItemUnavailable) {
		t.Fatalf("expected ErrItemUnavailable, got: %v", err)
	}
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict kind, got: %v", err)
	}
	if tx.committed || store.createOrderCalls != 0 {
		t.Fatal("nothing should be written for an unavailable item")
	}
}

func TestCreateOrder_LookupFailure(t *testing.T) {
	store := defaultOrderStore()
	store.getMenuItemForOrderFn = func(ctx context.Context, id int64) (database.GetMenuItemForOrderRow, error) {
		return database.GetMenuItemForOrderRow{}, errors.New("connection reset")
	}
	svc, _, _ := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(CreateOrderItemRequest{MenuItemID: 1, Quantity: 1}))
	if !errors.Is(err, ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got: %v", err)
	}
}

// =====================
// Pricing and persistence
// =====================

func TestCreateOrder_TotalFromCatalogPrices(t *testing.T) {
	store := defaultOrderStore()
	var gotTotal pgtype.Numeric
	base := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		gotTotal = arg.TotalPrice
		return base(ctx, arg)
	}
	svc, tx, pub := newTestOrderService(store)

	res, err := svc.CreateOrder(context.Background(), basicOrderReq(
		CreateOrderItemRequest{MenuItemID: 1, Quantity: 2},
		CreateOrderItemRequest{MenuItemID: 2, Quantity: 1},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(gotTotal, "19.00") {
		t.Errorf("total: expected 19.00, got %s", database.FormatNumeric(gotTotal, 2))
	}
	if res.Order.Status != enum.OrderStatusPending {
		t.Errorf("status: expected pending, got %s", res.Order.Status)
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(res.Items))
	}
	if res.Items[0].ItemName != "Burger" || !numericEquals(res.Items[0].PriceAtTime, "8.50") {
		t.Errorf("line 0 snapshot wrong: %+v", res.Items[0])
	}
	if res.Items[1].ItemName != "Fries" || res.Items[1].Quantity != 1 {
		t.Errorf("line 1 snapshot wrong: %+v", res.Items[1])
	}
	if !tx.committed {
		t.Fatal("expected commit")
	}
	if pub.count() != 1 || pub.events[0].eventType != enum.EventOrderCreated || pub.events[0].topic != enum.TopicOrders {
		t.Fatalf("expected one order.created event, got %+v", pub.events)
	}
}

func TestCreateOrder_AnonymousHasNoUser(t *testing.T) {
	svc, _, _ := newTestOrderService(defaultOrderStore())

	res, err := svc.CreateOrder(context.Background(), basicOrderReq(CreateOrderItemRequest{MenuItemID: 1, Quantity: 1}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Order.UserID.Valid {
		t.Errorf("expected NULL user_id, got %d", res.Order.UserID.Int64)
	}
}

func TestCreateOrder_AuthenticatedSetsUser(t *testing.T) {
	svc, _, _ := newTestOrderService(defaultOrderStore())

	req := basicOrderReq(CreateOrderItemRequest{MenuItemID: 1, Quantity: 1})
	req.Principal = auth.Authenticated{ID: 7, Role: enum.UserRoleUser}
	res, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Order.UserID.Valid || res.Order.UserID.Int64 != 7 {
		t.Errorf("expected user_id 7, got %+v", res.Order.UserID)
	}
}

func TestCreateOrder_ItemInsertFailure(t *testing.T) {
	store := defaultOrderStore()
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		return database.OrderItem{}, errors.New("disk full")
	}
	svc, tx, pub := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(CreateOrderItemRequest{MenuItemID: 1, Quantity: 1}))
	if !errors.Is(err, ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got: %v", err)
	}
	if tx.committed || pub.count() != 0 {
		t.Fatal("failed insert must not commit or publish")
	}
}

func TestCreateOrder_CommitFailure(t *testing.T) {
	store := defaultOrderStore()
	tx := &mockTx{commitErr: errors.New("serialization failure")}
	pub := &recordingPublisher{}
	svc := NewOrderService(&mockTxBeginner{tx: tx}, func(db database.DBTX) OrderStore { return store }, WithPublisher(pub))

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(CreateOrderItemRequest{MenuItemID: 1, Quantity: 1}))
	if !errors.Is(err, ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got: %v", err)
	}
	if pub.count() != 0 {
		t.Fatal("no event after failed commit")
	}
}

func TestCreateOrder_BeginFailure(t *testing.T) {
	store := defaultOrderStore()
	svc := NewOrderService(&mockTxBeginner{err: errors.New("pool closed")}, func(db database.DBTX) OrderStore { return store })

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(CreateOrderItemRequest{MenuItemID: 1, Quantity: 1}))
	if !errors.Is(err, ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got: %v", err)
	}
}

func TestCreateOrder_SurvivesCancelledRequest(t *testing.T) {
	svc, tx, _ := newTestOrderService(defaultOrderStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.CreateOrder(ctx, basicOrderReq(CreateOrderItemRequest{MenuItemID: 1, Quantity: 1})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Fatal("expected commit despite cancelled request context")
	}
}

// =====================
// Status
// =====================

func TestUpdateOrderStatus_Invalid(t *testing.T) {
	svc, _, _ := newTestOrderService(defaultOrderStore())

	_, err := svc.UpdateStatus(context.Background(), 42, "shipped")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got: %v", err)
	}
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	svc, tx, pub := newTestOrderService(defaultOrderStore())

	_, err := svc.UpdateStatus(context.Background(), 7, enum.OrderStatusReady)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
	if tx.committed || pub.count() != 0 {
		t.Fatal("unexpected commit or event")
	}
}

func TestUpdateOrderStatus_AnyLegalTransition(t *testing.T) {
	svc, _, pub := newTestOrderService(defaultOrderStore())

	for _, status := range enum.OrderStatuses {
		order, err := svc.UpdateStatus(context.Background(), 42, status)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", status, err)
		}
		if order.Status != status {
			t.Errorf("expected %s, got %s", status, order.Status)
		}
	}
	if pub.count() != len(enum.OrderStatuses) {
		t.Errorf("expected %d events, got %d", len(enum.OrderStatuses), pub.count())
	}
}

package enum

// ── State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// OrderStatuses lists every legal order status.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusReady,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

const (
	WorkOrderStatusPending    = "pending"
	WorkOrderStatusInProgress = "in_progress"
	WorkOrderStatusCompleted  = "completed"
	WorkOrderStatusCancelled  = "cancelled"
)

// WorkOrderStatuses lists every legal work order status.
var WorkOrderStatuses = []string{
	WorkOrderStatusPending,
	WorkOrderStatusInProgress,
	WorkOrderStatusCompleted,
	WorkOrderStatusCancelled,
}

// ── Roles (CHECK constrained in DB) ──

const (
	UserRoleAdmin = "admin"
	UserRoleUser  = "user"
)

// ── Live update topics ──

const (
	TopicOrders     = "orders"
	TopicWorkOrders = "workorders"
)

const (
	EventOrderCreated          = "order.created"
	EventOrderStatusChanged    = "order.status_changed"
	EventWorkOrderCreated      = "work_order.created"
	EventWorkOrderUpdated      = "work_order.updated"
	EventWorkOrderStatusChange = "work_order.status_changed"
	EventWorkOrderDeleted      = "work_order.deleted"
)

package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
)

// OrderCreatedEvent signals a freshly persisted order entering the pipeline.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID         `json:"order_id"`
	OrderNumber   int64             `json:"order_number"`
	Status        enums.OrderStatus `json:"status"`
	CustomerID    *uuid.UUID        `json:"customer_id,omitempty"`
	WarehouseName string            `json:"warehouse_name"`
	Total         decimal.Decimal   `json:"total"`
	ItemCount     int               `json:"item_count"`
	CreatedAt     time.Time         `json:"created_at"`
}

// OrderStatusChangedEvent is emitted for every committed status write.
// NotifyReady is set when the transition plan scheduled the ready
// notification; the chat consumer fans those orders out to the couriers
// channel.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber int64             `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	CustomerID  *uuid.UUID        `json:"customer_id,omitempty"`
	Override    bool              `json:"override,omitempty"`
	NotifyReady bool              `json:"notify_ready,omitempty"`
	ChangedAt   time.Time         `json:"changed_at"`
}

// OrderCancelledEvent carries the cancellation specifics alongside the
// generic status change.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber int64             `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	CustomerID  *uuid.UUID        `json:"customer_id,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	CancelledAt time.Time         `json:"cancelled_at"`
}

// OrderAssignedEvent reports a staff member bound to an order slot.
type OrderAssignedEvent struct {
	OrderID          uuid.UUID            `json:"order_id"`
	OrderNumber      int64                `json:"order_number"`
	Role             enums.AssignmentRole `json:"role"`
	StaffID          uuid.UUID            `json:"staff_id"`
	AssignedByUserID *uuid.UUID           `json:"assigned_by_user_id,omitempty"`
	StatusUnchanged  bool                 `json:"status_unchanged"`
	AssignedAt       time.Time            `json:"assigned_at"`
}

// OrderPendingNudgeEvent reminds managers about orders stuck in pending.
type OrderPendingNudgeEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	PendingFor  string    `json:"pending_for"`
	CreatedAt   time.Time `json:"created_at"`
}

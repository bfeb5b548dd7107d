package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	"github.com/orderdeskhq/orderdesk-backend/pkg/types"
)

// CreateLineItemInput is the immutable snapshot captured at order creation.
type CreateLineItemInput struct {
	ProductID *uuid.UUID
	Name      string
	Qty       int
	UnitPrice decimal.Decimal
}

// CreateOrderInput carries everything needed to persist a new order.
type CreateOrderInput struct {
	CustomerID      *uuid.UUID
	CustomerName    string
	CustomerPhone   *string
	DeliveryAddress types.Address
	WarehouseName   string
	Notes           *string
	Items           []CreateLineItemInput
	Actor           Actor
}

// Actor identifies who is performing an operation. Every mutation carries an
// explicit actor; nothing is inferred from ambient state.
type Actor struct {
	UserID uuid.UUID
	Role   enums.StaffRole
}

// TransitionInput requests a status change on an order.
type TransitionInput struct {
	OrderID uuid.UUID
	Target  enums.OrderStatus
	Reason  string
	Actor   Actor
}

// ListFilters describe the inputs supported by the orders list.
type ListFilters struct {
	Status     *enums.OrderStatus
	CustomerID *uuid.UUID
	DateFrom   *time.Time
	DateTo     *time.Time
}

// OrderSummary exposes the aggregated fields returned in list responses.
type OrderSummary struct {
	ID            uuid.UUID         `json:"id"`
	OrderNumber   int64             `json:"order_number"`
	Status        enums.OrderStatus `json:"status"`
	CustomerName  string            `json:"customer_name"`
	WarehouseName string            `json:"warehouse_name"`
	Total         decimal.Decimal   `json:"total"`
	TotalItems    int               `json:"total_items"`
	CreatedAt     time.Time         `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// TransitionResult reports the committed write back to the caller.
type TransitionResult struct {
	Order    *models.Order
	From     enums.OrderStatus
	Override bool
}

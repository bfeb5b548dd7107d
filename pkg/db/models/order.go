package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	"github.com/orderdeskhq/orderdesk-backend/pkg/types"
)

// Order represents a customer order moving through collection and delivery.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     int64             `gorm:"column:order_number;not null;uniqueIndex;default:nextval('orders_order_number_seq')"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	CustomerID      *uuid.UUID        `gorm:"column:customer_id;type:uuid"`
	CustomerName    string            `gorm:"column:customer_name;not null"`
	CustomerPhone   *string           `gorm:"column:customer_phone"`
	DeliveryAddress types.Address     `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	WarehouseName   string            `gorm:"column:warehouse_name;not null"`
	Total           decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Notes           *string           `gorm:"column:notes"`
	DeliveredAt     *time.Time        `gorm:"column:delivered_at"`
	CancelledAt     *time.Time        `gorm:"column:cancelled_at"`
	Items           []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Assignment      *Assignment       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Assignment binds the staff working an order. One row per order; the
// unique index on order_id is what makes concurrent assigns collapse
// into a single upsert.
type Assignment struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	CollectorID      *uuid.UUID `gorm:"column:collector_id;type:uuid"`
	CourierID        *uuid.UUID `gorm:"column:courier_id;type:uuid"`
	AssignedByUserID *uuid.UUID `gorm:"column:assigned_by_user_id;type:uuid"`
	Active           bool       `gorm:"column:active;not null;default:true"`
	CollectorSetAt   *time.Time `gorm:"column:collector_set_at"`
	CourierSetAt     *time.Time `gorm:"column:courier_set_at"`
	ReleasedAt       *time.Time `gorm:"column:released_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

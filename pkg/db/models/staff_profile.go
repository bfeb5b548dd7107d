package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
)

// StaffProfile represents a warehouse staff member known to the platform.
// Credentials live in the identity provider; this row carries role and
// routing data only.
type StaffProfile struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DisplayName   string          `gorm:"column:display_name;not null"`
	Role          enums.StaffRole `gorm:"column:role;type:staff_role;not null"`
	Phone         *string         `gorm:"column:phone"`
	ChatChannelID *int64          `gorm:"column:chat_channel_id"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

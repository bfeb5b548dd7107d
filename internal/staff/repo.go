package staff

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
)

// Repository defines persistence operations for staff profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, staffID uuid.UUID) (*models.StaffProfile, error)
	FindByChatChannel(ctx context.Context, channelID int64) (*models.StaffProfile, error)
	ListByRole(ctx context.Context, role *enums.StaffRole, activeOnly bool) ([]models.StaffProfile, error)
	SetActive(ctx context.Context, staffID uuid.UUID, active bool) error
	SetChatChannel(ctx context.Context, staffID uuid.UUID, channelID int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a staff repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, staffID uuid.UUID) (*models.StaffProfile, error) {
	var profile models.StaffProfile
	err := r.db.WithContext(ctx).
		Where("id = ?", staffID).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) FindByChatChannel(ctx context.Context, channelID int64) (*models.StaffProfile, error) {
	var profile models.StaffProfile
	err := r.db.WithContext(ctx).
		Where("chat_channel_id = ?", channelID).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) ListByRole(ctx context.Context, role *enums.StaffRole, activeOnly bool) ([]models.StaffProfile, error) {
	query := r.db.WithContext(ctx).Model(&models.StaffProfile{})
	if role != nil {
		query = query.Where("role = ?", *role)
	}
	if activeOnly {
		query = query.Where("is_active")
	}
	var profiles []models.StaffProfile
	if err := query.Order("display_name ASC").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *repository) SetActive(ctx context.Context, staffID uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.StaffProfile{}).
		Where("id = ?", staffID).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) SetChatChannel(ctx context.Context, staffID uuid.UUID, channelID int64) error {
	res := r.db.WithContext(ctx).
		Model(&models.StaffProfile{}).
		Where("id = ?", staffID).
		Update("chat_channel_id", channelID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

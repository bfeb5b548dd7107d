package assignments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
)

// Repository defines persistence operations for assignment rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertSlot(ctx context.Context, orderID uuid.UUID, role enums.AssignmentRole, staffID uuid.UUID, assignedBy *uuid.UUID) (*models.Assignment, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Assignment, error)
	FindStaleActive(ctx context.Context, cutoff time.Time) ([]models.Assignment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an assignments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// UpsertSlot writes the staff member into the role slot for the order. The
// write is a single INSERT ... ON CONFLICT (order_id) DO UPDATE, so two
// racing assigns collapse into one row and the later write wins its slot.
func (r *repository) UpsertSlot(ctx context.Context, orderID uuid.UUID, role enums.AssignmentRole, staffID uuid.UUID, assignedBy *uuid.UUID) (*models.Assignment, error) {
	now := time.Now().UTC()
	row := models.Assignment{
		ID:               uuid.New(),
		OrderID:          orderID,
		AssignedByUserID: assignedBy,
		Active:           true,
	}

	assignments := map[string]any{
		"assigned_by_user_id": assignedBy,
		"active":              true,
		"released_at":         nil,
		"updated_at":          now,
	}
	switch role {
	case enums.AssignmentRoleCollector:
		row.CollectorID = &staffID
		row.CollectorSetAt = &now
		assignments["collector_id"] = staffID
		assignments["collector_set_at"] = now
	case enums.AssignmentRoleCourier:
		row.CourierID = &staffID
		row.CourierSetAt = &now
		assignments["courier_id"] = staffID
		assignments["courier_set_at"] = now
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.Assignments(assignments),
		}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}
	return r.FindByOrder(ctx, orderID)
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindStaleActive returns assignments still active though untouched since
// the cutoff. The cron safety net releases them when their order is terminal.
func (r *repository) FindStaleActive(ctx context.Context, cutoff time.Time) ([]models.Assignment, error) {
	var rows []models.Assignment
	err := r.db.WithContext(ctx).
		Where("active AND updated_at < ?", cutoff).
		Order("updated_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

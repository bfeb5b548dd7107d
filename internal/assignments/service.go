package assignments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdeskhq/orderdesk-backend/internal/orders"
	"github.com/orderdeskhq/orderdesk-backend/internal/staff"
	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/outbox"
	"github.com/orderdeskhq/orderdesk-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// AssignInput requests binding a staff member to an order slot.
type AssignInput struct {
	OrderID uuid.UUID
	Role    enums.AssignmentRole
	StaffID uuid.UUID
	Actor   orders.Actor
}

// AssignResult reports the committed assignment. StatusUnchanged is set when
// the order already sat in (or past) the status the assignment implies, so
// the assignment row was refreshed without a status write.
type AssignResult struct {
	Assignment      *models.Assignment
	OrderStatus     enums.OrderStatus
	StatusUnchanged bool
}

// Service coordinates staff assignment against the order state machine.
type Service interface {
	Assign(ctx context.Context, input AssignInput) (*AssignResult, error)
	GetForOrder(ctx context.Context, orderID uuid.UUID) (*models.Assignment, error)
}

type service struct {
	repo       Repository
	ordersRepo orders.Repository
	staff      staff.Service
	tx         txRunner
	outbox     outboxPublisher
}

// NewService builds an assignments service with the required dependencies.
func NewService(repo Repository, ordersRepo orders.Repository, staffSvc staff.Service, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("assignments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if staffSvc == nil {
		return nil, fmt.Errorf("staff service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, ordersRepo: ordersRepo, staff: staffSvc, tx: tx, outbox: outbox}, nil
}

// slotStatuses maps each role to the statuses an assign is meaningful in.
// The first entry is the status that still needs the assigned_to_* write;
// the rest accept a re-assign without touching order status.
var slotStatuses = map[enums.AssignmentRole]struct {
	base   enums.OrderStatus
	target enums.OrderStatus
	held   []enums.OrderStatus
}{
	enums.AssignmentRoleCollector: {
		base:   enums.OrderStatusPending,
		target: enums.OrderStatusAssignedToCollector,
		held:   []enums.OrderStatus{enums.OrderStatusAssignedToCollector, enums.OrderStatusCollecting},
	},
	enums.AssignmentRoleCourier: {
		base:   enums.OrderStatusReady,
		target: enums.OrderStatusAssignedToCourier,
		held:   []enums.OrderStatus{enums.OrderStatusAssignedToCourier},
	},
}

func (s *service) Assign(ctx context.Context, input AssignInput) (*AssignResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.StaffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown assignment role %q", input.Role))
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	if _, err := s.staff.EnsureEligible(ctx, input.StaffID, input.Role); err != nil {
		return nil, err
	}

	slot := slotStatuses[input.Role]

	var result *AssignResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		order, err := ordersRepo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeTerminalState,
				fmt.Sprintf("order is %s and cannot be assigned", order.Status))
		}
		if !assignableAt(order.Status, slot) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("%s cannot be assigned while order is %s", input.Role, order.Status)).
				WithDetails(map[string]any{"current": order.Status, "role": input.Role})
		}

		assignedBy := input.Actor.UserID
		assignment, err := repo.UpsertSlot(ctx, order.ID, input.Role, input.StaffID, &assignedBy)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert assignment")
		}

		statusUnchanged := order.Status != slot.base
		finalStatus := order.Status
		if !statusUnchanged {
			applied, err := ordersRepo.UpdateStatusIf(ctx, order.ID, slot.base, slot.target, nil)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
			if applied {
				finalStatus = slot.target
				if err := s.emitStatusChanged(ctx, tx, order, slot.base, slot.target, input.Actor); err != nil {
					return err
				}
			} else {
				// a concurrent assign already moved it; treat as unchanged
				current, reloadErr := ordersRepo.FindOrderForUpdate(ctx, order.ID)
				if reloadErr != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, reloadErr, "reload order")
				}
				if !assignableAt(current.Status, slot) {
					return pkgerrors.New(pkgerrors.CodeStateConflict,
						fmt.Sprintf("%s cannot be assigned while order is %s", input.Role, current.Status))
				}
				statusUnchanged = true
				finalStatus = current.Status
			}
		}

		result = &AssignResult{
			Assignment:      assignment,
			OrderStatus:     finalStatus,
			StatusUnchanged: statusUnchanged,
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAssigned,
			AggregateType: enums.AggregateAssignment,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: input.Actor.Role.String()},
			Data: payloads.OrderAssignedEvent{
				OrderID:          order.ID,
				OrderNumber:      order.OrderNumber,
				Role:             input.Role,
				StaffID:          input.StaffID,
				AssignedByUserID: &assignedBy,
				StatusUnchanged:  statusUnchanged,
				AssignedAt:       time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) GetForOrder(ctx context.Context, orderID uuid.UUID) (*models.Assignment, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	assignment, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no assignment for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
	}
	return assignment, nil
}

func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, order *models.Order, from, to enums.OrderStatus, actor orders.Actor) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
		Data: payloads.OrderStatusChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			From:        from,
			To:          to,
			CustomerID:  order.CustomerID,
			ChangedAt:   time.Now().UTC(),
		},
	})
}

func assignableAt(status enums.OrderStatus, slot struct {
	base   enums.OrderStatus
	target enums.OrderStatus
	held   []enums.OrderStatus
}) bool {
	if status == slot.base {
		return true
	}
	for _, held := range slot.held {
		if status == held {
			return true
		}
	}
	return false
}

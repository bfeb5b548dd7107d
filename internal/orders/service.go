package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/outbox"
	"github.com/orderdeskhq/orderdesk-backend/pkg/outbox/payloads"
	"github.com/orderdeskhq/orderdesk-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines order-level operations beyond repository reads.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
	Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error)
	Cancel(ctx context.Context, orderID uuid.UUID, reason string, actor Actor) (*TransitionResult, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if strings.TrimSpace(input.CustomerName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}
	if strings.TrimSpace(input.WarehouseName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse name required")
	}
	if input.DeliveryAddress.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item required")
	}

	items := make([]models.OrderLineItem, 0, len(input.Items))
	total := decimal.Zero
	for _, item := range input.Items {
		if item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item qty must be positive")
		}
		if strings.TrimSpace(item.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item name required")
		}
		if item.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item price cannot be negative")
		}
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Qty)))
		total = total.Add(lineTotal)
		items = append(items, models.OrderLineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
			LineTotal: lineTotal,
		})
	}

	order := &models.Order{
		Status:          enums.OrderStatusPending,
		CustomerID:      input.CustomerID,
		CustomerName:    input.CustomerName,
		CustomerPhone:   input.CustomerPhone,
		DeliveryAddress: input.DeliveryAddress,
		WarehouseName:   input.WarehouseName,
		Total:           total,
		Notes:           input.Notes,
		Items:           items,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		created, err := repo.CreateOrder(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		order = created

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				Status:        order.Status,
				CustomerID:    order.CustomerID,
				WarehouseName: order.WarehouseName,
				Total:         order.Total,
				ItemCount:     len(order.Items),
				CreatedAt:     order.CreatedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	list, err := s.repo.ListOrders(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// Transition applies the state machine decision and the compare-and-set
// write in one transaction. The status row never changes unless the stored
// value still matches what the plan was computed from.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	var result *TransitionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		plan, err := PlanTransition(order.Status, input.Target, input.Actor.Role)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		now := time.Now().UTC()
		switch plan.To {
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
		case enums.OrderStatusCancelled:
			updates["cancelled_at"] = now
		}

		applied, err := repo.UpdateStatusIf(ctx, order.ID, plan.From, plan.To, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !applied {
			// a concurrent writer moved the order between the read and the CAS
			current, reloadErr := repo.FindOrderForUpdate(ctx, order.ID)
			if reloadErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, reloadErr, "reload order")
			}
			if current.Status.IsTerminal() {
				return pkgerrors.New(pkgerrors.CodeTerminalState,
					fmt.Sprintf("order is %s and cannot change status", current.Status))
			}
			return stateConflict(current.Status, input.Target)
		}

		if plan.HasEffect(EffectReleaseAssignment) {
			if err := repo.ReleaseAssignment(ctx, order.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release assignment")
			}
		}

		order.Status = plan.To
		result = &TransitionResult{Order: order, From: plan.From, Override: plan.Override}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				From:        plan.From,
				To:          plan.To,
				CustomerID:  order.CustomerID,
				Override:    plan.Override,
				NotifyReady: plan.HasEffect(EffectNotifyReady),
				ChangedAt:   now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		if plan.To == enums.OrderStatusCancelled {
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCancelled,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         buildActor(input.Actor),
				Data: payloads.OrderCancelledEvent{
					OrderID:     order.ID,
					OrderNumber: order.OrderNumber,
					From:        plan.From,
					CustomerID:  order.CustomerID,
					Reason:      input.Reason,
					CancelledAt: now,
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, reason string, actor Actor) (*TransitionResult, error) {
	return s.Transition(ctx, TransitionInput{
		OrderID: orderID,
		Target:  enums.OrderStatusCancelled,
		Reason:  reason,
		Actor:   actor,
	})
}

func buildActor(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID: actor.UserID,
		Role:   actor.Role.String(),
	}
}

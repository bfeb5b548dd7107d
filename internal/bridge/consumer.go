package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/orderdeskhq/orderdesk-backend/internal/orders"
	"github.com/orderdeskhq/orderdesk-backend/internal/staff"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/outbox"
	"github.com/orderdeskhq/orderdesk-backend/pkg/outbox/idempotency"
	"github.com/orderdeskhq/orderdesk-backend/pkg/outbox/payloads"
)

const botConsumer = "bot-notifications"

// Consumer watches order events and pushes chat notifications: collectors
// get their assigned orders, the couriers channel gets orders hitting ready.
type Consumer struct {
	notifier          *Notifier
	ordersRepo        orders.Repository
	staff             staff.Service
	subscription      *pubsub.Subscriber
	idempotency       *idempotency.Manager
	couriersChannelID int64
	logg              *logger.Logger
}

// NewConsumer builds the bot notification consumer.
func NewConsumer(notifier *Notifier, ordersRepo orders.Repository, staffSvc staff.Service, subscription *pubsub.Subscriber, manager *idempotency.Manager, couriersChannelID int64, logg *logger.Logger) (*Consumer, error) {
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if staffSvc == nil {
		return nil, fmt.Errorf("staff service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("bot subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		notifier:          notifier,
		ordersRepo:        ordersRepo,
		staff:             staffSvc,
		subscription:      subscription,
		idempotency:       manager,
		couriersChannelID: couriersChannelID,
		logg:              logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	switch enums.OutboxEventType(eventType) {
	case enums.EventOrderAssigned, enums.EventOrderStatusChanged:
	default:
		c.logg.Info(logCtx, "skipping event type without chat notification")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, botConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var handleErr error
	switch enums.OutboxEventType(eventType) {
	case enums.EventOrderAssigned:
		handleErr = c.handleAssigned(ctx, envelope.Data, logCtx)
	case enums.EventOrderStatusChanged:
		handleErr = c.handleStatusChanged(ctx, envelope.Data, logCtx)
	}
	if handleErr != nil {
		c.logg.Error(logCtx, "bot notification failed", handleErr)
		if pkgerrors.Retryable(handleErr) {
			_ = c.idempotency.Delete(ctx, botConsumer, eventID)
			return processResult{nack: true}
		}
		// channel errors need external remediation, retrying won't help
		return processResult{ack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) handleAssigned(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.OrderAssignedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse assigned payload: %w", err)
	}
	if payload.Role != enums.AssignmentRoleCollector {
		c.logg.Info(logCtx, "courier assignments carry no direct notification")
		return nil
	}

	profile, err := c.staff.Get(ctx, payload.StaffID)
	if err != nil {
		return err
	}
	if profile.ChatChannelID == nil {
		c.logg.Warn(c.logg.WithField(logCtx, "staff_id", payload.StaffID.String()),
			"collector has no chat channel registered")
		return nil
	}

	order, err := c.ordersRepo.FindOrder(ctx, payload.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order for notification")
	}

	if _, err := c.notifier.NotifyOrder(ctx, *profile.ChatChannelID, order); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithField(logCtx, "order_id", order.ID.String()), "collector notified of assignment")
	return nil
}

func (c *Consumer) handleStatusChanged(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.OrderStatusChangedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse status payload: %w", err)
	}
	if !payload.NotifyReady {
		return nil
	}
	if c.couriersChannelID == 0 {
		c.logg.Warn(logCtx, "couriers channel not configured")
		return nil
	}

	order, err := c.ordersRepo.FindOrder(ctx, payload.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order for notification")
	}

	if err := c.notifier.PostMessage(ctx, c.couriersChannelID, RenderOrderSummary(order)); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithField(logCtx, "order_id", order.ID.String()), "couriers notified of ready order")
	return nil
}

package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/outbox"
	"github.com/orderdeskhq/orderdesk-backend/pkg/outbox/idempotency"
)

const realtimeConsumer = "realtime-stream"

// Consumer bridges published order events into the in-process hub feeding
// event stream subscribers.
type Consumer struct {
	hub          *Hub
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a realtime stream consumer.
func NewConsumer(hub *Hub, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if hub == nil {
		return nil, fmt.Errorf("event hub required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("realtime subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		hub:          hub,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
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
	rawType := msg.Attributes["event_type"]
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": rawType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	eventType, err := enums.ParseOutboxEventType(rawType)
	if err != nil {
		c.logg.Info(logCtx, "skipping unknown event type")
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

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, realtimeConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	routing, err := decodeRouting(envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, realtimeConsumer, eventID)
		return processResult{nack: true}
	}

	c.hub.Publish(Event{
		ID:         envelope.EventID,
		Type:       eventType,
		OrderID:    routing.OrderID,
		CustomerID: routing.CustomerID,
		OccurredAt: envelope.OccurredAt,
		Data:       envelope.Data,
	})

	c.logg.Info(c.logg.WithField(logCtx, "order_id", routing.OrderID.String()), "event fanned out")
	return processResult{ack: true}
}

// routingInfo is the slice of each payload the hub filters on. Every order
// event carries order_id; customer_id is present where the payload has one.
type routingInfo struct {
	OrderID    uuid.UUID  `json:"order_id"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
}

func decodeRouting(data json.RawMessage) (routingInfo, error) {
	var routing routingInfo
	if err := json.Unmarshal(data, &routing); err != nil {
		return routingInfo{}, err
	}
	if routing.OrderID == uuid.Nil {
		return routingInfo{}, fmt.Errorf("payload missing order id")
	}
	return routing, nil
}

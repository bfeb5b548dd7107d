package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/outbox"
	"github.com/orderdeskhq/orderdesk-backend/pkg/outbox/payloads"
)

const defaultPendingNudgeAfter = 30 * time.Minute

// PendingOrderNudgeJobParams configure the pending order reminder.
type PendingOrderNudgeJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	PendingReader pendingOrderReader
	Outbox        outboxEmitter
	OutboxRepo    outboxExistenceChecker
	NudgeAfter    time.Duration
}

type pendingOrderReader interface {
	FindPendingOrdersBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

// NewPendingOrderNudgeJob builds the job that reminds managers about orders
// still waiting for a collector.
func NewPendingOrderNudgeJob(params PendingOrderNudgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.PendingReader == nil {
		return nil, fmt.Errorf("pending orders reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.OutboxRepo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	nudgeAfter := params.NudgeAfter
	if nudgeAfter <= 0 {
		nudgeAfter = defaultPendingNudgeAfter
	}
	return &pendingOrderNudgeJob{
		logg:          params.Logger,
		db:            params.DB,
		pendingReader: params.PendingReader,
		outbox:        params.Outbox,
		outboxRepo:    params.OutboxRepo,
		nudgeAfter:    nudgeAfter,
		now:           time.Now,
	}, nil
}

type pendingOrderNudgeJob struct {
	logg          *logger.Logger
	db            txRunner
	pendingReader pendingOrderReader
	outbox        outboxEmitter
	outboxRepo    outboxExistenceChecker
	nudgeAfter    time.Duration
	now           func() time.Time
}

func (j *pendingOrderNudgeJob) Name() string { return "pending-order-nudge" }

func (j *pendingOrderNudgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.nudgeAfter)
	stale, err := j.pendingReader.FindPendingOrdersBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query pending orders for nudge: %w", err)
	}
	count := 0
	var errs []error
	for _, order := range stale {
		if err := j.emitNudge(ctx, order); err != nil {
			errs = append(errs, err)
			continue
		}
		count++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count, "failed": len(errs)})
	j.logg.Info(logCtx, "pending order nudge loop complete")
	return multierr.Combine(errs...)
}

// emitNudge queues at most one nudge per order for its whole pending stay.
func (j *pendingOrderNudgeJob) emitNudge(ctx context.Context, order models.Order) error {
	exists, err := j.outboxRepo.Exists(ctx, enums.EventOrderPendingNudge, enums.AggregateOrder, order.ID)
	if err != nil {
		return fmt.Errorf("check pending nudge existence: %w", err)
	}
	if exists {
		return nil
	}
	now := j.now().UTC()
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPendingNudge,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.OrderPendingNudgeEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				PendingFor:  now.Sub(order.CreatedAt).Truncate(time.Minute).String(),
				CreatedAt:   order.CreatedAt,
			},
		}
		return j.outbox.Emit(ctx, tx, event)
	})
}

package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/outbox"
)

type fakePendingReader struct {
	orders     []models.Order
	lastCutoff time.Time
	err        error
}

func (f *fakePendingReader) FindPendingOrdersBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	f.lastCutoff = cutoff
	return f.orders, f.err
}

type fakeEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (f *fakeEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type fakeExistenceChecker struct {
	existing map[uuid.UUID]bool
	err      error
}

func (f *fakeExistenceChecker) Exists(ctx context.Context, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.existing[aggregateID], nil
}

type nudgeTxRunner struct{}

func (nudgeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newNudgeJob(t *testing.T, reader *fakePendingReader, emitter *fakeEmitter, checker *fakeExistenceChecker) *pendingOrderNudgeJob {
	t.Helper()
	jobIface, err := NewPendingOrderNudgeJob(PendingOrderNudgeJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "test"}),
		DB:            nudgeTxRunner{},
		PendingReader: reader,
		Outbox:        emitter,
		OutboxRepo:    checker,
		NudgeAfter:    30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewPendingOrderNudgeJob: %v", err)
	}
	job, ok := jobIface.(*pendingOrderNudgeJob)
	if !ok {
		t.Fatalf("expected pendingOrderNudgeJob, got %T", jobIface)
	}
	return job
}

func TestPendingOrderNudgeJobEmitsOncePerOrder(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	nudged := models.Order{ID: uuid.New(), OrderNumber: 1, CreatedAt: now.Add(-2 * time.Hour)}
	alreadyNudged := models.Order{ID: uuid.New(), OrderNumber: 2, CreatedAt: now.Add(-3 * time.Hour)}

	reader := &fakePendingReader{orders: []models.Order{nudged, alreadyNudged}}
	emitter := &fakeEmitter{}
	checker := &fakeExistenceChecker{existing: map[uuid.UUID]bool{alreadyNudged.ID: true}}
	job := newNudgeJob(t, reader, emitter, checker)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expectedCutoff := now.UTC().Add(-30 * time.Minute)
	if !reader.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, reader.lastCutoff)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected 1 nudge event, got %d", len(emitter.events))
	}
	event := emitter.events[0]
	if event.EventType != enums.EventOrderPendingNudge {
		t.Fatalf("expected pending nudge event, got %s", event.EventType)
	}
	if event.AggregateID != nudged.ID {
		t.Fatalf("expected aggregate %s, got %s", nudged.ID, event.AggregateID)
	}
}

func TestPendingOrderNudgeJobPropagatesReaderError(t *testing.T) {
	reader := &fakePendingReader{err: errors.New("boom")}
	job := newNudgeJob(t, reader, &fakeEmitter{}, &fakeExistenceChecker{})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

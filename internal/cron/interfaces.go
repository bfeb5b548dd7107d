package cron

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	"github.com/orderdeskhq/orderdesk-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type outboxExistenceChecker interface {
	Exists(ctx context.Context, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID) (bool, error)
}

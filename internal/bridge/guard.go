package bridge

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/orderdeskhq/orderdesk-backend/pkg/redis"
)

// WebhookGuard deduplicates inbound bot updates across replicas with a
// redis SETNX mark keyed by update id.
type WebhookGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewWebhookGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*WebhookGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	if strings.TrimSpace(scope) == "" {
		return nil, errors.New("scope required")
	}
	return &WebhookGuard{store: store, ttl: ttl, scope: scope}, nil
}

// CheckAndMark reports whether the update was already handled, marking it
// as in-flight otherwise.
func (g *WebhookGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, errors.New("event id required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Delete releases the mark so a failed update can be redelivered.
func (g *WebhookGuard) Delete(ctx context.Context, eventID string) error {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return errors.New("event id required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(g.scope, eventID))
}

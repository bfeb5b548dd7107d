package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/outbox"
	"github.com/orderdeskhq/orderdesk-backend/pkg/outbox/idempotency"
)

type consumerStore struct {
	setNXResult bool
	setNXErr    error
	deleted     []string
}

func (s *consumerStore) Get(context.Context, string) (string, error) { return "", nil }

func (s *consumerStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	return s.setNXResult, s.setNXErr
}

func (s *consumerStore) IdempotencyKey(scope, id string) string {
	return "od:idempotency:" + scope + ":" + id
}

func (s *consumerStore) Del(_ context.Context, keys ...string) error {
	s.deleted = append(s.deleted, keys...)
	return nil
}

func newProcessConsumer(t *testing.T, hub *Hub, store *consumerStore) *Consumer {
	t.Helper()
	manager, err := idempotency.NewManager(store, time.Hour)
	require.NoError(t, err)
	return &Consumer{
		hub:         hub,
		idempotency: manager,
		logg:        logger.New(logger.Options{ServiceName: "realtime-test"}),
	}
}

func statusChangedMessage(t *testing.T, orderID uuid.UUID) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(map[string]any{"order_id": orderID, "from": "collecting", "to": "ready"})
	require.NoError(t, err)
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:         "m-1",
		Data:       payload,
		Attributes: map[string]string{"event_type": "order_status_changed"},
	}
}

func TestConsumerProcessFansOutToHub(t *testing.T) {
	hub := NewHub(4, nil)
	sub := hub.Subscribe(Filter{})
	defer sub.Close()

	consumer := newProcessConsumer(t, hub, &consumerStore{setNXResult: true})
	orderID := uuid.New()

	result := consumer.process(context.Background(), statusChangedMessage(t, orderID))
	assert.True(t, result.ack)
	assert.False(t, result.nack)
	assert.Equal(t, orderID, receiveOne(t, sub).OrderID)
}

func TestConsumerProcessSkipsAlreadyProcessed(t *testing.T) {
	hub := NewHub(4, nil)
	sub := hub.Subscribe(Filter{})
	defer sub.Close()

	// SetNX returning false means another replica already handled the event.
	consumer := newProcessConsumer(t, hub, &consumerStore{setNXResult: false})

	result := consumer.process(context.Background(), statusChangedMessage(t, uuid.New()))
	assert.True(t, result.ack)
	select {
	case event := <-sub.C:
		t.Fatalf("unexpected fan-out of duplicate event %s", event.ID)
	default:
	}
}

func TestConsumerProcessNacksOnIdempotencyFailure(t *testing.T) {
	hub := NewHub(4, nil)
	consumer := newProcessConsumer(t, hub, &consumerStore{setNXErr: errors.New("redis down")})

	result := consumer.process(context.Background(), statusChangedMessage(t, uuid.New()))
	assert.True(t, result.nack)
}

func TestConsumerProcessAcksUnknownEventType(t *testing.T) {
	hub := NewHub(4, nil)
	store := &consumerStore{setNXResult: true}
	consumer := newProcessConsumer(t, hub, store)

	msg := statusChangedMessage(t, uuid.New())
	msg.Attributes["event_type"] = "order_teleported"

	result := consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
}

func TestConsumerProcessReleasesMarkOnBadPayload(t *testing.T) {
	hub := NewHub(4, nil)
	store := &consumerStore{setNXResult: true}
	consumer := newProcessConsumer(t, hub, store)

	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"order_id":"not-a-uuid"}`),
	})
	require.NoError(t, err)
	msg := &pubsub.Message{
		ID:         "m-2",
		Data:       payload,
		Attributes: map[string]string{"event_type": "order_status_changed"},
	}

	result := consumer.process(context.Background(), msg)
	assert.True(t, result.nack)
	assert.Len(t, store.deleted, 1)
}

func TestNewConsumerRequiresDependencies(t *testing.T) {
	manager, err := idempotency.NewManager(&consumerStore{}, time.Hour)
	require.NoError(t, err)
	logg := logger.New(logger.Options{ServiceName: "realtime-test"})

	_, err = NewConsumer(nil, nil, manager, logg)
	assert.Error(t, err)
	_, err = NewConsumer(NewHub(4, nil), nil, manager, logg)
	assert.Error(t, err)
}

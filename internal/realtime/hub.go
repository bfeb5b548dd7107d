package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
	"github.com/orderdeskhq/orderdesk-backend/pkg/metrics"
)

// Event is the fan-out unit delivered to stream subscribers.
type Event struct {
	ID         string                `json:"id"`
	Type       enums.OutboxEventType `json:"type"`
	OrderID    uuid.UUID             `json:"order_id"`
	CustomerID *uuid.UUID            `json:"customer_id,omitempty"`
	OccurredAt time.Time             `json:"occurred_at"`
	Data       json.RawMessage       `json:"data"`
}

// Filter narrows which events a subscriber receives. Zero-value fields match
// everything.
type Filter struct {
	OrderID    *uuid.UUID
	CustomerID *uuid.UUID
	Types      []enums.OutboxEventType
}

func (f Filter) matches(event Event) bool {
	if f.OrderID != nil && event.OrderID != *f.OrderID {
		return false
	}
	if f.CustomerID != nil {
		if event.CustomerID == nil || *event.CustomerID != *f.CustomerID {
			return false
		}
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if t == event.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Subscription is one attached listener. Events arrives on C; Close detaches
// and releases the channel.
type Subscription struct {
	C      <-chan Event
	hub    *Hub
	id     uint64
	closed sync.Once
}

// Close detaches the subscription from the hub.
func (s *Subscription) Close() {
	s.closed.Do(func() {
		s.hub.unsubscribe(s.id)
	})
}

type subscriber struct {
	filter Filter
	ch     chan Event
}

// Hub fans events out to subscribers. A slow subscriber never blocks the
// publisher: when its buffer is full the event is dropped for that
// subscriber only.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscriber
	nextID  uint64
	buffer  int
	metrics *metrics.RealtimeMetrics
}

// NewHub builds a hub with the given per-subscriber buffer size.
func NewHub(buffer int, m *metrics.RealtimeMetrics) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subs:    make(map[uint64]*subscriber),
		buffer:  buffer,
		metrics: m,
	}
}

// Subscribe attaches a listener for events matching the filter.
func (h *Hub) Subscribe(filter Filter) *Subscription {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = &subscriber{filter: filter, ch: ch}
	h.mu.Unlock()

	h.metrics.IncSubscribers()
	return &Subscription{C: ch, hub: h, id: id}
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()

	if ok {
		close(sub.ch)
		h.metrics.DecSubscribers()
	}
}

// Publish delivers the event to every matching subscriber.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.filter.matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
			h.metrics.IncPublished(string(event.Type))
		default:
			h.metrics.IncDropped(string(event.Type))
		}
	}
}

// SubscriberCount reports how many listeners are attached.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

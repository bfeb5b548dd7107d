package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RealtimeMetrics records fan-out activity on the event hub.
type RealtimeMetrics struct {
	subscribers prometheus.Gauge
	published   *prometheus.CounterVec
	dropped     *prometheus.CounterVec
}

// NewRealtimeMetrics registers hub metrics on the provided registerer.
func NewRealtimeMetrics(reg prometheus.Registerer) *RealtimeMetrics {
	if reg == nil {
		return &RealtimeMetrics{}
	}
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_subscribers",
		Help: "Currently connected event stream subscribers.",
	})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_events_published",
		Help: "Events fanned out to subscribers.",
	}, []string{"event_type"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_events_dropped",
		Help: "Events dropped because a subscriber buffer was full.",
	}, []string{"event_type"})
	reg.MustRegister(subscribers, published, dropped)
	return &RealtimeMetrics{
		subscribers: subscribers,
		published:   published,
		dropped:     dropped,
	}
}

// IncSubscribers records a subscriber attach.
func (r *RealtimeMetrics) IncSubscribers() {
	if r == nil || r.subscribers == nil {
		return
	}
	r.subscribers.Inc()
}

// DecSubscribers records a subscriber detach.
func (r *RealtimeMetrics) DecSubscribers() {
	if r == nil || r.subscribers == nil {
		return
	}
	r.subscribers.Dec()
}

// IncPublished counts one delivery for the event type.
func (r *RealtimeMetrics) IncPublished(eventType string) {
	if r == nil || r.published == nil {
		return
	}
	r.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDropped counts one dropped delivery for the event type.
func (r *RealtimeMetrics) IncDropped(eventType string) {
	if r == nil || r.dropped == nil {
		return
	}
	r.dropped.WithLabelValues(normalizeLabel(eventType)).Inc()
}

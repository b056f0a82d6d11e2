package metrics

import "github.com/prometheus/client_golang/prometheus"

// RealtimeMetrics tracks websocket connection counts and delivered events.
type RealtimeMetrics struct {
	connections prometheus.Gauge
	delivered   *prometheus.CounterVec
	dropped     *prometheus.CounterVec
}

// NewRealtimeMetrics registers the realtime metrics on the provided registerer.
func NewRealtimeMetrics(reg prometheus.Registerer) *RealtimeMetrics {
	if reg == nil {
		return &RealtimeMetrics{}
	}
	connections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_connections",
		Help: "Currently open websocket connections.",
	})
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_events_delivered",
		Help: "Realtime events delivered to connected clients.",
	}, []string{"event"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_events_dropped",
		Help: "Realtime events dropped because the client buffer was full.",
	}, []string{"event"})
	reg.MustRegister(connections, delivered, dropped)
	return &RealtimeMetrics{
		connections: connections,
		delivered:   delivered,
		dropped:     dropped,
	}
}

// ConnectionOpened increments the open connection gauge.
func (r *RealtimeMetrics) ConnectionOpened() {
	if r == nil || r.connections == nil {
		return
	}
	r.connections.Inc()
}

// ConnectionClosed decrements the open connection gauge.
func (r *RealtimeMetrics) ConnectionClosed() {
	if r == nil || r.connections == nil {
		return
	}
	r.connections.Dec()
}

// IncDelivered counts a delivered event by type.
func (r *RealtimeMetrics) IncDelivered(event string) {
	if r == nil || r.delivered == nil {
		return
	}
	r.delivered.WithLabelValues(jobLabel(event)).Inc()
}

// IncDropped counts an event dropped due to a slow consumer.
func (r *RealtimeMetrics) IncDropped(event string) {
	if r == nil || r.dropped == nil {
		return
	}
	r.dropped.WithLabelValues(jobLabel(event)).Inc()
}

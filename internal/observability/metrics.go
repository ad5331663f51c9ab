package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sociallink_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// LikeToggles counts like toggles by target kind and outcome (liked, unliked, conflict).
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sociallink_like_toggles_total",
		Help: "Total number of like toggles",
	}, []string{"kind", "outcome"})

	// ConnectionEvents counts social graph transitions.
	ConnectionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sociallink_connection_events_total",
		Help: "Total number of connection events by type",
	}, []string{"event"})

	// StorageOperations counts object store operations by outcome.
	StorageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sociallink_storage_operations_total",
		Help: "Total number of object storage operations",
	}, []string{"operation", "result"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sociallink_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts realtime events delivered by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sociallink_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped because a client was too slow.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sociallink_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordStorage counts one object store operation.
func RecordStorage(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StorageOperations.WithLabelValues(operation, result).Inc()
}

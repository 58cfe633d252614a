// Package metrics holds the process-wide prometheus registry and the
// counters the server records against it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scorecast_http_requests_total",
		Help: "HTTP requests served, by method, route and status code.",
	}, []string{"method", "path", "status"})

	liveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scorecast_live_connections",
		Help: "Currently open judge websocket connections.",
	})

	broadcastDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scorecast_broadcast_deliveries_total",
		Help: "Messages delivered to live connections, by message type.",
	}, []string{"type"})

	broadcastSkips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scorecast_broadcast_skips_total",
		Help: "Messages skipped because a transport was not writable.",
	}, []string{"type"})
)

func init() {
	registry.MustRegister(httpRequests, liveConnections, broadcastDeliveries, broadcastSkips)
}

// Registry returns the registry /metrics serves from.
func Registry() *prometheus.Registry {
	return registry
}

func RecordHTTPRequest(method, path, status string) {
	httpRequests.WithLabelValues(method, path, status).Inc()
}

func ConnOpened() {
	liveConnections.Inc()
}

func ConnClosed() {
	liveConnections.Dec()
}

func RecordBroadcast(msgType string, delivered, skipped int) {
	broadcastDeliveries.WithLabelValues(msgType).Add(float64(delivered))
	broadcastSkips.WithLabelValues(msgType).Add(float64(skipped))
}

// Package metrics exposes Prometheus instrumentation for the chat service:
// websocket connection counts, room membership churn, and fan-out delivery
// accounting. Collection always happens; whether the /metrics endpoint is
// mounted is decided by configuration.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveConnections is the number of currently registered websocket
	// connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatty_websocket_connections",
		Help: "Number of live websocket connections.",
	})

	// RoomJoinsTotal counts successful, non-duplicate room joins.
	RoomJoinsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatty_room_joins_total",
		Help: "Total number of room joins.",
	})

	// RoomLeavesTotal counts explicit leaves that removed a membership.
	RoomLeavesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatty_room_leaves_total",
		Help: "Total number of explicit room leaves.",
	})

	// BroadcastsTotal counts room broadcasts, regardless of member count.
	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatty_broadcasts_total",
		Help: "Total number of room broadcasts.",
	})

	// EventsDeliveredTotal counts per-connection deliveries that were
	// accepted by the transport.
	EventsDeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatty_events_delivered_total",
		Help: "Total events delivered to individual connections.",
	}, []string{"event"})

	// DeliveryFailuresTotal counts per-connection deliveries that were
	// dropped. Failures are best-effort casualties, not errors.
	DeliveryFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatty_delivery_failures_total",
		Help: "Total events dropped during delivery.",
	}, []string{"event"})

	// HTTPRequestsTotal counts REST requests by method, path template, and
	// status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatty_http_requests_total",
		Help: "Total HTTP requests processed.",
	}, []string{"method", "path", "status"})
)

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

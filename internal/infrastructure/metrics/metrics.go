// Package metrics defines the console's Prometheus collectors. It is the
// single place metric names, labels and help strings live.
//
// Collectors register with the default registry on package init; the
// console server exposes them through Handler.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yenshow/ba-frontend/internal/apiclient"
)

const namespace = "baconsole"

// ── Gateway metrics ───────────────────────────────────────────────────────────

// GatewayCallsTotal counts finished backend calls.
// Labels:
//   - method: HTTP method
//   - path: backend path with numeric segments replaced by ":id"
//   - kind: failure kind, or "ok"
var GatewayCallsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_calls_total",
		Help:      "Total number of backend calls, by outcome kind.",
	},
	[]string{"method", "path", "kind"},
)

// GatewayCallDuration measures backend call latency.
var GatewayCallDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_call_duration_seconds",
		Help:      "Duration of backend calls, including timeouts.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "kind"},
)

// SessionInvalidationsTotal counts sessions cleared because the backend
// answered Unauthorized.
var SessionInvalidationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_invalidations_total",
		Help:      "Total number of sessions cleared by an Unauthorized response.",
	},
)

// ── Poller metrics ────────────────────────────────────────────────────────────

// PollCyclesTotal counts poll cycles.
// Label:
//   - result: "ok", "partial" (some points failed), "skipped" or "stopped"
var PollCyclesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_cycles_total",
		Help:      "Total number of point poll cycles, by result.",
	},
	[]string{"result"},
)

// PollPointsTotal counts individual point reads.
// Labels:
//   - space: Modbus memory space
//   - kind: failure kind, or "ok"
var PollPointsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_points_total",
		Help:      "Total number of polled point reads, by space and outcome.",
	},
	[]string{"space", "kind"},
)

// ── Console server metrics ────────────────────────────────────────────────────

// HTTPRequestsTotal counts console API requests.
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of console API requests.",
	},
	[]string{"method", "route", "status"},
)

// WebSocketClients tracks connected WebSocket clients.
var WebSocketClients = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_clients",
		Help:      "Current number of connected WebSocket clients.",
	},
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Observer records gateway calls. It satisfies apiclient.Observer.
type Observer struct{}

// ObserveCall implements apiclient.Observer.
func (Observer) ObserveCall(method, path string, kind apiclient.Kind, elapsed time.Duration) {
	label := string(kind)
	if label == "" {
		label = "ok"
	}
	GatewayCallsTotal.WithLabelValues(method, RoutePattern(path), label).Inc()
	GatewayCallDuration.WithLabelValues(method, label).Observe(elapsed.Seconds())
}

// RecordInvalidation counts one session invalidation.
func RecordInvalidation(apiclient.Invalidation) {
	SessionInvalidationsTotal.Inc()
}

// RoutePattern collapses numeric path segments so label cardinality stays
// bounded: "/devices/12" becomes "/devices/:id".
func RoutePattern(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p != "" && isDigits(p) {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Package metrics defines and registers all custom Prometheus metrics for the
// inventory web server. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on import via
// promauto; HTTP request metrics come from the echoprometheus middleware.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "inventory"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts sign-in, sign-up and sign-out actions.
// Labels:
//   - action: "signin", "signup" or "signout"
//   - result: "ok", "invalid_credentials", "user_exists" or "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication actions, by action and result.",
	},
	[]string{"action", "result"},
)

// GuardDecisionsTotal counts route guard outcomes.
// Label:
//   - outcome: "loading", "redirect_login", "redirect_landing" or "allow"
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of route guard decisions, by outcome.",
	},
	[]string{"outcome"},
)

// ── Session event metrics ─────────────────────────────────────────────────────

// SessionEventsTotal counts session change notifications delivered to local
// subscribers.
// Label:
//   - kind: SIGNED_IN, SIGNED_OUT, TOKEN_REFRESHED or USER_UPDATED
var SessionEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "session_events_total",
		Help:      "Total number of session change notifications dispatched.",
	},
	[]string{"kind"},
)

// SessionQueueDepth tracks the number of notifications waiting in each
// dispatcher worker channel.
var SessionQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "session_queue_depth",
		Help:      "Current number of session events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Product metrics ───────────────────────────────────────────────────────────

// ProductMutationsTotal counts product writes.
// Labels:
//   - op: "create", "update" or "delete"
//   - result: "ok" or "error"
var ProductMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "product_mutations_total",
		Help:      "Total number of product writes, by operation and result.",
	},
	[]string{"op", "result"},
)

// BackendRequestDuration measures data access calls against the backend.
// Label:
//   - op: the data access operation (e.g. "list_products")
var BackendRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Duration of data access calls against the backend.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"op"},
)

var registerOnce sync.Once

// RegisterAuthStates exposes the number of live auth contexts, read from fn
// at scrape time. Only the first call registers.
func RegisterAuthStates(fn func() float64) {
	registerOnce.Do(func() {
		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "auth_states",
			Help:      "Number of live per-browser auth contexts.",
		}, fn)
	})
}

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Package metrics defines and registers all custom Prometheus metrics for the
// course catalog. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation (promauto) and exposed by the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coursehub"

// ── Billing client metrics ───────────────────────────────────────────────────

// BillingRequestsTotal counts calls made to the billing service.
// Labels:
//   - operation: client operation (e.g. "authenticate", "pay_course")
//   - status: HTTP status code, or "transport_error" when the call never completed
var BillingRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "billing_requests_total",
		Help:      "Total number of requests sent to the billing service.",
	},
	[]string{"operation", "status"},
)

// BillingRequestDuration measures the round trip of a billing call.
// Label:
//   - operation: client operation
var BillingRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "billing_request_duration_seconds",
		Help:      "Duration of billing service calls, transport failures included.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// ── Workflow metrics ─────────────────────────────────────────────────────────

// PaymentOutcomesTotal counts pay attempts by outcome.
// Label:
//   - outcome: "succeeded", "insufficient_funds", "already_paid" or "failed"
var PaymentOutcomesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_outcomes_total",
		Help:      "Total number of course payment attempts, by outcome.",
	},
	[]string{"outcome"},
)

// AuthAttemptsTotal counts login and registration attempts.
// Labels:
//   - action: "login" or "register"
//   - result: "success", "invalid", "conflict", "unavailable"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts, by action and result.",
	},
	[]string{"action", "result"},
)

// TokenRefreshTotal counts refresh-on-demand runs.
// Label:
//   - result: "refreshed" or "failed"
var TokenRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refresh_total",
		Help:      "Total number of bearer token refreshes, by result.",
	},
	[]string{"result"},
)

// Package metrics exposes the router's Prometheus metrics: live
// session/subscription/registration gauges, message and abort
// counters, and dispatch latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/streamspace-dev/wampd/internal/wampmsg"
)

var (
	SessionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wampd_sessions_open",
			Help: "Number of currently open WAMP sessions",
		},
	)

	SubscriptionsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wampd_subscriptions_total",
			Help: "Number of currently active topic subscriptions",
		},
	)

	RegistrationsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wampd_registrations_total",
			Help: "Number of currently active procedure registrations",
		},
	)

	PendingCalls = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wampd_pending_calls",
			Help: "Number of calls awaiting a YIELD or ERROR from a callee",
		},
	)

	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wampd_messages_total",
			Help: "Total number of WAMP messages dispatched by the router, by message code",
		},
		[]string{"code"},
	)

	OffendingMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wampd_offending_messages_total",
			Help: "Total number of inbound text frames that failed to decode or validate",
		},
	)

	AbortsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wampd_aborts_total",
			Help: "Total number of sessions aborted by the router, by reason",
		},
		[]string{"reason"},
	)

	DispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wampd_dispatch_duration_seconds",
			Help:    "Time spent dispatching a single inbound WAMP message through the router",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Registry is a dedicated Prometheus registry so wampd's metrics
// never collide with the default global registry a linked library
// might also populate.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		SessionsOpen,
		SubscriptionsTotal,
		RegistrationsTotal,
		PendingCalls,
		MessagesTotal,
		OffendingMessagesTotal,
		AbortsTotal,
		DispatchDuration,
	)
}

// RecordMessage increments the per-code message counter.
func RecordMessage(code wampmsg.Code) {
	MessagesTotal.WithLabelValues(code.String()).Inc()
}

// RecordOffending increments the offending-message counter.
func RecordOffending() {
	OffendingMessagesTotal.Inc()
}

// RecordAbort increments the abort counter for reason.
func RecordAbort(reason string) {
	AbortsTotal.WithLabelValues(reason).Inc()
}

// SetSessionsOpen sets the live session gauge.
func SetSessionsOpen(n int) {
	SessionsOpen.Set(float64(n))
}

// SetSubscriptionsTotal sets the live subscription gauge.
func SetSubscriptionsTotal(n int) {
	SubscriptionsTotal.Set(float64(n))
}

// SetRegistrationsTotal sets the live registration gauge.
func SetRegistrationsTotal(n int) {
	RegistrationsTotal.Set(float64(n))
}

// SetPendingCalls sets the live pending-call gauge.
func SetPendingCalls(n int) {
	PendingCalls.Set(float64(n))
}

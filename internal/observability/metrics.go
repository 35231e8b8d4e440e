// Package observability holds the Prometheus collectors exported on /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	commitmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Subsystem: "ledger",
		Name:      "commitments_total",
		Help:      "Commitments processed, by requested and effective status.",
	}, []string{"requested", "effective"})

	paymentTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Subsystem: "payments",
		Name:      "transitions_total",
		Help:      "Payment state transitions, by resulting status.",
	}, []string{"status"})

	costLocksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rollcall",
		Subsystem: "tracker",
		Name:      "cost_locks_total",
		Help:      "Final costs locked.",
	})

	settlementAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Subsystem: "closure",
		Name:      "settlement_attempts_total",
		Help:      "Settlement attempts, by result (settled, already_settled, blocked, rejected).",
	}, []string{"result"})

	notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Subsystem: "notify",
		Name:      "notifications_total",
		Help:      "Notifications dispatched, by result.",
	}, []string{"result"})

	subscribersEvictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rollcall",
		Subsystem: "events",
		Name:      "subscribers_evicted_total",
		Help:      "Watch subscriptions closed because the subscriber was not keeping up.",
	})
)

func init() {
	prometheus.MustRegister(
		commitmentsTotal,
		paymentTransitionsTotal,
		costLocksTotal,
		settlementAttemptsTotal,
		notificationsTotal,
		subscribersEvictedTotal,
	)
}

// RecordCommitment counts one processed commitment.
func RecordCommitment(requested, effective string) {
	commitmentsTotal.WithLabelValues(requested, effective).Inc()
}

// RecordPaymentTransition counts a payment moving into status.
func RecordPaymentTransition(status string) {
	paymentTransitionsTotal.WithLabelValues(status).Inc()
}

// RecordCostLocked counts a successful cost lock.
func RecordCostLocked() {
	costLocksTotal.Inc()
}

// Settlement results.
const (
	SettlementSettled        = "settled"
	SettlementAlreadySettled = "already_settled"
	SettlementBlocked        = "blocked"
	SettlementRejected       = "rejected"
)

// RecordSettlementAttempt counts one closure attempt.
func RecordSettlementAttempt(result string) {
	settlementAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordNotification counts a delivered or failed notification.
func RecordNotification(ok bool) {
	result := "sent"
	if !ok {
		result = "failed"
	}
	notificationsTotal.WithLabelValues(result).Inc()
}

// RecordSubscriberEvicted counts a subscription closed for falling behind.
func RecordSubscriberEvicted() {
	subscribersEvictedTotal.Inc()
}

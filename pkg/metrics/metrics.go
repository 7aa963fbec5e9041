package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckoutsCompleted counts checkout sessions that reached a terminal state (counter)
	CheckoutsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "sessions_finished_total",
			Help:      "Checkout sessions that reached a terminal state",
		},
		[]string{"outcome"},
	)

	// SagaCompensations counts rollbacks executed by the booking coordinator (counter)
	SagaCompensations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "saga_compensations_total",
			Help:      "Compensating actions executed by the booking coordinator",
		},
		[]string{"action"},
	)

	// CaptureFailures counts captures that failed after all items confirmed (counter)
	CaptureFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "capture_failures_total",
			Help:      "Payment captures that failed after provider confirmation",
		},
	)

	// WebhookEvents counts webhook ledger outcomes (counter)
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webhook",
			Name:      "events_total",
			Help:      "Webhook events by ledger outcome",
		},
		[]string{"outcome"},
	)

	// ReconciliationsResolved counts indeterminate bookings resolved by the background worker (counter)
	ReconciliationsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifecycle",
			Name:      "reconciliations_resolved_total",
			Help:      "Indeterminate provider bookings resolved by reconciliation",
		},
		[]string{"result"},
	)

	// ScheduleChanges counts detected provider schedule changes (counter)
	ScheduleChanges = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lifecycle",
			Name:      "schedule_changes_total",
			Help:      "Provider schedule changes detected against stored snapshots",
		},
	)
)

// Package metrics exposes Prometheus counters for admission and lifecycle decisions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Admission outcomes.
const (
	OutcomeConfirmed = "confirmed"
	OutcomePending   = "pending"
	OutcomeRejected  = "rejected"
	OutcomeConflict  = "conflict"
)

// Moderation batch results.
const (
	BatchOK                = "ok"
	BatchCapacityExhausted = "capacity_exhausted"
	BatchAlreadyProcessed  = "already_processed"
)

var (
	admissionDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_admission_decisions_total",
			Help: "Participation request decisions by outcome",
		},
		[]string{"outcome"},
	)

	moderationBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_moderation_batches_total",
			Help: "Organizer moderation calls by result",
		},
		[]string{"result"},
	)

	eventTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_event_transitions_total",
			Help: "Event lifecycle transitions by target state",
		},
		[]string{"state"},
	)
)

func RecordAdmission(outcome string) {
	admissionDecisionsTotal.WithLabelValues(outcome).Inc()
}

func RecordModerationBatch(result string) {
	moderationBatchesTotal.WithLabelValues(result).Inc()
}

func RecordTransition(state string) {
	eventTransitionsTotal.WithLabelValues(state).Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Package metrics exposes pipeline counters and timings via Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// ItemsIngested counts batch items by outcome: accepted, duplicate_url,
	// near_duplicate.
	ItemsIngested *prometheus.CounterVec

	// GroupsOpened counts newly opened groups per workspace.
	GroupsOpened *prometheus.CounterVec

	// ItemsSwept counts items removed by the janitor.
	ItemsSwept *prometheus.CounterVec

	// DraftOperations counts lifecycle operations by op and outcome.
	DraftOperations *prometheus.CounterVec

	// CollaboratorDuration times external collaborator calls.
	CollaboratorDuration *prometheus.HistogramVec

	// RequestDuration times API requests by route and status.
	RequestDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ItemsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsroom",
			Name:      "items_ingested_total",
			Help:      "Batch items processed, labeled by dedup outcome.",
		}, []string{"workspace", "outcome"}),

		GroupsOpened: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsroom",
			Name:      "groups_opened_total",
			Help:      "New groups opened by the grouper.",
		}, []string{"workspace"}),

		ItemsSwept: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsroom",
			Name:      "items_swept_total",
			Help:      "Stale items removed by the janitor.",
		}, []string{"workspace"}),

		DraftOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsroom",
			Name:      "draft_operations_total",
			Help:      "Draft lifecycle operations, labeled by op and outcome.",
		}, []string{"op", "outcome"}),

		CollaboratorDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "newsroom",
			Name:      "collaborator_duration_seconds",
			Help:      "Latency of external collaborator calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collaborator"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "newsroom",
			Name:      "http_request_duration_seconds",
			Help:      "API request latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveCollaborator records one collaborator call's duration.
func (m *Metrics) ObserveCollaborator(name string, start time.Time) {
	m.CollaboratorDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}

// RecordDraftOp records the outcome of a lifecycle operation.
func (m *Metrics) RecordDraftOp(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.DraftOperations.WithLabelValues(op, outcome).Inc()
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder counts reconciliation and query activity for the /metrics
// endpoint. A nil *Recorder is safe to call, so tests and one-shot runs
// can skip registration.
type Recorder struct {
	observationsTotal *prometheus.CounterVec
	validationErrors  prometheus.Counter
	writeConflicts    prometheus.Counter
	alertsCleared     prometheus.Counter
	historyPruned     prometheus.Counter
	reconcileDuration prometheus.Histogram
}

func NewRecorder() *Recorder {
	return &Recorder{
		observationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_observations_total",
			Help: "Observations processed, by reconcile outcome",
		}, []string{"outcome"}),

		validationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracker_validation_errors_total",
			Help: "Observations rejected before reconciliation",
		}),

		writeConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracker_write_conflicts_total",
			Help: "Reconcile attempts retried due to write contention",
		}),

		alertsCleared: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracker_alerts_cleared_total",
			Help: "Price drop alerts cleared after leaving the alert window",
		}),

		historyPruned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracker_history_entries_pruned_total",
			Help: "Price history entries evicted by retention sweeps",
		}),

		reconcileDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_reconcile_duration_seconds",
			Help:    "Duration of a single reconcile operation",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *Recorder) IncObservation(outcome string) {
	if r == nil {
		return
	}
	r.observationsTotal.WithLabelValues(outcome).Inc()
}

func (r *Recorder) IncValidationError() {
	if r == nil {
		return
	}
	r.validationErrors.Inc()
}

func (r *Recorder) IncWriteConflict() {
	if r == nil {
		return
	}
	r.writeConflicts.Inc()
}

func (r *Recorder) AddAlertsCleared(n int64) {
	if r == nil {
		return
	}
	r.alertsCleared.Add(float64(n))
}

func (r *Recorder) AddHistoryPruned(n int64) {
	if r == nil {
		return
	}
	r.historyPruned.Add(float64(n))
}

func (r *Recorder) ObserveReconcile(d time.Duration) {
	if r == nil {
		return
	}
	r.reconcileDuration.Observe(d.Seconds())
}

// Package metrics exposes routing-engine measurements to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "service_desk_routing"

// EngineObserver records decision-path measurements. A nil observer is a no-op.
type EngineObserver struct {
	assignments          prometheus.Counter
	assignmentRank       prometheus.Histogram
	assignmentAttempts   prometheus.Histogram
	assignmentFailures   *prometheus.CounterVec
	reservationConflicts prometheus.Counter
	scoreDuration        *prometheus.HistogramVec
	queueDepth           prometheus.Gauge
}

// NewEngineObserver creates the collectors and registers them with reg.
func NewEngineObserver(reg prometheus.Registerer) *EngineObserver {
	o := &EngineObserver{
		assignments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignments_total",
			Help:      "Total tickets assigned to a technician.",
		}),
		assignmentRank: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assignment_rank",
			Help:      "Rank score of the winning candidate.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		assignmentAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assignment_attempts",
			Help:      "Reservation attempts needed to place a ticket.",
			Buckets:   []float64{1, 2, 3, 5, 8},
		}),
		assignmentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignment_failures_total",
			Help:      "Assignment attempts that placed no ticket, by reason.",
		}, []string{"reason"}),
		reservationConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_conflicts_total",
			Help:      "Reservations lost to a concurrent assignment.",
		}),
		scoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score_compute_duration_seconds",
			Help:      "Time spent producing a score snapshot.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"cached"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatch_queue_depth",
			Help:      "Assignment requests waiting for a dispatcher worker.",
		}),
	}

	reg.MustRegister(
		o.assignments,
		o.assignmentRank,
		o.assignmentAttempts,
		o.assignmentFailures,
		o.reservationConflicts,
		o.scoreDuration,
		o.queueDepth,
	)

	return o
}

func (o *EngineObserver) AssignmentSucceeded(rank float64, attempts int) {
	if o == nil {
		return
	}
	o.assignments.Inc()
	o.assignmentRank.Observe(rank)
	o.assignmentAttempts.Observe(float64(attempts))
}

func (o *EngineObserver) AssignmentFailed(reason string) {
	if o == nil {
		return
	}
	o.assignmentFailures.WithLabelValues(reason).Inc()
}

func (o *EngineObserver) ReservationConflict() {
	if o == nil {
		return
	}
	o.reservationConflicts.Inc()
}

func (o *EngineObserver) ScoreComputed(duration time.Duration, cached bool) {
	if o == nil {
		return
	}
	o.scoreDuration.WithLabelValues(strconv.FormatBool(cached)).Observe(duration.Seconds())
}

func (o *EngineObserver) QueueDepth(depth int) {
	if o == nil {
		return
	}
	o.queueDepth.Set(float64(depth))
}

// Handler serves the gathered metrics in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

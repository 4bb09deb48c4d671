package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the eligibility workflow.
type Metrics struct {
	// Time spent in each in-flight stage
	StageLatency *prometheus.HistogramVec

	// Run outcomes: eligible, not_eligible, failed, rejected, superseded
	RunOutcome *prometheus.CounterVec

	// Continuations discarded after a reset
	StaleCompletions prometheus.Counter

	// Events dropped for slow subscribers
	DroppedEvents prometheus.Counter

	// Whole run latency, submit to done
	RunLatency prometheus.Histogram
}

// New creates a Metrics instance registered with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shieldcare_workflow_stage_duration_seconds",
			Help:    "Duration of each eligibility workflow stage",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 1.5, 2, 3, 5},
		}, []string{"stage"}), // stage: "encrypting", "submitting", "decrypting"

		RunOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shieldcare_workflow_runs_total",
			Help: "Total eligibility runs by outcome",
		}, []string{"outcome"}),

		StaleCompletions: factory.NewCounter(prometheus.CounterOpts{
			Name: "shieldcare_workflow_stale_completions_total",
			Help: "Continuations discarded because their run was superseded",
		}),

		DroppedEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "shieldcare_workflow_dropped_events_total",
			Help: "Workflow events dropped because a subscriber was not keeping up",
		}),

		RunLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "shieldcare_workflow_run_duration_seconds",
			Help:    "Duration of a full eligibility run from submit to result",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 7.5, 10, 15},
		}),
	}
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// IncrementOutcome records a run outcome.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.RunOutcome.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementStale() {
	if m != nil {
		m.StaleCompletions.Inc()
	}
}

func (m *Metrics) IncrementDropped() {
	if m != nil {
		m.DroppedEvents.Inc()
	}
}

// ObserveRun records the total run duration.
func (m *Metrics) ObserveRun(d time.Duration) {
	if m != nil {
		m.RunLatency.Observe(d.Seconds())
	}
}

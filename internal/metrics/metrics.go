package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "arbiter"

// Metrics holds the engine collectors. A nil *Metrics records nothing.
type Metrics struct {
	roundsGenerated    *prometheus.CounterVec
	pairingFailures    *prometheus.CounterVec
	resultsSubmitted   *prometheus.CounterVec
	resultsApproved    prometheus.Counter
	validationRejects  *prometheus.CounterVec
	ratingsApplied     prometheus.Counter
	standingsDuration  prometheus.Histogram
	operationDurations *prometheus.HistogramVec
}

// New creates the collectors and registers them with registry.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		roundsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_generated_total",
			Help:      "Rounds paired, by pairing system.",
		}, []string{"system"}),
		pairingFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairing_failures_total",
			Help:      "Round generations that found no legal pairing, by pairing system.",
		}, []string{"system"}),
		resultsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_submitted_total",
			Help:      "Accepted result submissions, by result type.",
		}, []string{"result_type"}),
		resultsApproved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_approved_total",
			Help:      "Administrative results approved by an arbiter.",
		}),
		validationRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_rejections_total",
			Help:      "Rejected submissions, by issue code.",
		}, []string{"code"}),
		ratingsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratings_applied_total",
			Help:      "Games whose rating changes were applied.",
		}),
		standingsDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "standings_duration_seconds",
			Help:      "Time to load and rank standings.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		operationDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of engine operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
	}

	registry.MustRegister(
		m.roundsGenerated,
		m.pairingFailures,
		m.resultsSubmitted,
		m.resultsApproved,
		m.validationRejects,
		m.ratingsApplied,
		m.standingsDuration,
		m.operationDurations,
	)
	return m
}

func (m *Metrics) RoundGenerated(system string) {
	if m == nil {
		return
	}
	m.roundsGenerated.WithLabelValues(system).Inc()
}

func (m *Metrics) PairingFailed(system string) {
	if m == nil {
		return
	}
	m.pairingFailures.WithLabelValues(system).Inc()
}

func (m *Metrics) ResultSubmitted(resultType string) {
	if m == nil {
		return
	}
	m.resultsSubmitted.WithLabelValues(resultType).Inc()
}

func (m *Metrics) ResultApproved() {
	if m == nil {
		return
	}
	m.resultsApproved.Inc()
}

func (m *Metrics) ValidationRejected(codes ...string) {
	if m == nil {
		return
	}
	for _, code := range codes {
		m.validationRejects.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) RatingApplied() {
	if m == nil {
		return
	}
	m.ratingsApplied.Inc()
}

func (m *Metrics) ObserveStandings(d time.Duration) {
	if m == nil {
		return
	}
	m.standingsDuration.Observe(d.Seconds())
}

// ObserveOperation records how long an operation took and whether it failed.
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operationDurations.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

package acqopt

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors updated by Optimize. A nil *Metrics
// records nothing.
type Metrics struct {
	optimizeCalls  *prometheus.CounterVec
	anchorRuns     prometheus.Counter
	anchorFailures prometheus.Counter
	fallbacks      prometheus.Counter
	specifiedWins  prometheus.Counter
	duration       prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg when it is not
// nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		optimizeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acquisition",
			Name:      "optimize_total",
			Help:      "Acquisition optimizations by outcome.",
		}, []string{"outcome"}),
		anchorRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "acquisition",
			Name:      "anchor_runs_total",
			Help:      "Local searches started from anchor points.",
		}),
		anchorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "acquisition",
			Name:      "anchor_failures_total",
			Help:      "Local searches that failed.",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "acquisition",
			Name:      "duplicate_fallbacks_total",
			Help:      "Optimized points replaced by their anchor because they were duplicates.",
		}),
		specifiedWins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "acquisition",
			Name:      "specified_wins_total",
			Help:      "Optimizations won by the specified anchor point.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "acquisition",
			Name:      "optimize_duration_seconds",
			Help:      "Wall-clock time of Optimize calls.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{
			m.optimizeCalls, m.anchorRuns, m.anchorFailures, m.fallbacks, m.specifiedWins, m.duration,
		} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(outcome string, res *Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.optimizeCalls.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
	if res == nil {
		return
	}
	m.anchorRuns.Add(float64(len(res.Candidates)))
	m.anchorFailures.Add(float64(len(res.Failures)))
	for _, c := range res.Candidates {
		if c.FellBack {
			m.fallbacks.Inc()
		}
	}
	if res.SpecifiedWon {
		m.specifiedWins.Inc()
	}
}

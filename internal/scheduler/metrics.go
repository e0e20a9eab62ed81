package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	driverLive      = "live"
	driverBackTrack = "backtrack"
)

// Metrics are the scheduler's prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	jobsActive    prometheus.Gauge
	eventsFired   *prometheus.CounterVec
	catchUpSkips  *prometheus.CounterVec
	pushFailures  *prometheus.CounterVec
	anchorInvalid prometheus.Counter
}

func InitPrometheusMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		jobsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scheduler_jobs_active",
				Help:      "Number of registered jobs",
			},
		),
		eventsFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_events_fired_total",
				Help:      "Fire events pushed to the dispatcher",
			},
			[]string{"driver", "unit"},
		),
		catchUpSkips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_catchup_skipped_total",
				Help:      "Past occurrences skipped while computing first runs",
			},
			[]string{"unit"},
		),
		pushFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_push_failures_total",
				Help:      "Fire events the dispatcher did not accept",
			},
			[]string{"driver"},
		),
		anchorInvalid: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_anchor_parse_failures_total",
				Help:      "Anchor texts that fell back to the default anchor",
			},
		),
	}

	reg.MustRegister(
		m.jobsActive,
		m.eventsFired,
		m.catchUpSkips,
		m.pushFailures,
		m.anchorInvalid,
	)
	return m
}

func (m *Metrics) setJobs(n int) {
	if m == nil {
		return
	}
	m.jobsActive.Set(float64(n))
}

func (m *Metrics) fired(driver string, u Unit) {
	if m == nil {
		return
	}
	m.eventsFired.WithLabelValues(driver, u.String()).Inc()
}

func (m *Metrics) skipped(u Unit, n int) {
	if m == nil || n == 0 {
		return
	}
	m.catchUpSkips.WithLabelValues(u.String()).Add(float64(n))
}

func (m *Metrics) pushFailed(driver string) {
	if m == nil {
		return
	}
	m.pushFailures.WithLabelValues(driver).Inc()
}

func (m *Metrics) anchorFailed() {
	if m == nil {
		return
	}
	m.anchorInvalid.Inc()
}

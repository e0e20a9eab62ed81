package bus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusOK       = "ok"
	statusError    = "error"
	statusPanic    = "panic"
	statusUnrouted = "unrouted"
)

// Metrics are the dispatcher's prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry       prometheus.Registerer
	namespace      string
	publishedTotal prometheus.Counter
	deliveredTotal *prometheus.CounterVec
}

func InitPrometheusMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		registry:  reg,
		namespace: namespace,
		publishedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatcher_events_published_total",
				Help:      "Events accepted into the dispatcher queue",
			},
		),
		deliveredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatcher_events_delivered_total",
				Help:      "Events taken off the queue, by delivery status",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(m.publishedTotal, m.deliveredTotal)
	return m
}

func (m *Metrics) observeQueue(queue chan Event) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Name:      "dispatcher_queue_depth",
			Help:      "Events waiting for delivery",
		},
		func() float64 { return float64(len(queue)) },
	))
}

func (m *Metrics) published() {
	if m == nil {
		return
	}
	m.publishedTotal.Inc()
}

func (m *Metrics) delivered(status string) {
	if m == nil {
		return
	}
	m.deliveredTotal.WithLabelValues(status).Inc()
}

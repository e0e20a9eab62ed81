package builders

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/aatumaykin/tempo/internal/bus"
	"github.com/aatumaykin/tempo/internal/config"
	"github.com/aatumaykin/tempo/internal/logger"
	"github.com/aatumaykin/tempo/internal/scheduler"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors handed to the dispatcher and the
// scheduler. With metrics disabled every field is nil, which both accept.
type Metrics struct {
	Registry  *prometheus.Registry
	Bus       *bus.Metrics
	Scheduler *scheduler.Metrics
}

type MetricsBuilder struct {
	config *config.Config
	logger *logger.Logger
}

func NewMetricsBuilder(cfg *config.Config, log *logger.Logger) *MetricsBuilder {
	return &MetricsBuilder{
		config: cfg,
		logger: log,
	}
}

func (b *MetricsBuilder) Build() *Metrics {
	if !b.config.Metrics.Enabled {
		return &Metrics{}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ns := b.config.Metrics.Namespace
	return &Metrics{
		Registry:  reg,
		Bus:       bus.InitPrometheusMetrics(ns, reg),
		Scheduler: scheduler.InitPrometheusMetrics(ns, reg),
	}
}

// MetricsServer exposes a registry over HTTP.
type MetricsServer struct {
	srv    *http.Server
	addr   net.Addr
	logger *logger.Logger
}

// Serve starts the /metrics endpoint when metrics are enabled and a listen
// address is configured; otherwise it returns nil.
func (b *MetricsBuilder) Serve(m *Metrics) (*MetricsServer, error) {
	if m.Registry == nil || b.config.Metrics.Listen == "" {
		return nil, nil
	}

	ln, err := net.Listen("tcp", b.config.Metrics.Listen)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", b.config.Metrics.Listen)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry}))

	s := &MetricsServer{
		srv:    &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		addr:   ln.Addr(),
		logger: b.logger,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", err)
		}
	}()

	b.logger.Info("metrics server started", logger.Field{Key: "addr", Value: s.addr.String()})
	return s, nil
}

// Addr is the address the server listens on.
func (s *MetricsServer) Addr() string {
	return s.addr.String()
}

func (s *MetricsServer) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Package app wires the scheduler application together: clock, dispatcher,
// job manager, driver, metrics and the jobs file watcher.
package app

import (
	"context"
	"sync"

	"github.com/aatumaykin/tempo/internal/app/builders"
	"github.com/aatumaykin/tempo/internal/bus"
	"github.com/aatumaykin/tempo/internal/clock"
	"github.com/aatumaykin/tempo/internal/config"
	"github.com/aatumaykin/tempo/internal/logger"
	"github.com/aatumaykin/tempo/internal/scheduler"
	"github.com/cockroachdb/errors"
)

var (
	// ErrSchedulerNotFound is returned when the scheduler is looked up
	// before Initialize or after Shutdown.
	ErrSchedulerNotFound = errors.New("scheduler not found")
	ErrAlreadyStarted    = errors.New("application is already started")
)

// App represents the main application structure.
// It holds references to all major components and manages their lifecycle.
type App struct {
	// Configuration and core services
	config *config.Config
	logger *logger.Logger

	// Time and scheduling
	mode      clock.Mode
	clock     clock.Clock
	scheduler *scheduler.Manager
	driver    scheduler.Driver
	jobs      *builders.JobsBuilder

	// Event delivery
	dispatcher *bus.Dispatcher

	// Observability
	metrics       *builders.Metrics
	metricsServer *builders.MetricsServer

	// Jobs file watcher
	watchDone chan struct{}

	// Context management
	ctx    context.Context
	cancel context.CancelFunc

	// Thread-safety
	mu      sync.RWMutex
	started bool
}

// New creates a new App instance with the provided configuration and logger.
// Components are created in Initialize.
func New(cfg *config.Config, log *logger.Logger) *App {
	return &App{
		config: cfg,
		logger: log,
	}
}

// Run initializes the application and blocks until it is done. In live
// modes that is when ctx is cancelled; in backtrack mode it is when the
// replay has reached its horizon and every event has been handled.
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		return err
	}

	a.logger.Info("Application is running", logger.Field{Key: "mode", Value: string(a.mode)})

	var runErr error
	if a.mode == clock.ModeBackTrack {
		runErr = a.waitReplay(ctx)
	} else {
		<-ctx.Done()
	}

	shutdownErr := a.Shutdown()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return shutdownErr
}

func (a *App) waitReplay(ctx context.Context) error {
	if err := a.dispatcher.WaitSources(ctx); err != nil {
		return errors.Wrap(err, "replay interrupted")
	}
	if err := a.dispatcher.Flush(ctx); err != nil {
		return errors.Wrap(err, "replay flush interrupted")
	}
	a.logger.Info("Replay finished", logger.Field{Key: "clock", Value: a.clock.Now()})
	return nil
}

// Scheduler returns the job manager.
func (a *App) Scheduler() (*scheduler.Manager, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.scheduler == nil {
		return nil, errors.WithHint(ErrSchedulerNotFound, "the application has not been initialized")
	}
	return a.scheduler, nil
}

// MetricsAddr returns the metrics server address, or "" when it is not
// running.
func (a *App) MetricsAddr() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.metricsServer == nil {
		return ""
	}
	return a.metricsServer.Addr()
}

package app

import (
	"context"

	"github.com/aatumaykin/tempo/internal/app/builders"
	"github.com/aatumaykin/tempo/internal/bus"
	"github.com/aatumaykin/tempo/internal/clock"
	"github.com/aatumaykin/tempo/internal/config"
	"github.com/aatumaykin/tempo/internal/constants"
	"github.com/aatumaykin/tempo/internal/logger"
	"github.com/aatumaykin/tempo/internal/scheduler"
	"github.com/cockroachdb/errors"
)

// Initialize initializes all application components.
// Jobs are registered before the driver starts, so their first runs are
// computed against the clock's starting instant.
func (a *App) Initialize(ctx context.Context) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return ErrAlreadyStarted
	}

	// 1. Create application context
	a.ctx, a.cancel = context.WithCancel(ctx)
	defer func() {
		if err != nil {
			a.cancel()
		}
	}()

	// 2. Clock
	a.mode, err = a.config.Scheduler.RunMode()
	if err != nil {
		return err
	}
	clk, horizon, err := builders.NewClockBuilder(a.config, a.logger).Build()
	if err != nil {
		return errors.Wrap(err, "failed to build clock")
	}
	a.clock = clk

	// 3. Metrics
	metricsBuilder := builders.NewMetricsBuilder(a.config, a.logger)
	a.metrics = metricsBuilder.Build()

	// 4. Dispatcher and job manager
	workers := a.config.Dispatcher.Workers
	if clk.Mode() == clock.ModeBackTrack && workers > 1 {
		// Replay delivers in firing order, which needs one worker.
		a.logger.Warn("dispatcher.workers ignored in backtrack mode",
			logger.Field{Key: "configured", Value: workers})
		workers = 1
	}
	a.dispatcher = bus.New(bus.Config{
		Capacity: a.config.Dispatcher.Capacity,
		Workers:  workers,
		Horizon:  horizon,
	}, a.logger, a.metrics.Bus)

	mgr := scheduler.NewManager(clk, a.logger,
		scheduler.WithRouter(a.dispatcher),
		scheduler.WithMetrics(a.metrics.Scheduler))

	// 5. Jobs
	a.jobs = builders.NewJobsBuilder(a.logger)
	a.jobs.Register(mgr, a.config.Jobs, constants.TagConfigJobs)

	if path := a.config.Scheduler.JobsFile; path != "" {
		fileJobs, err := config.LoadJobs(path)
		if err != nil {
			return err
		}
		a.jobs.Register(mgr, fileJobs, constants.TagJobsFile)
	}

	if a.config.Scheduler.Heartbeat {
		if _, err := a.jobs.Heartbeat(mgr); err != nil {
			return errors.Wrap(err, "failed to schedule heartbeat")
		}
	}

	// 6. Driver
	poll, err := a.config.Scheduler.Poll()
	if err != nil {
		return err
	}
	a.driver = scheduler.NewDriver(a.mode, mgr, a.dispatcher, a.logger,
		scheduler.WithPollInterval(poll),
		scheduler.WithHorizon(horizon))
	if err := a.dispatcher.RegisterEventSource(a.driver); err != nil {
		return errors.Wrap(err, "failed to register scheduler driver")
	}

	// 7. Start delivery
	if err := a.dispatcher.Start(a.ctx); err != nil {
		return errors.Wrap(err, "failed to start dispatcher")
	}
	a.scheduler = mgr

	// 8. Metrics endpoint
	a.metricsServer, err = metricsBuilder.Serve(a.metrics)
	if err != nil {
		_ = a.dispatcher.Stop()
		a.scheduler = nil
		return err
	}

	// 9. Jobs file watcher
	if a.config.Scheduler.WatchJobsFile && a.mode != clock.ModeBackTrack {
		a.watchDone = make(chan struct{})
		go a.watchJobsFile(a.ctx, mgr)
	}

	// 10. Mark as started
	a.started = true

	a.logger.Info("Application initialized",
		logger.Field{Key: "mode", Value: string(a.mode)},
		logger.Field{Key: "jobs", Value: mgr.Len()},
		logger.Field{Key: "driver", Value: a.driver.Name()})
	return nil
}

func (a *App) watchJobsFile(ctx context.Context, mgr *scheduler.Manager) {
	defer close(a.watchDone)

	w := config.NewJobsWatcher(a.config.Scheduler.JobsFile, a.logger)
	err := w.Watch(ctx, func(jobs []config.JobConfig) {
		if _, _, err := a.jobs.Reload(mgr, jobs, constants.TagJobsFile); err != nil {
			a.logger.Error("failed to reload jobs file", err)
		}
	})
	if err != nil {
		a.logger.Error("jobs file watcher stopped", err)
	}
}

package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aatumaykin/tempo/internal/bus"
	"github.com/aatumaykin/tempo/internal/constants"
	"github.com/aatumaykin/tempo/internal/logger"
	"github.com/robfig/cron/v3"
)

// EventPutter accepts fire events. bus.Dispatcher implements it.
type EventPutter interface {
	PutEvent(ctx context.Context, ev bus.Event) error
}

// State of a driver.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// DriverOption configures a driver.
type DriverOption func(*driverOptions)

type driverOptions struct {
	poll    cron.Schedule
	horizon time.Time
}

// WithPollInterval sets the live polling quantum. Sub-second values are
// rounded up to one second.
func WithPollInterval(d time.Duration) DriverOption {
	return func(o *driverOptions) { o.poll = cron.Every(d) }
}

// WithPollSchedule sets an arbitrary schedule for live wake-ups.
func WithPollSchedule(s cron.Schedule) DriverOption {
	return func(o *driverOptions) { o.poll = s }
}

// WithHorizon sets the replay horizon used when GenEvents is given none.
func WithHorizon(t time.Time) DriverOption {
	return func(o *driverOptions) { o.horizon = t }
}

func buildOptions(opts []DriverOption) driverOptions {
	o := driverOptions{poll: cron.Every(constants.SchedulerDefaultPollInterval)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// LiveDriver fires due jobs against the manager's clock, sleeping for the
// polling quantum whenever nothing is due.
type LiveDriver struct {
	mgr    *Manager
	putter EventPutter
	logger *logger.Logger
	poll   cron.Schedule

	stopCh   chan struct{}
	stopOnce sync.Once
	stopped  atomic.Bool
}

func NewLiveDriver(mgr *Manager, putter EventPutter, log *logger.Logger, opts ...DriverOption) *LiveDriver {
	o := buildOptions(opts)
	return &LiveDriver{
		mgr:    mgr,
		putter: putter,
		logger: log.Component(constants.SchedulerLiveSourceName),
		poll:   o.poll,
		stopCh: make(chan struct{}),
	}
}

func (d *LiveDriver) Name() string { return constants.SchedulerLiveSourceName }

func (d *LiveDriver) State() State {
	if d.stopped.Load() {
		return StateStopped
	}
	return StateRunning
}

// GenEvents runs the polling loop until ctx ends or Stop is called. The
// horizon is ignored in live mode.
func (d *LiveDriver) GenEvents(ctx context.Context, _ time.Time) error {
	d.logger.Info("live driver started")
	for {
		if d.stopped.Load() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		now := d.mgr.clock.Now()
		ev, ok := d.mgr.fireNext(now, func(time.Time) time.Time { return now })
		if ok {
			d.push(ctx, ev)
			continue
		}

		timer := time.NewTimer(d.poll.Next(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-d.stopCh:
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (d *LiveDriver) push(ctx context.Context, ev FireEvent) {
	if err := d.putter.PutEvent(ctx, ev.busEvent()); err != nil {
		d.mgr.metrics.pushFailed(driverLive)
		d.logger.Error("failed to push fire event", err,
			logger.Field{Key: "job_id", Value: ev.JobID})
		return
	}
	d.mgr.metrics.fired(driverLive, ev.Unit)
	d.logger.Debug("job fired",
		logger.Field{Key: "job_id", Value: ev.JobID},
		logger.Field{Key: "scheduled_for", Value: ev.ScheduledFor},
		logger.Field{Key: "fired_at", Value: ev.FiredAt})
}

// Stop ends the loop for good and clears all jobs.
func (d *LiveDriver) Stop() {
	d.stopOnce.Do(func() {
		d.stopped.Store(true)
		close(d.stopCh)
		n := d.mgr.Clear()
		d.logger.Info("live driver stopped", logger.Field{Key: "cleared_jobs", Value: n})
	})
}

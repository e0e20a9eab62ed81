package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aatumaykin/tempo/internal/bus"
	"github.com/aatumaykin/tempo/internal/clock"
	"github.com/aatumaykin/tempo/internal/constants"
	"github.com/aatumaykin/tempo/internal/logger"
)

// BackTrackDriver drains jobs in firing order without waiting. Each event
// fires at its job's own next run; when the manager's clock is a
// clock.Advancer it is moved to that instant before the push.
type BackTrackDriver struct {
	mgr     *Manager
	putter  EventPutter
	logger  *logger.Logger
	horizon time.Time

	stopOnce sync.Once
	stopped  atomic.Bool
}

func NewBackTrackDriver(mgr *Manager, putter EventPutter, log *logger.Logger, opts ...DriverOption) *BackTrackDriver {
	o := buildOptions(opts)
	return &BackTrackDriver{
		mgr:     mgr,
		putter:  putter,
		logger:  log.Component(constants.SchedulerBackTrackSourceName),
		horizon: o.horizon,
	}
}

func (d *BackTrackDriver) Name() string { return constants.SchedulerBackTrackSourceName }

func (d *BackTrackDriver) State() State {
	if d.stopped.Load() {
		return StateStopped
	}
	return StateRunning
}

// GenEvents fires jobs until none remain or the earliest one is after the
// horizon. A zero horizon falls back to the driver's own; if that is zero
// too the drain is unbounded.
func (d *BackTrackDriver) GenEvents(ctx context.Context, horizon time.Time) error {
	if horizon.IsZero() {
		horizon = d.horizon
	}
	advancer, _ := d.mgr.clock.(clock.Advancer)

	fired := 0
	for {
		if d.stopped.Load() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		ev, ok := d.mgr.fireNext(horizon, func(scheduled time.Time) time.Time { return scheduled })
		if !ok {
			d.logger.Info("replay drained",
				logger.Field{Key: "fired", Value: fired},
				logger.Field{Key: "remaining_jobs", Value: d.mgr.Len()},
				logger.Field{Key: "horizon", Value: horizon})
			return nil
		}
		if advancer != nil {
			advancer.AdvanceTo(ev.FiredAt)
		}

		if err := d.putter.PutEvent(ctx, ev.busEvent()); err != nil {
			d.mgr.metrics.pushFailed(driverBackTrack)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Error("failed to push fire event", err,
				logger.Field{Key: "job_id", Value: ev.JobID})
			continue
		}
		fired++
		d.mgr.metrics.fired(driverBackTrack, ev.Unit)
	}
}

// Stop ends the drain and clears all jobs.
func (d *BackTrackDriver) Stop() {
	d.stopOnce.Do(func() {
		d.stopped.Store(true)
		n := d.mgr.Clear()
		d.logger.Info("backtrack driver stopped", logger.Field{Key: "cleared_jobs", Value: n})
	})
}

// Driver is the event source side of either driver.
type Driver interface {
	bus.EventSource
	State() State
}

// NewDriver picks the driver for mode: BackTrackDriver for backtrack,
// LiveDriver otherwise.
func NewDriver(mode clock.Mode, mgr *Manager, putter EventPutter, log *logger.Logger, opts ...DriverOption) Driver {
	if mode == clock.ModeBackTrack {
		return NewBackTrackDriver(mgr, putter, log, opts...)
	}
	return NewLiveDriver(mgr, putter, log, opts...)
}

package builders

import (
	"context"

	"github.com/aatumaykin/tempo/internal/clock"
	"github.com/aatumaykin/tempo/internal/config"
	"github.com/aatumaykin/tempo/internal/constants"
	"github.com/aatumaykin/tempo/internal/logger"
	"github.com/aatumaykin/tempo/internal/scheduler"
	"github.com/cockroachdb/errors"
)

// Handlers returns the built-in job callbacks by name.
func Handlers(log *logger.Logger) map[string]scheduler.Callback {
	return map[string]scheduler.Callback{
		constants.HandlerLog: func(ctx context.Context, ev scheduler.FireEvent) error {
			log.InfoCtx(ctx, "job triggered",
				logger.Field{Key: "job_id", Value: ev.JobID},
				logger.Field{Key: "unit", Value: ev.Unit.String()},
				logger.Field{Key: "scheduled_for", Value: ev.ScheduledFor},
				logger.Field{Key: "fired_at", Value: ev.FiredAt},
				logger.Field{Key: "args", Value: ev.Call.Args},
				logger.Field{Key: "kwargs", Value: ev.Call.Kwargs})
			return nil
		},
		constants.HandlerNoop: func(context.Context, scheduler.FireEvent) error {
			return nil
		},
	}
}

type JobsBuilder struct {
	logger   *logger.Logger
	handlers map[string]scheduler.Callback
}

func NewJobsBuilder(log *logger.Logger) *JobsBuilder {
	return &JobsBuilder{
		logger:   log,
		handlers: Handlers(log.Component("jobs")),
	}
}

// Register schedules declared jobs on mgr, tagging each with tag. A job
// that cannot be scheduled is logged and skipped. It returns how many
// jobs were scheduled.
func (b *JobsBuilder) Register(mgr *scheduler.Manager, jobs []config.JobConfig, tag string) int {
	added := 0
	for _, jc := range jobs {
		job, err := b.schedule(mgr, jc, tag)
		if err != nil {
			b.logger.Error("failed to schedule job", err,
				logger.Field{Key: "job_id", Value: jc.ID},
				logger.Field{Key: "source", Value: tag})
			continue
		}
		b.logger.Info("job scheduled",
			logger.Field{Key: "job_id", Value: job.ID()},
			logger.Field{Key: "unit", Value: job.Unit().String()},
			logger.Field{Key: "next_run", Value: job.NextRun()})
		added++
	}
	return added
}

func (b *JobsBuilder) schedule(mgr *scheduler.Manager, jc config.JobConfig, tag string) (*scheduler.Job, error) {
	handler, ok := b.handlers[jc.Handler]
	if !ok {
		return nil, errors.Newf("unknown handler %q", jc.Handler)
	}
	spec, err := jc.Spec(tag)
	if err != nil {
		return nil, err
	}
	return mgr.Schedule(spec, scheduler.Call{Func: handler, Args: jc.Args, Kwargs: jc.Kwargs})
}

// Reload replaces every job tagged with tag by jobs.
func (b *JobsBuilder) Reload(mgr *scheduler.Manager, jobs []config.JobConfig, tag string) (removed, added int, err error) {
	removed, err = mgr.ClearByTag(tag)
	if err != nil {
		return 0, 0, err
	}
	added = b.Register(mgr, jobs, tag)
	b.logger.Info("jobs reloaded",
		logger.Field{Key: "source", Value: tag},
		logger.Field{Key: "removed", Value: removed},
		logger.Field{Key: "added", Value: added})
	return removed, added, nil
}

// Heartbeat schedules the heartbeat job: every 3..5 seconds in livetrack
// mode, every 3..15 minutes otherwise.
func (b *JobsBuilder) Heartbeat(mgr *scheduler.Manager) (*scheduler.Job, error) {
	spec := scheduler.Every(constants.HeartbeatMinStep)
	if mgr.Clock().Mode() == clock.ModeLiveTrack {
		spec = spec.To(constants.HeartbeatMaxFast).Seconds()
	} else {
		spec = spec.To(constants.HeartbeatMaxSlow).Minutes()
	}
	spec = spec.Named(constants.HeartbeatJobID).Tag(constants.HeartbeatJobID)

	log := b.logger.Component(constants.HeartbeatJobID)
	return mgr.Schedule(spec, scheduler.Call{Func: func(ctx context.Context, ev scheduler.FireEvent) error {
		fields := []logger.Field{
			{Key: "fired_at", Value: ev.FiredAt},
			{Key: "jobs", Value: mgr.Len()},
		}
		if idle, ok := mgr.IdleSecondsAt(ev.FiredAt); ok {
			fields = append(fields, logger.Field{Key: "idle_seconds", Value: idle})
		}
		log.InfoCtx(ctx, "heartbeat", fields...)
		return nil
	}})
}

package app

import (
	"context"
	"time"

	"github.com/aatumaykin/tempo/internal/app/builders"
	"github.com/aatumaykin/tempo/internal/bus"
	"github.com/aatumaykin/tempo/internal/clock"
	"github.com/aatumaykin/tempo/internal/config"
	"github.com/aatumaykin/tempo/internal/constants"
	"github.com/aatumaykin/tempo/internal/logger"
	"github.com/aatumaykin/tempo/internal/scheduler"
	"github.com/cockroachdb/errors"
)

// PreviewEntry is one upcoming firing.
type PreviewEntry struct {
	JobID string
	Unit  scheduler.Unit
	At    time.Time
}

// Preview replays the configured jobs from the instant from and returns
// the next count firings of every job in firing order. Callbacks are not
// invoked.
func Preview(ctx context.Context, cfg *config.Config, log *logger.Logger, from time.Time, count int) ([]PreviewEntry, error) {
	if count < 1 {
		return nil, errors.Newf("count must be positive, got %d", count)
	}

	mgr := scheduler.NewManager(clock.NewReplay(from), log)
	jobs := builders.NewJobsBuilder(log)
	jobs.Register(mgr, cfg.Jobs, constants.TagConfigJobs)
	if path := cfg.Scheduler.JobsFile; path != "" {
		fileJobs, err := config.LoadJobs(path)
		if err != nil {
			return nil, err
		}
		jobs.Register(mgr, fileJobs, constants.TagJobsFile)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := &previewCollector{
		mgr:    mgr,
		count:  count,
		seen:   make(map[string]int),
		cancel: cancel,
	}
	for _, job := range mgr.Jobs() {
		c.ids = append(c.ids, job.ID())
	}

	err := scheduler.NewBackTrackDriver(mgr, c, log).GenEvents(runCtx, time.Time{})
	if err != nil && (ctx.Err() != nil || !errors.Is(err, context.Canceled)) {
		return nil, err
	}
	return c.entries, nil
}

// previewCollector records fire events and cancels the replay once every
// job has either fired count times or left the manager.
type previewCollector struct {
	mgr     *scheduler.Manager
	count   int
	ids     []string
	seen    map[string]int
	entries []PreviewEntry
	cancel  context.CancelFunc
}

func (c *previewCollector) PutEvent(_ context.Context, ev bus.Event) error {
	fe, ok := ev.Payload.(scheduler.FireEvent)
	if !ok {
		return errors.Newf("unexpected payload %T", ev.Payload)
	}
	if c.seen[fe.JobID] < c.count {
		c.seen[fe.JobID]++
		c.entries = append(c.entries, PreviewEntry{JobID: fe.JobID, Unit: fe.Unit, At: fe.FiredAt})
	}
	if c.done() {
		c.cancel()
	}
	return nil
}

func (c *previewCollector) done() bool {
	for _, id := range c.ids {
		if c.seen[id] >= c.count {
			continue
		}
		if _, ok := c.mgr.Get(id); ok {
			return false
		}
	}
	return true
}

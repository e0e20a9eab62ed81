package scheduler

import (
	"container/heap"
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/aatumaykin/tempo/internal/bus"
	"github.com/aatumaykin/tempo/internal/clock"
	"github.com/aatumaykin/tempo/internal/constants"
	"github.com/aatumaykin/tempo/internal/logger"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Router establishes dispatch routes for scheduled jobs. A route lives as
// long as its job is registered.
type Router interface {
	Subscribe(key string, h bus.Handler)
	Unsubscribe(key string)
}

// Manager is the registry of active jobs bound to one clock. All methods
// are safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	clock   clock.Clock
	router  Router
	logger  *logger.Logger
	metrics *Metrics
	intN    func(n int) int

	jobs  map[string]*Job
	queue jobQueue
	seq   uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithRouter subscribes every scheduled job's route on r.
func WithRouter(r Router) Option {
	return func(m *Manager) { m.router = r }
}

// WithMetrics records scheduler metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithRand draws random steps from r instead of the global source.
func WithRand(r *rand.Rand) Option {
	return func(m *Manager) { m.intN = r.IntN }
}

// NewManager creates an empty manager.
func NewManager(clk clock.Clock, log *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		clock:  clk,
		logger: log.Component("scheduler"),
		intN:   rand.IntN,
		jobs:   make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Clock returns the manager's time source.
func (m *Manager) Clock() clock.Clock {
	return m.clock
}

// Schedule validates spec, binds call, computes the first run, registers the
// job and subscribes its route. Nothing is registered on error.
func (m *Manager) Schedule(spec JobSpec, call Call) (*Job, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if call.Func == nil {
		return nil, errors.Wrap(ErrConfig, "callback is nil")
	}

	now := m.clock.Now()
	job := &Job{
		id:      spec.id,
		unit:    spec.unit,
		minStep: spec.step,
		maxStep: spec.maxStep,
		anchor:  time.Date(1970, 1, 1, 0, 0, 0, 0, now.Location()),
		tags:    make(map[any]struct{}, len(spec.tags)),
		call:    call,
		index:   -1,
	}
	if job.id == "" {
		job.id = constants.SchedulerJobIDPrefix + uuid.New().String()
	}
	job.routeKey = constants.SchedulerRoutePrefix + job.id
	for _, tag := range spec.tags {
		job.tags[tag] = struct{}{}
	}
	if spec.at != "" {
		anchor, err := ParseAnchor(spec.at, now)
		if err != nil {
			m.metrics.anchorFailed()
			m.logger.Warn("anchor text ignored, using default anchor",
				logger.Field{Key: "job_id", Value: job.id},
				logger.Field{Key: "anchor", Value: spec.at},
				logger.Field{Key: "error", Value: err.Error()})
		} else {
			job.anchor, job.anchored = anchor, true
		}
	}

	m.mu.Lock()
	if _, exists := m.jobs[job.id]; exists {
		m.mu.Unlock()
		return nil, errors.Wrapf(ErrDuplicateJob, "%s", job.id)
	}
	skipped := job.computeFirstRun(now, m.draw)
	if m.router != nil {
		m.router.Subscribe(job.routeKey, routeHandler)
	}
	m.add(job)
	m.mu.Unlock()

	m.metrics.skipped(job.unit, skipped)
	m.logger.Info("job scheduled",
		logger.Field{Key: "job_id", Value: job.id},
		logger.Field{Key: "unit", Value: job.unit.String()},
		logger.Field{Key: "steps", Value: []int{job.minStep, job.maxStep}},
		logger.Field{Key: "next_run", Value: job.NextRun()},
		logger.Field{Key: "skipped", Value: skipped})
	return job, nil
}

// routeHandler is the dispatcher-side end of every job route.
func routeHandler(ctx context.Context, ev bus.Event) error {
	fe, ok := ev.Payload.(FireEvent)
	if !ok {
		return errors.Newf("unexpected payload %T on route %s", ev.Payload, ev.Key)
	}
	return fe.Invoke(ctx)
}

// add must be called with m.mu held.
func (m *Manager) add(job *Job) {
	m.seq++
	job.seq = m.seq
	m.jobs[job.id] = job
	heap.Push(&m.queue, job)
	m.metrics.setJobs(len(m.jobs))
}

// remove must be called with m.mu held.
func (m *Manager) remove(job *Job) {
	if job.index >= 0 {
		heap.Remove(&m.queue, job.index)
	}
	delete(m.jobs, job.id)
	if m.router != nil {
		m.router.Unsubscribe(job.routeKey)
	}
	m.metrics.setJobs(len(m.jobs))
}

// draw must be called with m.mu held.
func (m *Manager) draw(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + m.intN(hi-lo+1)
}

// Cancel removes the job with the given id. It reports whether a job was
// removed; cancelling an unknown id is a no-op.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return false
	}
	m.remove(job)
	m.logger.Info("job cancelled", logger.Field{Key: "job_id", Value: id})
	return true
}

// ClearByTag removes every job tagged with tag. A nil tag removes all jobs.
func (m *Manager) ClearByTag(tag any) (int, error) {
	if tag != nil {
		if err := checkTag(tag); err != nil {
			return 0, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, job := range m.jobs {
		if tag != nil {
			if _, ok := job.tags[tag]; !ok {
				continue
			}
		}
		m.remove(job)
		removed++
	}
	if removed > 0 {
		m.logger.Info("jobs cleared",
			logger.Field{Key: "tag", Value: tag},
			logger.Field{Key: "count", Value: removed})
	}
	return removed, nil
}

// Clear removes all jobs.
func (m *Manager) Clear() int {
	n, _ := m.ClearByTag(nil)
	return n
}

// NextDue returns the job with the earliest next run; ties go to the job
// registered first.
func (m *Manager) NextDue() (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return nil, false
	}
	return m.queue[0], true
}

// IdleSeconds returns the seconds until the next due job by the manager's
// clock. It is zero or negative when a job is already due and false when
// there are no jobs.
func (m *Manager) IdleSeconds() (float64, bool) {
	return m.IdleSecondsAt(m.clock.Now())
}

// IdleSecondsAt is IdleSeconds measured from now.
func (m *Manager) IdleSecondsAt(now time.Time) (float64, bool) {
	job, ok := m.NextDue()
	if !ok {
		return 0, false
	}
	return job.NextRun().Sub(now).Seconds(), true
}

// Get returns the job with the given id.
func (m *Manager) Get(id string) (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	return job, ok
}

// Len returns the number of registered jobs.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// Jobs returns the registered jobs in firing order.
func (m *Manager) Jobs() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	slices.SortFunc(jobs, func(a, b *Job) int {
		switch {
		case a.less(b):
			return -1
		case b.less(a):
			return 1
		}
		return 0
	})
	return jobs
}

// fireNext fires the earliest job if its next run is not after limit (a
// zero limit means no bound). Selection, event creation and advancing or
// removing the job happen under one lock, so a concurrent Cancel observes
// either the fired job or the untouched one.
func (m *Manager) fireNext(limit time.Time, firedAt func(scheduled time.Time) time.Time) (FireEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return FireEvent{}, false
	}
	job := m.queue[0]
	if !limit.IsZero() && job.nextRun.After(limit) {
		return FireEvent{}, false
	}

	ev, done := job.onFire(firedAt(job.nextRun), m.draw)
	if done {
		m.remove(job)
	} else {
		heap.Fix(&m.queue, job.index)
	}
	return ev, true
}

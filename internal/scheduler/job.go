package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/aatumaykin/tempo/internal/bus"
)

// Callback is the work bound to a job. The dispatcher invokes it with the
// fire event that triggered it.
type Callback func(ctx context.Context, ev FireEvent) error

// Call is a callback with the positional and keyword arguments bound at
// Schedule time.
type Call struct {
	Func   Callback
	Args   []any
	Kwargs map[string]any
}

// FireEvent is produced when a job becomes due.
type FireEvent struct {
	RouteKey string
	JobID    string
	Unit     Unit
	// ScheduledFor is the job's next run at the moment it fired.
	ScheduledFor time.Time
	FiredAt      time.Time
	Call         Call
	// Final is set for the single event of a Once job.
	Final bool
}

// Invoke runs the bound callback.
func (e FireEvent) Invoke(ctx context.Context) error {
	return e.Call.Func(ctx, e)
}

func (e FireEvent) busEvent() bus.Event {
	return bus.Event{Key: e.RouteKey, Time: e.FiredAt, Payload: e, Final: e.Final}
}

// drawFunc returns a uniformly drawn integer in [lo, hi].
type drawFunc func(lo, hi int) int

// Job is a scheduled entry. Its run times are owned by the Manager; the
// accessors are safe to call from any goroutine.
type Job struct {
	mu sync.RWMutex

	id       string
	unit     Unit
	minStep  int
	maxStep  int
	anchor   time.Time
	anchored bool
	lastRun  time.Time
	nextRun  time.Time
	// wall clock readings of lastRun and nextRun, kept in UTC
	lastWall time.Time
	nextWall time.Time
	tags     map[any]struct{}
	call     Call
	routeKey string

	seq   uint64
	index int
}

func (j *Job) ID() string       { return j.id }
func (j *Job) Unit() Unit       { return j.unit }
func (j *Job) RouteKey() string { return j.routeKey }
func (j *Job) Anchor() time.Time {
	return j.anchor
}

// Steps returns the inclusive step range.
func (j *Job) Steps() (minStep, maxStep int) {
	return j.minStep, j.maxStep
}

// LastRun returns the previous occurrence, zero if there was none.
func (j *Job) LastRun() time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastRun
}

// NextRun returns the next undelivered occurrence.
func (j *Job) NextRun() time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.nextRun
}

func (j *Job) HasTag(tag any) bool {
	if checkTag(tag) != nil {
		return false
	}
	_, ok := j.tags[tag]
	return ok
}

func (j *Job) Tags() []any {
	tags := make([]any, 0, len(j.tags))
	for tag := range j.tags {
		tags = append(tags, tag)
	}
	return tags
}

// bench builds the wall clock reading the first run is counted from: now
// with the fields that matter for the unit taken from the anchor.
func (j *Job) bench(now time.Time) time.Time {
	year, month, day := now.Date()
	hour, minute, sec := now.Clock()
	a := j.anchor

	switch j.unit {
	case Minutes:
		sec = a.Second()
	case Hours:
		minute, sec = a.Minute(), a.Second()
	case Days, Weeks:
		hour, minute, sec = a.Clock()
	case Months:
		day = a.Day()
		hour, minute, sec = a.Clock()
	case Years:
		month, day = a.Month(), a.Day()
		hour, minute, sec = a.Clock()
	}
	day = min(day, daysIn(year, month))

	b := time.Date(year, month, day, hour, minute, sec, 0, time.UTC)
	if j.unit == Weeks && j.anchored {
		shift := (int(a.Weekday()) - int(b.Weekday()) + 7) % 7
		b = b.AddDate(0, 0, shift)
	}
	return b
}

// computeFirstRun sets the first next run strictly after now, skipping any
// occurrence that is already in the past. It returns the number of skipped
// occurrences.
func (j *Job) computeFirstRun(now time.Time, draw drawFunc) int {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.unit == Once {
		j.nextRun = j.anchor
		return 0
	}

	wall := j.bench(now)
	next := inZone(wall, now.Location())
	skipped := 0
	for !next.After(now) {
		j.lastRun, j.lastWall = next, wall
		next, wall = j.step(next, wall, draw(j.minStep, j.maxStep))
		skipped++
	}
	j.nextRun, j.nextWall = next, wall
	return skipped
}

// computeNextRun must be called with j.mu held.
func (j *Job) computeNextRun(draw drawFunc) {
	if j.unit == Once {
		return
	}
	j.nextRun, j.nextWall = j.step(j.lastRun, j.lastWall, draw(j.minStep, j.maxStep))
}

// step moves a run forward by n units. Calendar units count on the wall
// clock, so a run moved by a DST gap does not move the runs after it.
func (j *Job) step(run, wall time.Time, n int) (time.Time, time.Time) {
	if !j.unit.calendar() {
		next := j.unit.advance(run, n)
		return next, wallClock(next)
	}
	w := j.unit.advance(wall, n)
	return inZone(w, run.Location()), w
}

// wallClock returns the reading of t's clock as a UTC time.
func wallClock(t time.Time) time.Time {
	return inZone(t, time.UTC)
}

// inZone reads w's date and clock in loc.
func inZone(w time.Time, loc *time.Location) time.Time {
	year, month, day := w.Date()
	hour, minute, sec := w.Clock()
	return time.Date(year, month, day, hour, minute, sec, w.Nanosecond(), loc)
}

// onFire produces the fire event and either advances the job or, for Once,
// reports that it must be removed.
func (j *Job) onFire(firedAt time.Time, draw drawFunc) (FireEvent, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	ev := FireEvent{
		RouteKey:     j.routeKey,
		JobID:        j.id,
		Unit:         j.unit,
		ScheduledFor: j.nextRun,
		FiredAt:      firedAt,
		Call:         j.call,
		Final:        j.unit == Once,
	}
	if j.unit == Once {
		return ev, true
	}
	j.lastRun, j.lastWall = j.nextRun, j.nextWall
	j.computeNextRun(draw)
	return ev, false
}

// less orders jobs by next run, then by registration.
func (j *Job) less(other *Job) bool {
	if !j.nextRun.Equal(other.nextRun) {
		return j.nextRun.Before(other.nextRun)
	}
	return j.seq < other.seq
}

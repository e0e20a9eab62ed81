package scheduler

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/aatumaykin/tempo/internal/bus"
	"github.com/aatumaykin/tempo/internal/clock"
	"github.com/aatumaykin/tempo/internal/logger"
	"github.com/stretchr/testify/require"
)

// testLogger creates a test logger instance
func testLogger() *logger.Logger {
	return logger.Nop()
}

func at(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func noop(context.Context, FireEvent) error { return nil }

// newTestManager returns a manager on a replay clock at now with a seeded
// random source.
func newTestManager(now time.Time, opts ...Option) (*Manager, *clock.Replay) {
	clk := clock.NewReplay(now)
	opts = append([]Option{WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	return NewManager(clk, testLogger(), opts...), clk
}

func mustSchedule(t *testing.T, m *Manager, spec JobSpec) *Job {
	t.Helper()
	job, err := m.Schedule(spec, Call{Func: noop})
	require.NoError(t, err)
	return job
}

// recorder collects pushed events.
type recorder struct {
	mu     sync.Mutex
	events []bus.Event
	fail   error
}

func (r *recorder) PutEvent(_ context.Context, ev bus.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) snapshot() []bus.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bus.Event(nil), r.events...)
}

func (r *recorder) jobIDs() []string {
	var ids []string
	for _, ev := range r.snapshot() {
		ids = append(ids, ev.Payload.(FireEvent).JobID)
	}
	return ids
}

// routes records subscriptions.
type routes struct {
	mu   sync.Mutex
	keys map[string]bus.Handler
}

func newRoutes() *routes {
	return &routes{keys: make(map[string]bus.Handler)}
}

func (r *routes) Subscribe(key string, h bus.Handler) {
	r.mu.Lock()
	r.keys[key] = h
	r.mu.Unlock()
}

func (r *routes) Unsubscribe(key string) {
	r.mu.Lock()
	delete(r.keys, key)
	r.mu.Unlock()
}

func (r *routes) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

func (r *routes) handler(key string) (bus.Handler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.keys[key]
	return h, ok
}

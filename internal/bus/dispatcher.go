// Package bus implements the in-process event dispatcher. Event sources
// (scheduler drivers) push events with PutEvent, subscribers receive them by
// route key.
package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aatumaykin/tempo/internal/logger"
	"github.com/cockroachdb/errors"
)

var (
	ErrAlreadyStarted  = errors.New("dispatcher is already started")
	ErrNotStarted      = errors.New("dispatcher is not started")
	ErrSourceExists    = errors.New("event source is already registered")
	ErrSourceNotFound  = errors.New("event source is not registered")
	ErrNoRoute         = errors.New("no subscriber for route")
	ErrHandlerPanicked = errors.New("event handler panicked")
)

// Event is a routed notification.
type Event struct {
	Key     string
	Time    time.Time
	Payload any
	// Final drops the route once this event has been delivered.
	Final bool
}

// Handler consumes events delivered on a route.
type Handler func(ctx context.Context, ev Event) error

// Invoker is a payload that can run itself. Events carrying one are still
// delivered after their route has been removed.
type Invoker interface {
	Invoke(ctx context.Context) error
}

// EventSource produces events until its context ends, it runs dry or
// Stop is called. A zero horizon means unbounded.
type EventSource interface {
	Name() string
	GenEvents(ctx context.Context, horizon time.Time) error
	Stop()
}

// Config holds dispatcher settings.
type Config struct {
	Capacity int
	Workers  int
	// Horizon is handed to every event source.
	Horizon time.Time
}

type sourceState struct {
	src    EventSource
	cancel context.CancelFunc
	done   chan struct{}
}

// Dispatcher queues events and delivers them to subscribed handlers.
// With a single worker delivery is strictly FIFO.
type Dispatcher struct {
	mu      sync.RWMutex
	logger  *logger.Logger
	metrics *Metrics
	ctx     context.Context
	cancel  context.CancelFunc
	started bool

	queue   chan Event
	workers int
	horizon time.Time
	pending atomic.Int64

	handlers map[string]Handler
	sources  map[string]*sourceState

	workerWG sync.WaitGroup
	sourceWG sync.WaitGroup
}

// New creates a dispatcher. Capacity and Workers default to 1000 and 1.
func New(cfg Config, log *logger.Logger, metrics *Metrics) *Dispatcher {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	d := &Dispatcher{
		logger:   log.Component("dispatcher"),
		metrics:  metrics,
		queue:    make(chan Event, cfg.Capacity),
		workers:  cfg.Workers,
		horizon:  cfg.Horizon,
		handlers: make(map[string]Handler),
		sources:  make(map[string]*sourceState),
	}
	metrics.observeQueue(d.queue)
	return d
}

// Start launches the delivery workers and every registered event source.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return ErrAlreadyStarted
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.workerWG.Add(1)
		go d.deliverLoop()
	}
	for _, st := range d.sources {
		d.runSource(st)
	}

	d.logger.Info("dispatcher started",
		logger.Field{Key: "capacity", Value: cap(d.queue)},
		logger.Field{Key: "workers", Value: d.workers},
		logger.Field{Key: "sources", Value: len(d.sources)})
	return nil
}

// Stop stops all event sources, then the delivery workers. Queued but
// undelivered events are discarded.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return ErrNotStarted
	}
	d.started = false
	sources := make([]*sourceState, 0, len(d.sources))
	for _, st := range d.sources {
		sources = append(sources, st)
	}
	d.mu.Unlock()

	d.logger.Info("stopping dispatcher")

	for _, st := range sources {
		stopSource(st)
	}
	d.cancel()
	d.workerWG.Wait()
	d.sourceWG.Wait()

	dropped := d.drain()
	d.logger.Info("dispatcher stopped", logger.Field{Key: "dropped", Value: dropped})
	return nil
}

// drain discards queued events so Flush does not wait for them.
func (d *Dispatcher) drain() int {
	dropped := 0
	for {
		select {
		case <-d.queue:
			d.pending.Add(-1)
			dropped++
		default:
			return dropped
		}
	}
}

// IsStarted reports whether the dispatcher is running.
func (d *Dispatcher) IsStarted() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.started
}

// PutEvent enqueues ev. It blocks while the queue is full, until ctx or the
// dispatcher itself is done.
func (d *Dispatcher) PutEvent(ctx context.Context, ev Event) error {
	d.mu.RLock()
	if !d.started {
		d.mu.RUnlock()
		return ErrNotStarted
	}
	busCtx := d.ctx
	d.mu.RUnlock()

	d.pending.Add(1)
	select {
	case d.queue <- ev:
		d.metrics.published()
		d.logger.DebugCtx(ctx, "event queued",
			logger.Field{Key: "key", Value: ev.Key},
			logger.Field{Key: "time", Value: ev.Time})
		return nil
	case <-ctx.Done():
		d.pending.Add(-1)
		return ctx.Err()
	case <-busCtx.Done():
		d.pending.Add(-1)
		return ErrNotStarted
	}
}

// Subscribe routes events with the given key to h, replacing any previous
// handler for that key.
func (d *Dispatcher) Subscribe(key string, h Handler) {
	d.mu.Lock()
	d.handlers[key] = h
	d.mu.Unlock()
}

// Unsubscribe removes the route for key.
func (d *Dispatcher) Unsubscribe(key string) {
	d.mu.Lock()
	delete(d.handlers, key)
	d.mu.Unlock()
}

// Routes returns the number of subscribed routes.
func (d *Dispatcher) Routes() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers)
}

// RegisterEventSource adds src. If the dispatcher is running the source is
// started immediately.
func (d *Dispatcher) RegisterEventSource(src EventSource) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	name := src.Name()
	if _, ok := d.sources[name]; ok {
		return errors.Wrapf(ErrSourceExists, "%s", name)
	}
	st := &sourceState{src: src}
	d.sources[name] = st
	if d.started {
		d.runSource(st)
	}
	d.logger.Info("event source registered", logger.Field{Key: "source", Value: name})
	return nil
}

// DeregisterEventSource stops the named source and waits for it to return.
func (d *Dispatcher) DeregisterEventSource(name string) error {
	d.mu.Lock()
	st, ok := d.sources[name]
	if ok {
		delete(d.sources, name)
	}
	d.mu.Unlock()

	if !ok {
		return errors.Wrapf(ErrSourceNotFound, "%s", name)
	}
	stopSource(st)
	d.logger.Info("event source deregistered", logger.Field{Key: "source", Value: name})
	return nil
}

// WaitSources blocks until every running event source has returned.
func (d *Dispatcher) WaitSources(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.sourceWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush blocks until every queued event has been delivered.
func (d *Dispatcher) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for d.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// runSource must be called with d.mu held.
func (d *Dispatcher) runSource(st *sourceState) {
	ctx, cancel := context.WithCancel(d.ctx)
	st.cancel = cancel
	st.done = make(chan struct{})

	d.sourceWG.Add(1)
	go func() {
		defer d.sourceWG.Done()
		defer close(st.done)

		name := st.src.Name()
		if err := st.src.GenEvents(ctx, d.horizon); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("event source failed", err, logger.Field{Key: "source", Value: name})
			return
		}
		d.logger.Info("event source finished", logger.Field{Key: "source", Value: name})
	}()
}

func stopSource(st *sourceState) {
	st.src.Stop()
	if st.cancel != nil {
		st.cancel()
		<-st.done
	}
}

func (d *Dispatcher) deliverLoop() {
	defer d.workerWG.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case ev := <-d.queue:
			d.deliver(ev)
			d.pending.Add(-1)
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	d.mu.RLock()
	h, ok := d.handlers[ev.Key]
	d.mu.RUnlock()

	if !ok {
		if inv, self := ev.Payload.(Invoker); self {
			h, ok = func(ctx context.Context, _ Event) error { return inv.Invoke(ctx) }, true
		}
	}
	if !ok {
		d.metrics.delivered(statusUnrouted)
		d.logger.Warn("event dropped", logger.Field{Key: "key", Value: ev.Key},
			logger.Field{Key: "reason", Value: ErrNoRoute.Error()})
		return
	}

	if err := d.invoke(h, ev); err != nil {
		status := statusError
		if errors.Is(err, ErrHandlerPanicked) {
			status = statusPanic
		}
		d.metrics.delivered(status)
		d.logger.Error("event handler failed", err, logger.Field{Key: "key", Value: ev.Key})
	} else {
		d.metrics.delivered(statusOK)
	}

	if ev.Final {
		d.Unsubscribe(ev.Key)
	}
}

func (d *Dispatcher) invoke(h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrHandlerPanicked, "%v", r)
		}
	}()
	return h(d.ctx, ev)
}

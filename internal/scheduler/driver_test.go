package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/aatumaykin/tempo/internal/bus"
	"github.com/aatumaykin/tempo/internal/clock"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// everyTick is a poll schedule with a sub-second period for tests.
type everyTick time.Duration

func (d everyTick) Next(t time.Time) time.Time { return t.Add(time.Duration(d)) }

func TestBackTrack_ScenarioD_Horizon(t *testing.T) {
	m, clk := newTestManager(at("2024-01-01 00:00:00"))
	mustSchedule(t, m, OnceAt("2024-01-01 03:00:00").Named("t3"))
	mustSchedule(t, m, OnceAt("2024-01-01 01:00:00").Named("t1"))
	mustSchedule(t, m, OnceAt("2024-01-01 02:00:00").Named("t2"))

	rec := &recorder{}
	d := NewBackTrackDriver(m, rec, testLogger())
	require.NoError(t, d.GenEvents(context.Background(), at("2024-01-01 02:00:00")))

	assert.Equal(t, []string{"t1", "t2"}, rec.jobIDs())
	events := rec.snapshot()
	assert.Equal(t, at("2024-01-01 01:00:00"), events[0].Time)
	assert.Equal(t, at("2024-01-01 02:00:00"), events[1].Time)

	remaining, ok := m.NextDue()
	require.True(t, ok)
	assert.Equal(t, "t3", remaining.ID())
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, at("2024-01-01 02:00:00"), clk.Now(), "replay clock follows the fired events")
}

func TestBackTrack_DrainsUntilEmpty(t *testing.T) {
	m, _ := newTestManager(at("2024-01-01 00:00:00"))
	for _, id := range []string{"c", "a", "b"} {
		mustSchedule(t, m, OnceAt("2024-01-01 05:00:00").Named(id))
	}

	rec := &recorder{}
	d := NewBackTrackDriver(m, rec, testLogger())
	require.NoError(t, d.GenEvents(context.Background(), time.Time{}))

	assert.Equal(t, []string{"c", "a", "b"}, rec.jobIDs(), "ties fire in registration order")
	assert.Equal(t, 0, m.Len())
	for _, ev := range rec.snapshot() {
		assert.True(t, ev.Final)
	}
}

func TestBackTrack_PeriodicJobsInterleaveChronologically(t *testing.T) {
	m, _ := newTestManager(at("2024-01-01 00:00:00"))
	mustSchedule(t, m, Every(3).To(15).Minutes().Named("jittered"))
	mustSchedule(t, m, Every(10).Minutes().Named("fixed"))

	rec := &recorder{}
	d := NewBackTrackDriver(m, rec, testLogger(), WithHorizon(at("2024-01-02 00:00:00")))
	require.NoError(t, d.GenEvents(context.Background(), time.Time{}))

	events := rec.snapshot()
	require.NotEmpty(t, events)
	for i, ev := range events {
		fe := ev.Payload.(FireEvent)
		assert.Equal(t, fe.ScheduledFor, fe.FiredAt, "replay fires at the job's own next run")
		assert.False(t, ev.Time.After(at("2024-01-02 00:00:00")))
		if i > 0 {
			assert.False(t, ev.Time.Before(events[i-1].Time))
		}
	}
	assert.Equal(t, 2, m.Len())
	for _, job := range m.Jobs() {
		assert.True(t, job.NextRun().After(at("2024-01-02 00:00:00")))
	}
}

func TestBackTrack_PushFailureDoesNotStopReplay(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := InitPrometheusMetrics("test", reg)
	m, _ := newTestManager(at("2024-01-01 00:00:00"), WithMetrics(metrics))
	mustSchedule(t, m, OnceAt("2024-01-01 01:00:00"))
	mustSchedule(t, m, OnceAt("2024-01-01 02:00:00"))

	rec := &recorder{fail: errors.New("dispatcher down")}
	d := NewBackTrackDriver(m, rec, testLogger())
	require.NoError(t, d.GenEvents(context.Background(), time.Time{}))

	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.pushFailures.WithLabelValues(driverBackTrack)))
}

func TestBackTrack_StopClearsJobs(t *testing.T) {
	m, _ := newTestManager(at("2024-01-01 00:00:00"))
	mustSchedule(t, m, Every(1).Seconds())

	d := NewBackTrackDriver(m, &recorder{}, testLogger())
	assert.Equal(t, StateRunning, d.State())
	d.Stop()
	d.Stop()
	assert.Equal(t, StateStopped, d.State())
	assert.Equal(t, 0, m.Len())
	require.NoError(t, d.GenEvents(context.Background(), time.Time{}))
}

func TestBackTrack_ContextCancelled(t *testing.T) {
	m, _ := newTestManager(at("2024-01-01 00:00:00"))
	mustSchedule(t, m, Every(1).Seconds())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewBackTrackDriver(m, &recorder{}, testLogger())
	assert.ErrorIs(t, d.GenEvents(ctx, time.Time{}), context.Canceled)
}

func TestLive_FiresDueJobsAndStops(t *testing.T) {
	start := time.Now()
	clk := clock.NewLive(time.UTC, clock.ModeLive)
	m := NewManager(clk, testLogger())
	_, err := m.Schedule(Every(1).Seconds().Named("tick"), Call{Func: noop})
	require.NoError(t, err)

	rec := &recorder{}
	d := NewLiveDriver(m, rec, testLogger(), WithPollSchedule(everyTick(10*time.Millisecond)))

	done := make(chan error, 1)
	go func() { done <- d.GenEvents(context.Background(), time.Time{}) }()

	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 2 }, 5*time.Second, 10*time.Millisecond)

	d.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("live driver did not stop")
	}

	assert.Equal(t, StateStopped, d.State())
	assert.Equal(t, 0, m.Len(), "stop clears all jobs")

	events := rec.snapshot()
	for i, ev := range events {
		fe := ev.Payload.(FireEvent)
		assert.Equal(t, "Scheduler.tick", ev.Key)
		assert.False(t, fe.FiredAt.Before(fe.ScheduledFor), "live events fire at or after their run time")
		assert.True(t, fe.FiredAt.After(start))
		if i > 0 {
			assert.True(t, fe.ScheduledFor.After(events[i-1].Payload.(FireEvent).ScheduledFor))
		}
	}
}

func TestLive_CatchesUpOnReplayClock(t *testing.T) {
	m, clk := newTestManager(at("2024-01-01 09:00:00"))
	mustSchedule(t, m, OnceAt("2024-01-01 09:00:05").Named("a"))
	mustSchedule(t, m, OnceAt("2024-01-01 09:00:05").Named("b"))
	mustSchedule(t, m, OnceAt("2024-01-01 10:00:00").Named("later"))

	rec := &recorder{}
	d := NewLiveDriver(m, rec, testLogger(), WithPollSchedule(everyTick(time.Millisecond)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- d.GenEvents(ctx, time.Time{}) }()

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.snapshot(), "nothing is due yet")

	clk.AdvanceTo(at("2024-01-01 09:30:00"))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, rec.jobIDs())
	for _, ev := range rec.snapshot() {
		assert.Equal(t, at("2024-01-01 09:30:00"), ev.Time, "live events carry the polling instant")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 1, m.Len(), "cancellation alone does not clear jobs")
}

func TestLive_PushFailureKeepsLooping(t *testing.T) {
	m, clk := newTestManager(at("2024-01-01 09:00:00"))
	mustSchedule(t, m, OnceAt("2024-01-01 09:00:01").Named("lost"))
	mustSchedule(t, m, OnceAt("2024-01-01 09:00:02").Named("kept"))

	rec := &recorder{fail: errors.New("queue closed")}
	d := NewLiveDriver(m, rec, testLogger(), WithPollSchedule(everyTick(time.Millisecond)))
	defer d.Stop()

	go func() { _ = d.GenEvents(context.Background(), time.Time{}) }()

	clk.AdvanceTo(at("2024-01-01 09:00:01"))
	require.Eventually(t, func() bool { _, ok := m.Get("lost"); return !ok }, time.Second, time.Millisecond)

	rec.mu.Lock()
	rec.fail = nil
	rec.mu.Unlock()

	clk.AdvanceTo(at("2024-01-01 09:00:02"))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"kept"}, rec.jobIDs())
}

func TestWithPollInterval(t *testing.T) {
	o := buildOptions([]DriverOption{WithPollInterval(2 * time.Second)})
	now := at("2024-01-01 09:00:00").Add(300 * time.Millisecond)
	assert.Equal(t, at("2024-01-01 09:00:02"), o.poll.Next(now))

	def := buildOptions(nil)
	assert.Equal(t, at("2024-01-01 09:00:01"), def.poll.Next(now))
}

func TestNewDriver(t *testing.T) {
	m, _ := newTestManager(at("2024-01-01 00:00:00"))

	var src bus.EventSource = NewDriver(clock.ModeBackTrack, m, &recorder{}, testLogger())
	assert.IsType(t, &BackTrackDriver{}, src)
	assert.Equal(t, "scheduler.backtrack", src.Name())

	for _, mode := range []clock.Mode{clock.ModeLive, clock.ModeLiveTrack} {
		d := NewDriver(mode, m, &recorder{}, testLogger())
		assert.IsType(t, &LiveDriver{}, d)
		assert.Equal(t, "scheduler.live", d.Name())
	}
}

func TestDrivers_WithDispatcher(t *testing.T) {
	d := bus.New(bus.Config{Capacity: 4, Horizon: at("2024-01-01 00:30:00")}, testLogger(), nil)
	m, _ := newTestManager(at("2024-01-01 00:00:00"), WithRouter(d))

	got := make(chan FireEvent, 16)
	collect := Call{Func: func(_ context.Context, ev FireEvent) error {
		got <- ev
		return nil
	}}
	_, err := m.Schedule(Every(10).Minutes().Named("ten"), collect)
	require.NoError(t, err)
	_, err = m.Schedule(OnceAt("2024-01-01 00:15:00").Named("once"), collect)
	require.NoError(t, err)

	require.NoError(t, d.RegisterEventSource(NewBackTrackDriver(m, d, testLogger())))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Start(ctx))
	require.NoError(t, d.WaitSources(ctx))
	require.NoError(t, d.Flush(ctx))
	require.NoError(t, d.Stop())
	close(got)

	var ids []string
	var times []time.Time
	for ev := range got {
		ids = append(ids, ev.JobID)
		times = append(times, ev.FiredAt)
	}
	assert.Equal(t, []string{"ten", "once", "ten", "ten"}, ids)
	assert.Equal(t, []time.Time{
		at("2024-01-01 00:10:00"),
		at("2024-01-01 00:15:00"),
		at("2024-01-01 00:20:00"),
		at("2024-01-01 00:30:00"),
	}, times)
}

package timer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/timebird/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type countingIndicator struct {
	busy, clear atomic.Int32
}

func (c *countingIndicator) NotifyBusy() { c.busy.Add(1) }
func (c *countingIndicator) ClearBusy()  { c.clear.Add(1) }

func newTestTimer(t *testing.T) (*Timer, *fakeClock, *countingIndicator) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	ind := &countingIndicator{}
	tm := New(WithClock(clock.Now), WithTickPeriod(5*time.Millisecond), WithIndicator(ind))
	t.Cleanup(tm.Reset)
	return tm, clock, ind
}

func TestNewIsIdle(t *testing.T) {
	tm, _, _ := newTestTimer(t)
	s := tm.Snapshot()
	assert.Equal(t, Idle, s.State)
	assert.False(t, s.Active())
	assert.Equal(t, "09:00", s.StartTime)
	assert.Empty(t, s.EndTime)
}

func TestStartTicksEndTime(t *testing.T) {
	tm, clock, ind := newTestTimer(t)

	tm.Start()
	assert.True(t, tm.Snapshot().Active())
	assert.Equal(t, int32(1), ind.busy.Load())

	clock.Set(time.Date(2024, 1, 1, 9, 42, 0, 0, time.UTC))
	assert.Eventually(t, func() bool {
		return tm.Snapshot().EndTime == "09:42"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "09:00", tm.Snapshot().StartTime, "tick must not touch start time")
}

func TestStartTwiceIsIdempotent(t *testing.T) {
	tm, _, ind := newTestTimer(t)

	tm.Start()
	tm.mu.Lock()
	first := tm.done
	tm.mu.Unlock()

	tm.Start()
	tm.mu.Lock()
	second := tm.done
	tm.mu.Unlock()

	assert.True(t, tm.Snapshot().Active())
	assert.Equal(t, first, second, "second start must not spawn another tick")
	assert.Equal(t, int32(1), ind.busy.Load())
}

func TestStopFromIdleIsNoop(t *testing.T) {
	tm, _, ind := newTestTimer(t)

	assert.NotPanics(t, tm.Stop)
	s := tm.Snapshot()
	assert.Equal(t, Idle, s.State)
	assert.False(t, s.Active())
	assert.Empty(t, s.EndTime)
	assert.Zero(t, ind.clear.Load())
}

func TestStopFixesEndTime(t *testing.T) {
	tm, clock, ind := newTestTimer(t)

	tm.Start()
	clock.Set(time.Date(2024, 1, 1, 11, 30, 0, 0, time.UTC))
	tm.Stop()

	s := tm.Snapshot()
	assert.Equal(t, Stopped, s.State)
	assert.Equal(t, "11:30", s.EndTime)
	assert.Equal(t, int32(1), ind.clear.Load())

	tm.mu.Lock()
	assert.Nil(t, tm.cancel)
	tm.mu.Unlock()

	// No tick may overwrite the fixed end time.
	clock.Set(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, "11:30", tm.Snapshot().EndTime)
}

func TestStopTwice(t *testing.T) {
	tm, _, ind := newTestTimer(t)
	tm.Start()
	tm.Stop()
	tm.Stop()
	assert.Equal(t, Stopped, tm.Snapshot().State)
	assert.Equal(t, int32(1), ind.clear.Load())
}

func TestRestartAfterStop(t *testing.T) {
	tm, _, _ := newTestTimer(t)
	tm.Start()
	tm.Stop()
	require.NotEmpty(t, tm.Snapshot().EndTime)

	tm.Start()
	s := tm.Snapshot()
	assert.True(t, s.Active())
}

func TestResetFromRunning(t *testing.T) {
	tm, clock, ind := newTestTimer(t)
	tm.Start()

	clock.Set(time.Date(2024, 1, 1, 14, 5, 0, 0, time.UTC))
	tm.Reset()

	s := tm.Snapshot()
	assert.Equal(t, Idle, s.State)
	assert.Equal(t, "14:05", s.StartTime)
	assert.Empty(t, s.EndTime)
	assert.Equal(t, int32(1), ind.clear.Load())

	tm.mu.Lock()
	assert.Nil(t, tm.cancel)
	tm.mu.Unlock()
}

func TestResetFromIdle(t *testing.T) {
	tm, _, _ := newTestTimer(t)
	assert.NotPanics(t, tm.Reset)
	assert.Equal(t, Idle, tm.Snapshot().State)
}

func TestSetTimes(t *testing.T) {
	tm, _, _ := newTestTimer(t)

	require.NoError(t, tm.SetStartTime("08:15"))
	require.NoError(t, tm.SetEndTime("10:00"))
	s := tm.Snapshot()
	assert.Equal(t, "08:15", s.StartTime)
	assert.Equal(t, "10:00", s.EndTime)

	require.NoError(t, tm.SetEndTime(""))
	assert.Empty(t, tm.Snapshot().EndTime)
}

func TestSetTimesInvalid(t *testing.T) {
	tm, _, _ := newTestTimer(t)
	assert.ErrorIs(t, tm.SetStartTime("8am"), model.ErrInvalidClock)
	assert.ErrorIs(t, tm.SetEndTime("25:00"), model.ErrInvalidClock)
	assert.Equal(t, "09:00", tm.Snapshot().StartTime)
}

func TestSetTimesRejectedWhileRunning(t *testing.T) {
	tm, _, _ := newTestTimer(t)
	tm.Start()
	assert.ErrorIs(t, tm.SetStartTime("08:00"), ErrRunning)
	assert.ErrorIs(t, tm.SetEndTime("10:00"), ErrRunning)
}

func TestOnChangeObservesTransitions(t *testing.T) {
	tm, _, _ := newTestTimer(t)

	var mu sync.Mutex
	var states []State
	tm.OnChange(func(s Session) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})

	tm.Start()
	tm.Stop()
	tm.Reset()

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(states), 3)
	assert.Equal(t, Running, states[0])
	assert.Equal(t, Idle, states[len(states)-1])
	assert.Contains(t, states, Stopped)
}

func TestSessionSpan(t *testing.T) {
	s := Session{State: Stopped, StartTime: "09:00", EndTime: "11:30"}
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	start, end, err := s.Span(time.Time{}, time.Time{}, now)
	require.NoError(t, err)
	assert.Equal(t, "2:30", model.FormatDuration(end.Sub(start)))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "stopped", Stopped.String())
}

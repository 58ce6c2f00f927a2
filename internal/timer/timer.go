// Package timer implements the stopwatch that produces the start and end
// clock times of a new time entry.
package timer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sadopc/timebird/internal/model"
)

// State is the lifecycle position of the stopwatch.
type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "idle"
	}
}

var ErrRunning = errors.New("timer is running")

// Indicator is told when a session starts and when it ends, so a host can
// show that time is being tracked.
type Indicator interface {
	NotifyBusy()
	ClearBusy()
}

type nopIndicator struct{}

func (nopIndicator) NotifyBusy() {}
func (nopIndicator) ClearBusy()  {}

// Session is an immutable view of the timer.
type Session struct {
	State     State
	StartTime string
	EndTime   string
}

func (s Session) Active() bool { return s.State == Running }

// Span resolves the session clocks into absolute timestamps. See model.Span.
func (s Session) Span(startDate, endDate, now time.Time) (time.Time, time.Time, error) {
	return model.Span(startDate, endDate, s.StartTime, s.EndTime, now)
}

type Option func(*Timer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// WithTickPeriod sets how often a running timer refreshes its end time.
func WithTickPeriod(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.period = d
		}
	}
}

func WithIndicator(ind Indicator) Option {
	return func(t *Timer) {
		if ind != nil {
			t.indicator = ind
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Timer) {
		if l != nil {
			t.log = l
		}
	}
}

// Timer is safe for concurrent use. Observers registered with OnChange run
// on the goroutine that caused the change, including the tick goroutine,
// and must not call back into the Timer synchronously.
type Timer struct {
	// transition serializes Start, Stop and Reset, including the wait for
	// the tick goroutine to exit. mu guards the fields below.
	transition sync.Mutex
	mu         sync.Mutex

	state     State
	startTime string
	endTime   string

	cancel context.CancelFunc
	done   chan struct{}

	observers []func(Session)

	now       func() time.Time
	period    time.Duration
	indicator Indicator
	log       *slog.Logger
}

// New returns an idle timer whose start time is the current clock.
func New(opts ...Option) *Timer {
	t := &Timer{
		now:       time.Now,
		period:    time.Second,
		indicator: nopIndicator{},
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(t)
	}
	t.startTime = model.FormatClock(t.now())
	return t
}

// OnChange registers fn to receive a snapshot after every mutation and tick.
func (t *Timer) OnChange(fn func(Session)) {
	t.mu.Lock()
	t.observers = append(t.observers, fn)
	t.mu.Unlock()
}

func (t *Timer) Snapshot() Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Timer) snapshotLocked() Session {
	return Session{State: t.state, StartTime: t.startTime, EndTime: t.endTime}
}

// Start begins ticking. Starting a running timer does nothing.
func (t *Timer) Start() {
	t.transition.Lock()
	defer t.transition.Unlock()

	t.mu.Lock()
	if t.state == Running {
		t.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})
	t.state = Running
	t.endTime = ""
	go t.run(ctx, t.done)
	t.mu.Unlock()

	t.log.Debug("timer started")
	t.indicator.NotifyBusy()
	t.notify()
}

// Stop fixes the end time to now. It does nothing unless the timer is
// running.
func (t *Timer) Stop() {
	t.transition.Lock()
	defer t.transition.Unlock()

	t.mu.Lock()
	if t.state != Running {
		t.mu.Unlock()
		return
	}
	done := t.halt()
	t.state = Stopped
	t.endTime = model.FormatClock(t.now())
	t.mu.Unlock()

	<-done
	t.log.Debug("timer stopped")
	t.indicator.ClearBusy()
	t.notify()
}

// Reset returns to idle with a fresh start time from any state.
func (t *Timer) Reset() {
	t.transition.Lock()
	defer t.transition.Unlock()

	t.mu.Lock()
	done := t.halt()
	t.state = Idle
	t.startTime = model.FormatClock(t.now())
	t.endTime = ""
	t.mu.Unlock()

	if done != nil {
		<-done
	}
	t.log.Debug("timer reset")
	t.indicator.ClearBusy()
	t.notify()
}

// SetStartTime overrides the start clock. Not allowed while running.
func (t *Timer) SetStartTime(v string) error {
	if _, _, err := model.ParseClock(v); err != nil {
		return err
	}
	return t.set(func() { t.startTime = v })
}

// SetEndTime overrides the end clock; "" clears it. Not allowed while
// running.
func (t *Timer) SetEndTime(v string) error {
	if v != "" {
		if _, _, err := model.ParseClock(v); err != nil {
			return err
		}
	}
	return t.set(func() { t.endTime = v })
}

func (t *Timer) set(apply func()) error {
	t.mu.Lock()
	if t.state == Running {
		t.mu.Unlock()
		return ErrRunning
	}
	apply()
	t.mu.Unlock()
	t.notify()
	return nil
}

// halt cancels the live tick goroutine, if any, and returns its done
// channel. Caller holds mu.
func (t *Timer) halt() chan struct{} {
	if t.cancel == nil {
		return nil
	}
	t.cancel()
	done := t.done
	t.cancel, t.done = nil, nil
	return done
}

func (t *Timer) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(t.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

func (t *Timer) tick(ctx context.Context) {
	t.mu.Lock()
	if ctx.Err() != nil || t.state != Running {
		t.mu.Unlock()
		return
	}
	t.endTime = model.FormatClock(t.now())
	t.mu.Unlock()
	t.notify()
}

func (t *Timer) notify() {
	t.mu.Lock()
	s := t.snapshotLocked()
	obs := make([]func(Session), len(t.observers))
	copy(obs, t.observers)
	t.mu.Unlock()

	for _, fn := range obs {
		fn(s)
	}
}

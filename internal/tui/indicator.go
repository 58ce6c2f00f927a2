package tui

import "sync/atomic"

// Indicator records whether the timer is tracking time. The timer calls it
// from whatever goroutine changes state; the app reads it while rendering,
// so it never sends to the program and cannot block the event loop.
type Indicator struct {
	busy atomic.Bool
}

func NewIndicator() *Indicator { return &Indicator{} }

func (i *Indicator) NotifyBusy() { i.busy.Store(true) }
func (i *Indicator) ClearBusy()  { i.busy.Store(false) }
func (i *Indicator) Busy() bool  { return i.busy.Load() }

func windowTitle(busy bool) string {
	if busy {
		return "● timebird"
	}
	return "timebird"
}

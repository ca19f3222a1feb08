// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

// Package countdown provides the per-session resend cooldown timer.
//
// A Timer holds at most one active countdown. Ticks arrive once per interval
// (one second in production), decrement the remaining value by exactly one,
// and stop automatically at zero. Scheduling is injected so tests can drive
// the clock deterministically.
package countdown

import (
	"sync"
	"time"
)

// DefaultInterval is the production tick period.
const DefaultInterval = time.Second

// StopFunc cancels a scheduled callback. It reports whether the callback was
// prevented from running.
type StopFunc func() bool

// Scheduler schedules a single callback after a delay and returns a handle
// that cancels it.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) StopFunc
}

// SystemScheduler implements Scheduler with wall-clock timers.
type SystemScheduler struct{}

// AfterFunc schedules fn on a real timer.
func (SystemScheduler) AfterFunc(d time.Duration, fn func()) StopFunc {
	return time.AfterFunc(d, fn).Stop
}

// Timer counts down whole seconds toward zero.
//
// Restarting while a countdown is active discards the previous countdown
// entirely; there is no stacking. Cancel stops ticking without altering the
// last value. Safe for concurrent use.
type Timer struct {
	mu        sync.Mutex
	scheduler Scheduler
	interval  time.Duration
	onTick    func(remaining int)
	remaining int
	stop      StopFunc
	gen       uint64 // invalidates ticks scheduled before a restart or cancel
}

// NewTimer creates a stopped timer. A nil scheduler falls back to
// SystemScheduler; onTick may be nil, and is invoked after every decrement
// with the new remaining value (including the final zero).
func NewTimer(scheduler Scheduler, onTick func(remaining int)) *Timer {
	if scheduler == nil {
		scheduler = SystemScheduler{}
	}
	return &Timer{
		scheduler: scheduler,
		interval:  DefaultInterval,
		onTick:    onTick,
	}
}

// NewTimerWithInterval creates a stopped timer with a custom tick period.
func NewTimerWithInterval(scheduler Scheduler, onTick func(remaining int), interval time.Duration) *Timer {
	t := NewTimer(scheduler, onTick)
	if interval > 0 {
		t.interval = interval
	}
	return t
}

// Start cancels any active countdown and begins a new one at the given
// value. Values at or below zero leave the timer stopped with zero remaining.
func (t *Timer) Start(seconds int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked()
	if seconds < 0 {
		seconds = 0
	}
	t.remaining = seconds
	if seconds > 0 {
		t.scheduleLocked()
	}
}

// Cancel stops ticking. The remaining value is left untouched so callers can
// still read how far the countdown got.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

// Reset stops ticking and zeroes the remaining value. Used when the owning
// session is reset or discarded.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.remaining = 0
}

// Remaining returns the current countdown value in seconds.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Active reports whether a tick is currently scheduled.
func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

// cancelLocked invalidates any scheduled tick. A tick that already fired but
// has not run yet sees the generation mismatch and becomes a no-op.
func (t *Timer) cancelLocked() {
	t.gen++
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
}

func (t *Timer) scheduleLocked() {
	gen := t.gen
	t.stop = t.scheduler.AfterFunc(t.interval, func() { t.tick(gen) })
}

func (t *Timer) tick(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.remaining <= 0 {
		t.mu.Unlock()
		return
	}

	t.remaining--
	remaining := t.remaining
	if remaining > 0 {
		t.scheduleLocked()
	} else {
		t.stop = nil
	}
	onTick := t.onTick
	t.mu.Unlock()

	// Invoked outside the lock: observers commonly call back into Remaining
	// or Cancel.
	if onTick != nil {
		onTick(remaining)
	}
}

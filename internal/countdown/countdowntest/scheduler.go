// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

// Package countdowntest provides a deterministic Scheduler for tests.
package countdowntest

import (
	"sort"
	"sync"
	"time"

	"github.com/ReisolRius/MoRius-sub003/internal/countdown"
)

type entry struct {
	seq     uint64
	due     time.Duration
	fn      func()
	stopped bool
}

// Scheduler implements countdown.Scheduler on a manually advanced clock.
// Callbacks run synchronously inside Advance, in due order.
type Scheduler struct {
	mu      sync.Mutex
	now     time.Duration
	nextSeq uint64
	entries []*entry
}

// NewScheduler creates a scheduler at time zero with no pending callbacks.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// AfterFunc registers fn to run once the clock has advanced by d.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) countdown.StopFunc {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{
		seq: s.nextSeq,
		due: s.now + d,
		fn:  fn,
	}
	s.nextSeq++
	s.entries = append(s.entries, e)

	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if e.stopped {
			return false
		}
		e.stopped = true
		return true
	}
}

// Advance moves the clock forward and runs every callback that comes due,
// including callbacks scheduled by earlier callbacks within the same window.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d

	for {
		e := s.popDueLocked(target)
		if e == nil {
			break
		}
		// The clock observed by re-scheduling callbacks is the entry's own
		// due time, so chained one-second ticks land one second apart.
		s.now = e.due
		s.mu.Unlock()
		e.fn()
		s.mu.Lock()
	}

	s.now = target
	s.mu.Unlock()
}

// Pending returns the number of live (unstopped, unfired) callbacks. Tests
// use it to assert that teardown cancelled every outstanding handle.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.entries {
		if !e.stopped {
			n++
		}
	}
	return n
}

// popDueLocked removes and returns the earliest live entry due at or before
// target, or nil when none qualifies.
func (s *Scheduler) popDueLocked(target time.Duration) *entry {
	live := s.entries[:0]
	for _, e := range s.entries {
		if !e.stopped {
			live = append(live, e)
		}
	}
	s.entries = live

	if len(s.entries) == 0 {
		return nil
	}

	sort.SliceStable(s.entries, func(i, j int) bool {
		if s.entries[i].due != s.entries[j].due {
			return s.entries[i].due < s.entries[j].due
		}
		return s.entries[i].seq < s.entries[j].seq
	})

	e := s.entries[0]
	if e.due > target {
		return nil
	}
	s.entries = s.entries[1:]
	e.stopped = true // fired entries no longer count as pending
	return e
}

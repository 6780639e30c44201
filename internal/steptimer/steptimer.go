// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package steptimer drives per-frame updates in fixed or variable steps.
package steptimer

import "time"

// TicksPerSecond is the tick resolution: 100ns per tick.
const TicksPerSecond = 10_000_000

// maxDelta bounds the delta of one Tick, so that a breakpoint or a
// suspended window does not produce a huge catch-up step.
const maxDelta = time.Second / 10

// snap is the window within which a fixed-step delta is treated as exact.
const snap = TicksPerSecond / 4000

// TicksToSeconds converts ticks to seconds.
func TicksToSeconds(ticks uint64) float64 { return float64(ticks) / TicksPerSecond }

// SecondsToTicks converts seconds to ticks.
func SecondsToTicks(seconds float64) uint64 { return uint64(seconds * TicksPerSecond) }

// Timer tracks elapsed and total time between updates.
type Timer struct {
	now  func() time.Time
	last time.Time

	elapsed  uint64
	total    uint64
	leftover uint64

	frames        uint32
	fps           uint32
	framesThisSec uint32
	secondCounter time.Duration
	fixed         bool
	targetElapsed uint64
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// WithFixedTimeStep makes Tick call update in steps of exactly seconds.
func WithFixedTimeStep(seconds float64) Option {
	return func(t *Timer) {
		t.fixed = true
		t.targetElapsed = SecondsToTicks(seconds)
	}
}

// New returns a variable-step timer starting now. The default fixed step
// target is 1/60 s.
func New(opts ...Option) *Timer {
	t := &Timer{now: time.Now, targetElapsed: TicksPerSecond / 60}
	for _, opt := range opts {
		opt(t)
	}
	t.last = t.now()
	return t
}

// ElapsedTicks returns the duration of the last update step.
func (t *Timer) ElapsedTicks() uint64 { return t.elapsed }

// ElapsedSeconds returns the duration of the last update step.
func (t *Timer) ElapsedSeconds() float64 { return TicksToSeconds(t.elapsed) }

// TotalTicks returns the time covered by all update steps.
func (t *Timer) TotalTicks() uint64 { return t.total }

// TotalSeconds returns the time covered by all update steps.
func (t *Timer) TotalSeconds() float64 { return TicksToSeconds(t.total) }

// FrameCount returns the number of update steps.
func (t *Timer) FrameCount() uint32 { return t.frames }

// FramesPerSecond returns the ticks that produced an update during the
// last full second.
func (t *Timer) FramesPerSecond() uint32 { return t.fps }

// SetFixedTimeStep switches between fixed and variable steps.
func (t *Timer) SetFixedTimeStep(fixed bool) { t.fixed = fixed }

// SetTargetElapsedSeconds sets the fixed step length.
func (t *Timer) SetTargetElapsedSeconds(seconds float64) {
	t.targetElapsed = SecondsToTicks(seconds)
}

// ResetElapsedTime discards the time since the last Tick. Call it after a
// long pause, such as resuming from suspension.
func (t *Timer) ResetElapsedTime() {
	t.last = t.now()
	t.leftover = 0
	t.fps = 0
	t.framesThisSec = 0
	t.secondCounter = 0
}

// Tick advances the timer and calls update once per step: once in
// variable mode, zero or more times in fixed mode.
func (t *Timer) Tick(update func()) {
	now := t.now()
	d := now.Sub(t.last)
	t.last = now
	t.secondCounter += d

	d = min(max(d, 0), maxDelta)
	delta := uint64(d / 100)

	last := t.frames
	if t.fixed {
		diff := int64(delta) - int64(t.targetElapsed)
		if diff < 0 {
			diff = -diff
		}
		if diff < snap {
			delta = t.targetElapsed
		}
		t.leftover += delta
		for t.leftover >= t.targetElapsed && t.targetElapsed > 0 {
			t.elapsed = t.targetElapsed
			t.total += t.targetElapsed
			t.leftover -= t.targetElapsed
			t.frames++
			update()
		}
	} else {
		t.elapsed = delta
		t.total += delta
		t.leftover = 0
		t.frames++
		update()
	}

	if t.frames != last {
		t.framesThisSec++
	}
	if t.secondCounter >= time.Second {
		t.fps = t.framesThisSec
		t.framesThisSec = 0
		t.secondCounter %= time.Second
	}
}

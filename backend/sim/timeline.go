// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/cube/gpucore"
)

// timeline is the simulated GPU: a FIFO of work executed in submission
// order, either by a worker goroutine or, in manual mode, only when the CPU
// steps it or blocks on a fence.
type timeline struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []func()
	running bool
	manual  bool
	latency time.Duration
	closed  bool
	lost    error
}

func newTimeline(manual bool, latency time.Duration) *timeline {
	t := &timeline{manual: manual, latency: latency}
	t.cond = sync.NewCond(&t.mu)
	if !manual {
		go t.loop()
	}
	return t
}

func (t *timeline) push(fn func()) {
	t.mu.Lock()
	t.items = append(t.items, fn)
	t.mu.Unlock()
	t.cond.Broadcast()
}

func (t *timeline) loop() {
	t.mu.Lock()
	for {
		for len(t.items) == 0 && !t.closed {
			t.cond.Wait()
		}
		if t.closed {
			t.items = nil
			t.mu.Unlock()
			return
		}
		fn := t.items[0]
		t.items = t.items[1:]
		t.running = true
		t.mu.Unlock()

		if t.latency > 0 {
			time.Sleep(t.latency)
		}
		fn()

		t.mu.Lock()
		t.running = false
		t.cond.Broadcast()
	}
}

// stepLocked runs the oldest item. t.mu must be held.
func (t *timeline) stepLocked() bool {
	if len(t.items) == 0 {
		return false
	}
	fn := t.items[0]
	t.items = t.items[1:]
	fn()
	t.cond.Broadcast()
	return true
}

// step runs up to n queued items in manual mode and returns how many ran.
func (t *timeline) step(n int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	ran := 0
	for ran < n && t.stepLocked() {
		ran++
	}
	return ran
}

// flush runs every queued item in manual mode, or waits for the worker to
// go idle otherwise.
func (t *timeline) flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.manual {
		for t.stepLocked() {
		}
		return
	}
	for (len(t.items) > 0 || t.running) && !t.closed && t.lost == nil {
		t.cond.Wait()
	}
}

// pending returns the number of items not yet started. An item observed
// through its own fence signal may still be returning.
func (t *timeline) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// waitUntil blocks until done reports true. In manual mode the CPU drives
// the GPU forward while it waits.
func (t *timeline) waitUntil(done func() bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for !done() {
		if t.lost != nil {
			return t.lost
		}
		if t.closed {
			return fmt.Errorf("sim: wait on closed device: %w", gpucore.ErrDeviceLost)
		}
		if t.manual {
			if !t.stepLocked() {
				return fmt.Errorf("sim: wait can never complete: %w", gpucore.ErrDeviceLost)
			}
			continue
		}
		t.cond.Wait()
	}
	return nil
}

// lose drops queued work and fails every current and future wait.
func (t *timeline) lose(err error) {
	t.mu.Lock()
	if t.lost == nil {
		t.lost = err
	}
	t.items = nil
	t.mu.Unlock()
	t.cond.Broadcast()
}

func (t *timeline) close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.cond.Broadcast()
}

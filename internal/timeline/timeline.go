// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package timeline implements the fence protocol between the recording
// goroutine and the GPU queue.
//
// One fence counts every submission. Each frame slot remembers the value
// that retires its last submission. AdvanceFrame bounds how far the CPU runs
// ahead by blocking until the next slot's value completed, which limits the
// lead to frame.Count-1 frames. DrainAll waits for everything.
package timeline

import (
	"fmt"

	"github.com/gogpu/cube/gpucore"
	"github.com/gogpu/cube/internal/frame"
	"github.com/gogpu/cube/internal/logging"
)

// IndexSource reports the back buffer to render next.
type IndexSource interface {
	CurrentIndex() int
}

// Synchronizer tracks fence targets for the frame slots. It is used from
// the recording goroutine only.
type Synchronizer struct {
	queue  gpucore.Queue
	fence  gpucore.Fence
	frames *frame.Set
	index  IndexSource

	slot     int
	target   uint64
	signaled uint64
	waits    int
}

// New returns a Synchronizer for the given queue, fence and frame set.
// AdvanceFrame must be called once before the first frame is recorded.
func New(queue gpucore.Queue, fence gpucore.Fence, frames *frame.Set, index IndexSource) *Synchronizer {
	done := fence.CompletedValue()
	return &Synchronizer{
		queue:    queue,
		fence:    fence,
		frames:   frames,
		index:    index,
		target:   done,
		signaled: done,
	}
}

// Slot returns the frame slot being recorded.
func (s *Synchronizer) Slot() int { return s.slot }

// Target returns the fence value the current slot's submission will signal.
func (s *Synchronizer) Target() uint64 { return s.target }

// Waits returns how many times the Synchronizer blocked on the fence.
func (s *Synchronizer) Waits() int { return s.waits }

func (s *Synchronizer) signal(value uint64) error {
	if value <= s.signaled {
		panic(fmt.Sprintf("timeline: signal %d not above %d", value, s.signaled))
	}
	if err := s.queue.Signal(s.fence, value); err != nil {
		return fmt.Errorf("timeline: signal %d: %w", value, err)
	}
	s.signaled = value
	return nil
}

func (s *Synchronizer) wait(value uint64) error {
	done := s.fence.CompletedValue()
	if done >= value {
		return nil
	}
	s.waits++
	logging.Logger().Debug("timeline: waiting for GPU", "value", value, "completed", done)
	if err := s.fence.Wait(value); err != nil {
		return fmt.Errorf("timeline: wait for %d: %w", value, err)
	}
	return nil
}

// Submit executes the slot's closed list and schedules the slot's fence
// target to be signaled after it.
func (s *Synchronizer) Submit(list gpucore.CommandList) error {
	if s.target <= s.signaled {
		panic("timeline: Submit without AdvanceFrame")
	}
	if err := s.queue.Execute(list); err != nil {
		return fmt.Errorf("timeline: execute: %w", err)
	}
	if err := s.signal(s.target); err != nil {
		return err
	}
	s.frames.MarkSubmitted(s.slot, s.target)
	return nil
}

// AdvanceFrame moves to the back buffer the swap chain reports next. It
// blocks while the GPU has not finished the last submission made from that
// slot, then assigns the slot its next fence target.
func (s *Synchronizer) AdvanceFrame() error {
	s.slot = s.index.CurrentIndex()
	if err := s.wait(s.frames.FenceValue(s.slot)); err != nil {
		return err
	}
	s.target++
	return nil
}

// DrainAll signals a fresh value and blocks until the GPU reaches it. It is
// safe to call with nothing in flight and leaves the current slot with an
// unsignaled target.
func (s *Synchronizer) DrainAll() error {
	if s.target <= s.signaled {
		s.target = s.signaled + 1
	}
	v := s.target
	if err := s.signal(v); err != nil {
		return err
	}
	if err := s.wait(v); err != nil {
		return err
	}
	s.target++
	return nil
}

// Resync re-reads the current back buffer index, for use after the swap
// chain was resized. The caller must have drained.
func (s *Synchronizer) Resync() {
	s.slot = s.index.CurrentIndex()
}

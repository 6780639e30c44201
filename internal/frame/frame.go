// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package frame owns the per-frame command allocators and their fence
// checkpoints.
//
// A Set is a fixed arena of Count slots. Each slot exclusively owns one
// command allocator and remembers the fence value of the last submission
// recorded with it. The allocator is reset only after that value completed.
package frame

import (
	"fmt"

	"github.com/gogpu/cube/gpucore"
	"github.com/gogpu/cube/internal/logging"
)

// Count is the number of frames in flight and the swap chain depth.
const Count = 2

// State is the lifecycle state of a slot.
type State int

// Slot states. A Submitted slot becomes Idle lazily, on the next Acquire,
// once the fence passed its value.
const (
	Idle State = iota
	Recording
	Submitted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Submitted:
		return "submitted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type slot struct {
	alloc      gpucore.CommandAllocator
	fenceValue uint64
	state      State
}

// Set is the frame resource arena. It is not safe for concurrent use; a
// single goroutine records frames.
type Set struct {
	fence gpucore.Fence
	list  gpucore.CommandList
	slots [Count]slot
	last  uint64
	waits int
}

// New creates Count allocators and the shared direct command list on dev.
// fence is the frame fence the slots' values refer to.
func New(dev gpucore.Device, fence gpucore.Fence) (*Set, error) {
	s := &Set{fence: fence}
	for i := range s.slots {
		alloc, err := dev.CreateCommandAllocator(gpucore.ListDirect)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("frame: allocator %d: %w", i, err)
		}
		s.slots[i].alloc = alloc
	}
	list, err := dev.CreateCommandList(gpucore.ListDirect, s.slots[0].alloc)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("frame: command list: %w", err)
	}
	// Lists are created open. Close it so every frame starts from Acquire.
	if err := list.Close(); err != nil {
		list.Release()
		s.Close()
		return nil, fmt.Errorf("frame: close initial list: %w", err)
	}
	s.list = list
	return s, nil
}

// Acquire prepares slot i for recording and returns the list bound to its
// allocator. It blocks while the fence has not reached the slot's value,
// and only then.
//
// Acquiring a slot that is already recording panics.
func (s *Set) Acquire(i int) (gpucore.CommandList, error) {
	sl := &s.slots[i]
	for j := range s.slots {
		if s.slots[j].state == Recording {
			panic(fmt.Sprintf("frame: acquire of slot %d while slot %d is recording", i, j))
		}
	}
	if done := s.fence.CompletedValue(); done < sl.fenceValue {
		s.waits++
		logging.Logger().Debug("frame: waiting for slot",
			"slot", i, "fence", sl.fenceValue, "completed", done)
		if err := s.fence.Wait(sl.fenceValue); err != nil {
			return nil, fmt.Errorf("frame: wait for slot %d: %w", i, err)
		}
	}
	if err := sl.alloc.Reset(); err != nil {
		return nil, fmt.Errorf("frame: reset allocator %d: %w", i, err)
	}
	if err := s.list.Reset(sl.alloc); err != nil {
		return nil, fmt.Errorf("frame: reset list for slot %d: %w", i, err)
	}
	sl.state = Recording
	return s.list, nil
}

// Finish closes recording for slot i and returns the submittable list.
// Finishing a slot that is not recording panics.
func (s *Set) Finish(i int) (gpucore.CommandList, error) {
	sl := &s.slots[i]
	if sl.state != Recording {
		panic(fmt.Sprintf("frame: finish of slot %d in state %s", i, sl.state))
	}
	sl.state = Submitted
	if err := s.list.Close(); err != nil {
		return nil, fmt.Errorf("frame: close list for slot %d: %w", i, err)
	}
	return s.list, nil
}

// MarkSubmitted records the fence value that retires the submission made
// from slot i. value must exceed every value recorded before.
func (s *Set) MarkSubmitted(i int, value uint64) {
	if value <= s.last {
		panic(fmt.Sprintf("frame: fence value %d for slot %d not above %d", value, i, s.last))
	}
	s.last = value
	s.slots[i].fenceValue = value
	s.slots[i].state = Submitted
}

// FenceValue returns the value that must complete before slot i is reused.
func (s *Set) FenceValue(i int) uint64 { return s.slots[i].fenceValue }

// State returns the recorded state of slot i.
func (s *Set) State(i int) State { return s.slots[i].state }

// Waits returns how many times Acquire blocked.
func (s *Set) Waits() int { return s.waits }

// Close releases the command list, then the allocators. The caller must
// have drained the GPU.
func (s *Set) Close() {
	if s.list != nil {
		s.list.Release()
		s.list = nil
	}
	for i := range s.slots {
		if s.slots[i].alloc != nil {
			s.slots[i].alloc.Close()
			s.slots[i].alloc = nil
		}
	}
}

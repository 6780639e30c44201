// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package frame

import (
	"errors"
	"testing"

	"github.com/gogpu/cube/backend/sim"
	"github.com/gogpu/cube/gpucore"
)

// mockFence reports a settable completed value and records waits.
type mockFence struct {
	completed uint64
	waits     []uint64
	err       error
}

func (f *mockFence) CompletedValue() uint64 { return f.completed }
func (f *mockFence) Close()                 {}

func (f *mockFence) Wait(v uint64) error {
	f.waits = append(f.waits, v)
	if f.err != nil {
		return f.err
	}
	if f.completed < v {
		f.completed = v
	}
	return nil
}

func createSimDevice(t *testing.T) gpucore.Device {
	t.Helper()
	adapters, err := sim.NewFactory(sim.WithManualTimeline()).Adapters(gpucore.PreferenceUnspecified)
	if err != nil {
		t.Fatal(err)
	}
	dev, err := adapters[0].CreateDevice(gpucore.FeatureLevel11_0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(dev.Close)
	return dev
}

func newSet(t *testing.T, fence gpucore.Fence) *Set {
	t.Helper()
	s, err := New(createSimDevice(t), fence)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func cycle(t *testing.T, s *Set, slot int, value uint64) {
	t.Helper()
	if _, err := s.Acquire(slot); err != nil {
		t.Fatalf("Acquire(%d) error = %v", slot, err)
	}
	if _, err := s.Finish(slot); err != nil {
		t.Fatalf("Finish(%d) error = %v", slot, err)
	}
	s.MarkSubmitted(slot, value)
}

func TestAcquireWaitsExactlyWhenBehind(t *testing.T) {
	tests := []struct {
		name       string
		fenceValue uint64
		completed  uint64
		wantWait   bool
	}{
		{"fresh slot", 0, 0, false},
		{"completed equal", 5, 5, false},
		{"completed ahead", 5, 9, false},
		{"one behind", 5, 4, true},
		{"far behind", 7, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fence := &mockFence{}
			s := newSet(t, fence)
			if tt.fenceValue > 0 {
				cycle(t, s, 0, tt.fenceValue)
			}
			fence.completed = tt.completed
			fence.waits = nil

			if _, err := s.Acquire(0); err != nil {
				t.Fatal(err)
			}
			waited := len(fence.waits) == 1
			if waited != tt.wantWait {
				t.Errorf("expected wait=%v, got waits %v", tt.wantWait, fence.waits)
			}
			if waited && fence.waits[0] != tt.fenceValue {
				t.Errorf("expected wait for %d, got %d", tt.fenceValue, fence.waits[0])
			}
			if got := s.State(0); got != Recording {
				t.Errorf("expected state recording, got %s", got)
			}
		})
	}
}

func TestSlotLifecycle(t *testing.T) {
	fence := &mockFence{}
	s := newSet(t, fence)

	for i := 0; i < Count; i++ {
		if got := s.State(i); got != Idle {
			t.Errorf("slot %d: expected idle, got %s", i, got)
		}
	}
	list, err := s.Acquire(1)
	if err != nil {
		t.Fatal(err)
	}
	if list == nil {
		t.Fatal("expected a command list")
	}
	closed, err := s.Finish(1)
	if err != nil {
		t.Fatal(err)
	}
	if closed != list {
		t.Error("expected Finish to return the recorded list")
	}
	if got := s.State(1); got != Submitted {
		t.Errorf("expected submitted, got %s", got)
	}
	s.MarkSubmitted(1, 3)
	if got := s.FenceValue(1); got != 3 {
		t.Errorf("expected fence value 3, got %d", got)
	}
	if got := s.FenceValue(0); got != 0 {
		t.Errorf("expected untouched slot 0, got %d", got)
	}
}

func TestAcquireWhileRecordingPanics(t *testing.T) {
	s := newSet(t, &mockFence{})
	if _, err := s.Acquire(0); err != nil {
		t.Fatal(err)
	}
	for _, slot := range []int{0, 1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic acquiring slot %d during recording", slot)
				}
			}()
			_, _ = s.Acquire(slot)
		}()
	}
}

func TestFinishWithoutAcquirePanics(t *testing.T) {
	s := newSet(t, &mockFence{})
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	_, _ = s.Finish(0)
}

func TestMarkSubmittedMustIncrease(t *testing.T) {
	s := newSet(t, &mockFence{})
	cycle(t, s, 0, 4)
	defer func() {
		if recover() == nil {
			t.Error("expected panic on non-increasing fence value")
		}
	}()
	s.MarkSubmitted(1, 4)
}

func TestAcquireWaitError(t *testing.T) {
	fence := &mockFence{}
	s := newSet(t, fence)
	cycle(t, s, 0, 2)
	fence.err = gpucore.ErrDeviceLost
	if _, err := s.Acquire(0); !errors.Is(err, gpucore.ErrDeviceLost) {
		t.Errorf("expected ErrDeviceLost, got %v", err)
	}
	if s.Waits() != 1 {
		t.Errorf("expected 1 wait, got %d", s.Waits())
	}
}

func TestAllocatorNotResetWhileInFlight(t *testing.T) {
	dev := createSimDevice(t)
	fence, err := dev.CreateFence(0)
	if err != nil {
		t.Fatal(err)
	}
	defer fence.Close()
	s, err := New(dev, fence)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	for v := uint64(1); v <= 6; v++ {
		slot := int(v % Count)
		if _, err := s.Acquire(slot); err != nil {
			t.Fatalf("Acquire(%d) error = %v", slot, err)
		}
		list, err := s.Finish(slot)
		if err != nil {
			t.Fatal(err)
		}
		if err := dev.Queue().Execute(list); err != nil {
			t.Fatal(err)
		}
		if err := dev.Queue().Signal(fence, v); err != nil {
			t.Fatal(err)
		}
		s.MarkSubmitted(slot, v)
	}
	if errs := dev.(*sim.Device).ValidationErrors(); len(errs) != 0 {
		t.Errorf("unexpected validation errors: %v", errs)
	}
	if s.Waits() != 4 {
		t.Errorf("expected 4 waits on a GPU that only runs when waited on, got %d", s.Waits())
	}
}

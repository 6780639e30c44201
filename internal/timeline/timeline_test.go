// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package timeline

import (
	"errors"
	"testing"

	"github.com/gogpu/cube/backend/sim"
	"github.com/gogpu/cube/gpucore"
	"github.com/gogpu/cube/internal/frame"
)

// fakeGPU is a queue and fence with a scripted completion policy.
//
// In instant mode every signal completes as soon as it is queued. In
// startup-lag mode the GPU starts behind: nothing completes until the CPU
// first blocks, at which point the GPU retires everything queued and keeps
// pace from then on.
type fakeGPU struct {
	lag       bool
	caughtUp  bool
	queued    []uint64
	completed uint64
	signals   []uint64
	waits     []uint64
	executed  int
	waitErr   error
}

func (g *fakeGPU) Execute(...gpucore.CommandList) error {
	g.executed++
	return nil
}

func (g *fakeGPU) Signal(_ gpucore.Fence, v uint64) error {
	g.signals = append(g.signals, v)
	if !g.lag || g.caughtUp {
		g.completed = v
		return nil
	}
	g.queued = append(g.queued, v)
	return nil
}

func (g *fakeGPU) CompletedValue() uint64 { return g.completed }
func (g *fakeGPU) Close()                 {}

func (g *fakeGPU) Wait(v uint64) error {
	g.waits = append(g.waits, v)
	if g.waitErr != nil {
		return g.waitErr
	}
	for _, q := range g.queued {
		g.completed = q
	}
	g.queued = nil
	g.caughtUp = true
	if g.completed < v {
		return errors.New("fake: wait for a value never signaled")
	}
	return nil
}

// ringIndex plays the swap chain: Present moves to the next index in order.
type ringIndex struct {
	order []int
	pos   int
}

func (r *ringIndex) CurrentIndex() int { return r.order[r.pos%len(r.order)] }
func (r *ringIndex) present()          { r.pos++ }

func newSync(t *testing.T, gpu *fakeGPU, idx IndexSource) (*Synchronizer, *frame.Set) {
	t.Helper()
	adapters, err := sim.NewFactory(sim.WithManualTimeline()).Adapters(gpucore.PreferenceUnspecified)
	if err != nil {
		t.Fatal(err)
	}
	dev, err := adapters[0].CreateDevice(gpucore.FeatureLevel11_0)
	if err != nil {
		t.Fatal(err)
	}
	frames, err := frame.New(dev, gpu)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		frames.Close()
		dev.Close()
	})
	return New(gpu, gpu, frames, idx), frames
}

// runFrame submits the current slot and presents.
func runFrame(t *testing.T, s *Synchronizer, idx *ringIndex) {
	t.Helper()
	if err := s.Submit(nil); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	idx.present()
}

func TestAdvanceFrameAdvancesTargetByN(t *testing.T) {
	for _, lag := range []bool{false, true} {
		gpu := &fakeGPU{lag: lag}
		idx := &ringIndex{order: []int{0, 1}}
		s, _ := newSync(t, gpu, idx)

		start := s.Target()
		const n = 9
		for i := 0; i < n; i++ {
			if err := s.AdvanceFrame(); err != nil {
				t.Fatalf("lag=%v: AdvanceFrame() error = %v", lag, err)
			}
			runFrame(t, s, idx)
		}
		if got := s.Target() - start; got != n {
			t.Errorf("lag=%v: expected target to advance by %d, got %d", lag, n, got)
		}
		if !lag && len(gpu.waits) != 0 {
			t.Errorf("expected no waits with an instant GPU, got %v", gpu.waits)
		}
	}
}

func TestAdvanceFrameWithoutSubmitStillCounts(t *testing.T) {
	gpu := &fakeGPU{}
	s, _ := newSync(t, gpu, &ringIndex{order: []int{0, 1}})
	for i := 0; i < 4; i++ {
		if err := s.AdvanceFrame(); err != nil {
			t.Fatal(err)
		}
	}
	if got := s.Target(); got != 4 {
		t.Errorf("expected target 4, got %d", got)
	}
}

func TestLaggingGPUBlocksOnceWhenRingWraps(t *testing.T) {
	if frame.Count != 2 {
		t.Skip("scenario is defined for two frames in flight")
	}
	gpu := &fakeGPU{lag: true}
	idx := &ringIndex{order: []int{0, 1}}
	s, frames := newSync(t, gpu, idx)

	waitsAfter := make([]int, 0, 5)
	for call := 1; call <= 5; call++ {
		if err := s.AdvanceFrame(); err != nil {
			t.Fatalf("call %d: AdvanceFrame() error = %v", call, err)
		}
		waitsAfter = append(waitsAfter, len(gpu.waits))
		runFrame(t, s, idx)
	}

	if len(gpu.waits) != 1 {
		t.Fatalf("expected exactly 1 blocking wait, got %d (%v)", len(gpu.waits), gpu.waits)
	}
	want := []int{0, 0, 1, 1, 1}
	for i := range want {
		if waitsAfter[i] != want[i] {
			t.Errorf("after call %d: expected %d waits, got %d", i+1, want[i], waitsAfter[i])
		}
	}
	if gpu.waits[0] != 1 {
		t.Errorf("expected the wait to target slot 0's first value 1, got %d", gpu.waits[0])
	}
	if got := frames.FenceValue(0); got != 5 {
		t.Errorf("expected slot 0 to hold value 5, got %d", got)
	}
	if s.Waits() != 1 {
		t.Errorf("expected Waits() = 1, got %d", s.Waits())
	}
}

func TestSignalsStrictlyIncrease(t *testing.T) {
	gpu := &fakeGPU{lag: true}
	idx := &ringIndex{order: []int{0, 1}}
	s, _ := newSync(t, gpu, idx)

	for i := 0; i < 4; i++ {
		if err := s.AdvanceFrame(); err != nil {
			t.Fatal(err)
		}
		runFrame(t, s, idx)
		if i == 1 {
			if err := s.DrainAll(); err != nil {
				t.Fatal(err)
			}
		}
	}
	for i := 1; i < len(gpu.signals); i++ {
		if gpu.signals[i] <= gpu.signals[i-1] {
			t.Fatalf("signals not strictly increasing: %v", gpu.signals)
		}
	}
}

func TestDrainAllIdempotent(t *testing.T) {
	gpu := &fakeGPU{lag: true}
	s, _ := newSync(t, gpu, &ringIndex{order: []int{0, 1}})

	for i := 0; i < 3; i++ {
		if err := s.DrainAll(); err != nil {
			t.Fatalf("DrainAll() #%d error = %v", i+1, err)
		}
		last := gpu.signals[len(gpu.signals)-1]
		if gpu.completed != last {
			t.Errorf("DrainAll() #%d: expected completed %d, got %d", i+1, last, gpu.completed)
		}
	}
	if gpu.executed != 0 {
		t.Errorf("expected no executions, got %d", gpu.executed)
	}
}

func TestDrainAllWaitsForInFlightFrames(t *testing.T) {
	gpu := &fakeGPU{lag: true}
	idx := &ringIndex{order: []int{0, 1}}
	s, _ := newSync(t, gpu, idx)

	for i := 0; i < 2; i++ {
		if err := s.AdvanceFrame(); err != nil {
			t.Fatal(err)
		}
		runFrame(t, s, idx)
	}
	if gpu.completed != 0 {
		t.Fatalf("expected lagging GPU at 0, got %d", gpu.completed)
	}
	if err := s.DrainAll(); err != nil {
		t.Fatal(err)
	}
	if gpu.completed != 3 {
		t.Errorf("expected drain to complete through 3, got %d", gpu.completed)
	}

	// The next frame continues above the drain value.
	if err := s.AdvanceFrame(); err != nil {
		t.Fatal(err)
	}
	runFrame(t, s, idx)
	if last := gpu.signals[len(gpu.signals)-1]; last <= 3 {
		t.Errorf("expected frame after drain to signal above 3, got %d", last)
	}
}

func TestAdvanceFrameRequeriesIndex(t *testing.T) {
	gpu := &fakeGPU{lag: true}
	// The presentation engine hands back slot 1 twice in a row.
	idx := &ringIndex{order: []int{0, 1, 1, 0}}
	s, frames := newSync(t, gpu, idx)

	var slots []int
	for i := 0; i < 4; i++ {
		if err := s.AdvanceFrame(); err != nil {
			t.Fatal(err)
		}
		slots = append(slots, s.Slot())
		runFrame(t, s, idx)
	}
	want := []int{0, 1, 1, 0}
	for i := range want {
		if slots[i] != want[i] {
			t.Errorf("frame %d: expected slot %d, got %d", i, want[i], slots[i])
		}
	}
	// Slot 1 was reused immediately, so the third frame had to wait for
	// the second frame's value.
	if len(gpu.waits) == 0 || gpu.waits[0] != 2 {
		t.Errorf("expected first wait for value 2, got %v", gpu.waits)
	}
	if frames.FenceValue(1) != 3 || frames.FenceValue(0) != 4 {
		t.Errorf("unexpected slot values %d, %d", frames.FenceValue(0), frames.FenceValue(1))
	}
}

func TestWaitFailureIsReported(t *testing.T) {
	gpu := &fakeGPU{lag: true, waitErr: gpucore.ErrDeviceLost}
	idx := &ringIndex{order: []int{0, 1}}
	s, _ := newSync(t, gpu, idx)

	var err error
	for i := 0; i < 3 && err == nil; i++ {
		if err = s.AdvanceFrame(); err == nil {
			runFrame(t, s, idx)
		}
	}
	if !errors.Is(err, gpucore.ErrDeviceLost) {
		t.Errorf("expected ErrDeviceLost, got %v", err)
	}
}

func TestSubmitWithoutAdvancePanics(t *testing.T) {
	s, _ := newSync(t, &fakeGPU{}, &ringIndex{order: []int{0, 1}})
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	_ = s.Submit(nil)
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sim

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/cube/gpucore"
)

// createDevice opens the first adapter of a factory built with opts.
func createDevice(t *testing.T, opts ...Option) (*Factory, *Device) {
	t.Helper()
	f := NewFactory(opts...)
	adapters, err := f.Adapters(gpucore.PreferenceHighPerformance)
	if err != nil || len(adapters) == 0 {
		t.Fatalf("Adapters() = %v, %v", adapters, err)
	}
	dev, err := adapters[0].CreateDevice(gpucore.FeatureLevel11_0)
	if err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	t.Cleanup(dev.Close)
	return f, dev.(*Device)
}

func newList(t *testing.T, dev *Device) (*Allocator, *CommandList) {
	t.Helper()
	alloc, err := dev.CreateCommandAllocator(gpucore.ListDirect)
	if err != nil {
		t.Fatalf("CreateCommandAllocator() error = %v", err)
	}
	cl, err := dev.CreateCommandList(gpucore.ListDirect, alloc)
	if err != nil {
		t.Fatalf("CreateCommandList() error = %v", err)
	}
	return alloc.(*Allocator), cl.(*CommandList)
}

func TestAdapterOrdering(t *testing.T) {
	f := NewFactory(WithAdapters(
		AdapterSpec{Info: gpucore.AdapterInfo{Name: "igpu", Kind: gpucore.AdapterIntegrated}, Level: gpucore.FeatureLevel12_0},
		AdapterSpec{Info: gpucore.AdapterInfo{Name: "warp", Kind: gpucore.AdapterSoftware}, Level: gpucore.FeatureLevel12_0},
		AdapterSpec{Info: gpucore.AdapterInfo{Name: "dgpu", Kind: gpucore.AdapterDiscrete}, Level: gpucore.FeatureLevel12_0},
	))

	tests := []struct {
		pref gpucore.GPUPreference
		want []string
	}{
		{gpucore.PreferenceUnspecified, []string{"igpu", "warp", "dgpu"}},
		{gpucore.PreferenceHighPerformance, []string{"dgpu", "igpu", "warp"}},
		{gpucore.PreferenceMinimumPower, []string{"igpu", "dgpu", "warp"}},
	}
	for _, tt := range tests {
		adapters, err := f.Adapters(tt.pref)
		if err != nil {
			t.Fatal(err)
		}
		for i, a := range adapters {
			if a.Info().Name != tt.want[i] {
				t.Errorf("pref %d: adapter %d = %q, want %q", tt.pref, i, a.Info().Name, tt.want[i])
			}
		}
	}

	sw, err := f.SoftwareAdapter()
	if err != nil || sw.Info().Name != "warp" {
		t.Errorf("SoftwareAdapter() = %v, %v", sw, err)
	}
}

func TestCreateDeviceFeatureLevel(t *testing.T) {
	f := NewFactory(WithAdapters(AdapterSpec{
		Info:  gpucore.AdapterInfo{Name: "old", Kind: gpucore.AdapterDiscrete},
		Level: gpucore.FeatureLevel11_0,
	}))
	adapters, _ := f.Adapters(gpucore.PreferenceUnspecified)
	if _, err := adapters[0].CreateDevice(gpucore.FeatureLevel12_0); !errors.Is(err, gpucore.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
	d1, err := adapters[0].CreateDevice(gpucore.FeatureLevel11_0)
	if err != nil {
		t.Fatal(err)
	}
	defer d1.Close()
	d2, _ := adapters[0].CreateDevice(gpucore.FeatureLevel11_0)
	defer d2.Close()
	if d1.ID() == d2.ID() {
		t.Errorf("expected distinct device IDs, both %d", d1.ID())
	}
}

func TestFenceManualTimeline(t *testing.T) {
	_, dev := createDevice(t, WithManualTimeline())
	fence, _ := dev.CreateFence(0)
	defer fence.Close()
	q := dev.Queue()

	for v := uint64(1); v <= 3; v++ {
		if err := q.Signal(fence, v); err != nil {
			t.Fatal(err)
		}
	}
	if got := fence.CompletedValue(); got != 0 {
		t.Errorf("expected completed 0 before stepping, got %d", got)
	}
	dev.Step(1)
	if got := fence.CompletedValue(); got != 1 {
		t.Errorf("expected completed 1 after one step, got %d", got)
	}
	if err := fence.Wait(2); err != nil {
		t.Fatal(err)
	}
	if got := fence.CompletedValue(); got != 2 {
		t.Errorf("expected Wait(2) to stop at 2, got %d", got)
	}
	dev.Flush()
	if got := fence.CompletedValue(); got != 3 {
		t.Errorf("expected completed 3 after flush, got %d", got)
	}
	if err := fence.Wait(10); !errors.Is(err, gpucore.ErrDeviceLost) {
		t.Errorf("expected unreachable wait to fail as device lost, got %v", err)
	}
}

func TestFenceAsyncTimeline(t *testing.T) {
	_, dev := createDevice(t)
	fence, _ := dev.CreateFence(0)
	defer fence.Close()
	for v := uint64(1); v <= 50; v++ {
		if err := dev.Queue().Signal(fence, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := fence.Wait(50); err != nil {
		t.Fatal(err)
	}
	if got := fence.CompletedValue(); got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
}

func TestNonMonotonicSignalIsRecorded(t *testing.T) {
	_, dev := createDevice(t, WithManualTimeline())
	fence, _ := dev.CreateFence(0)
	defer fence.Close()
	_ = dev.Queue().Signal(fence, 2)
	_ = dev.Queue().Signal(fence, 2)
	if n := len(dev.ValidationErrors()); n != 1 {
		t.Errorf("expected 1 validation error, got %d", n)
	}
}

func TestCopyRoundTrip(t *testing.T) {
	_, dev := createDevice(t, WithManualTimeline())
	alloc, cl := newList(t, dev)
	defer alloc.Close()
	defer cl.Release()

	src := []byte("vertex payload 0123456789abcdef")
	up, _ := dev.CreateBuffer(gpucore.BufferDesc{Label: "up", Size: uint64(len(src)), Heap: gpucore.HeapUpload})
	gpu, _ := dev.CreateBuffer(gpucore.BufferDesc{Label: "gpu", Size: uint64(len(src)), State: gpucore.StateCopyDest})
	rb, _ := dev.CreateBuffer(gpucore.BufferDesc{Label: "rb", Size: uint64(len(src)), Heap: gpucore.HeapReadback})
	defer up.Close()
	defer gpu.Close()
	defer rb.Close()

	m, err := up.Map()
	if err != nil {
		t.Fatal(err)
	}
	copy(m, src)
	cl.CopyBuffer(gpu, 0, up, 0, uint64(len(src)))
	cl.ResourceBarrier(gpucore.Transition(gpu, gpucore.StateCopyDest, gpucore.StateCopySource))
	cl.CopyBuffer(rb, 0, gpu, 0, uint64(len(src)))
	if err := cl.Close(); err != nil {
		t.Fatal(err)
	}
	if err := dev.Queue().Execute(cl); err != nil {
		t.Fatal(err)
	}
	if alloc.InFlight() != 1 {
		t.Errorf("expected 1 list in flight, got %d", alloc.InFlight())
	}
	if err := alloc.Reset(); !errors.Is(err, gpucore.ErrInvalidState) {
		t.Errorf("expected reset of busy allocator to fail, got %v", err)
	}
	dev.Flush()

	out, _ := rb.Map()
	if !bytes.Equal(out, src) {
		t.Errorf("expected %q, got %q", src, out)
	}
	if err := alloc.Reset(); err != nil {
		t.Errorf("Reset() after completion error = %v", err)
	}
}

func TestBarrierStateMismatch(t *testing.T) {
	_, dev := createDevice(t, WithManualTimeline())
	alloc, cl := newList(t, dev)
	defer alloc.Close()
	defer cl.Release()
	tex, _ := dev.CreateTexture(gpucore.TextureDesc{Label: "t", Width: 4, Height: 4,
		Format: gpucore.FormatRGBA8Unorm, State: gpucore.StateCopyDest})
	defer tex.Close()

	cl.ResourceBarrier(gpucore.Transition(tex, gpucore.StateRenderTarget, gpucore.StatePresent))
	_ = cl.Close()
	_ = dev.Queue().Execute(cl)
	dev.Flush()

	errs := dev.ValidationErrors()
	if len(errs) != 1 || !errors.Is(errs[0], gpucore.ErrInvalidState) {
		t.Errorf("expected one invalid-state error, got %v", errs)
	}
}

func TestPresentRequiresPresentState(t *testing.T) {
	_, dev := createDevice(t, WithManualTimeline())
	sc, err := dev.CreateSwapchain(gpucore.SwapchainDesc{Width: 8, Height: 8, BufferCount: 2, Format: gpucore.FormatBGRA8Unorm})
	if err != nil {
		t.Fatal(err)
	}
	defer sc.Close()
	alloc, cl := newList(t, dev)
	defer alloc.Close()
	defer cl.Release()

	bb, _ := sc.Buffer(sc.CurrentBackBufferIndex())
	cl.ResourceBarrier(gpucore.Transition(bb, gpucore.StatePresent, gpucore.StateRenderTarget))
	_ = cl.Close()
	_ = dev.Queue().Execute(cl)
	if err := sc.Present(1); err != nil {
		t.Fatal(err)
	}
	dev.Flush()
	bb.Close()

	if n := len(dev.ValidationErrors()); n != 1 {
		t.Errorf("expected presenting a render target to be flagged, got %d errors", n)
	}
	if got := sc.CurrentBackBufferIndex(); got != 1 {
		t.Errorf("expected index 1 after present, got %d", got)
	}
}

func TestResizeRules(t *testing.T) {
	trace := NewTrace()
	_, dev := createDevice(t, WithManualTimeline(), WithTrace(trace))
	sc, _ := dev.CreateSwapchain(gpucore.SwapchainDesc{Width: 8, Height: 8, BufferCount: 2, Format: gpucore.FormatRGBA8Unorm})
	defer sc.Close()

	bb, _ := sc.Buffer(0)
	if err := sc.ResizeBuffers(2, 4, 4); !errors.Is(err, gpucore.ErrInvalidState) {
		t.Errorf("expected resize with referenced buffer to fail, got %v", err)
	}
	bb.Close()

	fence, _ := dev.CreateFence(0)
	defer fence.Close()
	_ = dev.Queue().Signal(fence, 1)
	if err := sc.ResizeBuffers(2, 4, 4); !errors.Is(err, gpucore.ErrInvalidState) {
		t.Errorf("expected resize with queued work to fail, got %v", err)
	}
	_ = fence.Wait(1)

	if err := sc.ResizeBuffers(2, 4, 4); err != nil {
		t.Fatalf("ResizeBuffers() error = %v", err)
	}
	if sc.Width() != 4 || sc.Height() != 4 {
		t.Errorf("expected 4x4, got %dx%d", sc.Width(), sc.Height())
	}
	if got := sc.(*Swapchain).Generation(); got != 2 {
		t.Errorf("expected generation 2, got %d", got)
	}
	if n := len(trace.Filter(EventReleaseBackBuffer)); n != 1 {
		t.Errorf("expected 1 back buffer release, got %d", n)
	}
}

func TestDeviceLossOnResize(t *testing.T) {
	_, dev := createDevice(t, WithDeviceLossOnResize(1))
	sc, _ := dev.CreateSwapchain(gpucore.SwapchainDesc{Width: 8, Height: 8, BufferCount: 2, Format: gpucore.FormatRGBA8Unorm})
	defer sc.Close()

	err := sc.ResizeBuffers(2, 4, 4)
	if !errors.Is(err, gpucore.ErrDeviceLost) {
		t.Fatalf("expected ErrDeviceLost, got %v", err)
	}
	if dev.RemovedReason() == nil {
		t.Error("expected device to report removal")
	}
	if _, err := dev.CreateFence(0); !errors.Is(err, gpucore.ErrDeviceLost) {
		t.Errorf("expected creation on removed device to fail, got %v", err)
	}
}

func TestClearAndDraw(t *testing.T) {
	_, dev := createDevice(t, WithManualTimeline())
	alloc, cl := newList(t, dev)
	defer alloc.Close()
	defer cl.Release()

	rt, _ := dev.CreateTexture(gpucore.TextureDesc{Label: "rt", Width: 2, Height: 2,
		Format: gpucore.FormatRGBA8Unorm, RenderTarget: true, State: gpucore.StateRenderTarget})
	defer rt.Close()
	heap, _ := dev.CreateDescriptorHeap(gpucore.HeapDesc{Kind: gpucore.HeapKindRTV, Capacity: 1})
	defer heap.Close()
	if err := heap.CreateRenderTargetView(rt, 0); err != nil {
		t.Fatal(err)
	}
	vb, _ := dev.CreateBuffer(gpucore.BufferDesc{Label: "vb", Size: 64, State: gpucore.StateVertexAndConstantBuffer})
	defer vb.Close()
	code := gpucore.ShaderCode{Bytecode: []byte{1}}
	pso, err := dev.CreatePipeline(gpucore.PipelineDesc{Label: "p", Vertex: code, Pixel: code})
	if err != nil {
		t.Fatal(err)
	}
	defer pso.Close()

	cl.SetRenderTargets(heap.Handle(0), nil)
	cl.SetViewport(gpucore.Viewport{Width: 2, Height: 2, MaxDepth: 1})
	cl.SetScissor(gpucore.Rect{Right: 2, Bottom: 2})
	cl.ClearRenderTarget(heap.Handle(0), gpucore.Color{R: 1, A: 1})
	cl.SetPipeline(pso)
	cl.SetVertexBuffer(0, gpucore.VertexBufferView{Buffer: vb, Size: 64, Stride: 16})
	cl.Draw(3, 1, 0, 0)
	if err := cl.Close(); err != nil {
		t.Fatal(err)
	}
	_ = dev.Queue().Execute(cl)
	dev.Flush()

	if errs := dev.ValidationErrors(); len(errs) != 0 {
		t.Fatalf("unexpected validation errors: %v", errs)
	}
	want := []byte{255, 0, 0, 255}
	if got := rt.(*Texture).Pixels()[:4]; !bytes.Equal(got, want) {
		t.Errorf("expected first pixel %v, got %v", want, got)
	}
	if s := dev.Stats(); s.Draws != 1 || s.Clears != 1 {
		t.Errorf("expected 1 draw and 1 clear, got %+v", s)
	}
}

func TestAllocationLimit(t *testing.T) {
	_, dev := createDevice(t, WithAllocationLimit(1024))
	_, err := dev.CreateBuffer(gpucore.BufferDesc{Label: "big", Size: 4096})
	if !errors.Is(err, gpucore.ErrOutOfDeviceMemory) {
		t.Errorf("expected ErrOutOfDeviceMemory, got %v", err)
	}
}

func TestCloseWithLiveObjects(t *testing.T) {
	f := NewFactory()
	adapters, _ := f.Adapters(gpucore.PreferenceUnspecified)
	d, _ := adapters[0].CreateDevice(gpucore.FeatureLevel11_0)
	dev := d.(*Device)
	fence, _ := dev.CreateFence(0)
	if dev.LiveObjects() != 1 {
		t.Errorf("expected 1 live object, got %d", dev.LiveObjects())
	}
	dev.Close()
	fence.Close()
	if n := len(dev.ValidationErrors()); n != 1 {
		t.Errorf("expected leak to be reported, got %d errors", n)
	}
}

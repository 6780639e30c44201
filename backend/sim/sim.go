// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package sim implements gpucore with an in-process simulated GPU.
//
// The simulated device executes command lists on its own timeline, in
// submission order, with byte-accurate copies and clears. It validates
// resource states, allocator reuse and fence monotonicity, and records
// violations instead of corrupting memory. Device loss can be injected to
// exercise recovery paths.
//
// By default a worker goroutine plays the GPU. With [WithManualTimeline]
// the GPU only moves when the CPU calls [Device.Step] or [Device.Flush], or
// blocks in [gpucore.Fence.Wait], which makes fence timing deterministic.
package sim

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/cube/gpucore"
)

// AdapterSpec describes one simulated adapter.
type AdapterSpec struct {
	Info  gpucore.AdapterInfo
	Level gpucore.FeatureLevel
}

// DefaultAdapters is the adapter set of a factory created without
// WithAdapters: one capable discrete GPU and a software reference adapter.
var DefaultAdapters = []AdapterSpec{
	{
		Info: gpucore.AdapterInfo{
			Name: "Simulated Discrete GPU", Backend: "sim",
			Kind: gpucore.AdapterDiscrete, VendorID: 0x5349, DeviceID: 1,
			DedicatedMemory: 8 << 30,
		},
		Level: gpucore.FeatureLevel12_1,
	},
	{
		Info: gpucore.AdapterInfo{
			Name: "Simulated Reference Rasterizer", Backend: "sim",
			Kind: gpucore.AdapterSoftware, VendorID: 0x5349, DeviceID: 0x8c,
		},
		Level: gpucore.FeatureLevel12_1,
	},
}

type options struct {
	adapters      []AdapterSpec
	manual        bool
	latency       time.Duration
	trace         *Trace
	loseOnResize  int
	losePresent   int
	presentOrder  func(cur, n int) int
	failAllocSize uint64
}

// Option configures a Factory.
type Option func(*options)

// WithAdapters replaces the default adapter set.
func WithAdapters(specs ...AdapterSpec) Option {
	return func(o *options) { o.adapters = specs }
}

// WithManualTimeline makes the GPU advance only when stepped or waited on.
func WithManualTimeline() Option {
	return func(o *options) { o.manual = true }
}

// WithLatency delays the execution of every command list.
func WithLatency(d time.Duration) Option {
	return func(o *options) { o.latency = d }
}

// WithTrace records device events into t.
func WithTrace(t *Trace) Option {
	return func(o *options) { o.trace = t }
}

// WithDeviceLossOnResize removes the device during the n-th ResizeBuffers
// call made through the factory's devices (1-based). Later calls succeed.
func WithDeviceLossOnResize(n int) Option {
	return func(o *options) { o.loseOnResize = n }
}

// WithDeviceLossOnPresent removes the device during the n-th Present call
// made through the factory's devices (1-based).
func WithDeviceLossOnPresent(n int) Option {
	return func(o *options) { o.losePresent = n }
}

// WithPresentOrder overrides how the current back buffer index moves after
// Present. The default is round-robin.
func WithPresentOrder(next func(cur, n int) int) Option {
	return func(o *options) { o.presentOrder = next }
}

// WithAllocationLimit fails any buffer or texture allocation larger than
// size bytes with gpucore.ErrOutOfDeviceMemory.
func WithAllocationLimit(size uint64) Option {
	return func(o *options) { o.failAllocSize = size }
}

// deviceIDs hands out process-unique device identities.
var deviceIDs atomic.Uint64

// Factory enumerates simulated adapters.
type Factory struct {
	opts options

	mu       sync.Mutex
	resizes  int
	presents int
	devices  []*Device
}

// NewFactory creates a factory.
func NewFactory(opts ...Option) *Factory {
	o := options{adapters: DefaultAdapters}
	for _, opt := range opts {
		opt(&o)
	}
	if o.presentOrder == nil {
		o.presentOrder = func(cur, n int) int { return (cur + 1) % n }
	}
	return &Factory{opts: o}
}

// Trace returns the factory's trace, or nil.
func (f *Factory) Trace() *Trace { return f.opts.trace }

// Devices returns every device created by the factory, oldest first.
func (f *Factory) Devices() []*Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Device, len(f.devices))
	copy(out, f.devices)
	return out
}

// Adapters implements gpucore.Factory.
func (f *Factory) Adapters(pref gpucore.GPUPreference) ([]gpucore.Adapter, error) {
	specs := make([]AdapterSpec, len(f.opts.adapters))
	copy(specs, f.opts.adapters)

	rank := func(k gpucore.AdapterKind) int {
		switch pref {
		case gpucore.PreferenceHighPerformance:
			switch k {
			case gpucore.AdapterDiscrete:
				return 0
			case gpucore.AdapterIntegrated:
				return 1
			}
			return 2
		case gpucore.PreferenceMinimumPower:
			switch k {
			case gpucore.AdapterIntegrated:
				return 0
			case gpucore.AdapterDiscrete:
				return 1
			}
			return 2
		}
		return 0
	}
	// Stable insertion sort keeps declaration order within a rank.
	for i := 1; i < len(specs); i++ {
		for j := i; j > 0 && rank(specs[j].Info.Kind) < rank(specs[j-1].Info.Kind); j-- {
			specs[j], specs[j-1] = specs[j-1], specs[j]
		}
	}

	out := make([]gpucore.Adapter, len(specs))
	for i, s := range specs {
		out[i] = &Adapter{factory: f, spec: s}
	}
	return out, nil
}

// SoftwareAdapter implements gpucore.Factory.
func (f *Factory) SoftwareAdapter() (gpucore.Adapter, error) {
	for _, s := range f.opts.adapters {
		if s.Info.Software() {
			return &Adapter{factory: f, spec: s}, nil
		}
	}
	return nil, fmt.Errorf("sim: no software adapter: %w", gpucore.ErrUnsupported)
}

// Close implements gpucore.Factory.
func (f *Factory) Close() {}

func (f *Factory) nextResize() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resizes++
	return f.opts.loseOnResize > 0 && f.resizes == f.opts.loseOnResize
}

func (f *Factory) nextPresent() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presents++
	return f.opts.losePresent > 0 && f.presents == f.opts.losePresent
}

// Adapter is a simulated physical adapter.
type Adapter struct {
	factory *Factory
	spec    AdapterSpec
}

// Info implements gpucore.Adapter.
func (a *Adapter) Info() gpucore.AdapterInfo { return a.spec.Info }

// CreateDevice implements gpucore.Adapter.
func (a *Adapter) CreateDevice(need gpucore.FeatureLevel) (gpucore.Device, error) {
	if need > a.spec.Level {
		return nil, fmt.Errorf("sim: %s supports %s, need %s: %w",
			a.spec.Info.Name, a.spec.Level, need, gpucore.ErrUnsupported)
	}
	d := newDevice(a.factory, a.spec.Info, deviceIDs.Add(1))
	a.factory.mu.Lock()
	a.factory.devices = append(a.factory.devices, d)
	a.factory.mu.Unlock()
	return d, nil
}

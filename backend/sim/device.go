// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sim

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/cube/gpucore"
)

// Stats counts work the simulated GPU executed.
type Stats struct {
	ListsExecuted int
	Draws         int
	Indices       int
	Clears        int
	Copies        int
	Presents      int
}

// Device is a simulated logical device.
type Device struct {
	factory *Factory
	info    gpucore.AdapterInfo
	id      uint64
	trace   *Trace
	tl      *timeline
	queue   *Queue

	live atomic.Int64

	mu         sync.Mutex
	removed    error
	closed     bool
	validation []error
	stats      Stats
}

func newDevice(f *Factory, info gpucore.AdapterInfo, id uint64) *Device {
	d := &Device{
		factory: f,
		info:    info,
		id:      id,
		trace:   f.opts.trace,
		tl:      newTimeline(f.opts.manual, f.opts.latency),
	}
	d.queue = &Queue{dev: d}
	d.event(Event{Kind: EventDeviceCreate, Object: info.Name})
	return d
}

func (d *Device) event(e Event) {
	e.Device = d.id
	d.trace.add(e)
}

// invalid records a validation failure. It runs on either timeline.
func (d *Device) invalid(format string, args ...any) {
	err := fmt.Errorf("sim: "+format+": %w", append(args, gpucore.ErrInvalidState)...)
	d.mu.Lock()
	d.validation = append(d.validation, err)
	d.mu.Unlock()
	d.event(Event{Kind: EventValidation, Object: err.Error()})
}

// ValidationErrors returns every validation failure recorded so far.
func (d *Device) ValidationErrors() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]error, len(d.validation))
	copy(out, d.validation)
	return out
}

// Stats returns execution counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *Device) count(fn func(*Stats)) {
	d.mu.Lock()
	fn(&d.stats)
	d.mu.Unlock()
}

// LiveObjects returns how many child objects are not yet closed.
func (d *Device) LiveObjects() int { return int(d.live.Load()) }

// Remove simulates device removal with the given reason.
func (d *Device) Remove(reason string) {
	d.mu.Lock()
	if d.removed != nil {
		d.mu.Unlock()
		return
	}
	d.removed = fmt.Errorf("sim: device %d removed: %s: %w", d.id, reason, gpucore.ErrDeviceLost)
	err := d.removed
	d.mu.Unlock()
	d.tl.lose(err)
	d.event(Event{Kind: EventDeviceLost, Object: reason})
}

// Step runs up to n queued GPU items in manual mode.
func (d *Device) Step(n int) int { return d.tl.step(n) }

// Flush lets the GPU finish all queued work.
func (d *Device) Flush() { d.tl.flush() }

// Pending returns the number of queued GPU items.
func (d *Device) Pending() int { return d.tl.pending() }

// ID implements gpucore.Device.
func (d *Device) ID() uint64 { return d.id }

// Info implements gpucore.Device.
func (d *Device) Info() gpucore.AdapterInfo { return d.info }

// Queue implements gpucore.Device.
func (d *Device) Queue() gpucore.Queue { return d.queue }

// RemovedReason implements gpucore.Device.
func (d *Device) RemovedReason() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.removed
}

func (d *Device) check() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("sim: device %d: %w", d.id, gpucore.ErrClosed)
	}
	return d.removed
}

func (d *Device) retain() { d.live.Add(1) }

func (d *Device) release(object string) {
	d.live.Add(-1)
	d.event(Event{Kind: EventRelease, Object: object})
}

// CreateFence implements gpucore.Device.
func (d *Device) CreateFence(initial uint64) (gpucore.Fence, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	f := &Fence{dev: d, signaled: initial}
	f.value.Store(initial)
	d.retain()
	return f, nil
}

// CreateCommandAllocator implements gpucore.Device.
func (d *Device) CreateCommandAllocator(kind gpucore.ListKind) (gpucore.CommandAllocator, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	d.retain()
	return &Allocator{dev: d, kind: kind}, nil
}

// CreateCommandList implements gpucore.Device.
func (d *Device) CreateCommandList(kind gpucore.ListKind, alloc gpucore.CommandAllocator) (gpucore.CommandList, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	l := &CommandList{dev: d, kind: kind}
	if err := l.Reset(alloc); err != nil {
		return nil, err
	}
	d.retain()
	return l, nil
}

func (d *Device) allocate(size uint64, label string) error {
	if lim := d.factory.opts.failAllocSize; lim > 0 && size > lim {
		return fmt.Errorf("sim: allocate %q (%d bytes): %w", label, size, gpucore.ErrOutOfDeviceMemory)
	}
	return nil
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(desc gpucore.BufferDesc) (gpucore.Buffer, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	if desc.Size == 0 {
		return nil, errors.New("sim: zero-sized buffer")
	}
	if err := d.allocate(desc.Size, desc.Label); err != nil {
		return nil, err
	}
	state := desc.State
	switch desc.Heap {
	case gpucore.HeapUpload:
		state = gpucore.StateGenericRead
	case gpucore.HeapReadback:
		state = gpucore.StateCopyDest
	}
	d.retain()
	return &Buffer{dev: d, desc: desc, data: make([]byte, desc.Size), state: state}, nil
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc gpucore.TextureDesc) (gpucore.Texture, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	bpp := desc.Format.BytesPerPixel()
	if bpp == 0 || desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("sim: invalid texture %q %dx%d format %d: %w",
			desc.Label, desc.Width, desc.Height, desc.Format, gpucore.ErrUnsupported)
	}
	size := uint64(desc.Width) * uint64(desc.Height) * uint64(bpp)
	if err := d.allocate(size, desc.Label); err != nil {
		return nil, err
	}
	d.retain()
	return &Texture{
		dev:   d,
		desc:  desc,
		pix:   make([]byte, size),
		state: desc.State,
	}, nil
}

// CreateDescriptorHeap implements gpucore.Device.
func (d *Device) CreateDescriptorHeap(desc gpucore.HeapDesc) (gpucore.DescriptorHeap, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	if desc.Capacity <= 0 {
		return nil, fmt.Errorf("sim: descriptor heap %q capacity %d", desc.Label, desc.Capacity)
	}
	if desc.ShaderVisible && desc.Kind != gpucore.HeapKindCBVSRV {
		return nil, fmt.Errorf("sim: %s heap cannot be shader visible: %w", desc.Kind, gpucore.ErrUnsupported)
	}
	d.retain()
	return &DescriptorHeap{dev: d, desc: desc, slots: make([]view, desc.Capacity)}, nil
}

// CreatePipeline implements gpucore.Device.
func (d *Device) CreatePipeline(desc gpucore.PipelineDesc) (gpucore.Pipeline, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	if len(desc.Vertex.Bytecode) == 0 || len(desc.Pixel.Bytecode) == 0 {
		return nil, fmt.Errorf("sim: pipeline %q: missing shader bytecode", desc.Label)
	}
	d.retain()
	return &Pipeline{dev: d, desc: desc}, nil
}

// CreateSwapchain implements gpucore.Device.
func (d *Device) CreateSwapchain(desc gpucore.SwapchainDesc) (gpucore.Swapchain, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	if desc.BufferCount < 2 {
		return nil, fmt.Errorf("sim: swap chain needs at least 2 buffers, got %d", desc.BufferCount)
	}
	s := &Swapchain{dev: d, desc: desc, order: d.factory.opts.presentOrder}
	if err := s.allocate(); err != nil {
		return nil, err
	}
	d.retain()
	return s, nil
}

// Close implements gpucore.Device.
func (d *Device) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()
	if n := d.live.Load(); n != 0 {
		d.invalid("device closed with %d live objects", n)
	}
	d.tl.close()
	d.event(Event{Kind: EventDeviceClose})
}

// Queue is the simulated direct queue.
type Queue struct {
	dev *Device
}

// Execute implements gpucore.Queue.
func (q *Queue) Execute(lists ...gpucore.CommandList) error {
	d := q.dev
	if err := d.check(); err != nil {
		return err
	}
	for _, cl := range lists {
		l, ok := cl.(*CommandList)
		if !ok || l.dev != d {
			return fmt.Errorf("sim: foreign command list %T", cl)
		}
		if l.kind != gpucore.ListDirect {
			return errors.New("sim: bundles cannot be executed directly")
		}
		if l.open {
			return fmt.Errorf("sim: execute of open command list: %w", gpucore.ErrInvalidState)
		}
		ops, alloc := l.ops, l.alloc
		alloc.inFlight.Add(1)
		d.event(Event{Kind: EventExecute, Value: uint64(len(ops))})
		d.tl.push(func() {
			x := &execState{dev: d}
			for _, op := range ops {
				op(x)
			}
			alloc.inFlight.Add(-1)
			d.count(func(s *Stats) { s.ListsExecuted++ })
		})
	}
	return nil
}

// Signal implements gpucore.Queue.
func (q *Queue) Signal(f gpucore.Fence, value uint64) error {
	d := q.dev
	if err := d.check(); err != nil {
		return err
	}
	fence, ok := f.(*Fence)
	if !ok || fence.dev != d {
		return fmt.Errorf("sim: foreign fence %T", f)
	}
	fence.mu.Lock()
	if value <= fence.signaled {
		fence.mu.Unlock()
		d.invalid("fence signal %d not above previous %d", value, fence.signaled)
	} else {
		fence.signaled = value
		fence.mu.Unlock()
	}
	d.event(Event{Kind: EventSignal, Object: "fence", Value: value})
	d.tl.push(func() {
		if value > fence.value.Load() {
			fence.value.Store(value)
		}
	})
	return nil
}

// Fence is a simulated fence.
type Fence struct {
	dev   *Device
	value atomic.Uint64

	mu       sync.Mutex
	signaled uint64
	closed   bool
}

// CompletedValue implements gpucore.Fence.
func (f *Fence) CompletedValue() uint64 { return f.value.Load() }

// Wait implements gpucore.Fence.
func (f *Fence) Wait(value uint64) error {
	f.dev.event(Event{Kind: EventWait, Object: "fence", Value: value})
	return f.dev.tl.waitUntil(func() bool { return f.value.Load() >= value })
}

// Close implements gpucore.Fence.
func (f *Fence) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.dev.release("fence")
}

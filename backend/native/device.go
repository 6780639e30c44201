// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cube/gpucore"
	"github.com/gogpu/cube/internal/logging"
)

// waitTimeout bounds every wait for GPU progress. A GPU that makes no
// progress for this long is treated as removed.
const waitTimeout = 5 * time.Second

// deviceIDs hands out process-unique device identities.
var deviceIDs atomic.Uint64

// submission is a group of command buffers waiting for the GPU. index is
// the hal submission index they complete at.
type submission struct {
	index uint64
	bufs  []hal.CommandBuffer
}

// Device is a hal logical device.
type Device struct {
	id       uint64
	info     gpucore.AdapterInfo
	adapter  hal.Adapter
	hal      hal.Device
	halQueue hal.Queue
	queue    *Queue

	live atomic.Int64

	mu        sync.Mutex
	removed   error
	closed    bool
	submitted uint64
	inflight  []submission
	uploads   map[*Buffer]struct{}

	root rootLayout
}

func newDevice(info gpucore.AdapterInfo, adapter hal.Adapter, device hal.Device, queue hal.Queue) *Device {
	d := &Device{
		id:       deviceIDs.Add(1),
		info:     info,
		adapter:  adapter,
		hal:      device,
		halQueue: queue,
		uploads:  make(map[*Buffer]struct{}),
	}
	d.queue = &Queue{dev: d}
	d.root.groups = make(map[bindKey]hal.BindGroup)
	return d
}

// ID implements gpucore.Device.
func (d *Device) ID() uint64 { return d.id }

// Info implements gpucore.Device.
func (d *Device) Info() gpucore.AdapterInfo { return d.info }

// Queue implements gpucore.Device.
func (d *Device) Queue() gpucore.Queue { return d.queue }

// LiveObjects returns how many child objects are not yet closed.
func (d *Device) LiveObjects() int { return int(d.live.Load()) }

func (d *Device) retain() { d.live.Add(1) }

func (d *Device) release() { d.live.Add(-1) }

// check returns the removal reason, or ErrClosed after Close.
func (d *Device) check() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.removed != nil {
		return d.removed
	}
	if d.closed {
		return fmt.Errorf("native: device %d: %w", d.id, gpucore.ErrClosed)
	}
	return nil
}

// Remove marks the device removed. Every later call that reaches the GPU
// fails with an error wrapping gpucore.ErrDeviceLost.
func (d *Device) Remove(reason string) {
	d.remove(errors.New(reason))
}

func (d *Device) remove(cause error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeLocked(cause)
	return d.removed
}

func (d *Device) removeLocked(cause error) {
	if d.removed != nil {
		return
	}
	d.removed = fmt.Errorf("native: device %d removed: %w: %w", d.id, cause, gpucore.ErrDeviceLost)
	logging.Logger().Warn("native: device removed", "device", d.id, "reason", cause)
}

// RemovedReason implements gpucore.Device.
func (d *Device) RemovedReason() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.removed
}

// submit hands command buffers to the hal queue and returns the
// submission index they complete at.
func (d *Device) submit(bufs []hal.CommandBuffer) (uint64, error) {
	if err := d.flushUploads(); err != nil {
		d.mu.Lock()
		d.freeLocked(bufs)
		d.mu.Unlock()
		return 0, d.remove(err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.removed != nil {
		d.freeLocked(bufs)
		return 0, d.removed
	}
	idx, err := d.halQueue.Submit(bufs)
	if err != nil {
		d.freeLocked(bufs)
		d.removeLocked(fmt.Errorf("submit: %w", err))
		return 0, d.removed
	}
	if idx > d.submitted {
		d.submitted = idx
	}
	d.inflight = append(d.inflight, submission{index: idx, bufs: bufs})
	d.reclaimLocked()
	return idx, nil
}

// lastSubmitted returns the index of the newest submission.
func (d *Device) lastSubmitted() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submitted
}

func (d *Device) freeLocked(bufs []hal.CommandBuffer) {
	for _, b := range bufs {
		d.hal.FreeCommandBuffer(b)
	}
}

// reclaimLocked frees the command buffers of completed submissions.
func (d *Device) reclaimLocked() {
	done := d.halQueue.PollCompleted()
	for len(d.inflight) > 0 && d.inflight[0].index <= done {
		d.freeLocked(d.inflight[0].bufs)
		d.inflight = d.inflight[1:]
	}
}

// completed reports whether submission index idx finished on the GPU.
func (d *Device) completed(idx uint64) bool {
	return idx == 0 || d.halQueue.PollCompleted() >= idx
}

// waitIndex blocks until submission idx completes. A wait longer than
// timeout removes the device.
func (d *Device) waitIndex(idx uint64, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	backoff := 50 * time.Microsecond
	for !d.completed(idx) {
		if err := d.RemovedReason(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return d.remove(fmt.Errorf("submission %d not complete after %v", idx, timeout))
		}
		time.Sleep(backoff)
		backoff = min(backoff*2, 2*time.Millisecond)
	}
	return nil
}

// flushUploads writes every live upload buffer's CPU shadow to the GPU.
func (d *Device) flushUploads() error {
	d.mu.Lock()
	bufs := make([]*Buffer, 0, len(d.uploads))
	for b := range d.uploads {
		bufs = append(bufs, b)
	}
	d.mu.Unlock()
	for _, b := range bufs {
		if err := b.flush(); err != nil {
			return err
		}
	}
	return nil
}

// CreateFence implements gpucore.Device.
func (d *Device) CreateFence(initial uint64) (gpucore.Fence, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	d.retain()
	return &Fence{dev: d, completed: initial}, nil
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

// Close implements gpucore.Device. It waits for outstanding work, then
// destroys the shared root objects and the hal device.
func (d *Device) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	last, removed := d.submitted, d.removed
	d.mu.Unlock()

	if removed == nil {
		if err := d.waitIndex(last, waitTimeout); err != nil {
			logging.Logger().Warn("native: device closed with work in flight", "device", d.id, "err", err)
		}
	}
	d.mu.Lock()
	for _, s := range d.inflight {
		d.freeLocked(s.bufs)
	}
	d.inflight = nil
	d.mu.Unlock()

	if n := d.LiveObjects(); n > 0 {
		logging.Logger().Warn("native: device closed with live objects", "device", d.id, "live", n)
	}
	d.root.destroy(d.hal)
	d.hal.Destroy()
	logging.Logger().Debug("native: device closed", "device", d.id)
}

// Provider exposes the device to gogpu libraries that share a GPU.
func (d *Device) Provider() *Provider { return &Provider{dev: d} }

// DeviceProvider returns the device as a gpucontext.DeviceProvider.
func (d *Device) DeviceProvider() gpucontext.DeviceProvider { return d.Provider() }

// Queue is the device's direct queue.
type Queue struct {
	dev *Device
}

// Execute implements gpucore.Queue. Each list is replayed into its own
// hal command buffer; the buffers are submitted together.
func (q *Queue) Execute(lists ...gpucore.CommandList) error {
	d := q.dev
	if err := d.check(); err != nil {
		return err
	}
	if len(lists) == 0 {
		return nil
	}
	bufs := make([]hal.CommandBuffer, 0, len(lists))
	used := make([]*CommandList, 0, len(lists))
	for _, gl := range lists {
		l, ok := gl.(*CommandList)
		switch {
		case !ok || l.dev != d:
			return q.discard(bufs, fmt.Errorf("native: foreign command list %T", gl))
		case l.kind != gpucore.ListDirect:
			return q.discard(bufs, errors.New("native: bundles cannot be executed directly"))
		case l.open:
			return q.discard(bufs, fmt.Errorf("native: execute of open command list: %w", gpucore.ErrInvalidState))
		}
		buf, err := l.encode()
		if err != nil {
			return q.discard(bufs, err)
		}
		bufs = append(bufs, buf)
		used = append(used, l)
	}
	v, err := d.submit(bufs)
	if err != nil {
		return err
	}
	for _, l := range used {
		l.alloc.use(v)
	}
	return nil
}

func (q *Queue) discard(bufs []hal.CommandBuffer, err error) error {
	q.dev.mu.Lock()
	q.dev.freeLocked(bufs)
	q.dev.mu.Unlock()
	return err
}

// Signal implements gpucore.Queue. The fence reaches value once every
// submission made before the call completes.
func (q *Queue) Signal(f gpucore.Fence, value uint64) error {
	nf, ok := f.(*Fence)
	if !ok || nf.dev != q.dev {
		return fmt.Errorf("native: foreign fence %T", f)
	}
	if err := q.dev.check(); err != nil {
		return err
	}
	nf.mu.Lock()
	defer nf.mu.Unlock()
	if value <= nf.last() {
		return fmt.Errorf("native: fence signal %d not above %d: %w", value, nf.last(), gpucore.ErrInvalidState)
	}
	nf.pending = append(nf.pending, fenceSignal{value: value, index: q.dev.lastSubmitted()})
	return nil
}

type fenceSignal struct {
	value uint64
	index uint64
}

// Fence is a CPU timeline over hal submission indices.
type Fence struct {
	dev *Device

	mu        sync.Mutex
	completed uint64
	pending   []fenceSignal
	once      sync.Once
}

func (f *Fence) last() uint64 {
	if n := len(f.pending); n > 0 {
		return f.pending[n-1].value
	}
	return f.completed
}

// advanceLocked moves completed past every signal whose submission index
// is at most done.
func (f *Fence) advanceLocked(done uint64) {
	for len(f.pending) > 0 && f.pending[0].index <= done {
		f.completed = f.pending[0].value
		f.pending = f.pending[1:]
	}
}

// CompletedValue implements gpucore.Fence.
func (f *Fence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advanceLocked(f.dev.halQueue.PollCompleted())
	return f.completed
}

// Wait implements gpucore.Fence. A wait that exceeds waitTimeout removes
// the device.
func (f *Fence) Wait(value uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advanceLocked(f.dev.halQueue.PollCompleted())
	if value <= f.completed {
		return nil
	}
	if err := f.dev.RemovedReason(); err != nil {
		return err
	}
	if value > f.last() {
		return fmt.Errorf("native: wait for %d, last signal %d: %w", value, f.last(), gpucore.ErrInvalidState)
	}
	var idx uint64
	for _, s := range f.pending {
		if s.value >= value {
			idx = s.index
			break
		}
	}
	if err := f.dev.waitIndex(idx, waitTimeout); err != nil {
		return err
	}
	f.advanceLocked(idx)
	return nil
}

// Close implements gpucore.Fence.
func (f *Fence) Close() {
	f.once.Do(f.dev.release)
}

// Allocator tracks the last submission that used lists recorded with it.
type Allocator struct {
	dev     *Device
	kind    gpucore.ListKind
	lastUse atomic.Uint64
	once    sync.Once
}

func (a *Allocator) use(v uint64) { a.lastUse.Store(v) }

// Reset implements gpucore.CommandAllocator.
func (a *Allocator) Reset() error {
	if v := a.lastUse.Load(); !a.dev.completed(v) {
		return fmt.Errorf("native: allocator reset before submission %d completed: %w", v, gpucore.ErrInvalidState)
	}
	return nil
}

// Close implements gpucore.CommandAllocator.
func (a *Allocator) Close() {
	a.once.Do(a.dev.release)
}

// Provider implements gpucontext.DeviceProvider over a native device.
// Device and Queue return the hal objects.
type Provider struct {
	dev *Device
}

var _ gpucontext.DeviceProvider = (*Provider)(nil)

// Device returns the hal.Device.
func (p *Provider) Device() gpucontext.Device { return p.dev.hal }

// Queue returns the hal.Queue.
func (p *Provider) Queue() gpucontext.Queue { return p.dev.halQueue }

// Adapter returns the hal.Adapter the device was opened on. The factory
// owns it.
func (p *Provider) Adapter() gpucontext.Adapter { return p.dev.adapter }

// AdapterInfo returns the adapter name and type.
func (p *Provider) AdapterInfo() gpucontext.AdapterInfo {
	info := gpucontext.AdapterInfo{Name: p.dev.info.Name, Type: gpucontext.AdapterTypeUnknown}
	switch p.dev.info.Kind {
	case gpucore.AdapterDiscrete:
		info.Type = gpucontext.AdapterTypeDiscrete
	case gpucore.AdapterIntegrated:
		info.Type = gpucontext.AdapterTypeIntegrated
	case gpucore.AdapterSoftware:
		info.Type = gpucontext.AdapterTypeSoftware
	}
	return info
}

// SurfaceFormat returns the back buffer format of native swap chains.
func (p *Provider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }

// Poll frees the command buffers of finished submissions, first waiting
// for all of them when wait is set. A failed wait means the device was
// removed; its error is returned.
func (p *Provider) Poll(wait bool) error {
	d := p.dev
	var err error
	if wait {
		err = d.waitIndex(d.lastSubmitted(), waitTimeout)
	}
	d.mu.Lock()
	d.reclaimLocked()
	d.mu.Unlock()
	return err
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package devres owns every device-dependent object of the renderer and
// rebuilds them after the device is lost.
//
// Objects are created in two groups. CreateDeviceResources selects the
// adapter and creates the device, its queue, the frame fence, the frame
// slots and the descriptor heaps. CreateWindowSizeDependentResources
// creates or resizes the swap chain. Application objects (geometry,
// textures, pipelines) are owned by a Notify implementation, which is told
// to release them before teardown and to recreate them after a rebuild.
package devres

import (
	"errors"
	"fmt"

	"github.com/gogpu/cube/gpucore"
	"github.com/gogpu/cube/internal/adapter"
	"github.com/gogpu/cube/internal/frame"
	"github.com/gogpu/cube/internal/logging"
	"github.com/gogpu/cube/internal/swapchain"
	"github.com/gogpu/cube/internal/timeline"
)

// Notify receives device loss and restore events.
type Notify interface {
	// OnDeviceLost releases application objects created on the old device.
	OnDeviceLost()
	// OnDeviceRestored recreates them on the new device.
	OnDeviceRestored() error
}

// Config describes the device and the presentation target.
type Config struct {
	Factory gpucore.Factory
	Adapter adapter.Options

	Window      uintptr
	Width       int
	Height      int
	Format      gpucore.Format
	DepthFormat gpucore.Format
}

// Resources is the device context.
type Resources struct {
	cfg    Config
	notify Notify

	adapter gpucore.Adapter
	device  gpucore.Device
	queue   gpucore.Queue
	fence   gpucore.Fence
	frames  *frame.Set
	sync    *timeline.Synchronizer
	heaps   *swapchain.Heaps
	chain   *swapchain.Chain

	rebuilds int
}

// New returns an empty device context. Nothing is created until
// CreateDeviceResources.
func New(cfg Config) *Resources {
	if cfg.Format == gpucore.FormatUnknown {
		cfg.Format = gpucore.FormatBGRA8Unorm
	}
	cfg.Width, cfg.Height = max(cfg.Width, 1), max(cfg.Height, 1)
	return &Resources{cfg: cfg}
}

// RegisterNotify sets the receiver of device loss events.
func (r *Resources) RegisterNotify(n Notify) { r.notify = n }

// CreateDeviceResources creates the device and the objects that do not
// depend on the window size.
func (r *Resources) CreateDeviceResources() error {
	a, dev, err := adapter.Select(r.cfg.Factory, r.cfg.Adapter)
	if err != nil {
		return err
	}
	r.adapter, r.device, r.queue = a, dev, dev.Queue()

	if r.fence, err = dev.CreateFence(0); err != nil {
		return fmt.Errorf("devres: fence: %w", err)
	}
	if r.frames, err = frame.New(dev, r.fence); err != nil {
		return err
	}
	if r.heaps, err = swapchain.NewHeaps(dev, frame.Count); err != nil {
		return err
	}
	r.sync = timeline.New(r.queue, r.fence, r.frames, r)
	logging.Logger().Info("devres: device created", "adapter", a.Info().Name, "device", dev.ID())
	return nil
}

// CreateWindowSizeDependentResources creates the swap chain, or resizes it
// to the current size after draining the GPU. A device lost while resizing
// triggers HandleDeviceLost.
func (r *Resources) CreateWindowSizeDependentResources() error {
	if r.chain == nil {
		chain, err := swapchain.Create(r.device, r.heaps, swapchain.Desc{
			Window:      r.cfg.Window,
			Width:       r.cfg.Width,
			Height:      r.cfg.Height,
			FrameCount:  frame.Count,
			Format:      r.cfg.Format,
			DepthFormat: r.cfg.DepthFormat,
		})
		if err != nil {
			return err
		}
		r.chain = chain
		return r.sync.AdvanceFrame()
	}

	if err := r.sync.DrainAll(); err != nil {
		if errors.Is(err, gpucore.ErrDeviceLost) {
			return r.HandleDeviceLost()
		}
		return err
	}
	if err := r.chain.Resize(r.cfg.Width, r.cfg.Height); err != nil {
		if errors.Is(err, gpucore.ErrDeviceLost) {
			logging.Logger().Warn("devres: device lost during resize", "err", err)
			return r.HandleDeviceLost()
		}
		return err
	}
	r.sync.Resync()
	return nil
}

// SetSize records the new client size, clamped to at least 1x1, and
// reports whether it changed.
func (r *Resources) SetSize(width, height int) bool {
	width, height = max(width, 1), max(height, 1)
	if width == r.cfg.Width && height == r.cfg.Height {
		return false
	}
	r.cfg.Width, r.cfg.Height = width, height
	return true
}

// Resize applies a new client size.
func (r *Resources) Resize(width, height int) error {
	if !r.SetSize(width, height) {
		return nil
	}
	return r.CreateWindowSizeDependentResources()
}

// Present presents the current back buffer and advances to the next frame
// slot. A lost device is rebuilt.
func (r *Resources) Present(vsyncInterval int) error {
	err := r.chain.Present(vsyncInterval)
	if err == nil {
		err = r.sync.AdvanceFrame()
	}
	if errors.Is(err, gpucore.ErrDeviceLost) {
		logging.Logger().Warn("devres: device lost during present", "err", err)
		return r.HandleDeviceLost()
	}
	return err
}

// WaitForGPU blocks until all submitted work completed.
func (r *Resources) WaitForGPU() error {
	if r.sync == nil {
		return nil
	}
	return r.sync.DrainAll()
}

// SubmitAndWait records into the current frame slot, submits and drains.
// It is used for one-time uploads outside the frame loop.
func (r *Resources) SubmitAndWait(fn func(gpucore.CommandList) error) error {
	slot := r.sync.Slot()
	list, err := r.frames.Acquire(slot)
	if err != nil {
		return err
	}
	ferr := fn(list)
	if list, err = r.frames.Finish(slot); err != nil {
		return err
	}
	if ferr != nil {
		return ferr
	}
	if err := r.sync.Submit(list); err != nil {
		return err
	}
	return r.sync.DrainAll()
}

// HandleDeviceLost tears down every device-dependent object in dependency
// order and creates them again from scratch. A failed rebuild is returned
// and is fatal.
func (r *Resources) HandleDeviceLost() error {
	log := logging.Logger()
	old := r.device.ID()
	log.Warn("devres: rebuilding device", "device", old, "reason", r.device.RemovedReason())

	if r.notify != nil {
		r.notify.OnDeviceLost()
	}
	r.release()

	if err := r.CreateDeviceResources(); err != nil {
		log.Error("devres: rebuild failed", "err", err)
		return fmt.Errorf("devres: rebuild: %w", err)
	}
	if err := r.CreateWindowSizeDependentResources(); err != nil {
		log.Error("devres: rebuild failed", "err", err)
		return fmt.Errorf("devres: rebuild: %w", err)
	}
	r.rebuilds++
	if r.notify != nil {
		if err := r.notify.OnDeviceRestored(); err != nil {
			log.Error("devres: restore failed", "err", err)
			return fmt.Errorf("devres: restore: %w", err)
		}
	}
	log.Info("devres: device rebuilt", "old", old, "device", r.device.ID())
	return nil
}

// release closes command lists and allocators, the fence, the swap chain,
// the heaps, the queue and the device, in that order.
func (r *Resources) release() {
	if r.frames != nil {
		r.frames.Close()
		r.frames = nil
	}
	if r.fence != nil {
		r.fence.Close()
		r.fence = nil
	}
	r.sync = nil
	if r.chain != nil {
		r.chain.Close()
		r.chain = nil
	}
	if r.heaps != nil {
		r.heaps.Close()
		r.heaps = nil
	}
	r.queue = nil
	if r.device != nil {
		r.device.Close()
		r.device = nil
	}
	r.adapter = nil
}

// Close drains the GPU and releases everything. The Notify owner must
// have released its objects first.
func (r *Resources) Close() error {
	var err error
	if r.device != nil && r.device.RemovedReason() == nil {
		err = r.WaitForGPU()
	}
	r.release()
	return err
}

// CurrentIndex implements timeline.IndexSource.
func (r *Resources) CurrentIndex() int {
	if r.chain == nil {
		return 0
	}
	return r.chain.CurrentIndex()
}

// Adapter returns the selected adapter.
func (r *Resources) Adapter() gpucore.Adapter { return r.adapter }

// Device returns the current device.
func (r *Resources) Device() gpucore.Device { return r.device }

// DeviceID returns the identity of the current device. It changes on
// every rebuild.
func (r *Resources) DeviceID() uint64 { return r.device.ID() }

// Queue returns the direct queue.
func (r *Resources) Queue() gpucore.Queue { return r.queue }

// Fence returns the frame fence.
func (r *Resources) Fence() gpucore.Fence { return r.fence }

// Frames returns the frame slots.
func (r *Resources) Frames() *frame.Set { return r.frames }

// Timeline returns the fence synchronizer.
func (r *Resources) Timeline() *timeline.Synchronizer { return r.sync }

// Heaps returns the descriptor heaps.
func (r *Resources) Heaps() *swapchain.Heaps { return r.heaps }

// Chain returns the swap chain.
func (r *Resources) Chain() *swapchain.Chain { return r.chain }

// Width returns the client width.
func (r *Resources) Width() int { return r.cfg.Width }

// Height returns the client height.
func (r *Resources) Height() int { return r.cfg.Height }

// Rebuilds returns how many times the device was rebuilt.
func (r *Resources) Rebuilds() int { return r.rebuilds }

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package swapchain owns the presentable back buffers, the depth buffer
// and their views.
package swapchain

import (
	"errors"
	"fmt"

	"github.com/gogpu/cube/gpucore"
	"github.com/gogpu/cube/internal/logging"
)

// Desc describes a swap chain.
type Desc struct {
	Window     uintptr
	Width      int
	Height     int
	FrameCount int
	Format     gpucore.Format

	// DepthFormat is the depth buffer format. FormatUnknown disables depth.
	DepthFormat gpucore.Format
}

// Chain is a swap chain with its render target and depth views.
type Chain struct {
	dev        gpucore.Device
	heaps      *Heaps
	sc         gpucore.Swapchain
	desc       Desc
	buffers    []gpucore.Texture
	depth      gpucore.Texture
	generation int
}

func clamp(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

// Create builds the swap chain, its views in heaps and the depth buffer.
// Sizes below one pixel are clamped to one.
func Create(dev gpucore.Device, heaps *Heaps, desc Desc) (*Chain, error) {
	desc.Width, desc.Height = clamp(desc.Width), clamp(desc.Height)
	if desc.FrameCount > heaps.RTV.Capacity() {
		return nil, fmt.Errorf("swapchain: %d buffers, rtv heap holds %d", desc.FrameCount, heaps.RTV.Capacity())
	}
	sc, err := dev.CreateSwapchain(gpucore.SwapchainDesc{
		Window:      desc.Window,
		Width:       uint32(desc.Width),
		Height:      uint32(desc.Height),
		BufferCount: desc.FrameCount,
		Format:      desc.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("swapchain: create: %w", err)
	}
	c := &Chain{dev: dev, heaps: heaps, sc: sc, desc: desc, generation: 1}
	if err := c.createViews(); err != nil {
		c.Close()
		return nil, err
	}
	logging.Logger().Info("swapchain: created",
		"width", desc.Width, "height", desc.Height, "buffers", desc.FrameCount)
	return c, nil
}

func (c *Chain) createViews() error {
	c.buffers = make([]gpucore.Texture, c.desc.FrameCount)
	for i := range c.buffers {
		t, err := c.sc.Buffer(i)
		if err != nil {
			return fmt.Errorf("swapchain: back buffer %d: %w", i, err)
		}
		c.buffers[i] = t
		if err := c.heaps.RTV.CreateRenderTargetView(t, i); err != nil {
			return fmt.Errorf("swapchain: rtv %d: %w", i, err)
		}
	}
	if c.desc.DepthFormat == gpucore.FormatUnknown {
		return nil
	}
	depth, err := c.dev.CreateTexture(gpucore.TextureDesc{
		Label:        "depth buffer",
		Width:        uint32(c.desc.Width),
		Height:       uint32(c.desc.Height),
		Format:       c.desc.DepthFormat,
		DepthStencil: true,
		State:        gpucore.StateDepthWrite,
	})
	if err != nil {
		return fmt.Errorf("swapchain: depth buffer: %w", err)
	}
	c.depth = depth
	if err := c.heaps.DSV.CreateDepthStencilView(depth, 0); err != nil {
		return fmt.Errorf("swapchain: dsv: %w", err)
	}
	return nil
}

func (c *Chain) releaseViews() {
	for i, t := range c.buffers {
		if t != nil {
			c.heaps.RTV.Clear(i)
			t.Close()
		}
	}
	c.buffers = nil
	if c.depth != nil {
		c.heaps.DSV.Clear(0)
		c.depth.Close()
		c.depth = nil
	}
}

// Resize recreates the back buffers and depth buffer at the new size.
// The caller must have drained all GPU work referencing the old buffers.
// A removed device is reported as an error wrapping gpucore.ErrDeviceLost
// and leaves the chain without buffers; it must then be closed.
func (c *Chain) Resize(width, height int) error {
	width, height = clamp(width), clamp(height)
	if width == c.desc.Width && height == c.desc.Height && c.buffers != nil {
		return nil
	}
	c.releaseViews()
	if err := c.sc.ResizeBuffers(c.desc.FrameCount, uint32(width), uint32(height)); err != nil {
		if errors.Is(err, gpucore.ErrDeviceLost) {
			return fmt.Errorf("swapchain: resize to %dx%d: %w", width, height, err)
		}
		return fmt.Errorf("swapchain: resize to %dx%d failed: %w", width, height, err)
	}
	c.desc.Width, c.desc.Height = width, height
	c.generation++
	if err := c.createViews(); err != nil {
		return err
	}
	logging.Logger().Info("swapchain: resized", "width", width, "height", height, "generation", c.generation)
	return nil
}

// CurrentIndex returns the back buffer to render into next.
func (c *Chain) CurrentIndex() int { return c.sc.CurrentBackBufferIndex() }

// Present presents the current back buffer.
func (c *Chain) Present(vsyncInterval int) error {
	if err := c.sc.Present(vsyncInterval); err != nil {
		return fmt.Errorf("swapchain: present: %w", err)
	}
	return nil
}

// BackBuffer returns back buffer i.
func (c *Chain) BackBuffer(i int) gpucore.Texture { return c.buffers[i] }

// RTV returns the render target view of back buffer i.
func (c *Chain) RTV(i int) gpucore.DescriptorHandle { return c.heaps.RTV.Handle(i) }

// DSV returns the depth view, or nil without a depth buffer.
func (c *Chain) DSV() *gpucore.DescriptorHandle {
	if c.depth == nil {
		return nil
	}
	h := c.heaps.DSV.Handle(0)
	return &h
}

// Width returns the back buffer width.
func (c *Chain) Width() int { return c.desc.Width }

// Height returns the back buffer height.
func (c *Chain) Height() int { return c.desc.Height }

// AspectRatio returns width over height.
func (c *Chain) AspectRatio() float32 { return float32(c.desc.Width) / float32(c.desc.Height) }

// Format returns the back buffer format.
func (c *Chain) Format() gpucore.Format { return c.desc.Format }

// FrameCount returns the number of back buffers.
func (c *Chain) FrameCount() int { return c.desc.FrameCount }

// Generation increments every time the back buffers are recreated.
func (c *Chain) Generation() int { return c.generation }

// Swapchain returns the backend swap chain.
func (c *Chain) Swapchain() gpucore.Swapchain { return c.sc }

// Close releases the views, the depth buffer and the swap chain. The
// heaps belong to the caller.
func (c *Chain) Close() {
	c.releaseViews()
	if c.sc != nil {
		c.sc.Close()
		c.sc = nil
	}
}

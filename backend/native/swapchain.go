// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"sync"

	"github.com/gogpu/cube/gpucore"
	"github.com/gogpu/cube/internal/logging"
)

// Swapchain is a ring of offscreen render targets. Back buffers start in
// gpucore.StatePresent. The window handle is not used; frames are read
// back by copying from the back buffers.
type Swapchain struct {
	dev  *Device
	desc gpucore.SwapchainDesc

	mu         sync.Mutex
	buffers    []*Texture
	current    int
	generation int
	presents   uint64
	closed     bool
}

// CreateSwapchain implements gpucore.Device.
func (d *Device) CreateSwapchain(desc gpucore.SwapchainDesc) (gpucore.Swapchain, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	if desc.BufferCount < 2 {
		return nil, fmt.Errorf("native: swap chain needs at least 2 buffers, got %d", desc.BufferCount)
	}
	s := &Swapchain{dev: d, desc: desc}
	if err := s.allocate(); err != nil {
		return nil, err
	}
	d.retain()
	return s, nil
}

func (s *Swapchain) allocate() error {
	s.generation++
	buffers := make([]*Texture, 0, s.desc.BufferCount)
	for i := 0; i < s.desc.BufferCount; i++ {
		t, err := s.dev.newTexture(gpucore.TextureDesc{
			Label:        fmt.Sprintf("back buffer %d (gen %d)", i, s.generation),
			Width:        s.desc.Width,
			Height:       s.desc.Height,
			Format:       s.desc.Format,
			RenderTarget: true,
			State:        gpucore.StatePresent,
		})
		if err != nil {
			for _, b := range buffers {
				s.dev.hal.DestroyTexture(b.hal)
			}
			return err
		}
		t.chain = s
		buffers = append(buffers, t)
	}
	s.destroyBuffers()
	s.buffers = buffers
	s.current = 0
	return nil
}

func (s *Swapchain) destroyBuffers() {
	for _, t := range s.buffers {
		s.dev.hal.DestroyTexture(t.hal)
	}
	s.buffers = nil
}

// BufferCount implements gpucore.Swapchain.
func (s *Swapchain) BufferCount() int { return s.desc.BufferCount }

// Width implements gpucore.Swapchain.
func (s *Swapchain) Width() uint32 { return s.desc.Width }

// Height implements gpucore.Swapchain.
func (s *Swapchain) Height() uint32 { return s.desc.Height }

// Format implements gpucore.Swapchain.
func (s *Swapchain) Format() gpucore.Format { return s.desc.Format }

// Presents returns how many frames were presented.
func (s *Swapchain) Presents() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}

// Buffer implements gpucore.Swapchain.
func (s *Swapchain) Buffer(i int) (gpucore.Texture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.buffers) {
		return nil, fmt.Errorf("native: back buffer %d out of range [0,%d)", i, len(s.buffers))
	}
	t := s.buffers[i]
	t.held = true
	return t, nil
}

func (s *Swapchain) releaseRef(t *Texture) {
	s.mu.Lock()
	t.held = false
	s.mu.Unlock()
}

// CurrentBackBufferIndex implements gpucore.Swapchain.
func (s *Swapchain) CurrentBackBufferIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Present implements gpucore.Swapchain. The ring advances round-robin.
func (s *Swapchain) Present(syncInterval int) error {
	if err := s.dev.check(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = (s.current + 1) % len(s.buffers)
	s.presents++
	return nil
}

// ResizeBuffers implements gpucore.Swapchain.
func (s *Swapchain) ResizeBuffers(count int, width, height uint32) error {
	d := s.dev
	if err := d.check(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.buffers {
		if t.held {
			return fmt.Errorf("native: resize while %q is referenced: %w", t.desc.Label, gpucore.ErrInvalidState)
		}
	}
	if !d.completed(d.lastSubmitted()) {
		return fmt.Errorf("native: resize with GPU work in flight: %w", gpucore.ErrInvalidState)
	}
	if count > 0 {
		s.desc.BufferCount = count
	}
	s.desc.Width, s.desc.Height = width, height
	if err := s.allocate(); err != nil {
		return err
	}
	logging.Logger().Debug("native: swap chain resized", "width", width, "height", height, "buffers", s.desc.BufferCount)
	return nil
}

// Close implements gpucore.Swapchain.
func (s *Swapchain) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.destroyBuffers()
	s.mu.Unlock()
	s.dev.release()
}

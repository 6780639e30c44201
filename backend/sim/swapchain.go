// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sim

import (
	"fmt"
	"sync"

	"github.com/gogpu/cube/gpucore"
)

// Swapchain is a simulated swap chain. Back buffers start in
// gpucore.StatePresent.
type Swapchain struct {
	dev   *Device
	desc  gpucore.SwapchainDesc
	order func(cur, n int) int

	mu         sync.Mutex
	buffers    []*Texture
	current    int
	generation int
	closed     bool
}

func (s *Swapchain) allocate() error {
	bpp := s.desc.Format.BytesPerPixel()
	if bpp == 0 || s.desc.Width == 0 || s.desc.Height == 0 {
		return fmt.Errorf("sim: swap chain %dx%d format %d: %w",
			s.desc.Width, s.desc.Height, s.desc.Format, gpucore.ErrUnsupported)
	}
	s.generation++
	s.buffers = make([]*Texture, s.desc.BufferCount)
	for i := range s.buffers {
		s.buffers[i] = &Texture{
			dev: s.dev,
			desc: gpucore.TextureDesc{
				Label:        fmt.Sprintf("back buffer %d (gen %d)", i, s.generation),
				Width:        s.desc.Width,
				Height:       s.desc.Height,
				Format:       s.desc.Format,
				RenderTarget: true,
				State:        gpucore.StatePresent,
			},
			pix:       make([]byte, int(s.desc.Width)*int(s.desc.Height)*bpp),
			state:     gpucore.StatePresent,
			swapchain: s,
		}
	}
	s.current = 0
	return nil
}

// BufferCount implements gpucore.Swapchain.
func (s *Swapchain) BufferCount() int { return s.desc.BufferCount }

// Width implements gpucore.Swapchain.
func (s *Swapchain) Width() uint32 { return s.desc.Width }

// Height implements gpucore.Swapchain.
func (s *Swapchain) Height() uint32 { return s.desc.Height }

// Format implements gpucore.Swapchain.
func (s *Swapchain) Format() gpucore.Format { return s.desc.Format }

// Generation returns how many times the back buffers were allocated.
func (s *Swapchain) Generation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// BackBuffer returns back buffer i without taking a reference.
func (s *Swapchain) BackBuffer(i int) *Texture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffers[i]
}

// Buffer implements gpucore.Swapchain.
func (s *Swapchain) Buffer(i int) (gpucore.Texture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.buffers) {
		return nil, fmt.Errorf("sim: back buffer %d out of range [0,%d)", i, len(s.buffers))
	}
	t := s.buffers[i]
	t.held = true
	return t, nil
}

func (s *Swapchain) releaseRef(t *Texture) {
	s.mu.Lock()
	held := t.held
	t.held = false
	s.mu.Unlock()
	if held {
		s.dev.event(Event{Kind: EventReleaseBackBuffer, Object: t.desc.Label,
			Width: t.desc.Width, Height: t.desc.Height})
	}
}

// CurrentBackBufferIndex implements gpucore.Swapchain.
func (s *Swapchain) CurrentBackBufferIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Present implements gpucore.Swapchain.
func (s *Swapchain) Present(syncInterval int) error {
	d := s.dev
	if err := d.check(); err != nil {
		return err
	}
	if d.factory.nextPresent() {
		d.Remove("injected loss during present")
		return d.RemovedReason()
	}
	s.mu.Lock()
	t := s.buffers[s.current]
	s.current = s.order(s.current, len(s.buffers))
	s.mu.Unlock()

	d.tl.push(func() {
		if t.state != gpucore.StatePresent {
			d.invalid("present of %q in state %s", t.desc.Label, t.state)
		}
		d.count(func(st *Stats) { st.Presents++ })
		d.event(Event{Kind: EventPresent, Object: t.desc.Label, Value: uint64(syncInterval),
			Width: t.desc.Width, Height: t.desc.Height})
	})
	return nil
}

// ResizeBuffers implements gpucore.Swapchain.
func (s *Swapchain) ResizeBuffers(count int, width, height uint32) error {
	d := s.dev
	if err := d.check(); err != nil {
		return err
	}
	if d.factory.nextResize() {
		d.Remove("injected loss during resize")
		return d.RemovedReason()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.buffers {
		if t.held {
			d.invalid("resize while %q is referenced", t.desc.Label)
			return fmt.Errorf("sim: resize while %q is referenced: %w", t.desc.Label, gpucore.ErrInvalidState)
		}
	}
	if n := d.tl.pending(); n > 0 {
		d.invalid("resize with %d GPU items in flight", n)
		return fmt.Errorf("sim: resize with GPU work in flight: %w", gpucore.ErrInvalidState)
	}
	if count > 0 {
		s.desc.BufferCount = count
	}
	s.desc.Width, s.desc.Height = width, height
	if err := s.allocate(); err != nil {
		return err
	}
	d.event(Event{Kind: EventResize, Object: "swapchain", Width: width, Height: height})
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
	s.mu.Unlock()
	s.dev.release("swapchain")
}

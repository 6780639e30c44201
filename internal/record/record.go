// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package record builds the command sequence of one frame.
//
// Every frame is recorded in the same order:
//
//  1. back buffer present -> render target
//  2. descriptor heap and root tables (texture, constants)
//  3. viewport and scissor covering the back buffer
//  4. clear color and depth
//  5. the precompiled geometry bundle
//  6. overlay draw commands
//  7. back buffer render target -> present
//  8. close
package record

import (
	"fmt"

	"github.com/gogpu/cube/gpucore"
	"github.com/gogpu/cube/internal/frame"
)

// Overlay emits draw commands into the frame being recorded. It runs
// after the scene, with the render target bound.
type Overlay interface {
	EmitDrawCommands(list gpucore.CommandList) error
}

// Bindings are the shader-visible descriptors the scene reads.
type Bindings struct {
	Heap      gpucore.DescriptorHeap
	Texture   gpucore.DescriptorHandle
	Constants gpucore.DescriptorHandle
}

// Target is the back buffer a frame renders into.
type Target struct {
	BackBuffer gpucore.Texture
	RTV        gpucore.DescriptorHandle
	DSV        *gpucore.DescriptorHandle
	Width      int
	Height     int
}

// Recorder records frames. It is used from the recording goroutine only.
type Recorder struct {
	ClearColor gpucore.Color

	bindings Bindings
	bundle   *Bundle
	overlay  Overlay
}

// New returns a Recorder drawing bundle with the given bindings. overlay
// may be nil.
func New(bindings Bindings, bundle *Bundle, overlay Overlay, clear gpucore.Color) *Recorder {
	return &Recorder{
		ClearColor: clear,
		bindings:   bindings,
		bundle:     bundle,
		overlay:    overlay,
	}
}

// Record acquires slot from frames, records the frame into t and returns
// the closed list ready for submission.
func (r *Recorder) Record(frames *frame.Set, slot int, t Target) (gpucore.CommandList, error) {
	list, err := frames.Acquire(slot)
	if err != nil {
		return nil, err
	}

	list.ResourceBarrier(gpucore.Transition(t.BackBuffer, gpucore.StatePresent, gpucore.StateRenderTarget))

	list.SetDescriptorHeaps(r.bindings.Heap)
	list.SetRootDescriptorTable(gpucore.RootTexture, r.bindings.Texture)
	list.SetRootDescriptorTable(gpucore.RootConstants, r.bindings.Constants)

	list.SetViewport(gpucore.Viewport{
		Width:    float32(t.Width),
		Height:   float32(t.Height),
		MaxDepth: 1,
	})
	list.SetScissor(gpucore.Rect{Right: int32(t.Width), Bottom: int32(t.Height)})

	list.SetRenderTargets(t.RTV, t.DSV)
	list.ClearRenderTarget(t.RTV, r.ClearColor)
	if t.DSV != nil {
		list.ClearDepthStencil(*t.DSV, 1, 0)
	}

	list.ExecuteBundle(r.bundle.List())

	var overlayErr error
	if r.overlay != nil {
		overlayErr = r.overlay.EmitDrawCommands(list)
	}

	list.ResourceBarrier(gpucore.Transition(t.BackBuffer, gpucore.StateRenderTarget, gpucore.StatePresent))

	closed, err := frames.Finish(slot)
	if overlayErr != nil {
		return nil, fmt.Errorf("record: overlay: %w", overlayErr)
	}
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	return closed, nil
}

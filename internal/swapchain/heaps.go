// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"fmt"

	"github.com/gogpu/cube/gpucore"
)

// Fixed indices in the shader-visible heap.
const (
	SlotUIFont       = 0
	SlotSceneTexture = 1
	SlotConstants    = 2

	shaderSlots = 3
)

// Heaps are the descriptor tables allocated once per device: one render
// target view per back buffer, one depth view and the shader-visible slots.
type Heaps struct {
	RTV    gpucore.DescriptorHeap
	DSV    gpucore.DescriptorHeap
	Shader gpucore.DescriptorHeap
}

// NewHeaps allocates the heaps for frameCount back buffers.
func NewHeaps(dev gpucore.Device, frameCount int) (*Heaps, error) {
	h := &Heaps{}
	var err error
	if h.RTV, err = dev.CreateDescriptorHeap(gpucore.HeapDesc{
		Label: "rtv heap", Kind: gpucore.HeapKindRTV, Capacity: frameCount,
	}); err != nil {
		return nil, fmt.Errorf("swapchain: rtv heap: %w", err)
	}
	if h.DSV, err = dev.CreateDescriptorHeap(gpucore.HeapDesc{
		Label: "dsv heap", Kind: gpucore.HeapKindDSV, Capacity: 1,
	}); err != nil {
		h.Close()
		return nil, fmt.Errorf("swapchain: dsv heap: %w", err)
	}
	if h.Shader, err = dev.CreateDescriptorHeap(gpucore.HeapDesc{
		Label: "srv heap", Kind: gpucore.HeapKindCBVSRV, Capacity: shaderSlots, ShaderVisible: true,
	}); err != nil {
		h.Close()
		return nil, fmt.Errorf("swapchain: shader heap: %w", err)
	}
	return h, nil
}

// Slot returns the handle of a fixed shader-visible slot.
func (h *Heaps) Slot(index int) gpucore.DescriptorHandle {
	return h.Shader.Handle(index)
}

// Close releases the heaps.
func (h *Heaps) Close() {
	for _, heap := range []*gpucore.DescriptorHeap{&h.Shader, &h.DSV, &h.RTV} {
		if *heap != nil {
			(*heap).Close()
			*heap = nil
		}
	}
}

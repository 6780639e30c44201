// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sim

import (
	"fmt"
	"sync"

	"github.com/gogpu/cube/gpucore"
)

// Buffer is a simulated buffer. Its bytes are shared by CPU and GPU.
type Buffer struct {
	dev   *Device
	desc  gpucore.BufferDesc
	data  []byte
	state gpucore.ResourceState

	once   sync.Once
	mapped bool
}

// Label implements gpucore.Resource.
func (b *Buffer) Label() string { return b.desc.Label }

// Size implements gpucore.Buffer.
func (b *Buffer) Size() uint64 { return b.desc.Size }

// Heap implements gpucore.Buffer.
func (b *Buffer) Heap() gpucore.HeapType { return b.desc.Heap }

// Map implements gpucore.Buffer.
func (b *Buffer) Map() ([]byte, error) {
	if b.desc.Heap == gpucore.HeapDefault {
		return nil, fmt.Errorf("sim: map of device-local buffer %q: %w", b.desc.Label, gpucore.ErrInvalidState)
	}
	b.mapped = true
	return b.data, nil
}

// Unmap implements gpucore.Buffer.
func (b *Buffer) Unmap() { b.mapped = false }

// Mapped reports whether the buffer is currently mapped.
func (b *Buffer) Mapped() bool { return b.mapped }

// Bytes returns the buffer contents as the GPU sees them. Intended for
// tests that inspect device-local memory.
func (b *Buffer) Bytes() []byte { return b.data }

// Close implements gpucore.Resource.
func (b *Buffer) Close() {
	b.once.Do(func() { b.dev.release(b.desc.Label) })
}

// Texture is a simulated 2D texture.
type Texture struct {
	dev   *Device
	desc  gpucore.TextureDesc
	pix   []byte
	state gpucore.ResourceState

	// swapchain is set for back buffers.
	swapchain *Swapchain
	held      bool

	once sync.Once
}

// Label implements gpucore.Resource.
func (t *Texture) Label() string { return t.desc.Label }

// Width implements gpucore.Texture.
func (t *Texture) Width() uint32 { return t.desc.Width }

// Height implements gpucore.Texture.
func (t *Texture) Height() uint32 { return t.desc.Height }

// Format implements gpucore.Texture.
func (t *Texture) Format() gpucore.Format { return t.desc.Format }

// Pixels returns the texel bytes, tightly packed.
func (t *Texture) Pixels() []byte { return t.pix }

// State returns the texture's state on the GPU timeline.
func (t *Texture) State() gpucore.ResourceState { return t.state }

// Close implements gpucore.Resource. Closing a back buffer reference
// releases it from the swap chain.
func (t *Texture) Close() {
	if t.swapchain != nil {
		t.swapchain.releaseRef(t)
		return
	}
	t.once.Do(func() { t.dev.release(t.desc.Label) })
}

type viewKind int

const (
	viewNone viewKind = iota
	viewRTV
	viewDSV
	viewSRV
	viewCBV
)

type view struct {
	kind   viewKind
	tex    *Texture
	buf    *Buffer
	offset uint64
	size   uint64
}

// DescriptorHeap is a simulated descriptor heap.
type DescriptorHeap struct {
	dev   *Device
	desc  gpucore.HeapDesc
	slots []view
	once  sync.Once
}

// Kind implements gpucore.DescriptorHeap.
func (h *DescriptorHeap) Kind() gpucore.HeapKind { return h.desc.Kind }

// Capacity implements gpucore.DescriptorHeap.
func (h *DescriptorHeap) Capacity() int { return h.desc.Capacity }

// ShaderVisible implements gpucore.DescriptorHeap.
func (h *DescriptorHeap) ShaderVisible() bool { return h.desc.ShaderVisible }

// Handle implements gpucore.DescriptorHeap.
func (h *DescriptorHeap) Handle(index int) gpucore.DescriptorHandle {
	return gpucore.DescriptorHandle{Heap: h, Index: index}
}

func (h *DescriptorHeap) put(index int, kind gpucore.HeapKind, v view) error {
	if h.desc.Kind != kind {
		return fmt.Errorf("sim: %s view in %s heap %q: %w", kind, h.desc.Kind, h.desc.Label, gpucore.ErrUnsupported)
	}
	if index < 0 || index >= len(h.slots) {
		return fmt.Errorf("sim: heap %q index %d out of range [0,%d)", h.desc.Label, index, len(h.slots))
	}
	h.slots[index] = v
	return nil
}

func asTexture(t gpucore.Texture) (*Texture, error) {
	st, ok := t.(*Texture)
	if !ok {
		return nil, fmt.Errorf("sim: foreign texture %T", t)
	}
	return st, nil
}

// CreateRenderTargetView implements gpucore.DescriptorHeap.
func (h *DescriptorHeap) CreateRenderTargetView(t gpucore.Texture, index int) error {
	st, err := asTexture(t)
	if err != nil {
		return err
	}
	return h.put(index, gpucore.HeapKindRTV, view{kind: viewRTV, tex: st})
}

// CreateDepthStencilView implements gpucore.DescriptorHeap.
func (h *DescriptorHeap) CreateDepthStencilView(t gpucore.Texture, index int) error {
	st, err := asTexture(t)
	if err != nil {
		return err
	}
	if !st.desc.Format.IsDepth() {
		return fmt.Errorf("sim: depth view of %q: %w", st.desc.Label, gpucore.ErrUnsupported)
	}
	return h.put(index, gpucore.HeapKindDSV, view{kind: viewDSV, tex: st})
}

// CreateShaderResourceView implements gpucore.DescriptorHeap.
func (h *DescriptorHeap) CreateShaderResourceView(t gpucore.Texture, index int) error {
	st, err := asTexture(t)
	if err != nil {
		return err
	}
	return h.put(index, gpucore.HeapKindCBVSRV, view{kind: viewSRV, tex: st})
}

// CreateConstantBufferView implements gpucore.DescriptorHeap.
func (h *DescriptorHeap) CreateConstantBufferView(b gpucore.Buffer, offset, size uint64, index int) error {
	sb, ok := b.(*Buffer)
	if !ok {
		return fmt.Errorf("sim: foreign buffer %T", b)
	}
	if size%gpucore.ConstantBufferAlignment != 0 || offset+size > sb.desc.Size {
		return fmt.Errorf("sim: constant view [%d,+%d) of %q: %w", offset, size, sb.desc.Label, gpucore.ErrUnsupported)
	}
	return h.put(index, gpucore.HeapKindCBVSRV, view{kind: viewCBV, buf: sb, offset: offset, size: size})
}

// Clear implements gpucore.DescriptorHeap.
func (h *DescriptorHeap) Clear(index int) {
	if index >= 0 && index < len(h.slots) {
		h.slots[index] = view{}
	}
}

// Close implements gpucore.DescriptorHeap.
func (h *DescriptorHeap) Close() {
	h.once.Do(func() { h.dev.release(h.desc.Label) })
}

func resolve(hd gpucore.DescriptorHandle) (view, bool) {
	h, ok := hd.Heap.(*DescriptorHeap)
	if !ok || hd.Index < 0 || hd.Index >= len(h.slots) {
		return view{}, false
	}
	return h.slots[hd.Index], true
}

// Pipeline is a simulated graphics pipeline.
type Pipeline struct {
	dev  *Device
	desc gpucore.PipelineDesc
	once sync.Once
}

// Label implements gpucore.Pipeline.
func (p *Pipeline) Label() string { return p.desc.Label }

// Close implements gpucore.Pipeline.
func (p *Pipeline) Close() {
	p.once.Do(func() { p.dev.release(p.desc.Label) })
}

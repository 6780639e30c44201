// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cube/gpucore"
)

// Every buffer can back vertex, index and constant data and take part in
// copies, matching the untyped buffers of the gpucore model.
const bufferUsage = gputypes.BufferUsageVertex | gputypes.BufferUsageIndex |
	gputypes.BufferUsageUniform | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst

// Buffer is a hal buffer. Upload and readback buffers keep a CPU shadow.
type Buffer struct {
	dev    *Device
	desc   gpucore.BufferDesc
	hal    hal.Buffer
	shadow []byte
	once   sync.Once
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(desc gpucore.BufferDesc) (gpucore.Buffer, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	if desc.Size == 0 {
		return nil, fmt.Errorf("native: buffer %q has zero size", desc.Label)
	}
	size := gpucore.AlignUp(desc.Size, 4)
	usage := bufferUsage
	if desc.Heap == gpucore.HeapReadback {
		usage = gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
	}
	hb, err := d.hal.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create buffer %q (%d bytes): %w: %w",
			desc.Label, desc.Size, err, gpucore.ErrOutOfDeviceMemory)
	}
	b := &Buffer{dev: d, desc: desc, hal: hb}
	if desc.Heap != gpucore.HeapDefault {
		b.shadow = make([]byte, size)
	}
	if desc.Heap == gpucore.HeapUpload {
		d.mu.Lock()
		d.uploads[b] = struct{}{}
		d.mu.Unlock()
	}
	d.retain()
	return b, nil
}

// Label implements gpucore.Resource.
func (b *Buffer) Label() string { return b.desc.Label }

// Size implements gpucore.Buffer.
func (b *Buffer) Size() uint64 { return b.desc.Size }

// Heap implements gpucore.Buffer.
func (b *Buffer) Heap() gpucore.HeapType { return b.desc.Heap }

// Map implements gpucore.Buffer. Readback buffers are refreshed from the
// GPU first.
func (b *Buffer) Map() ([]byte, error) {
	switch b.desc.Heap {
	case gpucore.HeapUpload:
	case gpucore.HeapReadback:
		if err := b.readBack(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("native: map of device-local buffer %q: %w", b.desc.Label, gpucore.ErrInvalidState)
	}
	return b.shadow[:b.desc.Size], nil
}

// Unmap implements gpucore.Buffer.
func (b *Buffer) Unmap() {}

// flush writes the CPU shadow of an upload buffer to the GPU.
func (b *Buffer) flush() error {
	if err := b.dev.halQueue.WriteBuffer(b.hal, 0, b.shadow); err != nil {
		return fmt.Errorf("native: write upload buffer %q: %w", b.desc.Label, err)
	}
	return nil
}

// readBack copies the GPU contents of a readback buffer into its shadow.
func (b *Buffer) readBack() error {
	d := b.dev
	m, err := d.hal.MapBuffer(b.hal, 0, uint64(len(b.shadow)))
	if err != nil {
		return fmt.Errorf("native: map %q: %w", b.desc.Label, err)
	}
	copy(b.shadow, unsafe.Slice((*byte)(m.Ptr), len(b.shadow)))
	if err := d.hal.UnmapBuffer(b.hal); err != nil {
		return fmt.Errorf("native: unmap %q: %w", b.desc.Label, err)
	}
	return nil
}

// Close implements gpucore.Resource.
func (b *Buffer) Close() {
	b.once.Do(func() {
		d := b.dev
		d.mu.Lock()
		delete(d.uploads, b)
		d.mu.Unlock()
		d.root.forget(d.hal, func(k bindKey) bool { return k.buf == b.hal })
		d.hal.DestroyBuffer(b.hal)
		d.release()
	})
}

// Texture is a hal texture.
type Texture struct {
	dev   *Device
	desc  gpucore.TextureDesc
	hal   hal.Texture
	chain *Swapchain
	held  bool
	once  sync.Once
}

func textureUsage(desc gpucore.TextureDesc) gputypes.TextureUsage {
	switch {
	case desc.DepthStencil:
		return gputypes.TextureUsageRenderAttachment
	case desc.RenderTarget:
		return gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
	default:
		return gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
	}
}

func (d *Device) newTexture(desc gpucore.TextureDesc) (*Texture, error) {
	format, ok := textureFormat(desc.Format)
	if !ok || desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("native: invalid texture %q %dx%d format %d: %w",
			desc.Label, desc.Width, desc.Height, desc.Format, gpucore.ErrUnsupported)
	}
	ht, err := d.hal.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         textureUsage(desc),
	})
	if err != nil {
		return nil, fmt.Errorf("native: create texture %q: %w: %w", desc.Label, err, gpucore.ErrOutOfDeviceMemory)
	}
	return &Texture{dev: d, desc: desc, hal: ht}, nil
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc gpucore.TextureDesc) (gpucore.Texture, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	t, err := d.newTexture(desc)
	if err != nil {
		return nil, err
	}
	d.retain()
	return t, nil
}

// Label implements gpucore.Resource.
func (t *Texture) Label() string { return t.desc.Label }

// Width implements gpucore.Texture.
func (t *Texture) Width() uint32 { return t.desc.Width }

// Height implements gpucore.Texture.
func (t *Texture) Height() uint32 { return t.desc.Height }

// Format implements gpucore.Texture.
func (t *Texture) Format() gpucore.Format { return t.desc.Format }

// Close implements gpucore.Resource. Closing a back buffer only drops the
// caller's reference; the swap chain owns the hal texture.
func (t *Texture) Close() {
	if t.chain != nil {
		t.chain.releaseRef(t)
		return
	}
	t.once.Do(func() {
		t.dev.hal.DestroyTexture(t.hal)
		t.dev.release()
	})
}

func (t *Texture) createView(label string) (hal.TextureView, error) {
	format, _ := textureFormat(t.desc.Format)
	v, err := t.dev.hal.CreateTextureView(t.hal, &hal.TextureViewDescriptor{
		Label:         label,
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("native: view of %q: %w", t.desc.Label, err)
	}
	return v, nil
}

type slotKind int

const (
	slotEmpty slotKind = iota
	slotRTV
	slotDSV
	slotSRV
	slotCBV
)

// slot is one descriptor: a texture view or a constant buffer range.
type slot struct {
	kind   slotKind
	tex    *Texture
	view   hal.TextureView
	buf    *Buffer
	offset uint64
	size   uint64
}

// DescriptorHeap is a CPU table of views.
type DescriptorHeap struct {
	dev  *Device
	desc gpucore.HeapDesc

	mu    sync.Mutex
	slots []slot
	once  sync.Once
}

// CreateDescriptorHeap implements gpucore.Device.
func (d *Device) CreateDescriptorHeap(desc gpucore.HeapDesc) (gpucore.DescriptorHeap, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	if desc.Capacity <= 0 {
		return nil, fmt.Errorf("native: descriptor heap %q capacity %d", desc.Label, desc.Capacity)
	}
	if desc.ShaderVisible && desc.Kind != gpucore.HeapKindCBVSRV {
		return nil, fmt.Errorf("native: %s heap cannot be shader visible: %w", desc.Kind, gpucore.ErrUnsupported)
	}
	d.retain()
	return &DescriptorHeap{dev: d, desc: desc, slots: make([]slot, desc.Capacity)}, nil
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

func (h *DescriptorHeap) put(index int, kind gpucore.HeapKind, s slot) error {
	if h.desc.Kind != kind {
		if s.view != nil {
			h.dev.hal.DestroyTextureView(s.view)
		}
		return fmt.Errorf("native: %s view in %s heap %q: %w", kind, h.desc.Kind, h.desc.Label, gpucore.ErrUnsupported)
	}
	if index < 0 || index >= len(h.slots) {
		if s.view != nil {
			h.dev.hal.DestroyTextureView(s.view)
		}
		return fmt.Errorf("native: heap %q index %d out of range [0,%d)", h.desc.Label, index, len(h.slots))
	}
	h.mu.Lock()
	old := h.slots[index]
	h.slots[index] = s
	h.mu.Unlock()
	h.drop(old)
	return nil
}

func (h *DescriptorHeap) drop(s slot) {
	if s.view == nil {
		return
	}
	d := h.dev
	d.root.forget(d.hal, func(k bindKey) bool { return k.view == s.view })
	d.hal.DestroyTextureView(s.view)
}

func (h *DescriptorHeap) get(index int) (slot, bool) {
	if index < 0 || index >= len(h.slots) {
		return slot{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.slots[index], true
}

func asTexture(t gpucore.Texture) (*Texture, error) {
	nt, ok := t.(*Texture)
	if !ok {
		return nil, fmt.Errorf("native: foreign texture %T", t)
	}
	return nt, nil
}

func (h *DescriptorHeap) putView(t gpucore.Texture, index int, kind gpucore.HeapKind, sk slotKind) error {
	nt, err := asTexture(t)
	if err != nil {
		return err
	}
	v, err := nt.createView(fmt.Sprintf("%s[%d]", h.desc.Label, index))
	if err != nil {
		return err
	}
	return h.put(index, kind, slot{kind: sk, tex: nt, view: v})
}

// CreateRenderTargetView implements gpucore.DescriptorHeap.
func (h *DescriptorHeap) CreateRenderTargetView(t gpucore.Texture, index int) error {
	return h.putView(t, index, gpucore.HeapKindRTV, slotRTV)
}

// CreateDepthStencilView implements gpucore.DescriptorHeap.
func (h *DescriptorHeap) CreateDepthStencilView(t gpucore.Texture, index int) error {
	if !t.Format().IsDepth() {
		return fmt.Errorf("native: depth view of %q: %w", t.Label(), gpucore.ErrUnsupported)
	}
	return h.putView(t, index, gpucore.HeapKindDSV, slotDSV)
}

// CreateShaderResourceView implements gpucore.DescriptorHeap.
func (h *DescriptorHeap) CreateShaderResourceView(t gpucore.Texture, index int) error {
	return h.putView(t, index, gpucore.HeapKindCBVSRV, slotSRV)
}

// CreateConstantBufferView implements gpucore.DescriptorHeap.
func (h *DescriptorHeap) CreateConstantBufferView(b gpucore.Buffer, offset, size uint64, index int) error {
	nb, ok := b.(*Buffer)
	if !ok {
		return fmt.Errorf("native: foreign buffer %T", b)
	}
	if size%gpucore.ConstantBufferAlignment != 0 || offset+size > gpucore.AlignUp(nb.desc.Size, 4) {
		return fmt.Errorf("native: constant view [%d,+%d) of %q: %w", offset, size, nb.desc.Label, gpucore.ErrUnsupported)
	}
	return h.put(index, gpucore.HeapKindCBVSRV, slot{kind: slotCBV, buf: nb, offset: offset, size: size})
}

// Clear implements gpucore.DescriptorHeap.
func (h *DescriptorHeap) Clear(index int) {
	if index < 0 || index >= len(h.slots) {
		return
	}
	h.mu.Lock()
	old := h.slots[index]
	h.slots[index] = slot{}
	h.mu.Unlock()
	h.drop(old)
}

// Close implements gpucore.DescriptorHeap. Views still stored are
// destroyed.
func (h *DescriptorHeap) Close() {
	h.once.Do(func() {
		for i := range h.slots {
			h.Clear(i)
		}
		h.dev.release()
	})
}

func resolve(hd gpucore.DescriptorHandle) (slot, bool) {
	h, ok := hd.Heap.(*DescriptorHeap)
	if !ok {
		return slot{}, false
	}
	return h.get(hd.Index)
}

// Pipeline is a hal render pipeline using the shared root layout.
type Pipeline struct {
	dev      *Device
	desc     gpucore.PipelineDesc
	hal      hal.RenderPipeline
	vertex   hal.ShaderModule
	fragment hal.ShaderModule
	once     sync.Once
}

func shaderSource(code gpucore.ShaderCode) hal.ShaderSource {
	if n := len(code.Bytecode); n >= 4 && n%4 == 0 {
		words := make([]uint32, n/4)
		for i := range words {
			words[i] = binary.LittleEndian.Uint32(code.Bytecode[i*4:])
		}
		return hal.ShaderSource{SPIRV: words}
	}
	return hal.ShaderSource{WGSL: code.Source}
}

// CreatePipeline implements gpucore.Device.
func (d *Device) CreatePipeline(desc gpucore.PipelineDesc) (gpucore.Pipeline, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	if len(desc.Vertex.Bytecode) == 0 && desc.Vertex.Source == "" {
		return nil, fmt.Errorf("native: pipeline %q: missing vertex shader", desc.Label)
	}
	if len(desc.Pixel.Bytecode) == 0 && desc.Pixel.Source == "" {
		return nil, fmt.Errorf("native: pipeline %q: missing pixel shader", desc.Label)
	}
	rtFormat, ok := textureFormat(desc.RTFormat)
	if !ok {
		return nil, fmt.Errorf("native: pipeline %q: render target format %d: %w", desc.Label, desc.RTFormat, gpucore.ErrUnsupported)
	}
	layout, err := d.root.pipelineLayout(d.hal)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{dev: d, desc: desc}
	if p.vertex, err = d.hal.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label + " vertex",
		Source: shaderSource(desc.Vertex),
	}); err != nil {
		return nil, fmt.Errorf("native: pipeline %q: vertex shader: %w", desc.Label, err)
	}
	if p.fragment, err = d.hal.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label + " fragment",
		Source: shaderSource(desc.Pixel),
	}); err != nil {
		d.hal.DestroyShaderModule(p.vertex)
		return nil, fmt.Errorf("native: pipeline %q: fragment shader: %w", desc.Label, err)
	}

	attrs := make([]gputypes.VertexAttribute, len(desc.Attributes))
	for i, a := range desc.Attributes {
		attrs[i] = gputypes.VertexAttribute{
			Format:         vertexFormat(a.Format),
			Offset:         uint64(a.Offset),
			ShaderLocation: a.Location,
		}
	}
	target := gputypes.ColorTargetState{Format: rtFormat, WriteMask: gputypes.ColorWriteMaskAll}
	if desc.AlphaBlend {
		blend := gputypes.BlendState{
			Color: gputypes.BlendComponent{
				SrcFactor: gputypes.BlendFactorSrcAlpha,
				DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
				Operation: gputypes.BlendOperationAdd,
			},
			Alpha: gputypes.BlendComponent{
				SrcFactor: gputypes.BlendFactorOne,
				DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
				Operation: gputypes.BlendOperationAdd,
			},
		}
		target.Blend = &blend
	}

	pd := &hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     p.vertex,
			EntryPoint: desc.Vertex.EntryPoint,
			Buffers: []gputypes.VertexBufferLayout{{
				ArrayStride: uint64(desc.VertexStride),
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes:  attrs,
			}},
		},
		Fragment: &hal.FragmentState{
			Module:     p.fragment,
			EntryPoint: desc.Pixel.EntryPoint,
			Targets:    []gputypes.ColorTargetState{target},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	}
	if dsFormat, ok := textureFormat(desc.DSFormat); ok && desc.DSFormat.IsDepth() {
		compare := gputypes.CompareFunctionAlways
		if desc.DepthTest {
			compare = gputypes.CompareFunctionLess
		}
		keep := hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		}
		pd.DepthStencil = &hal.DepthStencilState{
			Format:            dsFormat,
			DepthWriteEnabled: desc.DepthTest,
			DepthCompare:      compare,
			StencilFront:      keep,
			StencilBack:       keep,
			StencilReadMask:   0xFF,
			StencilWriteMask:  0,
		}
	}
	if p.hal, err = d.hal.CreateRenderPipeline(pd); err != nil {
		d.hal.DestroyShaderModule(p.fragment)
		d.hal.DestroyShaderModule(p.vertex)
		return nil, fmt.Errorf("native: create pipeline %q: %w", desc.Label, err)
	}
	d.retain()
	return p, nil
}

// Label implements gpucore.Pipeline.
func (p *Pipeline) Label() string { return p.desc.Label }

// Close implements gpucore.Pipeline.
func (p *Pipeline) Close() {
	p.once.Do(func() {
		p.dev.hal.DestroyRenderPipeline(p.hal)
		p.dev.hal.DestroyShaderModule(p.fragment)
		p.dev.hal.DestroyShaderModule(p.vertex)
		p.dev.release()
	})
}

// bindKey identifies a bind group by the views it binds.
type bindKey struct {
	view   hal.TextureView
	buf    hal.Buffer
	offset uint64
	size   uint64
}

// rootLayout is the fixed root signature shared by every pipeline of a
// device: a sampled texture at binding 0, its static sampler at binding 1
// and a constant buffer at binding 2.
type rootLayout struct {
	mu      sync.Mutex
	group0  hal.BindGroupLayout
	layout  hal.PipelineLayout
	sampler hal.Sampler
	// fallback backs the constant binding of pipelines that never set one.
	fallback hal.Buffer
	groups   map[bindKey]hal.BindGroup
}

func (r *rootLayout) pipelineLayout(dev hal.Device) (hal.PipelineLayout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.layout != nil {
		return r.layout, nil
	}
	var err error
	if r.group0, err = dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "root",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	}); err != nil {
		return nil, fmt.Errorf("native: create root bind group layout: %w", err)
	}
	if r.sampler, err = dev.CreateSampler(&hal.SamplerDescriptor{
		Label:        "root static sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	}); err != nil {
		r.destroyLocked(dev)
		return nil, fmt.Errorf("native: create root sampler: %w", err)
	}
	if r.fallback, err = dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "root fallback constants",
		Size:  gpucore.ConstantBufferAlignment,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	}); err != nil {
		r.destroyLocked(dev)
		return nil, fmt.Errorf("native: create root fallback buffer: %w", err)
	}
	if r.layout, err = dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "root",
		BindGroupLayouts: []hal.BindGroupLayout{r.group0},
	}); err != nil {
		r.destroyLocked(dev)
		return nil, fmt.Errorf("native: create root pipeline layout: %w", err)
	}
	return r.layout, nil
}

// group returns the bind group for a texture view and constant range,
// creating it on first use. A nil buf binds the fallback buffer.
func (r *rootLayout) group(dev hal.Device, view hal.TextureView, buf hal.Buffer, offset, size uint64) (hal.BindGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if buf == nil {
		buf, offset, size = r.fallback, 0, gpucore.ConstantBufferAlignment
	}
	key := bindKey{view: view, buf: buf, offset: offset, size: size}
	if g, ok := r.groups[key]; ok {
		return g, nil
	}
	g, err := dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "root",
		Layout: r.group0,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: r.sampler.NativeHandle()}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: offset, Size: size}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create root bind group: %w", err)
	}
	r.groups[key] = g
	return g, nil
}

// forget destroys the cached bind groups matching fn.
func (r *rootLayout) forget(dev hal.Device, fn func(bindKey) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, g := range r.groups {
		if fn(k) {
			dev.DestroyBindGroup(g)
			delete(r.groups, k)
		}
	}
}

func (r *rootLayout) destroy(dev hal.Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyLocked(dev)
}

func (r *rootLayout) destroyLocked(dev hal.Device) {
	for k, g := range r.groups {
		dev.DestroyBindGroup(g)
		delete(r.groups, k)
	}
	if r.layout != nil {
		dev.DestroyPipelineLayout(r.layout)
		r.layout = nil
	}
	if r.fallback != nil {
		dev.DestroyBuffer(r.fallback)
		r.fallback = nil
	}
	if r.sampler != nil {
		dev.DestroySampler(r.sampler)
		r.sampler = nil
	}
	if r.group0 != nil {
		dev.DestroyBindGroupLayout(r.group0)
		r.group0 = nil
	}
}

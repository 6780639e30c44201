// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import "fmt"

// RowPitchAlignment is the required alignment, in bytes, of each row in a
// buffer used for buffer/texture copies.
const RowPitchAlignment = 256

// ConstantBufferAlignment is the required alignment of constant buffer sizes.
const ConstantBufferAlignment = 256

// AlignUp rounds n up to a multiple of a. a must be a power of two.
func AlignUp(n, a uint64) uint64 {
	return (n + a - 1) &^ (a - 1)
}

// FeatureLevel is the minimum capability level a device must support.
type FeatureLevel uint32

// Feature levels.
const (
	FeatureLevel11_0 FeatureLevel = 0xb000
	FeatureLevel11_1 FeatureLevel = 0xb100
	FeatureLevel12_0 FeatureLevel = 0xc000
	FeatureLevel12_1 FeatureLevel = 0xc100
)

// String returns the level as "major_minor".
func (l FeatureLevel) String() string {
	return fmt.Sprintf("%d_%d", l>>12, (l>>8)&0xf)
}

// GPUPreference orders adapter enumeration.
type GPUPreference int

// GPU preferences.
const (
	PreferenceUnspecified GPUPreference = iota
	PreferenceMinimumPower
	PreferenceHighPerformance
)

// AdapterKind classifies physical adapters.
type AdapterKind int

// Adapter kinds.
const (
	AdapterUnknown AdapterKind = iota
	AdapterDiscrete
	AdapterIntegrated
	AdapterVirtual
	AdapterSoftware
)

// String returns a human-readable name for the kind.
func (k AdapterKind) String() string {
	switch k {
	case AdapterDiscrete:
		return "discrete"
	case AdapterIntegrated:
		return "integrated"
	case AdapterVirtual:
		return "virtual"
	case AdapterSoftware:
		return "software"
	default:
		return "unknown"
	}
}

// AdapterInfo describes a physical adapter.
type AdapterInfo struct {
	Name            string
	Backend         string
	Kind            AdapterKind
	VendorID        uint32
	DeviceID        uint32
	DedicatedMemory uint64
}

// Software reports whether the adapter is a software or emulation adapter.
func (i AdapterInfo) Software() bool { return i.Kind == AdapterSoftware }

// ResourceState is the usage state a resource is in on the GPU timeline.
type ResourceState uint32

// Resource states.
const (
	StateCommon ResourceState = iota
	StatePresent
	StateRenderTarget
	StateDepthWrite
	StateCopyDest
	StateCopySource
	StateVertexAndConstantBuffer
	StateIndexBuffer
	StatePixelShaderResource
	StateGenericRead
)

var stateNames = [...]string{
	StateCommon:                  "common",
	StatePresent:                 "present",
	StateRenderTarget:            "render-target",
	StateDepthWrite:              "depth-write",
	StateCopyDest:                "copy-dest",
	StateCopySource:              "copy-source",
	StateVertexAndConstantBuffer: "vertex-and-constant-buffer",
	StateIndexBuffer:             "index-buffer",
	StatePixelShaderResource:     "pixel-shader-resource",
	StateGenericRead:             "generic-read",
}

// String returns the state name.
func (s ResourceState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("ResourceState(%d)", uint32(s))
}

// HeapType selects the memory a buffer or texture lives in. Descriptors carry
// it by value; there is no shared heap-properties object.
type HeapType int

// Heap types.
const (
	// HeapDefault is device-local memory, not CPU visible.
	HeapDefault HeapType = iota
	// HeapUpload is CPU-writable, GPU-readable, coherent memory.
	HeapUpload
	// HeapReadback is GPU-writable, CPU-readable memory.
	HeapReadback
)

// Format is a texel format.
type Format int

// Formats.
const (
	FormatUnknown Format = iota
	FormatRGBA8Unorm
	FormatBGRA8Unorm
	FormatD24UnormS8
	FormatD32Float
)

// BytesPerPixel returns the size of one texel.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGBA8Unorm, FormatBGRA8Unorm, FormatD24UnormS8, FormatD32Float:
		return 4
	default:
		return 0
	}
}

// IsDepth reports whether f is a depth format.
func (f Format) IsDepth() bool {
	return f == FormatD24UnormS8 || f == FormatD32Float
}

// BufferDesc describes a buffer.
type BufferDesc struct {
	Label string
	Size  uint64
	Heap  HeapType
	State ResourceState
}

// TextureDesc describes a 2D texture.
type TextureDesc struct {
	Label        string
	Width        uint32
	Height       uint32
	Format       Format
	RenderTarget bool
	DepthStencil bool
	State        ResourceState
	ClearColor   Color
}

// HeapKind is the kind of descriptors a descriptor heap stores.
type HeapKind int

// Descriptor heap kinds.
const (
	HeapKindRTV HeapKind = iota
	HeapKindDSV
	HeapKindCBVSRV
)

// String returns the heap kind name.
func (k HeapKind) String() string {
	switch k {
	case HeapKindRTV:
		return "rtv"
	case HeapKindDSV:
		return "dsv"
	case HeapKindCBVSRV:
		return "cbv-srv"
	default:
		return fmt.Sprintf("HeapKind(%d)", int(k))
	}
}

// HeapDesc describes a fixed-capacity descriptor heap.
type HeapDesc struct {
	Label         string
	Kind          HeapKind
	Capacity      int
	ShaderVisible bool
}

// DescriptorHandle addresses one slot in a descriptor heap.
type DescriptorHandle struct {
	Heap  DescriptorHeap
	Index int
}

// Valid reports whether h refers to a heap slot.
func (h DescriptorHandle) Valid() bool {
	return h.Heap != nil && h.Index >= 0 && h.Index < h.Heap.Capacity()
}

// ListKind selects direct command lists or bundles.
type ListKind int

// Command list kinds.
const (
	ListDirect ListKind = iota
	ListBundle
)

// Color is a linear RGBA color.
type Color struct {
	R, G, B, A float32
}

// Viewport is a rasterizer viewport.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Rect is a scissor rectangle with exclusive right/bottom edges.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// Barrier is a resource state transition.
type Barrier struct {
	Resource Resource
	Before   ResourceState
	After    ResourceState
}

// Transition returns a transition barrier for r.
func Transition(r Resource, before, after ResourceState) Barrier {
	return Barrier{Resource: r, Before: before, After: after}
}

// Footprint describes the layout of texel data in a buffer.
type Footprint struct {
	Offset   uint64
	Width    uint32
	Height   uint32
	RowPitch uint32
}

// VertexBufferView binds a range of a buffer as vertex input.
type VertexBufferView struct {
	Buffer Buffer
	Offset uint64
	Size   uint64
	Stride uint32
}

// IndexFormat is the width of an index.
type IndexFormat int

// Index formats.
const (
	IndexUint16 IndexFormat = iota
	IndexUint32
)

// IndexBufferView binds a range of a buffer as index input.
type IndexBufferView struct {
	Buffer Buffer
	Offset uint64
	Size   uint64
	Format IndexFormat
}

// VertexFormat is the format of one vertex attribute.
type VertexFormat int

// Vertex formats.
const (
	VertexFloat32x2 VertexFormat = iota
	VertexFloat32x3
	VertexFloat32x4
	VertexUnorm8x4
)

// VertexAttribute describes one vertex input element.
type VertexAttribute struct {
	Location uint32
	Format   VertexFormat
	Offset   uint32
}

// ShaderCode is compiled shader bytecode.
type ShaderCode struct {
	EntryPoint string
	Target     string
	// Bytecode holds the compiled program. For SPIR-V targets it is a
	// little-endian stream of 32-bit words.
	Bytecode []byte
	// Source is the shader source the bytecode was produced from, kept for
	// backends that compile themselves.
	Source string
}

// Root parameter indices of the fixed root layout shared by every pipeline.
const (
	RootTexture   = 0
	RootConstants = 1
)

// PipelineDesc describes a graphics pipeline using the fixed root layout:
// one texture table, one constant buffer table and a static linear sampler.
type PipelineDesc struct {
	Label        string
	Vertex       ShaderCode
	Pixel        ShaderCode
	Attributes   []VertexAttribute
	VertexStride uint32
	RTFormat     Format
	DSFormat     Format
	AlphaBlend   bool
	DepthTest    bool
}

// SwapchainDesc describes a swap chain.
type SwapchainDesc struct {
	Window      uintptr
	Width       uint32
	Height      uint32
	BufferCount int
	Format      Format
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

// Factory enumerates adapters for one backend.
type Factory interface {
	// Adapters returns the adapters ordered by pref. Software adapters may
	// be included; callers filter them.
	Adapters(pref GPUPreference) ([]Adapter, error)

	// SoftwareAdapter returns the reference adapter used as a debug
	// fallback when no hardware adapter qualifies.
	SoftwareAdapter() (Adapter, error)

	// Close releases the factory.
	Close()
}

// Adapter is a physical GPU.
type Adapter interface {
	Info() AdapterInfo

	// CreateDevice opens a logical device supporting at least min.
	// Returns an error wrapping ErrUnsupported when the adapter cannot.
	CreateDevice(min FeatureLevel) (Device, error)
}

// Device is a logical GPU device.
type Device interface {
	// ID is an identity token, unique for the lifetime of the process.
	// A device recreated after loss has a different ID.
	ID() uint64

	// Info describes the adapter the device was opened on.
	Info() AdapterInfo

	// Queue returns the device's single direct queue.
	Queue() Queue

	CreateFence(initial uint64) (Fence, error)
	CreateCommandAllocator(kind ListKind) (CommandAllocator, error)

	// CreateCommandList returns a list bound to alloc, open for recording.
	CreateCommandList(kind ListKind, alloc CommandAllocator) (CommandList, error)

	CreateBuffer(desc BufferDesc) (Buffer, error)
	CreateTexture(desc TextureDesc) (Texture, error)
	CreateDescriptorHeap(desc HeapDesc) (DescriptorHeap, error)
	CreatePipeline(desc PipelineDesc) (Pipeline, error)
	CreateSwapchain(desc SwapchainDesc) (Swapchain, error)

	// RemovedReason returns nil while the device is healthy and an error
	// wrapping ErrDeviceLost once it was removed.
	RemovedReason() error

	// Close releases the device. Every child object must be closed first.
	Close()
}

// Queue executes command lists in submission order.
type Queue interface {
	// Execute submits closed direct command lists. It does not block.
	Execute(lists ...CommandList) error

	// Signal schedules f to be set to value once everything submitted
	// before it completes. It does not block.
	Signal(f Fence, value uint64) error
}

// Fence is a monotonic CPU/GPU completion counter.
type Fence interface {
	// CompletedValue returns the last value the GPU reached.
	CompletedValue() uint64

	// Wait blocks until CompletedValue() >= value. It has no timeout.
	// A wait that cannot complete because the device was lost returns an
	// error wrapping ErrDeviceLost.
	Wait(value uint64) error

	Close()
}

// CommandAllocator backs the memory of recorded commands.
type CommandAllocator interface {
	// Reset reclaims the memory of every list recorded with the allocator.
	// The caller guarantees the GPU finished executing them.
	Reset() error

	Close()
}

// CommandList records GPU commands. Recording methods do not return errors;
// failures are reported by Close.
type CommandList interface {
	Kind() ListKind

	// Reset clears the list and binds it to alloc, ready for recording.
	Reset(alloc CommandAllocator) error

	// Close ends recording. The list becomes submittable.
	Close() error

	// Release frees the list object itself.
	Release()

	ResourceBarrier(barriers ...Barrier)
	SetDescriptorHeaps(heaps ...DescriptorHeap)
	SetRootDescriptorTable(param int, h DescriptorHandle)
	SetPipeline(p Pipeline)
	SetViewport(v Viewport)
	SetScissor(r Rect)
	SetRenderTargets(rtv DescriptorHandle, dsv *DescriptorHandle)
	ClearRenderTarget(rtv DescriptorHandle, c Color)
	ClearDepthStencil(dsv DescriptorHandle, depth float32, stencil uint8)
	SetVertexBuffer(slot int, v VertexBufferView)
	SetIndexBuffer(v IndexBufferView)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)

	// ExecuteBundle replays a closed bundle list.
	ExecuteBundle(bundle CommandList)

	CopyBuffer(dst Buffer, dstOffset uint64, src Buffer, srcOffset, size uint64)
	CopyBufferToTexture(dst Texture, src Buffer, layout Footprint)
	CopyTextureToBuffer(dst Buffer, layout Footprint, src Texture)
}

// Resource is a GPU buffer or texture.
type Resource interface {
	Label() string
	Close()
}

// Buffer is a linear GPU allocation.
type Buffer interface {
	Resource
	Size() uint64
	Heap() HeapType

	// Map returns the CPU view of an upload or readback buffer.
	// Readback contents are current as of the last completed copy.
	Map() ([]byte, error)
	Unmap()
}

// Texture is a 2D image.
type Texture interface {
	Resource
	Width() uint32
	Height() uint32
	Format() Format
}

// DescriptorHeap is a fixed-capacity table of views.
type DescriptorHeap interface {
	Kind() HeapKind
	Capacity() int
	ShaderVisible() bool
	Handle(index int) DescriptorHandle

	CreateRenderTargetView(t Texture, index int) error
	CreateDepthStencilView(t Texture, index int) error
	CreateShaderResourceView(t Texture, index int) error
	CreateConstantBufferView(b Buffer, offset, size uint64, index int) error

	// Clear drops the view stored at index.
	Clear(index int)

	Close()
}

// Pipeline is a compiled graphics pipeline.
type Pipeline interface {
	Label() string
	Close()
}

// Swapchain is a ring of presentable back buffers.
type Swapchain interface {
	BufferCount() int
	Width() uint32
	Height() uint32
	Format() Format

	// Buffer returns back buffer i. Textures returned before a
	// ResizeBuffers call must be released before it.
	Buffer(i int) (Texture, error)

	// CurrentBackBufferIndex returns the buffer to render into next.
	// It is not guaranteed to advance round-robin.
	CurrentBackBufferIndex() int

	// Present queues the current back buffer for display. The back buffer
	// must be in StatePresent on the GPU timeline.
	Present(syncInterval int) error

	// ResizeBuffers recreates the back buffers. Returns an error wrapping
	// ErrDeviceLost when the device was removed.
	ResizeBuffers(count int, width, height uint32) error

	Close()
}

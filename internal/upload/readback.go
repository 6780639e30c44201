// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package upload

import (
	"fmt"

	"github.com/gogpu/cube/gpucore"
)

// Readback is a debug copy of a device-local resource into CPU-readable
// memory.
type Readback struct {
	buf    gpucore.Buffer
	fence  gpucore.Fence
	value  uint64
	rows   uint32
	row    uint32
	pitch  uint32
	length uint64
}

// ReadBuffer records a copy of src into a readback buffer. src is moved to
// gpucore.StateCopySource for the copy and back to state afterwards.
func ReadBuffer(dev gpucore.Device, list gpucore.CommandList, src gpucore.Buffer, state gpucore.ResourceState) (*Readback, error) {
	buf, err := dev.CreateBuffer(gpucore.BufferDesc{
		Label: src.Label() + " readback",
		Size:  src.Size(),
		Heap:  gpucore.HeapReadback,
	})
	if err != nil {
		return nil, fmt.Errorf("upload: readback for %q: %w", src.Label(), err)
	}
	list.ResourceBarrier(gpucore.Transition(src, state, gpucore.StateCopySource))
	list.CopyBuffer(buf, 0, src, 0, src.Size())
	list.ResourceBarrier(gpucore.Transition(src, gpucore.StateCopySource, state))
	return &Readback{buf: buf, length: src.Size()}, nil
}

// ReadTexture records a copy of src into a readback buffer with aligned
// rows. src is moved to gpucore.StateCopySource and back to state.
func ReadTexture(dev gpucore.Device, list gpucore.CommandList, src gpucore.Texture, state gpucore.ResourceState) (*Readback, error) {
	w, h := src.Width(), src.Height()
	row := w * uint32(src.Format().BytesPerPixel())
	pitch := uint32(gpucore.AlignUp(uint64(row), gpucore.RowPitchAlignment))
	buf, err := dev.CreateBuffer(gpucore.BufferDesc{
		Label: src.Label() + " readback",
		Size:  uint64(pitch) * uint64(h),
		Heap:  gpucore.HeapReadback,
	})
	if err != nil {
		return nil, fmt.Errorf("upload: readback for %q: %w", src.Label(), err)
	}
	list.ResourceBarrier(gpucore.Transition(src, state, gpucore.StateCopySource))
	list.CopyTextureToBuffer(buf, gpucore.Footprint{Width: w, Height: h, RowPitch: pitch}, src)
	list.ResourceBarrier(gpucore.Transition(src, gpucore.StateCopySource, state))
	return &Readback{buf: buf, rows: h, row: row, pitch: pitch, length: uint64(row) * uint64(h)}, nil
}

// After ties the readback to the fence value of the submission carrying
// its copy. Bytes refuses to read before that value completed.
func (r *Readback) After(fence gpucore.Fence, value uint64) {
	r.fence, r.value = fence, value
}

// Bytes returns the copied contents with rows tightly packed.
func (r *Readback) Bytes() ([]byte, error) {
	if r.fence != nil && r.fence.CompletedValue() < r.value {
		return nil, ErrNotReady
	}
	data, err := r.buf.Map()
	if err != nil {
		return nil, fmt.Errorf("upload: map readback: %w", err)
	}
	defer r.buf.Unmap()

	out := make([]byte, r.length)
	if r.rows == 0 {
		copy(out, data[:r.length])
		return out, nil
	}
	for y := uint32(0); y < r.rows; y++ {
		copy(out[y*r.row:(y+1)*r.row], data[y*r.pitch:y*r.pitch+r.row])
	}
	return out, nil
}

// Release frees the readback buffer.
func (r *Readback) Release() {
	if r.buf != nil {
		r.buf.Close()
		r.buf = nil
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package upload moves CPU bytes into device-local resources through
// transient staging buffers, and reads them back for debugging.
//
// Every function here only records commands. The staging buffers it returns
// must stay alive until the fence of the submission carrying those commands
// has signaled.
package upload

import (
	"errors"
	"fmt"

	"github.com/gogpu/cube/gpucore"
	"github.com/gogpu/cube/internal/logging"
)

var (
	// ErrStagingInFlight is returned when staging buffers are released
	// before their submission completed.
	ErrStagingInFlight = errors.New("upload: staging buffers still in flight")

	// ErrSourceTooSmall is returned when the source bytes do not cover the
	// destination described by the layout.
	ErrSourceTooSmall = errors.New("upload: source smaller than destination layout")

	// ErrNotReady is returned when readback bytes are requested before
	// the copy completed.
	ErrNotReady = errors.New("upload: readback not complete")
)

// Layout describes texture source bytes. The zero value means tightly
// packed rows.
type Layout struct {
	// RowPitch is the distance between source rows in bytes.
	RowPitch uint32
	// SlicePitch is the size of one source image in bytes.
	SlicePitch uint32
}

// Staging is a transient upload-heap buffer owned by the caller.
type Staging struct {
	buf gpucore.Buffer
}

// Buffer returns the staging buffer.
func (s *Staging) Buffer() gpucore.Buffer { return s.buf }

// Release frees the staging buffer. Call only after the submission that
// copies from it completed.
func (s *Staging) Release() {
	if s.buf != nil {
		s.buf.Close()
		s.buf = nil
	}
}

func newStaging(dev gpucore.Device, label string, size uint64) (*Staging, []byte, error) {
	buf, err := dev.CreateBuffer(gpucore.BufferDesc{
		Label: label + " staging",
		Size:  size,
		Heap:  gpucore.HeapUpload,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("upload: staging for %q: %w", label, err)
	}
	data, err := buf.Map()
	if err != nil {
		buf.Close()
		return nil, nil, fmt.Errorf("upload: map staging for %q: %w", label, err)
	}
	return &Staging{buf: buf}, data, nil
}

// Upload records a copy of src into dst followed by a transition of dst
// from gpucore.StateCopyDest to after. dst must be a gpucore.Buffer or a
// gpucore.Texture in the copy-dest state. layout applies to textures only.
func Upload(dev gpucore.Device, list gpucore.CommandList, dst gpucore.Resource, src []byte, layout Layout, after gpucore.ResourceState) (*Staging, error) {
	switch d := dst.(type) {
	case gpucore.Texture:
		return Texture(dev, list, d, src, layout, after)
	case gpucore.Buffer:
		return Buffer(dev, list, d, src, after)
	default:
		return nil, fmt.Errorf("upload: unsupported destination %T", dst)
	}
}

// Buffer records a copy of src into the start of dst.
func Buffer(dev gpucore.Device, list gpucore.CommandList, dst gpucore.Buffer, src []byte, after gpucore.ResourceState) (*Staging, error) {
	size := uint64(len(src))
	if size == 0 || size > dst.Size() {
		return nil, fmt.Errorf("upload: %d bytes into %q of %d bytes", size, dst.Label(), dst.Size())
	}
	st, data, err := newStaging(dev, dst.Label(), size)
	if err != nil {
		return nil, err
	}
	copy(data, src)
	st.buf.Unmap()

	list.CopyBuffer(dst, 0, st.buf, 0, size)
	list.ResourceBarrier(gpucore.Transition(dst, gpucore.StateCopyDest, after))
	logging.Logger().Debug("upload: buffer", "dst", dst.Label(), "bytes", size)
	return st, nil
}

// Texture records a copy of src into dst. Staging rows are padded to
// gpucore.RowPitchAlignment.
func Texture(dev gpucore.Device, list gpucore.CommandList, dst gpucore.Texture, src []byte, layout Layout, after gpucore.ResourceState) (*Staging, error) {
	w, h := dst.Width(), dst.Height()
	row := w * uint32(dst.Format().BytesPerPixel())
	if row == 0 {
		return nil, fmt.Errorf("upload: texture %q format %d: %w", dst.Label(), dst.Format(), gpucore.ErrUnsupported)
	}
	pitch := layout.RowPitch
	if pitch == 0 {
		pitch = row
	}
	need := uint64(pitch)*uint64(h-1) + uint64(row)
	if pitch < row || uint64(len(src)) < need {
		return nil, fmt.Errorf("%w: %q needs %d bytes at pitch %d, got %d",
			ErrSourceTooSmall, dst.Label(), need, pitch, len(src))
	}

	aligned := uint32(gpucore.AlignUp(uint64(row), gpucore.RowPitchAlignment))
	st, data, err := newStaging(dev, dst.Label(), uint64(aligned)*uint64(h))
	if err != nil {
		return nil, err
	}
	for y := uint32(0); y < h; y++ {
		copy(data[y*aligned:y*aligned+row], src[y*pitch:y*pitch+row])
	}
	st.buf.Unmap()

	list.CopyBufferToTexture(dst, st.buf, gpucore.Footprint{Width: w, Height: h, RowPitch: aligned})
	list.ResourceBarrier(gpucore.Transition(dst, gpucore.StateCopyDest, after))
	logging.Logger().Debug("upload: texture", "dst", dst.Label(), "width", w, "height", h, "pitch", aligned)
	return st, nil
}

// Batch holds staging buffers until their submission completed.
type Batch struct {
	pending []*Staging
}

// Add takes ownership of s.
func (b *Batch) Add(s *Staging) { b.pending = append(b.pending, s) }

// Len returns the number of held staging buffers.
func (b *Batch) Len() int { return len(b.pending) }

// Release frees every held buffer once fence reached value.
func (b *Batch) Release(fence gpucore.Fence, value uint64) error {
	if done := fence.CompletedValue(); done < value {
		return fmt.Errorf("%w: fence at %d, need %d", ErrStagingInFlight, done, value)
	}
	for _, s := range b.pending {
		s.Release()
	}
	b.pending = nil
	return nil
}

// Drop frees every held buffer unconditionally. Used during device loss,
// when the device no longer executes anything.
func (b *Batch) Drop() {
	for _, s := range b.pending {
		s.Release()
	}
	b.pending = nil
}

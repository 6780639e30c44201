// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package upload

import (
	"fmt"

	"github.com/gogpu/cube/gpucore"
)

// Mapped is an upload-heap buffer mapped for its whole lifetime. Upload
// memory is write-combined and coherent, so writes become visible to the
// GPU without an unmap. The mapping ends in Close.
type Mapped struct {
	buf  gpucore.Buffer
	data []byte
}

// NewMapped creates and maps a buffer of at least size bytes, rounded up
// to gpucore.ConstantBufferAlignment.
func NewMapped(dev gpucore.Device, label string, size uint64) (*Mapped, error) {
	buf, err := dev.CreateBuffer(gpucore.BufferDesc{
		Label: label,
		Size:  gpucore.AlignUp(size, gpucore.ConstantBufferAlignment),
		Heap:  gpucore.HeapUpload,
	})
	if err != nil {
		return nil, fmt.Errorf("upload: mapped buffer %q: %w", label, err)
	}
	data, err := buf.Map()
	if err != nil {
		buf.Close()
		return nil, fmt.Errorf("upload: map %q: %w", label, err)
	}
	return &Mapped{buf: buf, data: data}, nil
}

// Buffer returns the underlying buffer.
func (m *Mapped) Buffer() gpucore.Buffer { return m.buf }

// Bytes returns the mapped memory. Only the recording goroutine writes it.
func (m *Mapped) Bytes() []byte { return m.data }

// Close unmaps and frees the buffer.
func (m *Mapped) Close() {
	if m.buf == nil {
		return
	}
	m.buf.Unmap()
	m.buf.Close()
	m.buf, m.data = nil, nil
}

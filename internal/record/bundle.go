// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package record

import (
	"fmt"

	"github.com/gogpu/cube/gpucore"
)

// Geometry is the static mesh a bundle draws.
type Geometry struct {
	Pipeline   gpucore.Pipeline
	Vertices   gpucore.VertexBufferView
	Indices    gpucore.IndexBufferView
	IndexCount uint32
}

// Bundle is a recorded, reusable draw of static geometry. It owns its
// allocator.
type Bundle struct {
	alloc gpucore.CommandAllocator
	list  gpucore.CommandList
}

// NewBundle records the draw of g once.
func NewBundle(dev gpucore.Device, g Geometry) (*Bundle, error) {
	alloc, err := dev.CreateCommandAllocator(gpucore.ListBundle)
	if err != nil {
		return nil, fmt.Errorf("record: bundle allocator: %w", err)
	}
	list, err := dev.CreateCommandList(gpucore.ListBundle, alloc)
	if err != nil {
		alloc.Close()
		return nil, fmt.Errorf("record: bundle: %w", err)
	}
	list.SetPipeline(g.Pipeline)
	list.SetVertexBuffer(0, g.Vertices)
	list.SetIndexBuffer(g.Indices)
	list.DrawIndexed(g.IndexCount, 1, 0, 0, 0)
	if err := list.Close(); err != nil {
		list.Release()
		alloc.Close()
		return nil, fmt.Errorf("record: close bundle: %w", err)
	}
	return &Bundle{alloc: alloc, list: list}, nil
}

// List returns the closed bundle list.
func (b *Bundle) List() gpucore.CommandList { return b.list }

// Close releases the bundle list, then its allocator.
func (b *Bundle) Close() {
	if b.list != nil {
		b.list.Release()
		b.list = nil
	}
	if b.alloc != nil {
		b.alloc.Close()
		b.alloc = nil
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gogpu/cube/gpucore"
)

// Allocator is a simulated command allocator. It tracks how many lists
// recorded with it are still queued so reuse hazards are detected.
type Allocator struct {
	dev      *Device
	kind     gpucore.ListKind
	inFlight atomic.Int64
	resets   atomic.Int64
	once     sync.Once
}

// Reset implements gpucore.CommandAllocator.
func (a *Allocator) Reset() error {
	if n := a.inFlight.Load(); n > 0 {
		a.dev.invalid("allocator reset with %d lists in flight", n)
		return fmt.Errorf("sim: allocator reset with %d lists in flight: %w", n, gpucore.ErrInvalidState)
	}
	a.resets.Add(1)
	return nil
}

// Resets returns how many times the allocator was reset.
func (a *Allocator) Resets() int { return int(a.resets.Load()) }

// InFlight returns how many lists recorded with the allocator are queued.
func (a *Allocator) InFlight() int { return int(a.inFlight.Load()) }

// Close implements gpucore.CommandAllocator.
func (a *Allocator) Close() {
	a.once.Do(func() { a.dev.release("allocator") })
}

type op func(x *execState)

// CommandList is a simulated command list or bundle.
type CommandList struct {
	dev   *Device
	kind  gpucore.ListKind
	alloc *Allocator
	ops   []op
	open  bool
	err   error
	once  sync.Once
}

// Kind implements gpucore.CommandList.
func (l *CommandList) Kind() gpucore.ListKind { return l.kind }

// Reset implements gpucore.CommandList.
func (l *CommandList) Reset(alloc gpucore.CommandAllocator) error {
	a, ok := alloc.(*Allocator)
	if !ok || a.dev != l.dev {
		return fmt.Errorf("sim: foreign allocator %T", alloc)
	}
	if a.kind != l.kind {
		return errors.New("sim: allocator kind does not match list kind")
	}
	if l.open {
		return fmt.Errorf("sim: reset of open command list: %w", gpucore.ErrInvalidState)
	}
	l.alloc = a
	l.ops = nil
	l.err = nil
	l.open = true
	return nil
}

// Close implements gpucore.CommandList.
func (l *CommandList) Close() error {
	if !l.open {
		return fmt.Errorf("sim: close of closed command list: %w", gpucore.ErrInvalidState)
	}
	l.open = false
	return l.err
}

// Release implements gpucore.CommandList.
func (l *CommandList) Release() {
	kind := "command-list"
	if l.kind == gpucore.ListBundle {
		kind = "bundle"
	}
	l.once.Do(func() { l.dev.release(kind) })
}

// Open reports whether the list is recording.
func (l *CommandList) Open() bool { return l.open }

func (l *CommandList) record(o op) {
	if !l.open {
		l.err = fmt.Errorf("sim: record into closed command list: %w", gpucore.ErrInvalidState)
		return
	}
	l.ops = append(l.ops, o)
}

func (l *CommandList) fail(err error) {
	if l.err == nil {
		l.err = err
	}
}

// execState is the GPU-side state of one executing list.
type execState struct {
	dev      *Device
	heaps    []*DescriptorHeap
	tables   [2]gpucore.DescriptorHandle
	pipeline *Pipeline
	viewport bool
	scissor  bool
	rt       *Texture
	ds       *Texture
	vb       *Buffer
	ib       *Buffer
	ibFormat gpucore.IndexFormat
	ibOffset uint64
}

type stateful interface {
	label() string
	current() *gpucore.ResourceState
}

func (b *Buffer) label() string                    { return b.desc.Label }
func (b *Buffer) current() *gpucore.ResourceState  { return &b.state }
func (t *Texture) label() string                   { return t.desc.Label }
func (t *Texture) current() *gpucore.ResourceState { return &t.state }

// ResourceBarrier implements gpucore.CommandList.
func (l *CommandList) ResourceBarrier(barriers ...gpucore.Barrier) {
	if l.kind == gpucore.ListBundle {
		l.fail(errors.New("sim: barriers are not allowed in bundles"))
		return
	}
	bs := append([]gpucore.Barrier(nil), barriers...)
	l.record(func(x *execState) {
		for _, b := range bs {
			r, ok := b.Resource.(stateful)
			if !ok {
				x.dev.invalid("barrier on foreign resource %T", b.Resource)
				continue
			}
			cur := r.current()
			if b.Before == b.After {
				x.dev.invalid("no-op barrier on %q (%s)", r.label(), b.Before)
			}
			if *cur != b.Before {
				x.dev.invalid("barrier on %q expects %s, resource is %s", r.label(), b.Before, *cur)
			}
			*cur = b.After
		}
	})
}

// SetDescriptorHeaps implements gpucore.CommandList.
func (l *CommandList) SetDescriptorHeaps(heaps ...gpucore.DescriptorHeap) {
	hs := make([]*DescriptorHeap, 0, len(heaps))
	for _, h := range heaps {
		sh, ok := h.(*DescriptorHeap)
		if !ok || !sh.desc.ShaderVisible {
			l.fail(fmt.Errorf("sim: SetDescriptorHeaps needs shader-visible heaps: %w", gpucore.ErrInvalidState))
			return
		}
		hs = append(hs, sh)
	}
	l.record(func(x *execState) { x.heaps = hs })
}

// SetRootDescriptorTable implements gpucore.CommandList.
func (l *CommandList) SetRootDescriptorTable(param int, h gpucore.DescriptorHandle) {
	if param < 0 || param >= 2 {
		l.fail(fmt.Errorf("sim: root parameter %d out of range", param))
		return
	}
	l.record(func(x *execState) {
		found := false
		for _, sh := range x.heaps {
			if gpucore.DescriptorHeap(sh) == h.Heap {
				found = true
			}
		}
		if !found {
			x.dev.invalid("root table %d references a heap that is not bound", param)
		}
		x.tables[param] = h
	})
}

// SetPipeline implements gpucore.CommandList.
func (l *CommandList) SetPipeline(p gpucore.Pipeline) {
	sp, ok := p.(*Pipeline)
	if !ok {
		l.fail(fmt.Errorf("sim: foreign pipeline %T", p))
		return
	}
	l.record(func(x *execState) { x.pipeline = sp })
}

// SetViewport implements gpucore.CommandList.
func (l *CommandList) SetViewport(v gpucore.Viewport) {
	l.record(func(x *execState) {
		if x.rt != nil && (v.Width > float32(x.rt.desc.Width) || v.Height > float32(x.rt.desc.Height)) {
			x.dev.invalid("viewport %vx%v exceeds render target %dx%d", v.Width, v.Height, x.rt.desc.Width, x.rt.desc.Height)
		}
		x.viewport = true
	})
}

// SetScissor implements gpucore.CommandList.
func (l *CommandList) SetScissor(gpucore.Rect) {
	l.record(func(x *execState) { x.scissor = true })
}

// SetRenderTargets implements gpucore.CommandList.
func (l *CommandList) SetRenderTargets(rtv gpucore.DescriptorHandle, dsv *gpucore.DescriptorHandle) {
	var ds *gpucore.DescriptorHandle
	if dsv != nil {
		h := *dsv
		ds = &h
	}
	l.record(func(x *execState) {
		v, ok := resolve(rtv)
		if !ok || v.kind != viewRTV {
			x.dev.invalid("render target handle does not hold a render target view")
			return
		}
		x.rt = v.tex
		x.ds = nil
		if ds != nil {
			dv, ok := resolve(*ds)
			if !ok || dv.kind != viewDSV {
				x.dev.invalid("depth handle does not hold a depth stencil view")
				return
			}
			x.ds = dv.tex
		}
	})
}

// ClearRenderTarget implements gpucore.CommandList.
func (l *CommandList) ClearRenderTarget(rtv gpucore.DescriptorHandle, c gpucore.Color) {
	l.record(func(x *execState) {
		v, ok := resolve(rtv)
		if !ok || v.kind != viewRTV {
			x.dev.invalid("clear of a handle without a render target view")
			return
		}
		t := v.tex
		if t.state != gpucore.StateRenderTarget {
			x.dev.invalid("clear of %q in state %s", t.desc.Label, t.state)
		}
		px := colorBytes(t.desc.Format, c)
		for i := 0; i+4 <= len(t.pix); i += 4 {
			copy(t.pix[i:], px[:])
		}
		x.dev.count(func(s *Stats) { s.Clears++ })
		x.dev.event(Event{Kind: EventClear, Object: t.desc.Label, Width: t.desc.Width, Height: t.desc.Height})
	})
}

// ClearDepthStencil implements gpucore.CommandList.
func (l *CommandList) ClearDepthStencil(dsv gpucore.DescriptorHandle, depth float32, stencil uint8) {
	l.record(func(x *execState) {
		v, ok := resolve(dsv)
		if !ok || v.kind != viewDSV {
			x.dev.invalid("depth clear of a handle without a depth stencil view")
			return
		}
		t := v.tex
		if t.state != gpucore.StateDepthWrite {
			x.dev.invalid("depth clear of %q in state %s", t.desc.Label, t.state)
		}
		var word uint32
		if t.desc.Format == gpucore.FormatD32Float {
			word = math.Float32bits(depth)
		} else {
			word = uint32(depth*0xffffff)&0xffffff | uint32(stencil)<<24
		}
		for i := 0; i+4 <= len(t.pix); i += 4 {
			binary.LittleEndian.PutUint32(t.pix[i:], word)
		}
	})
}

// SetVertexBuffer implements gpucore.CommandList.
func (l *CommandList) SetVertexBuffer(slot int, v gpucore.VertexBufferView) {
	b, ok := v.Buffer.(*Buffer)
	if !ok || slot != 0 {
		l.fail(fmt.Errorf("sim: vertex buffer slot %d %T", slot, v.Buffer))
		return
	}
	l.record(func(x *execState) { x.vb = b })
}

// SetIndexBuffer implements gpucore.CommandList.
func (l *CommandList) SetIndexBuffer(v gpucore.IndexBufferView) {
	b, ok := v.Buffer.(*Buffer)
	if !ok {
		l.fail(fmt.Errorf("sim: foreign index buffer %T", v.Buffer))
		return
	}
	l.record(func(x *execState) {
		x.ib, x.ibFormat, x.ibOffset = b, v.Format, v.Offset
	})
}

func (x *execState) checkDraw() bool {
	switch {
	case x.pipeline == nil:
		x.dev.invalid("draw without pipeline")
	case x.rt == nil:
		x.dev.invalid("draw without render target")
	case x.rt.state != gpucore.StateRenderTarget:
		x.dev.invalid("draw into %q in state %s", x.rt.desc.Label, x.rt.state)
	case !x.viewport || !x.scissor:
		x.dev.invalid("draw without viewport and scissor")
	case x.vb == nil:
		x.dev.invalid("draw without vertex buffer")
	default:
		return true
	}
	return false
}

// DrawIndexed implements gpucore.CommandList.
func (l *CommandList) DrawIndexed(indexCount, instanceCount, firstIndex uint32, _ int32, _ uint32) {
	l.record(func(x *execState) {
		if !x.checkDraw() {
			return
		}
		if x.ib == nil {
			x.dev.invalid("indexed draw without index buffer")
			return
		}
		size := uint64(2)
		if x.ibFormat == gpucore.IndexUint32 {
			size = 4
		}
		if x.ibOffset+uint64(firstIndex+indexCount)*size > x.ib.desc.Size {
			x.dev.invalid("indexed draw reads past %q", x.ib.desc.Label)
			return
		}
		x.dev.count(func(s *Stats) {
			s.Draws++
			s.Indices += int(indexCount * instanceCount)
		})
		x.dev.event(Event{Kind: EventDraw, Object: x.rt.desc.Label, Value: uint64(indexCount),
			Width: x.rt.desc.Width, Height: x.rt.desc.Height})
	})
}

// Draw implements gpucore.CommandList.
func (l *CommandList) Draw(vertexCount, instanceCount, _, _ uint32) {
	l.record(func(x *execState) {
		if !x.checkDraw() {
			return
		}
		x.dev.count(func(s *Stats) {
			s.Draws++
			s.Indices += int(vertexCount * instanceCount)
		})
		x.dev.event(Event{Kind: EventDraw, Object: x.rt.desc.Label, Value: uint64(vertexCount),
			Width: x.rt.desc.Width, Height: x.rt.desc.Height})
	})
}

// ExecuteBundle implements gpucore.CommandList.
func (l *CommandList) ExecuteBundle(bundle gpucore.CommandList) {
	b, ok := bundle.(*CommandList)
	if !ok || b.kind != gpucore.ListBundle {
		l.fail(errors.New("sim: ExecuteBundle needs a bundle"))
		return
	}
	if b.open {
		l.fail(fmt.Errorf("sim: ExecuteBundle of open bundle: %w", gpucore.ErrInvalidState))
		return
	}
	ops := b.ops
	l.record(func(x *execState) {
		for _, o := range ops {
			o(x)
		}
	})
}

// CopyBuffer implements gpucore.CommandList.
func (l *CommandList) CopyBuffer(dst gpucore.Buffer, dstOffset uint64, src gpucore.Buffer, srcOffset, size uint64) {
	d, ok1 := dst.(*Buffer)
	s, ok2 := src.(*Buffer)
	if !ok1 || !ok2 {
		l.fail(errors.New("sim: foreign buffer in copy"))
		return
	}
	l.record(func(x *execState) {
		if d.desc.Heap == gpucore.HeapDefault && d.state != gpucore.StateCopyDest {
			x.dev.invalid("copy into %q in state %s", d.desc.Label, d.state)
		}
		if s.desc.Heap == gpucore.HeapDefault && s.state != gpucore.StateCopySource {
			x.dev.invalid("copy from %q in state %s", s.desc.Label, s.state)
		}
		if dstOffset+size > d.desc.Size || srcOffset+size > s.desc.Size {
			x.dev.invalid("copy of %d bytes out of bounds (%q -> %q)", size, s.desc.Label, d.desc.Label)
			return
		}
		copy(d.data[dstOffset:dstOffset+size], s.data[srcOffset:srcOffset+size])
		x.dev.count(func(st *Stats) { st.Copies++ })
	})
}

func checkFootprint(t *Texture, b *Buffer, fp gpucore.Footprint) error {
	bpp := uint64(t.desc.Format.BytesPerPixel())
	switch {
	case fp.Width > t.desc.Width || fp.Height > t.desc.Height:
		return fmt.Errorf("footprint %dx%d exceeds %q", fp.Width, fp.Height, t.desc.Label)
	case uint64(fp.RowPitch) < uint64(fp.Width)*bpp || fp.RowPitch%gpucore.RowPitchAlignment != 0:
		return fmt.Errorf("row pitch %d invalid for width %d", fp.RowPitch, fp.Width)
	case fp.Height > 0 && fp.Offset+uint64(fp.RowPitch)*uint64(fp.Height-1)+uint64(fp.Width)*bpp > b.desc.Size:
		return fmt.Errorf("footprint exceeds buffer %q", b.desc.Label)
	}
	return nil
}

// CopyBufferToTexture implements gpucore.CommandList.
func (l *CommandList) CopyBufferToTexture(dst gpucore.Texture, src gpucore.Buffer, fp gpucore.Footprint) {
	t, ok1 := dst.(*Texture)
	b, ok2 := src.(*Buffer)
	if !ok1 || !ok2 {
		l.fail(errors.New("sim: foreign resource in texture copy"))
		return
	}
	l.record(func(x *execState) {
		if t.state != gpucore.StateCopyDest {
			x.dev.invalid("copy into %q in state %s", t.desc.Label, t.state)
		}
		if err := checkFootprint(t, b, fp); err != nil {
			x.dev.invalid("%v", err)
			return
		}
		row := int(fp.Width) * t.desc.Format.BytesPerPixel()
		stride := int(t.desc.Width) * t.desc.Format.BytesPerPixel()
		for y := 0; y < int(fp.Height); y++ {
			so := int(fp.Offset) + y*int(fp.RowPitch)
			copy(t.pix[y*stride:y*stride+row], b.data[so:so+row])
		}
		x.dev.count(func(st *Stats) { st.Copies++ })
	})
}

// CopyTextureToBuffer implements gpucore.CommandList.
func (l *CommandList) CopyTextureToBuffer(dst gpucore.Buffer, fp gpucore.Footprint, src gpucore.Texture) {
	b, ok1 := dst.(*Buffer)
	t, ok2 := src.(*Texture)
	if !ok1 || !ok2 {
		l.fail(errors.New("sim: foreign resource in texture copy"))
		return
	}
	l.record(func(x *execState) {
		if t.state != gpucore.StateCopySource {
			x.dev.invalid("copy from %q in state %s", t.desc.Label, t.state)
		}
		if err := checkFootprint(t, b, fp); err != nil {
			x.dev.invalid("%v", err)
			return
		}
		row := int(fp.Width) * t.desc.Format.BytesPerPixel()
		stride := int(t.desc.Width) * t.desc.Format.BytesPerPixel()
		for y := 0; y < int(fp.Height); y++ {
			do := int(fp.Offset) + y*int(fp.RowPitch)
			copy(b.data[do:do+row], t.pix[y*stride:y*stride+row])
		}
		x.dev.count(func(st *Stats) { st.Copies++ })
	})
}

func unorm8(v float32) byte {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return byte(v*255 + 0.5)
}

func colorBytes(f gpucore.Format, c gpucore.Color) [4]byte {
	r, g, b, a := unorm8(c.R), unorm8(c.G), unorm8(c.B), unorm8(c.A)
	if f == gpucore.FormatBGRA8Unorm {
		return [4]byte{b, g, r, a}
	}
	return [4]byte{r, g, b, a}
}

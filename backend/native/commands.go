// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cube/gpucore"
)

type op func(s *encodeState) error

// CommandList records operations for replay into a hal command encoder.
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
		return fmt.Errorf("native: foreign allocator %T", alloc)
	}
	if a.kind != l.kind {
		return errors.New("native: allocator kind does not match list kind")
	}
	if l.open {
		return fmt.Errorf("native: reset of open command list: %w", gpucore.ErrInvalidState)
	}
	l.alloc = a
	l.ops = l.ops[:0]
	l.err = nil
	l.open = true
	return nil
}

// Close implements gpucore.CommandList.
func (l *CommandList) Close() error {
	if !l.open {
		return fmt.Errorf("native: close of closed command list: %w", gpucore.ErrInvalidState)
	}
	l.open = false
	return l.err
}

// Release implements gpucore.CommandList.
func (l *CommandList) Release() {
	l.once.Do(l.dev.release)
}

func (l *CommandList) record(o op) {
	if !l.open {
		l.fail(fmt.Errorf("native: record into closed command list: %w", gpucore.ErrInvalidState))
		return
	}
	l.ops = append(l.ops, o)
}

func (l *CommandList) fail(err error) {
	if l.err == nil {
		l.err = err
	}
}

// encode replays the recorded operations into a new hal command buffer.
func (l *CommandList) encode() (hal.CommandBuffer, error) {
	if l.err != nil {
		return nil, l.err
	}
	d := l.dev
	enc, err := d.hal.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "cube"})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("cube"); err != nil {
		return nil, fmt.Errorf("native: begin encoding: %w", err)
	}
	s := newEncodeState(d, enc)
	for _, o := range l.ops {
		if err := o(s); err != nil {
			s.endPass()
			enc.DiscardEncoding()
			return nil, err
		}
	}
	s.flush()
	buf, err := enc.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("native: end encoding: %w", err)
	}
	return buf, nil
}

type depthClear struct {
	depth   float32
	stencil uint8
}

// encodeState is the binding state of one list being replayed.
type encodeState struct {
	dev  *Device
	enc  hal.CommandEncoder
	pass hal.RenderPassEncoder

	heaps  []*DescriptorHeap
	tables [2]gpucore.DescriptorHandle

	rtv, dsv    *slot
	colorClears map[hal.TextureView]gputypes.Color
	depthClears map[hal.TextureView]depthClear

	pipeline *Pipeline
	viewport *gpucore.Viewport
	scissor  *gpucore.Rect
	vb       *gpucore.VertexBufferView
	ib       *gpucore.IndexBufferView
}

func newEncodeState(d *Device, enc hal.CommandEncoder) *encodeState {
	return &encodeState{
		dev:         d,
		enc:         enc,
		colorClears: make(map[hal.TextureView]gputypes.Color),
		depthClears: make(map[hal.TextureView]depthClear),
	}
}

func (s *encodeState) endPass() {
	if s.pass != nil {
		s.pass.End()
		s.pass = nil
	}
}

// flush ends the open pass and executes clears no draw consumed.
func (s *encodeState) flush() {
	s.endPass()
	for view, c := range s.colorClears {
		s.enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "clear",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:       view,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: c,
			}},
		}).End()
		delete(s.colorClears, view)
	}
	for view, c := range s.depthClears {
		s.enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label:                  "clear depth",
			DepthStencilAttachment: depthAttachment(view, c, gputypes.LoadOpClear),
		}).End()
		delete(s.depthClears, view)
	}
}

func depthAttachment(view hal.TextureView, c depthClear, load gputypes.LoadOp) *hal.RenderPassDepthStencilAttachment {
	return &hal.RenderPassDepthStencilAttachment{
		View:              view,
		DepthLoadOp:       load,
		DepthStoreOp:      gputypes.StoreOpStore,
		DepthClearValue:   c.depth,
		StencilLoadOp:     load,
		StencilStoreOp:    gputypes.StoreOpStore,
		StencilClearValue: uint32(c.stencil),
	}
}

// beginPass opens a render pass on the bound targets, folding pending
// clears of those targets into the load ops.
func (s *encodeState) beginPass() error {
	if s.rtv == nil {
		return fmt.Errorf("native: draw without render target: %w", gpucore.ErrInvalidState)
	}
	color := hal.RenderPassColorAttachment{
		View:    s.rtv.view,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	if c, ok := s.colorClears[s.rtv.view]; ok {
		color.LoadOp = gputypes.LoadOpClear
		color.ClearValue = c
		delete(s.colorClears, s.rtv.view)
	}
	desc := &hal.RenderPassDescriptor{
		Label:            "cube",
		ColorAttachments: []hal.RenderPassColorAttachment{color},
	}
	if s.dsv != nil {
		c, ok := s.depthClears[s.dsv.view]
		load := gputypes.LoadOpLoad
		if ok {
			load = gputypes.LoadOpClear
			delete(s.depthClears, s.dsv.view)
		}
		desc.DepthStencilAttachment = depthAttachment(s.dsv.view, c, load)
	}
	s.pass = s.enc.BeginRenderPass(desc)
	return nil
}

// bind applies the full binding state to the open pass before a draw.
func (s *encodeState) bind(indexed bool) error {
	if s.pipeline == nil {
		return fmt.Errorf("native: draw without pipeline: %w", gpucore.ErrInvalidState)
	}
	if s.vb == nil {
		return fmt.Errorf("native: draw without vertex buffer: %w", gpucore.ErrInvalidState)
	}
	if indexed && s.ib == nil {
		return fmt.Errorf("native: indexed draw without index buffer: %w", gpucore.ErrInvalidState)
	}
	tex, ok := resolve(s.tables[gpucore.RootTexture])
	if !ok || tex.kind != slotSRV {
		return fmt.Errorf("native: draw without texture table: %w", gpucore.ErrInvalidState)
	}
	var (
		cbuf         hal.Buffer
		cbOff, cbLen uint64
	)
	if h := s.tables[gpucore.RootConstants]; h.Valid() {
		cb, ok := resolve(h)
		if !ok || cb.kind != slotCBV {
			return fmt.Errorf("native: constant table does not hold a constant view: %w", gpucore.ErrInvalidState)
		}
		cbuf, cbOff, cbLen = cb.buf.hal, cb.offset, cb.size
	}
	group, err := s.dev.root.group(s.dev.hal, tex.view, cbuf, cbOff, cbLen)
	if err != nil {
		return err
	}

	if s.pass == nil {
		if err := s.beginPass(); err != nil {
			return err
		}
	}
	p := s.pass
	p.SetPipeline(s.pipeline.hal)
	p.SetBindGroup(0, group, nil)
	if v := s.viewport; v != nil {
		p.SetViewport(v.X, v.Y, v.Width, v.Height, v.MinDepth, v.MaxDepth)
	}
	if r := s.scissor; r != nil && r.Right > r.Left && r.Bottom > r.Top {
		p.SetScissorRect(uint32(max(r.Left, 0)), uint32(max(r.Top, 0)),
			uint32(r.Right-max(r.Left, 0)), uint32(r.Bottom-max(r.Top, 0)))
	}
	p.SetVertexBuffer(0, s.vb.Buffer.(*Buffer).hal, s.vb.Offset)
	if indexed {
		p.SetIndexBuffer(s.ib.Buffer.(*Buffer).hal, indexFormat(s.ib.Format), s.ib.Offset)
	}
	return nil
}

func asBuffer(b gpucore.Buffer) (*Buffer, error) {
	nb, ok := b.(*Buffer)
	if !ok {
		return nil, fmt.Errorf("native: foreign buffer %T", b)
	}
	return nb, nil
}

// ResourceBarrier implements gpucore.CommandList. Texture transitions map
// to hal usage transitions; buffer transitions need no hal barrier.
func (l *CommandList) ResourceBarrier(barriers ...gpucore.Barrier) {
	var tb []hal.TextureBarrier
	for _, b := range barriers {
		switch r := b.Resource.(type) {
		case *Texture:
			if b.Before == b.After {
				continue
			}
			tb = append(tb, hal.TextureBarrier{
				Texture: r.hal,
				Range:   hal.TextureRange{Aspect: gputypes.TextureAspectAll},
				Usage: hal.TextureUsageTransition{
					OldUsage: stateUsage(b.Before),
					NewUsage: stateUsage(b.After),
				},
			})
		case *Buffer:
		default:
			l.fail(fmt.Errorf("native: barrier on foreign resource %T", b.Resource))
			return
		}
	}
	if len(tb) == 0 {
		return
	}
	l.record(func(s *encodeState) error {
		s.flush()
		s.enc.TransitionTextures(tb)
		return nil
	})
}

// SetDescriptorHeaps implements gpucore.CommandList.
func (l *CommandList) SetDescriptorHeaps(heaps ...gpucore.DescriptorHeap) {
	hs := make([]*DescriptorHeap, 0, len(heaps))
	for _, h := range heaps {
		nh, ok := h.(*DescriptorHeap)
		if !ok || !nh.desc.ShaderVisible {
			l.fail(fmt.Errorf("native: heap %T is not a shader-visible native heap", h))
			return
		}
		hs = append(hs, nh)
	}
	l.record(func(s *encodeState) error {
		s.heaps = hs
		return nil
	})
}

// SetRootDescriptorTable implements gpucore.CommandList.
func (l *CommandList) SetRootDescriptorTable(param int, h gpucore.DescriptorHandle) {
	if param != gpucore.RootTexture && param != gpucore.RootConstants {
		l.fail(fmt.Errorf("native: root parameter %d out of range", param))
		return
	}
	l.record(func(s *encodeState) error {
		for _, hp := range s.heaps {
			if h.Heap == hp {
				s.tables[param] = h
				return nil
			}
		}
		return fmt.Errorf("native: descriptor table from a heap that is not bound: %w", gpucore.ErrInvalidState)
	})
}

// SetPipeline implements gpucore.CommandList.
func (l *CommandList) SetPipeline(p gpucore.Pipeline) {
	np, ok := p.(*Pipeline)
	if !ok {
		l.fail(fmt.Errorf("native: foreign pipeline %T", p))
		return
	}
	l.record(func(s *encodeState) error {
		s.pipeline = np
		return nil
	})
}

// SetViewport implements gpucore.CommandList.
func (l *CommandList) SetViewport(v gpucore.Viewport) {
	l.record(func(s *encodeState) error {
		s.viewport = &v
		return nil
	})
}

// SetScissor implements gpucore.CommandList.
func (l *CommandList) SetScissor(r gpucore.Rect) {
	l.record(func(s *encodeState) error {
		s.scissor = &r
		return nil
	})
}

// SetRenderTargets implements gpucore.CommandList.
func (l *CommandList) SetRenderTargets(rtv gpucore.DescriptorHandle, dsv *gpucore.DescriptorHandle) {
	var dh gpucore.DescriptorHandle
	if dsv != nil {
		dh = *dsv
	}
	l.record(func(s *encodeState) error {
		rt, ok := resolve(rtv)
		if !ok || rt.kind != slotRTV {
			return fmt.Errorf("native: render target handle holds no render target view: %w", gpucore.ErrInvalidState)
		}
		var ds *slot
		if dsv != nil {
			v, ok := resolve(dh)
			if !ok || v.kind != slotDSV {
				return fmt.Errorf("native: depth handle holds no depth view: %w", gpucore.ErrInvalidState)
			}
			ds = &v
		}
		s.flush()
		s.rtv, s.dsv = &rt, ds
		return nil
	})
}

// ClearRenderTarget implements gpucore.CommandList. The clear is folded
// into the next render pass on that target.
func (l *CommandList) ClearRenderTarget(rtv gpucore.DescriptorHandle, c gpucore.Color) {
	l.record(func(s *encodeState) error {
		rt, ok := resolve(rtv)
		if !ok || rt.kind != slotRTV {
			return fmt.Errorf("native: clear of handle without render target view: %w", gpucore.ErrInvalidState)
		}
		s.endPass()
		s.colorClears[rt.view] = gputypes.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: float64(c.A)}
		return nil
	})
}

// ClearDepthStencil implements gpucore.CommandList.
func (l *CommandList) ClearDepthStencil(dsv gpucore.DescriptorHandle, depth float32, stencil uint8) {
	l.record(func(s *encodeState) error {
		ds, ok := resolve(dsv)
		if !ok || ds.kind != slotDSV {
			return fmt.Errorf("native: clear of handle without depth view: %w", gpucore.ErrInvalidState)
		}
		s.endPass()
		s.depthClears[ds.view] = depthClear{depth: depth, stencil: stencil}
		return nil
	})
}

// SetVertexBuffer implements gpucore.CommandList. Only slot 0 exists.
func (l *CommandList) SetVertexBuffer(slot int, v gpucore.VertexBufferView) {
	if slot != 0 {
		l.fail(fmt.Errorf("native: vertex slot %d: %w", slot, gpucore.ErrUnsupported))
		return
	}
	if _, err := asBuffer(v.Buffer); err != nil {
		l.fail(err)
		return
	}
	l.record(func(s *encodeState) error {
		s.vb = &v
		return nil
	})
}

// SetIndexBuffer implements gpucore.CommandList.
func (l *CommandList) SetIndexBuffer(v gpucore.IndexBufferView) {
	if _, err := asBuffer(v.Buffer); err != nil {
		l.fail(err)
		return
	}
	l.record(func(s *encodeState) error {
		s.ib = &v
		return nil
	})
}

// DrawIndexed implements gpucore.CommandList.
func (l *CommandList) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	l.record(func(s *encodeState) error {
		if err := s.bind(true); err != nil {
			return err
		}
		s.pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
		return nil
	})
}

// Draw implements gpucore.CommandList.
func (l *CommandList) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	l.record(func(s *encodeState) error {
		if err := s.bind(false); err != nil {
			return err
		}
		s.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
		return nil
	})
}

// ExecuteBundle implements gpucore.CommandList. The bundle's operations are
// replayed inline against the calling list's state.
func (l *CommandList) ExecuteBundle(bundle gpucore.CommandList) {
	b, ok := bundle.(*CommandList)
	switch {
	case !ok || b.dev != l.dev:
		l.fail(fmt.Errorf("native: foreign bundle %T", bundle))
		return
	case b.kind != gpucore.ListBundle:
		l.fail(errors.New("native: ExecuteBundle of a direct list"))
		return
	case b.open:
		l.fail(fmt.Errorf("native: execute of open bundle: %w", gpucore.ErrInvalidState))
		return
	case b.err != nil:
		l.fail(b.err)
		return
	}
	ops := append([]op(nil), b.ops...)
	l.record(func(s *encodeState) error {
		for _, o := range ops {
			if err := o(s); err != nil {
				return err
			}
		}
		return nil
	})
}

// CopyBuffer implements gpucore.CommandList.
func (l *CommandList) CopyBuffer(dst gpucore.Buffer, dstOffset uint64, src gpucore.Buffer, srcOffset, size uint64) {
	d, err := asBuffer(dst)
	if err != nil {
		l.fail(err)
		return
	}
	sb, err := asBuffer(src)
	if err != nil {
		l.fail(err)
		return
	}
	if dstOffset+size > d.desc.Size || srcOffset+size > sb.desc.Size {
		l.fail(fmt.Errorf("native: copy of %d bytes out of range", size))
		return
	}
	l.record(func(s *encodeState) error {
		s.flush()
		s.enc.CopyBufferToBuffer(sb.hal, d.hal, []hal.BufferCopy{{
			SrcOffset: srcOffset,
			DstOffset: dstOffset,
			Size:      gpucore.AlignUp(size, 4),
		}})
		return nil
	})
}

func checkFootprint(t *Texture, b *Buffer, fp gpucore.Footprint) error {
	bpp := uint32(t.desc.Format.BytesPerPixel())
	switch {
	case fp.RowPitch%gpucore.RowPitchAlignment != 0:
		return fmt.Errorf("native: row pitch %d not aligned to %d", fp.RowPitch, gpucore.RowPitchAlignment)
	case fp.Width > t.desc.Width || fp.Height > t.desc.Height:
		return fmt.Errorf("native: footprint %dx%d exceeds texture %q", fp.Width, fp.Height, t.desc.Label)
	case fp.Width*bpp > fp.RowPitch:
		return fmt.Errorf("native: row pitch %d below row size %d", fp.RowPitch, fp.Width*bpp)
	case fp.Height > 0 && fp.Offset+uint64(fp.RowPitch)*uint64(fp.Height-1)+uint64(fp.Width*bpp) > b.desc.Size:
		return fmt.Errorf("native: footprint exceeds buffer %q", b.desc.Label)
	}
	return nil
}

func bufferTextureCopy(t *Texture, fp gpucore.Footprint) []hal.BufferTextureCopy {
	return []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: fp.Offset, BytesPerRow: fp.RowPitch, RowsPerImage: fp.Height},
		TextureBase:  hal.ImageCopyTexture{Texture: t.hal, Aspect: gputypes.TextureAspectAll},
		Size:         hal.Extent3D{Width: fp.Width, Height: fp.Height, DepthOrArrayLayers: 1},
	}}
}

// CopyBufferToTexture implements gpucore.CommandList.
func (l *CommandList) CopyBufferToTexture(dst gpucore.Texture, src gpucore.Buffer, fp gpucore.Footprint) {
	t, err := asTexture(dst)
	if err != nil {
		l.fail(err)
		return
	}
	b, err := asBuffer(src)
	if err != nil {
		l.fail(err)
		return
	}
	if err := checkFootprint(t, b, fp); err != nil {
		l.fail(err)
		return
	}
	l.record(func(s *encodeState) error {
		s.flush()
		s.enc.CopyBufferToTexture(b.hal, t.hal, bufferTextureCopy(t, fp))
		return nil
	})
}

// CopyTextureToBuffer implements gpucore.CommandList.
func (l *CommandList) CopyTextureToBuffer(dst gpucore.Buffer, fp gpucore.Footprint, src gpucore.Texture) {
	b, err := asBuffer(dst)
	if err != nil {
		l.fail(err)
		return
	}
	t, err := asTexture(src)
	if err != nil {
		l.fail(err)
		return
	}
	if err := checkFootprint(t, b, fp); err != nil {
		l.fail(err)
		return
	}
	l.record(func(s *encodeState) error {
		s.flush()
		s.enc.CopyTextureToBuffer(t.hal, b.hal, bufferTextureCopy(t, fp))
		return nil
	})
}

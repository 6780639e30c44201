// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package overlay draws a text panel with frame statistics on top of the
// scene.
//
// Each frame slot owns a persistently mapped vertex buffer, so building
// the panel for one slot never touches memory the GPU may still read for
// the other. The font atlas lives in a fixed shader-visible descriptor
// slot supplied by the caller.
package overlay

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/cube/gpucore"
	"github.com/gogpu/cube/internal/frame"
	"github.com/gogpu/cube/internal/upload"
	"github.com/gogpu/cube/shader"
)

// ErrNoFrame is returned by EmitDrawCommands before NewFrame.
var ErrNoFrame = errors.New("overlay: EmitDrawCommands without NewFrame")

const (
	vertexStride  = 20
	vertsPerGlyph = 6
	margin        = 8
)

// Config describes where and how the overlay draws.
type Config struct {
	// Heap is the shader-visible heap holding the font atlas view at
	// FontSlot.
	Heap     gpucore.DescriptorHeap
	FontSlot int

	Format      gpucore.Format
	DepthFormat gpucore.Format

	// FontSize is the glyph size in pixels. Zero means 14.
	FontSize float64
	// MaxGlyphs bounds the glyphs drawn per frame. Zero means 512.
	MaxGlyphs int
	// Color is the text color.
	Color gpucore.Color
	// Language selects number formatting. The zero value means English.
	Language language.Tag
}

// Overlay is the stats panel. It is used from the recording goroutine only.
type Overlay struct {
	cfg      Config
	atlas    *atlas
	shaper   *shaper
	printer  *message.Printer
	font     gpucore.Texture
	pipeline gpucore.Pipeline
	vbs      [frame.Count]*upload.Mapped

	slot     int
	vertices uint32
	lines    []string
}

// New creates the overlay's device objects and records the font atlas
// upload into list. The staging buffer is added to batch.
func New(dev gpucore.Device, list gpucore.CommandList, batch *upload.Batch, cfg Config) (*Overlay, error) {
	if cfg.FontSize == 0 {
		cfg.FontSize = 14
	}
	if cfg.MaxGlyphs == 0 {
		cfg.MaxGlyphs = 512
	}
	if cfg.Color == (gpucore.Color{}) {
		cfg.Color = gpucore.Color{R: 1, G: 1, B: 1, A: 1}
	}
	o := &Overlay{cfg: cfg, slot: -1, printer: newPrinter(cfg.Language)}

	var err error
	if o.atlas, err = newAtlas(cfg.FontSize); err != nil {
		return nil, err
	}
	if o.shaper, err = newShaper(cfg.FontSize); err != nil {
		return nil, err
	}
	if err := o.createPipeline(dev); err != nil {
		return nil, err
	}
	if err := o.uploadFont(dev, list, batch); err != nil {
		o.Shutdown()
		return nil, err
	}
	for i := range o.vbs {
		if o.vbs[i], err = upload.NewMapped(dev, fmt.Sprintf("overlay vertices %d", i),
			uint64(cfg.MaxGlyphs*vertsPerGlyph*vertexStride)); err != nil {
			o.Shutdown()
			return nil, fmt.Errorf("overlay: %w", err)
		}
	}
	return o, nil
}

func (o *Overlay) createPipeline(dev gpucore.Device) error {
	vs, err := shader.Compile(shader.Overlay, shader.VertexEntry, shader.TargetVertex)
	if err != nil {
		return err
	}
	ps, err := shader.Compile(shader.Overlay, shader.PixelEntry, shader.TargetPixel)
	if err != nil {
		return err
	}
	o.pipeline, err = dev.CreatePipeline(gpucore.PipelineDesc{
		Label:  "overlay",
		Vertex: vs,
		Pixel:  ps,
		Attributes: []gpucore.VertexAttribute{
			{Location: 0, Format: gpucore.VertexFloat32x2, Offset: 0},
			{Location: 1, Format: gpucore.VertexFloat32x2, Offset: 8},
			{Location: 2, Format: gpucore.VertexUnorm8x4, Offset: 16},
		},
		VertexStride: vertexStride,
		RTFormat:     o.cfg.Format,
		DSFormat:     o.cfg.DepthFormat,
		AlphaBlend:   true,
	})
	if err != nil {
		return fmt.Errorf("overlay: pipeline: %w", err)
	}
	return nil
}

func (o *Overlay) uploadFont(dev gpucore.Device, list gpucore.CommandList, batch *upload.Batch) error {
	img := o.atlas.img
	tex, err := dev.CreateTexture(gpucore.TextureDesc{
		Label:  "overlay font",
		Width:  uint32(img.Width),
		Height: uint32(img.Height),
		Format: gpucore.FormatRGBA8Unorm,
		State:  gpucore.StateCopyDest,
	})
	if err != nil {
		return fmt.Errorf("overlay: font texture: %w", err)
	}
	o.font = tex
	st, err := upload.Texture(dev, list, tex, img.Pix, upload.Layout{}, gpucore.StatePixelShaderResource)
	if err != nil {
		return fmt.Errorf("overlay: font upload: %w", err)
	}
	batch.Add(st)
	if err := o.cfg.Heap.CreateShaderResourceView(tex, o.cfg.FontSlot); err != nil {
		return fmt.Errorf("overlay: font view: %w", err)
	}
	return nil
}

// NewFrame starts building the panel for frame slot. The GPU must have
// finished the slot's previous frame.
func (o *Overlay) NewFrame(slot int) {
	o.slot = slot
	o.vertices = 0
	o.lines = o.lines[:0]
}

// Build lays out s into the current slot's vertex buffer.
func (o *Overlay) Build(s Stats) {
	if o.slot < 0 || s.Width <= 0 || s.Height <= 0 {
		return
	}
	o.lines = s.lines(o.printer)
	dst := o.vbs[o.slot].Bytes()
	limit := uint32(o.cfg.MaxGlyphs * vertsPerGlyph)

	toX := func(px float32) float32 { return 2*px/float32(s.Width) - 1 }
	toY := func(px float32) float32 { return 1 - 2*px/float32(s.Height) }
	color := packColor(o.cfg.Color)
	cw, ch := float32(o.atlas.cellW), float32(o.atlas.cellH)

	for i, line := range o.lines {
		top := float32(margin) + float32(i)*ch
		for _, g := range o.shaper.shape(line) {
			if o.vertices+vertsPerGlyph > limit {
				return
			}
			left := float32(margin) + g.x
			x0, y0, x1, y1 := toX(left), toY(top), toX(left+cw), toY(top+ch)
			u0, v0, u1, v1 := o.atlas.uv(g.r)
			quad := [vertsPerGlyph][4]float32{
				{x0, y0, u0, v0}, {x1, y0, u1, v0}, {x0, y1, u0, v1},
				{x1, y0, u1, v0}, {x1, y1, u1, v1}, {x0, y1, u0, v1},
			}
			for _, v := range quad {
				off := int(o.vertices) * vertexStride
				for k, f := range v {
					binary.LittleEndian.PutUint32(dst[off+4*k:], math.Float32bits(f))
				}
				copy(dst[off+16:off+20], color[:])
				o.vertices++
			}
		}
	}
}

// Lines returns the text built for the current frame.
func (o *Overlay) Lines() []string { return o.lines }

// Vertices returns the number of vertices built for the current frame.
func (o *Overlay) Vertices() uint32 { return o.vertices }

// EmitDrawCommands draws the panel into list, which must have the render
// target, viewport and descriptor heap bound.
func (o *Overlay) EmitDrawCommands(list gpucore.CommandList) error {
	if o.slot < 0 {
		return ErrNoFrame
	}
	if o.vertices == 0 {
		return nil
	}
	list.SetPipeline(o.pipeline)
	list.SetRootDescriptorTable(gpucore.RootTexture, o.cfg.Heap.Handle(o.cfg.FontSlot))
	list.SetVertexBuffer(0, gpucore.VertexBufferView{
		Buffer: o.vbs[o.slot].Buffer(),
		Size:   uint64(o.vertices) * vertexStride,
		Stride: vertexStride,
	})
	list.Draw(o.vertices, 1, 0, 0)
	return nil
}

// Shutdown releases the overlay's device objects. The GPU must be idle.
func (o *Overlay) Shutdown() {
	for i, vb := range o.vbs {
		if vb != nil {
			vb.Close()
			o.vbs[i] = nil
		}
	}
	if o.font != nil {
		if o.cfg.Heap != nil {
			o.cfg.Heap.Clear(o.cfg.FontSlot)
		}
		o.font.Close()
		o.font = nil
	}
	if o.pipeline != nil {
		o.pipeline.Close()
		o.pipeline = nil
	}
	o.slot = -1
}

func packColor(c gpucore.Color) [4]byte {
	u := func(f float32) byte { return byte(math.Round(float64(min(max(f, 0), 1)) * 255)) }
	return [4]byte{u(c.R), u(c.G), u(c.B), u(c.A)}
}

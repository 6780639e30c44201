// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package overlay

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/gogpu/cube/backend/sim"
	"github.com/gogpu/cube/gpucore"
	"github.com/gogpu/cube/internal/frame"
	"github.com/gogpu/cube/internal/swapchain"
	"github.com/gogpu/cube/internal/upload"
)

func TestAtlas(t *testing.T) {
	a, err := newAtlas(14)
	if err != nil {
		t.Fatal(err)
	}
	if a.cellW <= 0 || a.cellH <= 0 {
		t.Fatalf("expected positive cell size, got %dx%d", a.cellW, a.cellH)
	}
	if a.img.Width != columns*a.cellW {
		t.Errorf("expected atlas width %d, got %d", columns*a.cellW, a.img.Width)
	}

	coverage := func(r rune) int {
		x0, y0 := a.origin(r)
		sum := 0
		for y := y0; y < y0+a.cellH; y++ {
			for x := x0; x < x0+a.cellW; x++ {
				sum += int(a.img.Pix[(y*a.img.Width+x)*4+3])
			}
		}
		return sum
	}
	if coverage('M') == 0 {
		t.Error("expected 'M' to have coverage")
	}
	if coverage(' ') != 0 {
		t.Error("expected space to be empty")
	}

	u0, v0, u1, v1 := a.uv('é')
	q0, w0, q1, w1 := a.uv('?')
	if u0 != q0 || v0 != w0 || u1 != q1 || v1 != w1 {
		t.Error("expected runes outside the atlas to map to '?'")
	}
}

func TestShapeMonospace(t *testing.T) {
	s, err := newShaper(14)
	if err != nil {
		t.Fatal(err)
	}
	got := s.shape("ab c")
	if len(got) != 3 {
		t.Fatalf("expected 3 visible glyphs, got %d", len(got))
	}
	if got[0].r != 'a' || got[1].r != 'b' || got[2].r != 'c' {
		t.Errorf("unexpected runes %q %q %q", got[0].r, got[1].r, got[2].r)
	}
	adv := got[1].x - got[0].x
	if adv <= 0 {
		t.Fatalf("expected positive advance, got %v", adv)
	}
	if d := got[2].x - 3*adv; d < -0.5 || d > 0.5 {
		t.Errorf("expected 'c' at %v, got %v", 3*adv, got[2].x)
	}
	if s.shape("") != nil {
		t.Error("expected no glyphs for empty line")
	}
}

func TestStatsLines(t *testing.T) {
	s := Stats{
		Adapter: "GPU", Backend: "sim", Width: 1920, Height: 1080,
		FPS: 50, Frames: 12345, Waits: 2,
	}
	lines := s.lines(newPrinter(language.Und))
	want := []string{"GPU (sim)", "1,920x1,080", "50 fps  20.00 ms", "frame 12,345  waits 2"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %q", len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}

	s.Rebuilds = 1
	if got := s.lines(newPrinter(language.English)); !strings.HasPrefix(got[len(got)-1], "device rebuilds") {
		t.Errorf("expected rebuild line, got %q", got)
	}
}

type simFrame struct {
	dev    *sim.Device
	fence  gpucore.Fence
	frames *frame.Set
	heaps  *swapchain.Heaps
	chain  *swapchain.Chain
	next   uint64
}

func newSimFrame(t *testing.T) *simFrame {
	t.Helper()
	d, err := sim.NewFactory().Adapters(gpucore.PreferenceUnspecified)
	if err != nil {
		t.Fatal(err)
	}
	dev, err := d[0].CreateDevice(gpucore.FeatureLevel11_0)
	if err != nil {
		t.Fatal(err)
	}
	f := &simFrame{dev: dev.(*sim.Device)}
	if f.fence, err = dev.CreateFence(0); err != nil {
		t.Fatal(err)
	}
	if f.frames, err = frame.New(dev, f.fence); err != nil {
		t.Fatal(err)
	}
	if f.heaps, err = swapchain.NewHeaps(dev, frame.Count); err != nil {
		t.Fatal(err)
	}
	if f.chain, err = swapchain.Create(dev, f.heaps, swapchain.Desc{
		Width: 320, Height: 240, FrameCount: frame.Count, Format: gpucore.FormatBGRA8Unorm,
	}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		f.chain.Close()
		f.heaps.Close()
		f.frames.Close()
		f.fence.Close()
		dev.Close()
	})
	return f
}

// run records fn into slot 0 and waits for the GPU to execute it.
func (f *simFrame) run(t *testing.T, fn func(gpucore.CommandList)) {
	t.Helper()
	list, err := f.frames.Acquire(0)
	if err != nil {
		t.Fatal(err)
	}
	fn(list)
	if list, err = f.frames.Finish(0); err != nil {
		t.Fatal(err)
	}
	f.next++
	q := f.dev.Queue()
	if err := q.Execute(list); err != nil {
		t.Fatal(err)
	}
	if err := q.Signal(f.fence, f.next); err != nil {
		t.Fatal(err)
	}
	f.frames.MarkSubmitted(0, f.next)
	if err := f.fence.Wait(f.next); err != nil {
		t.Fatal(err)
	}
}

func newOverlayOrSkip(t *testing.T, f *simFrame, cfg Config) *Overlay {
	t.Helper()
	cfg.Heap = f.heaps.Shader
	cfg.FontSlot = swapchain.SlotUIFont
	cfg.Format = gpucore.FormatBGRA8Unorm

	var ov *Overlay
	var batch upload.Batch
	var err error
	f.run(t, func(list gpucore.CommandList) {
		ov, err = New(f.dev, list, &batch, cfg)
	})
	if err != nil {
		if s := err.Error(); strings.Contains(s, "not yet implemented") || strings.Contains(s, "not supported") {
			t.Skipf("Skipping: naga feature not yet implemented: %v", err)
		}
		t.Fatalf("New() error = %v", err)
	}
	if err := batch.Release(f.fence, f.next); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ov.Shutdown)
	return ov
}

func TestOverlayDrawsOnSim(t *testing.T) {
	f := newSimFrame(t)
	ov := newOverlayOrSkip(t, f, Config{})

	if err := ov.EmitDrawCommands(nil); !errors.Is(err, ErrNoFrame) {
		t.Errorf("expected ErrNoFrame, got %v", err)
	}

	ov.NewFrame(0)
	ov.Build(Stats{Adapter: "GPU", Backend: "sim", Width: 320, Height: 240, FPS: 60})
	if ov.Vertices() == 0 || ov.Vertices()%vertsPerGlyph != 0 {
		t.Fatalf("expected whole quads, got %d vertices", ov.Vertices())
	}

	bb := f.chain.BackBuffer(0)
	rtv := f.chain.RTV(0)
	f.run(t, func(list gpucore.CommandList) {
		list.ResourceBarrier(gpucore.Transition(bb, gpucore.StatePresent, gpucore.StateRenderTarget))
		list.SetDescriptorHeaps(f.heaps.Shader)
		list.SetViewport(gpucore.Viewport{Width: 320, Height: 240, MaxDepth: 1})
		list.SetScissor(gpucore.Rect{Right: 320, Bottom: 240})
		list.SetRenderTargets(rtv, nil)
		if err := ov.EmitDrawCommands(list); err != nil {
			t.Errorf("EmitDrawCommands() error = %v", err)
		}
		list.ResourceBarrier(gpucore.Transition(bb, gpucore.StateRenderTarget, gpucore.StatePresent))
	})

	st := f.dev.Stats()
	if st.Draws != 1 || st.Indices != int(ov.Vertices()) {
		t.Errorf("expected 1 draw of %d vertices, got %d draws of %d", ov.Vertices(), st.Draws, st.Indices)
	}
	for _, err := range f.dev.ValidationErrors() {
		t.Error(err)
	}
}

func TestBuildRespectsGlyphLimit(t *testing.T) {
	f := newSimFrame(t)
	ov := newOverlayOrSkip(t, f, Config{MaxGlyphs: 4})

	ov.NewFrame(1)
	ov.Build(Stats{Adapter: "A long adapter name", Backend: "sim", Width: 100, Height: 100})
	if got := ov.Vertices(); got != 4*vertsPerGlyph {
		t.Errorf("expected %d vertices, got %d", 4*vertsPerGlyph, got)
	}
}

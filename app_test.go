// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cube

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/cube/backend/sim"
	"github.com/gogpu/cube/gpucore"
)

// testWindow is a headless window.
type testWindow struct{ w, h int }

func (testWindow) Handle() uintptr                   { return 0 }
func (w testWindow) ClientSize() (width, height int) { return w.w, w.h }

const cubeIndices = 36

// newApp initializes an App on a simulated GPU. Shader compile failures
// caused by missing naga features skip the test.
func newApp(t *testing.T, simOpts []sim.Option, opts ...Option) (*App, *sim.Factory) {
	t.Helper()
	f := sim.NewFactory(simOpts...)
	a := New(append([]Option{WithFactory(f), WithVSync(false)}, opts...)...)
	if err := a.OnInit(testWindow{800, 600}); err != nil {
		if s := err.Error(); strings.Contains(s, "not yet implemented") || strings.Contains(s, "not supported") {
			t.Skipf("Skipping: naga feature not yet implemented: %v", err)
		}
		t.Fatalf("OnInit() error = %v", err)
	}
	t.Cleanup(func() {
		if err := a.OnDestroy(); err != nil {
			t.Errorf("OnDestroy() error = %v", err)
		}
		for _, d := range f.Devices() {
			for _, err := range d.ValidationErrors() {
				t.Errorf("device %d: %v", d.ID(), err)
			}
			if n := d.LiveObjects(); n != 0 {
				t.Errorf("device %d: %d live objects after OnDestroy", d.ID(), n)
			}
		}
	})
	return a, f
}

func tick(t *testing.T, a *App, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := a.OnTick(); err != nil {
			t.Fatalf("OnTick() error = %v", err)
		}
	}
}

func TestOnTickBeforeInit(t *testing.T) {
	a := New()
	if err := a.OnTick(); err != nil {
		t.Errorf("expected OnTick before OnInit to do nothing, got %v", err)
	}
	if err := a.OnResize(0, -5); err != nil {
		t.Fatal(err)
	}
	if w, h := a.Size(); w != 1 || h != 1 {
		t.Errorf("expected clamped 1x1, got %dx%d", w, h)
	}
	if err := a.OnDestroy(); err != nil {
		t.Errorf("expected OnDestroy before OnInit to do nothing, got %v", err)
	}
	if _, err := a.Capture(); !errors.Is(err, errNotInitialized) {
		t.Errorf("expected errNotInitialized, got %v", err)
	}
}

func TestInitFailsWithoutAdapter(t *testing.T) {
	f := sim.NewFactory(sim.WithAdapters(sim.AdapterSpec{
		Info:  gpucore.AdapterInfo{Name: "old", Backend: "sim", Kind: gpucore.AdapterDiscrete},
		Level: gpucore.FeatureLevel(0x9000),
	}))
	a := New(WithFactory(f))
	err := a.OnInit(testWindow{640, 480})
	if err != nil && strings.Contains(err.Error(), "not yet implemented") {
		t.Skipf("Skipping: naga feature not yet implemented: %v", err)
	}
	if !errors.Is(err, ErrAdapterNotFound) {
		t.Fatalf("expected ErrAdapterNotFound, got %v", err)
	}
	if a.DeviceID() != 0 {
		t.Error("expected no device after failed init")
	}
}

func TestInitFailsOnMissingTexture(t *testing.T) {
	a := New(WithFactory(sim.NewFactory()), WithTexture("does-not-exist.png"))
	if err := a.OnInit(testWindow{640, 480}); !errors.Is(err, ErrAssetLoad) {
		t.Fatalf("expected ErrAssetLoad, got %v", err)
	}
}

func TestRenderFrames(t *testing.T) {
	trace := sim.NewTrace()
	a, _ := newApp(t, []sim.Option{sim.WithTrace(trace)})
	tick(t, a, 4)
	if err := a.res.WaitForGPU(); err != nil {
		t.Fatal(err)
	}

	if a.Frames() != 4 {
		t.Errorf("expected 4 updates, got %d", a.Frames())
	}
	cube, overlay := 0, 0
	for _, e := range trace.Filter(sim.EventDraw) {
		if e.Value == cubeIndices {
			cube++
		} else {
			overlay++
		}
	}
	if cube != 4 {
		t.Errorf("expected 4 cube draws, got %d", cube)
	}
	if overlay != 4 {
		t.Errorf("expected 4 overlay draws, got %d", overlay)
	}
	if got := len(trace.Filter(sim.EventPresent)); got != 4 {
		t.Errorf("expected 4 presents, got %d", got)
	}

	lines := a.OverlayText()
	if len(lines) == 0 || !strings.Contains(lines[0], "(sim)") {
		t.Errorf("expected adapter line in overlay, got %q", lines)
	}
	if len(lines) < 2 || lines[1] != "800x600" {
		t.Errorf("expected size line 800x600, got %q", lines)
	}
}

func TestResizeScenario(t *testing.T) {
	trace := sim.NewTrace()
	a, _ := newApp(t, []sim.Option{sim.WithManualTimeline(), sim.WithTrace(trace)})

	tick(t, a, 3)
	if err := a.OnResize(400, 300); err != nil {
		t.Fatalf("OnResize() error = %v", err)
	}
	tick(t, a, 3)
	if err := a.res.WaitForGPU(); err != nil {
		t.Fatal(err)
	}

	if w, h := a.Size(); w != 400 || h != 300 {
		t.Errorf("expected 400x300, got %dx%d", w, h)
	}

	events := trace.Events()
	release := trace.Index(0, func(e sim.Event) bool {
		return e.Kind == sim.EventReleaseBackBuffer && e.Width == 800
	})
	if release < 0 {
		t.Fatal("expected the 800x600 back buffers to be released")
	}
	lastOld := -1
	for i, e := range events[:release] {
		if e.Kind == sim.EventPresent && e.Width == 800 {
			lastOld = i
		}
	}
	if lastOld < 0 {
		t.Fatal("expected presents before the resize")
	}
	// Every frame presented before the resize must have executed first.
	draws := 0
	for _, e := range events[:release] {
		if e.Kind == sim.EventDraw && e.Value == cubeIndices {
			draws++
		}
	}
	if draws != 3 {
		t.Errorf("expected 3 cube draws before the back buffers were released, got %d", draws)
	}

	resize := trace.Index(release, func(e sim.Event) bool { return e.Kind == sim.EventResize })
	if resize < 0 {
		t.Fatal("expected a resize event")
	}
	presents := 0
	for _, e := range events[resize:] {
		switch e.Kind {
		case sim.EventClear, sim.EventDraw, sim.EventPresent:
			if e.Width != 400 || e.Height != 300 {
				t.Errorf("stale back buffer after resize: %v", e)
			}
			if e.Kind == sim.EventPresent {
				presents++
			}
		}
	}
	if presents != 3 {
		t.Errorf("expected 3 presents after resize, got %d", presents)
	}
}

func TestDeviceLostOnPresentRebuilds(t *testing.T) {
	trace := sim.NewTrace()
	a, f := newApp(t, []sim.Option{sim.WithTrace(trace), sim.WithDeviceLossOnPresent(2)})

	before := a.DeviceID()
	tick(t, a, 5)
	if a.Rebuilds() != 1 {
		t.Fatalf("expected 1 rebuild, got %d", a.Rebuilds())
	}
	if a.DeviceID() == before {
		t.Errorf("expected a new device, still %d", before)
	}
	if len(f.Devices()) != 2 {
		t.Errorf("expected 2 devices, got %d", len(f.Devices()))
	}

	// Application objects go before the frame objects on the lost device.
	old := func(object string) func(sim.Event) bool {
		return func(e sim.Event) bool {
			return e.Device == before && e.Kind == sim.EventRelease && e.Object == object
		}
	}
	bundle := trace.Index(0, old("bundle"))
	texture := trace.Index(0, old("cube texture"))
	list := trace.Index(bundle+1, old("command-list"))
	if bundle < 0 || texture < 0 || list < 0 {
		t.Fatalf("expected bundle, texture and command list releases, got %d %d %d", bundle, texture, list)
	}
	if texture > list {
		t.Errorf("expected cube texture (%d) released before frame command lists (%d)", texture, list)
	}

	if err := a.res.WaitForGPU(); err != nil {
		t.Fatal(err)
	}
	if got := a.OverlayText(); len(got) == 0 || !strings.HasPrefix(got[len(got)-1], "device rebuilds 1") {
		t.Errorf("expected rebuild line in overlay, got %q", got)
	}
}

func TestDeviceLostOnResizeRebuilds(t *testing.T) {
	a, _ := newApp(t, []sim.Option{sim.WithDeviceLossOnResize(1)})
	tick(t, a, 2)
	before := a.DeviceID()
	if err := a.OnResize(400, 300); err != nil {
		t.Fatalf("OnResize() error = %v", err)
	}
	if a.Rebuilds() != 1 || a.DeviceID() == before {
		t.Errorf("expected one rebuild onto a new device, got %d rebuilds on %d", a.Rebuilds(), a.DeviceID())
	}
	tick(t, a, 2)
	if w, h := a.Size(); w != 400 || h != 300 {
		t.Errorf("expected 400x300, got %dx%d", w, h)
	}
}

func TestSuspendResume(t *testing.T) {
	trace := sim.NewTrace()
	a, _ := newApp(t, []sim.Option{sim.WithTrace(trace)})
	tick(t, a, 1)

	a.OnSuspend()
	tick(t, a, 3)
	if a.Frames() != 1 {
		t.Errorf("expected no updates while suspended, got %d", a.Frames())
	}
	a.OnResume()
	tick(t, a, 1)
	if a.Frames() != 2 {
		t.Errorf("expected 2 updates after resume, got %d", a.Frames())
	}
	if err := a.res.WaitForGPU(); err != nil {
		t.Fatal(err)
	}
	if got := len(trace.Filter(sim.EventPresent)); got != 2 {
		t.Errorf("expected 2 presents, got %d", got)
	}
}

func TestKeyBindings(t *testing.T) {
	trace := sim.NewTrace()
	a, _ := newApp(t, []sim.Option{sim.WithTrace(trace)})

	a.OnKeyDown(KeyO)
	a.OnKeyUp(KeyO)
	tick(t, a, 1)
	if err := a.res.WaitForGPU(); err != nil {
		t.Fatal(err)
	}
	for _, e := range trace.Filter(sim.EventDraw) {
		if e.Value != cubeIndices {
			t.Errorf("expected no overlay draw with the overlay hidden, got %v", e)
		}
	}

	a.OnKeyDown(KeySpace)
	angle := a.angle
	tick(t, a, 2)
	if a.angle != angle {
		t.Errorf("expected paused rotation, angle moved from %v to %v", angle, a.angle)
	}

	if a.syncInterval() != 0 {
		t.Fatalf("expected sync interval 0 with vsync off, got %d", a.syncInterval())
	}
	a.OnKeyDown(KeyV)
	if a.syncInterval() != 1 {
		t.Errorf("expected sync interval 1 after toggling vsync, got %d", a.syncInterval())
	}
	a.OnKeyDown(KeyV)
	a.OnDeactivated()
	if a.syncInterval() != 1 {
		t.Errorf("expected inactive window to present with vsync, got %d", a.syncInterval())
	}
	a.OnActivated()
	if a.syncInterval() != 0 {
		t.Errorf("expected sync interval 0 once active, got %d", a.syncInterval())
	}
}

func TestCaptureReturnsClearColor(t *testing.T) {
	a, _ := newApp(t, nil, WithClearColor(gpucore.Color{R: 1, A: 1}), WithOverlay(false))
	if _, err := a.Capture(); err == nil {
		t.Error("expected an error before the first present")
	}
	tick(t, a, 1)
	img, err := a.Capture()
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if img.Width != 800 || img.Height != 600 {
		t.Fatalf("expected 800x600, got %dx%d", img.Width, img.Height)
	}
	px := img.Pix[:4]
	if px[0] != 255 || px[1] != 0 || px[2] != 0 || px[3] != 255 {
		t.Errorf("expected opaque red, got %v", px)
	}
}

func TestCubeMesh(t *testing.T) {
	verts, indices := cubeMesh()
	if len(verts) != 24 || len(indices) != cubeIndices {
		t.Fatalf("expected 24 vertices and 36 indices, got %d and %d", len(verts), len(indices))
	}
	for _, ix := range indices {
		if int(ix) >= len(verts) {
			t.Fatalf("index %d out of range", ix)
		}
	}
	if got := len(vertexBytes(verts)); got != 24*vertexStride {
		t.Errorf("expected %d vertex bytes, got %d", 24*vertexStride, got)
	}
}

func TestDeviceProviderOnSim(t *testing.T) {
	if _, ok := New().DeviceProvider(); ok {
		t.Error("expected no device provider before OnInit")
	}
	a, _ := newApp(t, nil)
	if p, ok := a.DeviceProvider(); ok {
		t.Errorf("expected no device provider on the simulated GPU, got %T", p)
	}
}

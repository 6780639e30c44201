// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cube

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/cube/asset"
	"github.com/gogpu/cube/backend"
	"github.com/gogpu/cube/gpucore"
	"github.com/gogpu/cube/internal/adapter"
	"github.com/gogpu/cube/internal/devres"
	"github.com/gogpu/cube/internal/logging"
	"github.com/gogpu/cube/internal/record"
	"github.com/gogpu/cube/internal/steptimer"
	"github.com/gogpu/cube/internal/swapchain"
	"github.com/gogpu/cube/internal/upload"
	"github.com/gogpu/cube/internal/xform"
	"github.com/gogpu/cube/overlay"
	"github.com/gogpu/cube/shader"
)

const (
	depthFormat = gpucore.FormatD32Float

	// radiansPerSecond is the cube's rotation speed around the Y axis.
	radiansPerSecond = 0.8
	checkerSize      = 256
	checkerCell      = 32
)

// errNotInitialized is returned by operations that need a device.
var errNotInitialized = errors.New("cube: not initialized")

// App renders the cube. Its entry points must be called from one
// goroutine, the one driving the window's event loop.
type App struct {
	cfg Config

	factory     gpucore.Factory
	ownsFactory bool
	res         *devres.Resources
	timer       *steptimer.Timer
	assets      sceneAssets
	scene       *scene
	recorder    *record.Recorder

	angle       float32
	paused      bool
	showOverlay bool
	vsync       bool
	active      bool
	suspended   bool
	initialized bool
	presented   int
}

// New returns an App configured by opts. No device exists until OnInit.
func New(opts ...Option) *App {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	var topts []steptimer.Option
	if cfg.FixedTimeStep > 0 {
		topts = append(topts, steptimer.WithFixedTimeStep(cfg.FixedTimeStep))
	}
	return &App{
		cfg:         cfg,
		timer:       steptimer.New(topts...),
		showOverlay: cfg.Overlay,
		vsync:       cfg.VSync,
		active:      true,
		presented:   -1,
	}
}

// Config returns the settings the App was created with.
func (a *App) Config() Config { return a.cfg }

// OnInit opens the backend, selects an adapter and creates every device
// object, sized to w's client area.
func (a *App) OnInit(w Window) (err error) {
	if a.initialized {
		return errors.New("cube: already initialized")
	}
	width, height := w.ClientSize()
	if width <= 0 || height <= 0 {
		width, height = a.cfg.Width, a.cfg.Height
	}
	if a.assets, err = loadAssets(a.cfg.Texture); err != nil {
		return err
	}

	a.factory = a.cfg.Factory
	if a.factory == nil {
		if a.factory, err = backend.Open(a.cfg.Backend, a.cfg.Debug); err != nil {
			return err
		}
		a.ownsFactory = true
	}
	a.res = devres.New(devres.Config{
		Factory: a.factory,
		Adapter: adapter.Options{
			HighPerformance: a.cfg.HighPerformance,
			Debug:           a.cfg.Debug,
		},
		Window:      w.Handle(),
		Width:       width,
		Height:      height,
		DepthFormat: depthFormat,
	})
	a.res.RegisterNotify(a)
	defer func() {
		if err != nil {
			a.teardown()
		}
	}()

	if err = a.res.CreateDeviceResources(); err != nil {
		return err
	}
	if err = a.res.CreateWindowSizeDependentResources(); err != nil {
		return err
	}
	if err = a.createDeviceDependentResources(); err != nil {
		return err
	}
	a.initialized = true
	logging.Logger().Info("cube: initialized",
		"title", a.cfg.Title, "adapter", a.res.Adapter().Info().Name,
		"width", a.res.Width(), "height", a.res.Height())
	return nil
}

func loadAssets(texture string) (sceneAssets, error) {
	var in sceneAssets
	var err error
	if texture == "" {
		in.image = asset.Checkerboard(checkerSize, checkerSize, checkerCell)
	} else if in.image, err = asset.LoadImage(texture); err != nil {
		return in, err
	}
	if in.vertex, err = shader.Compile(shader.Cube, shader.VertexEntry, shader.TargetVertex); err != nil {
		return in, err
	}
	if in.pixel, err = shader.Compile(shader.Cube, shader.PixelEntry, shader.TargetPixel); err != nil {
		return in, err
	}
	return in, nil
}

func (a *App) createDeviceDependentResources() error {
	s, err := newScene(a.res, a.assets)
	if err != nil {
		return err
	}
	a.scene = s
	heaps := a.res.Heaps()
	a.recorder = record.New(record.Bindings{
		Heap:      heaps.Shader,
		Texture:   heaps.Slot(swapchain.SlotSceneTexture),
		Constants: heaps.Slot(swapchain.SlotConstants),
	}, s.bundle, s.overlay, a.cfg.ClearColor)
	return nil
}

func (a *App) releaseDeviceDependentResources() {
	a.recorder = nil
	if a.scene != nil {
		a.scene.release()
		a.scene = nil
	}
}

// teardown releases whatever OnInit created.
func (a *App) teardown() {
	a.releaseDeviceDependentResources()
	if a.res != nil {
		if err := a.res.Close(); err != nil {
			logging.Logger().Warn("cube: close", "err", err)
		}
		a.res = nil
	}
	if a.ownsFactory && a.factory != nil {
		a.factory.Close()
	}
	a.factory, a.ownsFactory = nil, false
	a.initialized = false
}

// OnDeviceLost implements devres.Notify.
func (a *App) OnDeviceLost() {
	a.presented = -1
	a.releaseDeviceDependentResources()
}

// OnDeviceRestored implements devres.Notify.
func (a *App) OnDeviceRestored() error {
	return a.createDeviceDependentResources()
}

// OnResize applies a new client size. Sizes below 1x1 are clamped.
func (a *App) OnResize(width, height int) error {
	if !a.initialized {
		a.cfg.Width, a.cfg.Height = max(width, 1), max(height, 1)
		return nil
	}
	if !a.res.SetSize(width, height) {
		return nil
	}
	a.presented = -1
	if err := a.res.CreateWindowSizeDependentResources(); err != nil {
		return err
	}
	logging.Logger().Info("cube: resized", "width", a.res.Width(), "height", a.res.Height())
	return nil
}

// OnTick runs the updates due since the last tick and renders one frame.
// It does nothing before OnInit or while suspended. A lost device is
// rebuilt; the returned error is fatal.
func (a *App) OnTick() error {
	if !a.initialized || a.suspended {
		return nil
	}
	a.timer.Tick(a.update)
	return a.render()
}

func (a *App) update() {
	if !a.paused {
		a.angle += float32(a.timer.ElapsedSeconds()) * radiansPerSecond
	}
}

func (a *App) render() error {
	// Nothing to draw before the first update.
	if a.timer.FrameCount() == 0 {
		return nil
	}
	chain := a.res.Chain()
	sync := a.res.Timeline()
	slot := sync.Slot()

	a.writeConstants(chain.AspectRatio())
	ov := a.scene.overlay
	ov.NewFrame(slot)
	if a.showOverlay {
		ov.Build(a.stats())
	}

	list, err := a.recorder.Record(a.res.Frames(), slot, record.Target{
		BackBuffer: chain.BackBuffer(slot),
		RTV:        chain.RTV(slot),
		DSV:        chain.DSV(),
		Width:      chain.Width(),
		Height:     chain.Height(),
	})
	if err == nil {
		err = sync.Submit(list)
	}
	if err != nil {
		if errors.Is(err, gpucore.ErrDeviceLost) {
			return a.res.HandleDeviceLost()
		}
		return err
	}
	a.presented = slot
	return a.res.Present(a.syncInterval())
}

// writeConstants stores the model-view-projection matrix in the mapped
// constant buffer.
func (a *App) writeConstants(aspect float32) {
	model := xform.Rotation(xform.Vec3{0, 1, 0}, a.angle).
		Mul(xform.Rotation(xform.Vec3{1, 0, 0}, a.angle/2))
	view := xform.LookAt(xform.Vec3{0, 1, 5}, xform.Vec3{}, xform.Vec3{0, 1, 0})
	proj := xform.Perspective(xform.Radians(70), aspect, 0.01, 100)
	putMatrix(a.scene.constants.Bytes(), proj.Mul(view).Mul(model))
}

func (a *App) stats() overlay.Stats {
	info := a.res.Adapter().Info()
	return overlay.Stats{
		Adapter:      info.Name,
		Backend:      info.Backend,
		Width:        a.res.Chain().Width(),
		Height:       a.res.Chain().Height(),
		FPS:          a.timer.FramesPerSecond(),
		FrameSeconds: a.timer.ElapsedSeconds(),
		Frames:       uint64(a.timer.FrameCount()),
		Waits:        a.res.Timeline().Waits() + a.res.Frames().Waits(),
		Rebuilds:     a.res.Rebuilds(),
	}
}

// syncInterval throttles inactive windows to vertical blank.
func (a *App) syncInterval() int {
	if a.vsync || !a.active {
		return 1
	}
	return 0
}

// OnSuspend stops ticking until OnResume.
func (a *App) OnSuspend() {
	a.suspended = true
	logging.Logger().Debug("cube: suspended")
}

// OnResume restarts ticking. The time spent suspended is not simulated.
func (a *App) OnResume() {
	a.suspended = false
	a.timer.ResetElapsedTime()
	logging.Logger().Debug("cube: resumed")
}

// OnActivated marks the window as focused.
func (a *App) OnActivated() { a.active = true }

// OnDeactivated marks the window as unfocused. Unfocused windows present
// with vsync.
func (a *App) OnDeactivated() { a.active = false }

// OnKeyDown handles the renderer's key bindings.
func (a *App) OnKeyDown(k Key) {
	switch k {
	case KeySpace:
		a.paused = !a.paused
	case KeyO:
		a.showOverlay = !a.showOverlay
	case KeyV:
		a.vsync = !a.vsync
	}
}

// OnKeyUp is a no-op. Bindings act on key down.
func (a *App) OnKeyUp(Key) {}

// OnDestroy waits for the GPU and releases every object. The App cannot
// be used afterwards.
func (a *App) OnDestroy() error {
	if !a.initialized {
		return nil
	}
	err := a.res.WaitForGPU()
	if errors.Is(err, gpucore.ErrDeviceLost) {
		err = nil
	}
	a.teardown()
	logging.Logger().Info("cube: destroyed")
	return err
}

// Capture reads back the most recently presented frame as RGBA8.
func (a *App) Capture() (asset.Image, error) {
	if !a.initialized {
		return asset.Image{}, errNotInitialized
	}
	if a.presented < 0 {
		return asset.Image{}, errors.New("cube: nothing presented yet")
	}
	src := a.res.Chain().BackBuffer(a.presented)
	var rb *upload.Readback
	err := a.res.SubmitAndWait(func(list gpucore.CommandList) error {
		var err error
		rb, err = upload.ReadTexture(a.res.Device(), list, src, gpucore.StatePresent)
		return err
	})
	if rb != nil {
		defer rb.Release()
	}
	if err != nil {
		return asset.Image{}, fmt.Errorf("cube: capture: %w", err)
	}
	pix, err := rb.Bytes()
	if err != nil {
		return asset.Image{}, fmt.Errorf("cube: capture: %w", err)
	}
	if src.Format() == gpucore.FormatBGRA8Unorm {
		for i := 0; i+3 < len(pix); i += 4 {
			pix[i], pix[i+2] = pix[i+2], pix[i]
		}
	}
	return asset.Image{
		Width:         int(src.Width()),
		Height:        int(src.Height()),
		BytesPerPixel: asset.BytesPerPixel,
		Pix:           pix,
	}, nil
}

// DeviceID returns the identity of the current device, or 0 before
// OnInit. It changes every time the device is rebuilt.
func (a *App) DeviceID() uint64 {
	if a.res == nil || a.res.Device() == nil {
		return 0
	}
	return a.res.DeviceID()
}

// deviceProvider is implemented by devices that other gogpu libraries can
// draw with.
type deviceProvider interface {
	DeviceProvider() gpucontext.DeviceProvider
}

// DeviceProvider returns the current device for gogpu libraries that share
// the renderer's GPU. ok is false before OnInit and on backends whose
// devices cannot be shared. A rebuild after device loss replaces the
// device, so the provider must be fetched again.
func (a *App) DeviceProvider() (p gpucontext.DeviceProvider, ok bool) {
	if a.res == nil || a.res.Device() == nil {
		return nil, false
	}
	dp, ok := a.res.Device().(deviceProvider)
	if !ok {
		return nil, false
	}
	return dp.DeviceProvider(), true
}

// Rebuilds returns how many times the device was rebuilt after loss.
func (a *App) Rebuilds() int {
	if a.res == nil {
		return 0
	}
	return a.res.Rebuilds()
}

// Size returns the current back buffer size.
func (a *App) Size() (width, height int) {
	if a.res == nil || a.res.Chain() == nil {
		return a.cfg.Width, a.cfg.Height
	}
	return a.res.Chain().Width(), a.res.Chain().Height()
}

// Frames returns the number of updates run so far.
func (a *App) Frames() uint32 { return a.timer.FrameCount() }

// OverlayText returns the stats panel lines of the last frame.
func (a *App) OverlayText() []string {
	if a.scene == nil || a.scene.overlay == nil {
		return nil
	}
	return a.scene.overlay.Lines()
}

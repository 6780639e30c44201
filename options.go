// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cube

import (
	"github.com/gogpu/cube/gpucore"
)

// Option configures an App during creation.
// Use functional options to customize App behavior.
//
// Example:
//
//	// Defaults: 1280x720, best registered backend, vsync on
//	app := cube.New()
//
//	// Headless run on the simulated GPU
//	app := cube.New(cube.WithBackend("sim"), cube.WithSize(800, 600))
type Option func(*Config)

// Config holds the renderer settings. It is fixed once the App is created.
type Config struct {
	// Title is the window title reported to the window collaborator.
	Title string
	// Width and Height are the initial client size, used when the window
	// reports an empty client area.
	Width  int
	Height int

	// Backend names a registered backend. Empty selects the best one.
	Backend string
	// Factory overrides Backend with an already opened factory.
	Factory gpucore.Factory
	// Debug enables backend validation and allows falling back to a
	// software adapter.
	Debug bool
	// HighPerformance prefers discrete adapters.
	HighPerformance bool

	// VSync presents with a sync interval of 1 instead of 0.
	VSync bool
	// ClearColor is the render target clear color.
	ClearColor gpucore.Color
	// Texture is the path of the cube texture. Relative paths resolve
	// against the executable's directory. Empty uses a generated
	// checkerboard.
	Texture string
	// FixedTimeStep, when positive, runs updates at that many seconds per
	// step instead of once per tick.
	FixedTimeStep float64
	// Overlay shows the stats panel.
	Overlay bool
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		Title:      "cube",
		Width:      1280,
		Height:     720,
		VSync:      true,
		ClearColor: gpucore.Color{R: 0.392, G: 0.584, B: 0.929, A: 1},
		Overlay:    true,
	}
}

// WithSize sets the initial client size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width, c.Height = width, height
	}
}

// WithBackend selects a registered backend by name.
//
// Example:
//
//	import _ "github.com/gogpu/cube/backend/sim"
//
//	app := cube.New(cube.WithBackend("sim"))
func WithBackend(name string) Option {
	return func(c *Config) {
		c.Backend = name
	}
}

// WithFactory uses f instead of opening a registered backend. The App does
// not close f.
func WithFactory(f gpucore.Factory) Option {
	return func(c *Config) {
		c.Factory = f
	}
}

// WithDebug enables backend validation and the software adapter fallback.
func WithDebug(debug bool) Option {
	return func(c *Config) {
		c.Debug = debug
	}
}

// WithHighPerformance prefers discrete adapters over integrated ones.
func WithHighPerformance(on bool) Option {
	return func(c *Config) {
		c.HighPerformance = on
	}
}

// WithVSync enables or disables waiting for vertical blank on present.
func WithVSync(on bool) Option {
	return func(c *Config) {
		c.VSync = on
	}
}

// WithClearColor sets the background color.
func WithClearColor(color gpucore.Color) Option {
	return func(c *Config) {
		c.ClearColor = color
	}
}

// WithTexture sets the cube texture path.
func WithTexture(path string) Option {
	return func(c *Config) {
		c.Texture = path
	}
}

// WithFixedTimeStep runs updates at a fixed rate of seconds per step. Zero
// restores variable steps.
func WithFixedTimeStep(seconds float64) Option {
	return func(c *Config) {
		c.FixedTimeStep = seconds
	}
}

// WithOverlay shows or hides the stats panel.
func WithOverlay(on bool) Option {
	return func(c *Config) {
		c.Overlay = on
	}
}

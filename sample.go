// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cube

// Window is the native window the renderer presents into.
type Window interface {
	// Handle returns the platform window handle, or 0 for headless runs.
	Handle() uintptr
	// ClientSize returns the drawable size in pixels.
	ClientSize() (width, height int)
}

// Key identifies a keyboard key delivered to OnKeyDown and OnKeyUp.
type Key int

// Keys the renderer reacts to. Other keys are ignored.
const (
	KeyUnknown Key = iota
	// KeySpace pauses and resumes the rotation.
	KeySpace
	// KeyO toggles the stats overlay.
	KeyO
	// KeyV toggles vsync.
	KeyV
)

// Sample is the set of entry points a window event loop drives.
type Sample interface {
	// OnInit creates every device object for w.
	OnInit(w Window) error
	// OnResize applies a new client size.
	OnResize(width, height int) error
	// OnTick advances the simulation and renders one frame.
	OnTick() error
	// OnSuspend pauses ticking.
	OnSuspend()
	// OnResume resumes ticking without a time jump.
	OnResume()
	// OnDestroy waits for the GPU and releases everything.
	OnDestroy() error

	OnKeyDown(k Key)
	OnKeyUp(k Key)
	OnActivated()
	OnDeactivated()
}

var _ Sample = (*App)(nil)

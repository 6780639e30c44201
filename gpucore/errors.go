// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import "errors"

// Backend-independent errors. Backends wrap their native failures with these
// so callers can use errors.Is regardless of the implementation.
var (
	// ErrDeviceLost is returned when the device was removed or reset.
	// It is the only error the renderer recovers from.
	ErrDeviceLost = errors.New("gpucore: device lost")

	// ErrOutOfDeviceMemory is returned when a resource allocation fails.
	ErrOutOfDeviceMemory = errors.New("gpucore: out of device memory")

	// ErrUnsupported is returned when a device cannot honor a request,
	// such as a minimum feature level or a format.
	ErrUnsupported = errors.New("gpucore: unsupported")

	// ErrInvalidState is returned when a resource is used in a state the
	// operation does not allow.
	ErrInvalidState = errors.New("gpucore: invalid resource state")

	// ErrClosed is returned when an object is used after Close.
	ErrClosed = errors.New("gpucore: object closed")
)

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cube

import (
	"github.com/gogpu/cube/asset"
	"github.com/gogpu/cube/gpucore"
	"github.com/gogpu/cube/internal/adapter"
	"github.com/gogpu/cube/shader"
)

// Errors returned by the renderer. Wrapped errors match with errors.Is.
// Only ErrDeviceLost is recovered from; OnTick rebuilds the device and
// carries on, so callers see it only when the rebuild itself failed.
var (
	// ErrAdapterNotFound is returned when no adapter can create a device
	// at the required feature level.
	ErrAdapterNotFound = adapter.ErrNotFound

	// ErrDeviceLost is returned when the device was removed or reset.
	ErrDeviceLost = gpucore.ErrDeviceLost

	// ErrOutOfDeviceMemory is returned when a resource allocation fails.
	ErrOutOfDeviceMemory = gpucore.ErrOutOfDeviceMemory

	// ErrShaderCompile is returned when a shader does not compile.
	ErrShaderCompile = shader.ErrCompile

	// ErrAssetLoad is returned when the cube texture cannot be read or
	// decoded.
	ErrAssetLoad = asset.ErrLoad
)

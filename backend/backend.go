// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"

	"github.com/gogpu/cube/gpucore"
)

// Backend names.
const (
	// BackendVulkan is the wgpu hal Vulkan backend.
	BackendVulkan = "vulkan"
	// BackendNoop is the wgpu hal no-op backend. It executes nothing but
	// exercises the full native translation layer.
	BackendNoop = "noop"
	// BackendSoftware is the wgpu hal CPU rasterizer. Its adapter reports
	// itself as a software adapter.
	BackendSoftware = "software"
	// BackendSim is the in-process simulated GPU.
	BackendSim = "sim"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// FactoryFunc opens a gpucore.Factory. debug enables validation layers
// where the backend has them.
type FactoryFunc func(debug bool) (gpucore.Factory, error)

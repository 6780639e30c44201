// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package backend is the registry of gpucore implementations.
//
// Backend packages register a factory from init(); importing one for side
// effects makes it available:
//
//	import _ "github.com/gogpu/cube/backend/sim"
//
//	factory, err := backend.Open("", false) // first backend that opens
//
// Priority: vulkan, sim, software, noop.
package backend

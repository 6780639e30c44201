// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpucore defines the explicit-synchronization GPU abstraction the
// renderer is written against.
//
// The model follows low-level APIs where the application owns every hazard:
// command lists are recorded into allocators, submitted to a single queue,
// and tracked with a monotonic fence. Nothing in this package waits
// implicitly. The caller decides when an allocator may be reset, when a
// staging buffer may be released and when a back buffer may be resized.
//
// # Architecture
//
// Core packages (frame pacing, uploads, recording) depend only on the
// interfaces declared here. Thin backends translate them:
//
//	               +-----------------+
//	               |     gpucore     |
//	               |  (interfaces)   |
//	               +--------+--------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	| backend/native  |          |   backend/sim   |
//	|  (wgpu hal)     |          | (in-process GPU)|
//	+-----------------+          +-----------------+
//
// # Fences
//
// A [Fence] is a single 64-bit counter. [Queue.Signal] schedules a write of
// a value after everything submitted before it; [Fence.CompletedValue] reads
// the last value the GPU reached; [Fence.Wait] blocks until a value is
// reached. Values signaled on a fence must be strictly increasing.
//
// # Resource states
//
// Resources carry an explicit [ResourceState]. Transitions are recorded with
// [CommandList.ResourceBarrier]; backends may validate them.
package gpucore

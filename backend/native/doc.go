// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native implements gpucore on top of the gogpu/wgpu hardware
// abstraction layer.
//
// Three backends are registered on import:
//
//   - "vulkan" opens the hal Vulkan backend and renders on real GPUs.
//   - "software" opens the hal CPU rasterizer. Its single adapter is a
//     software adapter, used as the fallback when no hardware qualifies.
//   - "noop" opens the hal no-op backend. Nothing executes, but every
//     command list is translated and submitted, which makes it useful for
//     headless runs and tests.
//
// The gpucore model is explicit: resource state barriers, descriptor heaps,
// command allocators and fences. The translation keeps that model on the
// CPU side and replays it through hal at submission:
//
//   - Command lists record operations. Queue.Execute replays them into one
//     hal command encoder per list. Render passes are opened lazily at the
//     first draw after a render target change, so a clear followed by draws
//     becomes a single pass with a clear load op.
//   - Descriptor heaps are CPU tables of texture views and constant buffer
//     ranges. Bind groups are created from the bound tables at draw time
//     and cached per device.
//   - Upload buffers are CPU shadows written to the GPU with
//     queue.WriteBuffer before every submission. Readback buffers are
//     mapped and copied into a CPU shadow on Map.
//   - hal tracks completion by submission index only. A gpucore fence is a
//     CPU timeline whose signals record the newest submission index.
//   - Swap chains are rings of offscreen render targets. Present rotates the
//     ring; the image is read back by copying from the presented buffer.
//
// A wait for GPU progress that times out marks the device removed and
// reports gpucore.ErrDeviceLost, which drives the renderer's recovery path.
package native

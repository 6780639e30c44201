// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cube is a minimal real-time 3D renderer on an explicitly
// synchronized GPU API. It draws one textured, rotating cube with a stats
// overlay.
//
// # Overview
//
// The renderer keeps the CPU one frame ahead of the GPU. Each back buffer
// of the swap chain has a frame slot with its own command allocator and the
// fence value that retires its last submission. While the GPU executes frame
// N the CPU records frame N+1 into the other slot, and only blocks when it
// comes back to a slot the GPU has not finished.
//
// # Quick Start
//
//	app := cube.New(cube.WithSize(800, 600), cube.WithBackend("sim"))
//	if err := app.OnInit(window); err != nil {
//	    log.Fatal(err)
//	}
//	defer app.OnDestroy()
//
//	for running {
//	    if err := app.OnTick(); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// The window collaborator drives the remaining entry points: OnResize when
// the client area changes, OnSuspend and OnResume around minimization, and
// the key and activation hooks.
//
// # Backends
//
// Backends register themselves by import:
//
//	import _ "github.com/gogpu/cube/backend/sim"    // in-process simulated GPU
//	import _ "github.com/gogpu/cube/backend/native" // wgpu hal
//
// # Device loss
//
// A device removed during resize or present is rebuilt in place: every
// device object is released in dependency order and created again, and the
// frame loop continues on the new device. Any other error is fatal.
//
// # Logging
//
// The renderer is silent by default. See [SetLogger].
package cube

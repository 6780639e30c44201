// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cube

import (
	"log/slog"

	"github.com/gogpu/cube/internal/logging"
)

// SetLogger configures the logger for cube and all its sub-packages.
// By default, cube produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by cube:
//   - [slog.LevelDebug]: per-frame diagnostics (fence waits, adapter candidates, uploads)
//   - [slog.LevelInfo]: lifecycle events (device created, resized, rebuilt)
//   - [slog.LevelWarn]: non-fatal issues (software adapter fallback, device lost)
//   - [slog.LevelError]: a failed device rebuild, just before it is returned
//
// Example:
//
//	// Enable info-level logging to stderr:
//	cube.SetLogger(slog.Default())
//
//	// Enable debug-level logging for full diagnostics:
//	cube.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger used by cube.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}

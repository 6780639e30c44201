// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sim

import (
	"github.com/gogpu/cube/backend"
	"github.com/gogpu/cube/gpucore"
)

func init() {
	backend.Register(backend.BackendSim, func(bool) (gpucore.Factory, error) {
		return NewFactory(), nil
	})
}

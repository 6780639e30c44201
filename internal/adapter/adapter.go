// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package adapter picks the physical GPU the renderer runs on.
package adapter

import (
	"errors"
	"fmt"

	"github.com/gogpu/cube/gpucore"
	"github.com/gogpu/cube/internal/logging"
)

// ErrNotFound is returned when no hardware adapter can create a device
// at the minimum feature level.
var ErrNotFound = errors.New("adapter: no capable hardware adapter found")

// Options control selection.
type Options struct {
	// HighPerformance enumerates discrete GPUs first.
	HighPerformance bool
	// MinFeatureLevel is the lowest acceptable level.
	MinFeatureLevel gpucore.FeatureLevel
	// Debug falls back to the software adapter instead of failing.
	Debug bool
}

// Select returns the first hardware adapter that creates a device at
// opts.MinFeatureLevel, along with that device. Software adapters are
// skipped. Adapters are tried in preference order first, then in plain
// enumeration order.
func Select(f gpucore.Factory, opts Options) (gpucore.Adapter, gpucore.Device, error) {
	log := logging.Logger()
	if opts.MinFeatureLevel == 0 {
		opts.MinFeatureLevel = gpucore.FeatureLevel11_0
	}

	passes := []gpucore.GPUPreference{gpucore.PreferenceUnspecified}
	if opts.HighPerformance {
		passes = []gpucore.GPUPreference{gpucore.PreferenceHighPerformance, gpucore.PreferenceUnspecified}
	}

	var errs []error
	tried := make(map[gpucore.AdapterInfo]bool)
	for _, pref := range passes {
		adapters, err := f.Adapters(pref)
		if err != nil {
			return nil, nil, fmt.Errorf("adapter: enumerate: %w", err)
		}
		for _, a := range adapters {
			info := a.Info()
			if info.Software() {
				log.Debug("adapter: skipping software adapter", "name", info.Name)
				continue
			}
			if tried[info] {
				continue
			}
			tried[info] = true

			dev, err := a.CreateDevice(opts.MinFeatureLevel)
			if err != nil {
				log.Debug("adapter: candidate rejected", "name", info.Name, "err", err)
				errs = append(errs, err)
				continue
			}
			log.Info("adapter: selected", "name", info.Name, "kind", info.Kind.String(),
				"backend", info.Backend, "level", opts.MinFeatureLevel.String())
			return a, dev, nil
		}
	}

	if opts.Debug {
		a, err := f.SoftwareAdapter()
		if err == nil {
			var dev gpucore.Device
			if dev, err = a.CreateDevice(opts.MinFeatureLevel); err == nil {
				log.Warn("adapter: no hardware adapter, using software adapter", "name", a.Info().Name)
				return a, dev, nil
			}
		}
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil, nil, ErrNotFound
	}
	return nil, nil, fmt.Errorf("%w: %w", ErrNotFound, errors.Join(errs...))
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/gogpu/wgpu/hal/software"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/cube/backend"
	"github.com/gogpu/cube/gpucore"
	"github.com/gogpu/cube/internal/logging"
)

// ErrNoBackend is returned when the hal backend is not compiled in or has
// no driver on this machine.
var ErrNoBackend = errors.New("native: hal backend not available")

func init() {
	backend.Register(backend.BackendVulkan, func(debug bool) (gpucore.Factory, error) {
		return Open(backend.BackendVulkan, debug)
	})
	backend.Register(backend.BackendSoftware, func(debug bool) (gpucore.Factory, error) {
		return Open(backend.BackendSoftware, debug)
	})
	backend.Register(backend.BackendNoop, func(debug bool) (gpucore.Factory, error) {
		return Open(backend.BackendNoop, debug)
	})
}

// Factory enumerates the adapters of one hal instance.
type Factory struct {
	name     string
	debug    bool
	instance hal.Instance
	once     sync.Once
}

// Open creates a hal instance for the named backend: backend.BackendVulkan,
// backend.BackendSoftware or backend.BackendNoop.
func Open(name string, debug bool) (*Factory, error) {
	var (
		instance hal.Instance
		err      error
	)
	switch name {
	case backend.BackendNoop:
		instance, err = noop.API{}.CreateInstance(nil)
	case backend.BackendSoftware:
		instance, err = software.API{}.CreateInstance(nil)
	case backend.BackendVulkan:
		b, ok := hal.GetBackend(gputypes.BackendVulkan)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoBackend, name)
		}
		flags := gputypes.InstanceFlagsNone
		if debug {
			flags = gputypes.InstanceFlagsDebug | gputypes.InstanceFlagsValidation
		}
		instance, err = b.CreateInstance(&hal.InstanceDescriptor{
			Backends: gputypes.BackendsVulkan,
			Flags:    flags,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrNoBackend, name)
	}
	if err != nil {
		return nil, fmt.Errorf("native: create %s instance: %w", name, err)
	}
	logging.Logger().Debug("native: instance created", "backend", name, "debug", debug)
	return &Factory{name: name, debug: debug, instance: instance}, nil
}

// Name returns the backend name the factory was opened with.
func (f *Factory) Name() string { return f.name }

func (f *Factory) enumerate() []*Adapter {
	exposed := f.instance.EnumerateAdapters(nil)
	out := make([]*Adapter, 0, len(exposed))
	for i := range exposed {
		out = append(out, &Adapter{factory: f, exposed: exposed[i], info: f.adapterInfo(exposed[i])})
	}
	return out
}

func (f *Factory) adapterInfo(e hal.ExposedAdapter) gpucore.AdapterInfo {
	info := gpucore.AdapterInfo{
		Name:     e.Info.Name,
		Backend:  f.name,
		Kind:     adapterKind(e.Info.DeviceType),
		VendorID: e.Info.VendorID,
		DeviceID: e.Info.DeviceID,
	}
	if f.name == backend.BackendNoop {
		// The no-op device executes nothing; it stands in for hardware.
		info.Kind = gpucore.AdapterVirtual
	}
	return info
}

func adapterKind(t gputypes.DeviceType) gpucore.AdapterKind {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucore.AdapterDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucore.AdapterIntegrated
	case gputypes.DeviceTypeVirtualGPU:
		return gpucore.AdapterVirtual
	case gputypes.DeviceTypeCPU:
		return gpucore.AdapterSoftware
	default:
		return gpucore.AdapterUnknown
	}
}

// preferenceRank orders adapter kinds for a preference. Lower is better.
func preferenceRank(pref gpucore.GPUPreference, k gpucore.AdapterKind) int {
	switch pref {
	case gpucore.PreferenceHighPerformance:
		switch k {
		case gpucore.AdapterDiscrete:
			return 0
		case gpucore.AdapterIntegrated:
			return 1
		}
	case gpucore.PreferenceMinimumPower:
		switch k {
		case gpucore.AdapterIntegrated:
			return 0
		case gpucore.AdapterDiscrete:
			return 1
		}
	default:
		return 0
	}
	return 2
}

// Adapters implements gpucore.Factory.
func (f *Factory) Adapters(pref gpucore.GPUPreference) ([]gpucore.Adapter, error) {
	adapters := f.enumerate()
	sort.SliceStable(adapters, func(i, j int) bool {
		return preferenceRank(pref, adapters[i].info.Kind) < preferenceRank(pref, adapters[j].info.Kind)
	})
	out := make([]gpucore.Adapter, len(adapters))
	for i, a := range adapters {
		out[i] = a
	}
	return out, nil
}

// SoftwareAdapter implements gpucore.Factory. It returns the first CPU
// adapter the instance exposes.
func (f *Factory) SoftwareAdapter() (gpucore.Adapter, error) {
	for _, a := range f.enumerate() {
		if a.info.Software() {
			return a, nil
		}
	}
	return nil, fmt.Errorf("native: %s exposes no software adapter: %w", f.name, gpucore.ErrUnsupported)
}

// Close implements gpucore.Factory.
func (f *Factory) Close() {
	f.once.Do(func() { f.instance.Destroy() })
}

// Adapter is a hal adapter.
type Adapter struct {
	factory *Factory
	exposed hal.ExposedAdapter
	info    gpucore.AdapterInfo
}

// Info implements gpucore.Adapter.
func (a *Adapter) Info() gpucore.AdapterInfo { return a.info }

// FeatureLevel returns the level the adapter's devices support. Every
// hal adapter supports the WebGPU baseline, which covers 12_0; software
// adapters are limited to 11_0.
func (a *Adapter) FeatureLevel() gpucore.FeatureLevel {
	if a.info.Software() {
		return gpucore.FeatureLevel11_0
	}
	return gpucore.FeatureLevel12_0
}

// CreateDevice implements gpucore.Adapter.
func (a *Adapter) CreateDevice(need gpucore.FeatureLevel) (gpucore.Device, error) {
	if lvl := a.FeatureLevel(); lvl < need {
		return nil, fmt.Errorf("native: %s supports %s, need %s: %w",
			a.info.Name, lvl, need, gpucore.ErrUnsupported)
	}
	openDev, err := a.exposed.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("native: open device on %s: %w", a.info.Name, err)
	}
	d := newDevice(a.info, a.exposed.Adapter, openDev.Device, openDev.Queue)
	logging.Logger().Debug("native: device opened", "adapter", a.info.Name, "device", d.id)
	return d, nil
}

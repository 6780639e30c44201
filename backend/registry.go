// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/cube/gpucore"
	"github.com/gogpu/cube/internal/logging"
)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]FactoryFunc)
	// Priority order for backend selection (first available wins).
	// Real hardware first, then the simulator, then the hal CPU backends.
	backendPriority = []string{BackendVulkan, BackendSim, BackendSoftware, BackendNoop}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory FactoryFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get returns the factory registered under name, or nil.
func Get(name string) FactoryFunc {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return backends[name]
}

// Default returns the name of the best registered backend based on
// priority, or "" when none is registered.
func Default() string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range backendPriority {
		if _, ok := backends[name]; ok {
			return name
		}
	}
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return names[0]
}

// Open opens the named backend. An empty name tries the registered
// backends in priority order and returns the first that opens.
func Open(name string, debug bool) (gpucore.Factory, error) {
	if name != "" {
		return open(name, debug)
	}
	candidates := ordered()
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: none registered", ErrBackendNotAvailable)
	}
	var errs []error
	for _, n := range candidates {
		f, err := open(n, debug)
		if err == nil {
			return f, nil
		}
		logging.Logger().Debug("backend: skipped", "backend", n, "err", err)
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

func open(name string, debug bool) (gpucore.Factory, error) {
	f := Get(name)
	if f == nil {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrBackendNotAvailable, name, Available())
	}
	factory, err := f(debug)
	if err != nil {
		return nil, fmt.Errorf("backend: open %q: %w", name, err)
	}
	return factory, nil
}

// ordered returns the registered names: prioritized backends first, the
// rest sorted.
func ordered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	seen := make(map[string]bool, len(backendPriority))
	for _, name := range backendPriority {
		if _, ok := backends[name]; ok {
			names = append(names, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(backends))
	for name := range backends {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

package backend

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/texres"
	"github.com/gogpu/texres/gpucore"
)

// Factory opens a device on a backend.
type Factory func() (gpucore.Device, error)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first available wins).
	backendPriority = []string{BackendVulkan, BackendWGPU}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
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

// Available returns the sorted names of registered backends.
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

// Open opens a device on the named backend.
func Open(name string) (gpucore.Device, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	dev, err := factory()
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", name, err)
	}
	return dev, nil
}

// order returns registered names, prioritized ones first.
func order() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	seen := make(map[string]bool, len(backends))
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

// Default opens a device on the best available backend.
// Priority order: vulkan > wgpu > others by name.
// The name of the backend that succeeded is returned with the device.
func Default() (gpucore.Device, string, error) {
	names := order()
	if len(names) == 0 {
		return nil, "", ErrBackendNotAvailable
	}
	var errs []error
	for _, name := range names {
		dev, err := Open(name)
		if err == nil {
			texres.Logger().Info("texres: backend selected", "backend", name)
			return dev, name, nil
		}
		texres.Logger().Debug("texres: backend unavailable", "backend", name, "err", err)
		errs = append(errs, err)
	}
	return nil, "", fmt.Errorf("%w: %w", ErrBackendNotAvailable, errors.Join(errs...))
}

// MustDefault returns a device on the default backend or panics.
func MustDefault() gpucore.Device {
	dev, _, err := Default()
	if err != nil {
		panic(err)
	}
	return dev
}

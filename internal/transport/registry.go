package transport

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a transport from target options. The option keys are
// kind-specific (e.g. "key_file" for ssh).
type Factory func(options map[string]string) (Transport, error)

// registry holds all registered transport kinds.
var (
	registry   = make(map[string]Factory)
	registryMu sync.RWMutex
)

// Register adds a transport kind to the registry.
// It panics if the kind is already registered.
func Register(kind string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[kind]; exists {
		panic(fmt.Sprintf("transport kind %q is already registered", kind))
	}
	registry[kind] = factory
}

// New builds a transport of the given kind.
func New(kind string, options map[string]string) (Transport, error) {
	registryMu.RLock()
	factory, ok := registry[kind]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown transport kind %q (available: %v)", kind, Kinds())
	}
	return factory(options)
}

// Known reports whether a transport kind is registered.
func Known(kind string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[kind]
	return ok
}

// Kinds returns the registered transport kinds, sorted.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	kinds := make([]string, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

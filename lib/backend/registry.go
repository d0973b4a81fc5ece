package backend

import (
	"fmt"
	"sort"
	"sync"
)

// --------------------------------------------------------------------------
// Backend Registry
// --------------------------------------------------------------------------

// Factory creates a new, not yet connected backend instance.
type Factory func() IBackend

var (
	registryMu sync.RWMutex
	registry   = map[Implementation]Factory{}
)

// Register makes a backend implementation available under its product name.
// Engines call this from their package init; selection later is a pure map
// lookup, there is no dynamic library loading involved.
func Register(impl Implementation, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[impl]; exists {
		panic(fmt.Sprintf("backend %q registered twice", impl))
	}
	registry[impl] = factory
}

// New creates and connects a backend selected by product name. An
// unrecognized name is a fatal configuration error, never a silent default.
func New(impl Implementation, cfg *Config) (IBackend, error) {
	registryMu.RLock()
	factory, ok := registry[impl]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown backend %q (registered: %v)", impl, Registered())
	}

	b := factory()
	if err := b.Connect(cfg); err != nil {
		return nil, err
	}
	return b, nil
}

// Registered returns the product names of all registered backends.
func Registered() []Implementation {
	registryMu.RLock()
	defer registryMu.RUnlock()

	impls := make([]Implementation, 0, len(registry))
	for impl := range registry {
		impls = append(impls, impl)
	}
	sort.Slice(impls, func(i, j int) bool { return impls[i] < impls[j] })
	return impls
}

package impl

import (
	"fmt"
	"sort"
	"sync"
)

// Config contains configuration needed to initialize an implementation.
type Config struct {
	// Name is the configured implementation name (e.g., "local-reference").
	Name string

	// Type is the registered implementation type (e.g., "reference", "unicast").
	Type string

	// MaxSubscribers overrides the declared subscriber capacity when > 0.
	MaxSubscribers int64
}

// Factory is a function that creates a new implementation instance.
type Factory func(cfg Config) (Implementation, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register registers an implementation factory for the given type.
// This should be called during package init. Registering the same type twice
// panics.
func Register(implType string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[implType]; exists {
		panic(fmt.Sprintf("implementation type %q already registered", implType))
	}
	registry[implType] = factory
}

// Get returns a new implementation instance for the given configuration.
// Returns an error if the implementation type is not registered.
func Get(cfg Config) (Implementation, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown implementation type: %s", cfg.Type)
	}

	im, err := factory(cfg)
	if err != nil {
		return nil, err
	}
	if im != nil && cfg.MaxSubscribers > 0 {
		im = Limit(im, cfg.MaxSubscribers)
	}
	return im, nil
}

// RegisteredTypes returns a sorted list of all registered implementation types.
func RegisteredTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

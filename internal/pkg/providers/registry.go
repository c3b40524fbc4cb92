// Package providers holds the adapter registry and the four adapter-shape
// sub-packages (flatplatform, structured, compact, browser).
package providers

import (
	"fmt"
	"sync"

	"github.com/kestrelodds/arbiter/internal/pkg/interfaces"
)

// Factory builds an adapter from its static configuration block.
type Factory func(cfg any) (interfaces.Adapter, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds a named adapter factory. Panics on a duplicate or nil
// registration — a startup-time programmer error, not a runtime condition.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if f == nil {
		panic("providers: nil factory for " + name)
	}
	if _, exists := factories[name]; exists {
		panic("providers: duplicate registration for " + name)
	}
	factories[name] = f
}

// FactoryByName looks up a registered factory.
func FactoryByName(name string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// MustFactoryByName panics if name isn't registered.
func MustFactoryByName(name string) Factory {
	f, ok := FactoryByName(name)
	if !ok {
		panic(fmt.Sprintf("providers: no factory registered for %q", name))
	}
	return f
}

// AvailableNames returns every registered adapter name.
func AvailableNames() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

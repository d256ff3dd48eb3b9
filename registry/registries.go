package registry

import (
	"sync"
)

// defaultName identifies the process-wide default registry.
const defaultName = "__default__"

var (
	registriesMu sync.Mutex
	registries   = make(map[string]*Registry)
)

// Default returns the process-wide default registry, creating it on first
// use. Most applications only ever need this one.
func Default() *Registry {
	return Named(defaultName)
}

// Named returns the registry with the given name, creating it if necessary.
// Separate registries are mainly useful in tests.
func Named(name string) *Registry {
	registriesMu.Lock()
	defer registriesMu.Unlock()
	r, ok := registries[name]
	if !ok {
		r = New()
		registries[name] = r
	}
	return r
}

// Delete drops the named registry, if it exists. A later Named call creates
// a fresh one.
func Delete(name string) {
	registriesMu.Lock()
	defer registriesMu.Unlock()
	delete(registries, name)
}

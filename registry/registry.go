// Package registry provides a component registry: a typed place to stash
// process-wide utilities (connection pools, clients) that is more
// disciplined than module globals and keeps them out of the settings.
//
// Components are registered under their type plus an optional name, so two
// LDAP connections can coexist:
//
//	r := registry.Default()
//	registry.Add(r, "default", oitConn)
//	registry.Add(r, "ad", adConn)
//
//	conn, ok := registry.Get[*ldap.Conn](r, "ad")
//
// Getting an interface type finds a registered concrete component that
// implements it. Factories registered with AddFactory are invoked once, on
// first retrieval.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	// ErrComponentExists is returned by AddStrict when the key is taken.
	ErrComponentExists = errors.New("component exists")

	// ErrComponentDoesNotExist is returned by RemoveStrict for unknown keys.
	ErrComponentDoesNotExist = errors.New("component does not exist")
)

type key struct {
	typ  reflect.Type
	name string
}

func (k key) String() string {
	return fmt.Sprintf("(%s, %q)", k.typ, k.name)
}

type entry struct {
	value   interface{}
	factory func() interface{}
	once    sync.Once
}

// Registry is a thread-safe component registry keyed by (type, name).
// The zero value is not usable; create instances with New, Default or Named.
type Registry struct {
	mu         sync.Mutex
	components map[key]*entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{components: make(map[key]*entry)}
}

// Add registers a component under its type and name. If a component is
// already registered with that key it does nothing and returns false.
func Add[T any](r *Registry, name string, component T) bool {
	return r.add(typeOf[T](), name, &entry{value: component}) == nil
}

// AddStrict is Add that returns ErrComponentExists instead of reporting a
// duplicate key silently.
func AddStrict[T any](r *Registry, name string, component T) error {
	return r.add(typeOf[T](), name, &entry{value: component})
}

// AddFactory registers a lazily constructed component. The factory runs at
// most once, on the first Get that retrieves the key.
func AddFactory[T any](r *Registry, name string, factory func() T) bool {
	return r.add(typeOf[T](), name, &entry{factory: func() interface{} { return factory() }}) == nil
}

// Get retrieves the component registered under (T, name). When T is an
// interface and nothing is registered under it directly, a registered
// concrete component with the same name that implements T is returned.
func Get[T any](r *Registry, name string) (T, bool) {
	var zero T
	v, ok := r.get(typeOf[T](), name)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// MustGet is Get that panics when the component is missing. For components
// the application cannot run without.
func MustGet[T any](r *Registry, name string) T {
	v, ok := Get[T](r, name)
	if !ok {
		panic(fmt.Sprintf("registry: no component %v", key{typ: typeOf[T](), name: name}))
	}
	return v
}

// Has reports whether a component is registered under (T, name), including
// interface satisfaction like Get.
func Has[T any](r *Registry, name string) bool {
	_, ok := r.get(typeOf[T](), name)
	return ok
}

// Remove unregisters (T, name) if present, reporting whether it did.
// To replace a component, remove it and add the new one.
func Remove[T any](r *Registry, name string) bool {
	return r.remove(typeOf[T](), name) == nil
}

// RemoveStrict is Remove that returns ErrComponentDoesNotExist for unknown
// keys.
func RemoveStrict[T any](r *Registry, name string) error {
	return r.remove(typeOf[T](), name)
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.components)
}

func (r *Registry) add(t reflect.Type, name string, e *entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{typ: t, name: name}
	if _, exists := r.components[k]; exists {
		return fmt.Errorf("%v: %w", k, ErrComponentExists)
	}
	r.components[k] = e
	return nil
}

func (r *Registry) remove(t reflect.Type, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{typ: t, name: name}
	if _, exists := r.components[k]; !exists {
		return fmt.Errorf("%v: %w", k, ErrComponentDoesNotExist)
	}
	delete(r.components, k)
	return nil
}

func (r *Registry) get(t reflect.Type, name string) (interface{}, bool) {
	r.mu.Lock()
	e, ok := r.components[key{typ: t, name: name}]
	if !ok && t.Kind() == reflect.Interface {
		// Fall back to a concrete component implementing the interface.
		for k, candidate := range r.components {
			if k.name == name && k.typ.Implements(t) {
				e, ok = candidate, true
				break
			}
		}
	}
	r.mu.Unlock()
	if !ok {
		return nil, false
	}

	e.once.Do(func() {
		if e.factory != nil {
			e.value = e.factory()
			e.factory = nil
		}
	})
	return e.value, true
}

// typeOf returns the reflect.Type for T, including interface types.
func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

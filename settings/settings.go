package settings

import (
	"errors"
	"fmt"
	"time"

	"github.com/knadh/koanf/v2"
)

// Settings is the merged, interpolated configuration for one profile. It is
// immutable: loaded once at startup and never mutated (use Watcher to swap in
// a freshly loaded instance on file changes).
type Settings struct {
	k         *koanf.Koanf
	raw       map[string]interface{}
	profile   string
	sources   []string
	startTime time.Time
}

// Get returns the setting at a dotted path. Mappings are traversed by key,
// lists by integer segment. Returns ErrNotFound for missing settings and
// ErrNotTraversable when the path descends into a scalar.
func (s *Settings) Get(key string) (interface{}, error) {
	return traverse(s.raw, key)
}

// GetDefault is Get with a fallback for missing settings. Traversal errors
// are still reported: they indicate the settings are being accessed
// incorrectly, not that the setting is absent.
func (s *Settings) GetDefault(key string, fallback interface{}) (interface{}, error) {
	v, err := traverse(s.raw, key)
	if err == nil {
		return v, nil
	}
	if isNotFound(err) {
		return fallback, nil
	}
	return nil, err
}

// MustGet is Get that panics on error. For settings the application cannot
// start without.
func (s *Settings) MustGet(key string) interface{} {
	v, err := s.Get(key)
	if err != nil {
		panic(fmt.Sprintf("settings: %v", err))
	}
	return v
}

// Exists reports whether a setting exists at the dotted path.
func (s *Settings) Exists(key string) bool {
	_, err := traverse(s.raw, key)
	return err == nil
}

// String returns a string setting.
func (s *Settings) String(key string) (string, error) {
	v, err := s.Get(key)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", typeError(key, v, "string")
	}
	return str, nil
}

// Bool returns a boolean setting.
func (s *Settings) Bool(key string) (bool, error) {
	v, err := s.Get(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, typeError(key, v, "bool")
	}
	return b, nil
}

// Int returns an integer setting. JSON numbers are float64 after parsing;
// integral floats convert, anything fractional is a type error.
func (s *Settings) Int(key string) (int, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, typeError(key, v, "integer")
}

// Float64 returns a numeric setting.
func (s *Settings) Float64(key string) (float64, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, typeError(key, v, "number")
}

// Duration returns a duration setting written as a Go duration string
// (e.g. "30s", "5m").
func (s *Settings) Duration(key string) (time.Duration, error) {
	str, err := s.String(key)
	if err != nil {
		return 0, err
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return 0, fmt.Errorf("setting %q: %w", key, err)
	}
	return d, nil
}

// Strings returns a list setting whose elements are all strings, preserving
// order (INSTALLED_APPS, MIDDLEWARE_CLASSES, ALLOWED_HOSTS).
func (s *Settings) Strings(key string) ([]string, error) {
	v, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, typeError(key, v, "list")
	}
	out := make([]string, len(list))
	for i, item := range list {
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("setting %q: element %d is %T, not string", key, i, item)
		}
		out[i] = str
	}
	return out, nil
}

// Map returns a nested mapping setting (DATABASES.default, LOGGING).
func (s *Settings) Map(key string) (map[string]interface{}, error) {
	v, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	m, ok := toStringMap(v)
	if !ok {
		return nil, typeError(key, v, "mapping")
	}
	return m, nil
}

// Unmarshal decodes the subtree at a dotted path into a struct using koanf.
// An empty path decodes the whole mapping.
func (s *Settings) Unmarshal(path string, o interface{}) error {
	return s.k.Unmarshal(path, o)
}

// Raw returns the merged nested mapping. Callers must not mutate it.
func (s *Settings) Raw() map[string]interface{} {
	return s.raw
}

// All returns the merged mapping flattened to dotted keys.
func (s *Settings) All() map[string]interface{} {
	return s.k.All()
}

// Prefixed returns an accessor scoped to a prefix with its own defaults.
func (s *Settings) Prefixed(prefix string, defaults map[string]interface{}) *Prefixed {
	return &Prefixed{settings: s, prefix: prefix, defaults: defaults}
}

// Profile returns the environment profile the settings were loaded for.
func (s *Settings) Profile() string { return s.profile }

// Sources returns the document chain that produced the settings, base first.
func (s *Settings) Sources() []string {
	out := make([]string, len(s.sources))
	copy(out, s.sources)
	return out
}

// StartTime returns the load time (the START_TIME setting).
func (s *Settings) StartTime() time.Time { return s.startTime }

// Package returns the PACKAGE setting, empty if unset.
func (s *Settings) Package() string {
	v, _ := s.GetDefault("PACKAGE", "")
	str, _ := v.(string)
	return str
}

// RootDir returns the ROOT_DIR setting, empty if unset.
func (s *Settings) RootDir() string {
	v, _ := s.GetDefault("ROOT_DIR", "")
	str, _ := v.(string)
	return str
}

// Debug returns the DEBUG setting, false if unset.
func (s *Settings) Debug() bool {
	v, _ := s.GetDefault("DEBUG", false)
	b, _ := v.(bool)
	return b
}

func typeError(key string, v interface{}, want string) error {
	return fmt.Errorf("setting %q is %T, not %s", key, v, want)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

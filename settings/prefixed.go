package settings

import (
	"fmt"
)

// Prefixed resolves settings under a fixed prefix with package-supplied
// defaults, so a package owning e.g. the LDAP settings can do:
//
//	ldap := s.Prefixed("LDAP.default", map[string]interface{}{
//	    "port":    636,
//	    "use_ssl": true,
//	})
//	host, err := ldap.String("host")
//
// Lookup order: the live settings under the prefix, then the defaults
// mapping, then the explicit fallback passed to GetDefault.
type Prefixed struct {
	settings *Settings
	prefix   string
	defaults map[string]interface{}
}

// Prefix returns the dotted prefix the accessor is scoped to.
func (p *Prefixed) Prefix() string { return p.prefix }

// Get resolves key under the prefix, falling back to the defaults mapping.
func (p *Prefixed) Get(key string) (interface{}, error) {
	qualified := p.prefix + "." + key
	v, err := p.settings.Get(qualified)
	if err == nil {
		return v, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	if p.defaults != nil {
		if v, derr := traverse(p.defaults, key); derr == nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", qualified, ErrNotFound)
}

// GetDefault is Get with an explicit fallback used when neither the settings
// nor the defaults mapping have the key.
func (p *Prefixed) GetDefault(key string, fallback interface{}) (interface{}, error) {
	v, err := p.Get(key)
	if err == nil {
		return v, nil
	}
	if isNotFound(err) {
		return fallback, nil
	}
	return nil, err
}

// String returns a string setting under the prefix.
func (p *Prefixed) String(key string) (string, error) {
	v, err := p.Get(key)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", typeError(p.prefix+"."+key, v, "string")
	}
	return str, nil
}

// Bool returns a boolean setting under the prefix.
func (p *Prefixed) Bool(key string) (bool, error) {
	v, err := p.Get(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, typeError(p.prefix+"."+key, v, "bool")
	}
	return b, nil
}

// Int returns an integer setting under the prefix.
func (p *Prefixed) Int(key string) (int, error) {
	v, err := p.Get(key)
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
	return 0, typeError(p.prefix+"."+key, v, "integer")
}

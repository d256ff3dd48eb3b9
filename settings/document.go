package settings

import (
	"fmt"
	"sort"
)

// DefaultProfile is the baseline profile every other profile overlays.
const DefaultProfile = "DEFAULT"

// extendsKey is the reserved top-level key naming a base document.
const extendsKey = "extends"

// Document is a parsed settings document: named profiles of nested settings,
// plus an optional reference to a base document it extends.
type Document struct {
	// Path is the file the document was read from, empty for in-memory
	// documents.
	Path string

	// Extends is the path of the base document, relative to Path's directory.
	// Empty when the document stands alone.
	Extends string

	// profiles maps profile name to its (nested) settings.
	profiles map[string]map[string]interface{}
}

// newDocument builds a Document from the raw top-level mapping produced by a
// parser: every key except "extends" must name a profile whose value is a
// mapping.
func newDocument(raw map[string]interface{}) (*Document, error) {
	doc := &Document{profiles: make(map[string]map[string]interface{}, len(raw))}
	for name, value := range raw {
		if name == extendsKey {
			base, ok := value.(string)
			if !ok {
				return nil, parseErrorf(0, "extends must be a string path, got %T", value)
			}
			doc.Extends = base
			continue
		}
		profile, ok := toStringMap(value)
		if !ok {
			return nil, parseErrorf(0, "profile %q must be a mapping, got %T", name, value)
		}
		doc.profiles[name] = profile
	}
	return doc, nil
}

// Profiles returns the declared profile names, DEFAULT first, the rest sorted.
func (d *Document) Profiles() []string {
	names := make([]string, 0, len(d.profiles))
	for name := range d.profiles {
		if name == DefaultProfile {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if _, ok := d.profiles[DefaultProfile]; ok {
		names = append([]string{DefaultProfile}, names...)
	}
	return names
}

// Profile returns the named profile's settings, or nil if not declared.
func (d *Document) Profile(name string) map[string]interface{} {
	return d.profiles[name]
}

// HasProfile reports whether the document declares the named profile.
func (d *Document) HasProfile(name string) bool {
	_, ok := d.profiles[name]
	return ok
}

// toStringMap normalizes a parsed mapping to map[string]interface{}. YAML
// parsers may produce map[interface{}]interface{} for nested mappings.
func toStringMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[fmt.Sprintf("%v", k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

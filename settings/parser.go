package settings

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Parser parses the native profile document format: an INI-like file with
// bracketed profile headers and dotted-key assignments.
//
//	extends = "base.settings"
//
//	[DEFAULT]
//	DEBUG = false
//	DATABASES.default.ENGINE = "postgresql"
//	INSTALLED_APPS = ["admin", "auth", "sessions"]
//
//	[dev]
//	DEBUG = true
//
// Values are JSON literals; a value that is not valid JSON is taken as a bare
// string. Keys before the first header belong to DEFAULT, except the reserved
// "extends" key. Comment lines start with ';' or '#'.
//
// Parser implements koanf.Parser, so documents can be loaded through any
// koanf provider. The top-level keys of the unmarshaled map are profile names
// (plus "extends" when present).
type Parser struct{}

// NewParser returns a parser for the native profile document format.
func NewParser() *Parser {
	return &Parser{}
}

var (
	headerRe = regexp.MustCompile(`^\[([A-Za-z0-9_][A-Za-z0-9_.-]*)\]$`)
	keyRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*(\.[A-Za-z0-9_-]+)*$`)
)

// Unmarshal parses document bytes into a map of profile name to nested
// settings. Returns *ParseError on malformed input.
func (p *Parser) Unmarshal(b []byte) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	profile := DefaultProfile
	inPreamble := true

	// Dotted keys seen per profile, to enforce uniqueness within a profile.
	seen := make(map[string]map[string]bool)

	scanner := bufio.NewScanner(bytes.NewReader(b))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			m := headerRe.FindStringSubmatch(line)
			if m == nil {
				return nil, parseErrorf(lineNo, "malformed profile header %q", line)
			}
			profile = m[1]
			inPreamble = false
			continue
		}

		eq := strings.Index(line, "=")
		if eq < 0 {
			return nil, parseErrorf(lineNo, "expected 'key = value', got %q", line)
		}
		key := strings.TrimSpace(line[:eq])
		rawValue := strings.TrimSpace(line[eq+1:])

		if inPreamble && key == extendsKey {
			if _, dup := out[extendsKey]; dup {
				return nil, parseErrorf(lineNo, "duplicate extends declaration")
			}
			base, ok := parseValue(rawValue).(string)
			if !ok {
				return nil, parseErrorf(lineNo, "extends must be a string path")
			}
			out[extendsKey] = base
			continue
		}

		if !keyRe.MatchString(key) {
			return nil, parseErrorf(lineNo, "invalid setting key %q", key)
		}
		if seen[profile] == nil {
			seen[profile] = make(map[string]bool)
		}
		if seen[profile][key] {
			return nil, parseErrorf(lineNo, "duplicate key %q in profile %q", key, profile)
		}
		seen[profile][key] = true

		target, ok := out[profile].(map[string]interface{})
		if !ok {
			target = make(map[string]interface{})
			out[profile] = target
		}
		if err := setNested(target, strings.Split(key, "."), parseValue(rawValue)); err != nil {
			return nil, parseErrorf(lineNo, "key %q in profile %q: %v", key, profile, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return out, nil
}

// Marshal writes a top-level profile mapping back out as a canonical
// document: extends first, DEFAULT before the remaining profiles in sorted
// order, dotted keys sorted, values JSON-encoded.
func (p *Parser) Marshal(m map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	if base, ok := m[extendsKey].(string); ok && base != "" {
		fmt.Fprintf(w, "extends = %q\n\n", base)
	}

	names := make([]string, 0, len(m))
	for name := range m {
		if name == extendsKey {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if i := indexOf(names, DefaultProfile); i > 0 {
		names = append([]string{DefaultProfile}, append(names[:i], names[i+1:]...)...)
	}

	for i, name := range names {
		profile, ok := toStringMap(m[name])
		if !ok {
			return nil, fmt.Errorf("profile %q is not a mapping", name)
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "[%s]\n", name)
		flat := flattenKeys(profile, "")
		keys := make([]string, 0, len(flat))
		for k := range flat {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			encoded, err := json.Marshal(flat[k])
			if err != nil {
				return nil, fmt.Errorf("encoding %s.%s: %w", name, k, err)
			}
			fmt.Fprintf(w, "%s = %s\n", k, encoded)
		}
	}
	w.Flush()
	return buf.Bytes(), nil
}

// parseValue interprets a raw value as a JSON literal, falling back to a bare
// string when the bytes are not valid JSON.
func parseValue(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

// setNested assigns value at the dotted path given by segments, creating
// intermediate maps. Descending into or replacing a non-map is an error.
func setNested(m map[string]interface{}, segments []string, value interface{}) error {
	for i, seg := range segments[:len(segments)-1] {
		child, exists := m[seg]
		if !exists {
			next := make(map[string]interface{})
			m[seg] = next
			m = next
			continue
		}
		childMap, ok := child.(map[string]interface{})
		if !ok {
			return fmt.Errorf("segment %q conflicts with non-mapping value", strings.Join(segments[:i+1], "."))
		}
		m = childMap
	}
	last := segments[len(segments)-1]
	if existing, exists := m[last]; exists {
		if _, isMap := existing.(map[string]interface{}); isMap {
			return fmt.Errorf("conflicts with nested keys under %q", last)
		}
	}
	m[last] = value
	return nil
}

// flattenKeys converts nested maps to a dotted-key mapping. Lists stay
// intact as values.
func flattenKeys(m map[string]interface{}, prefix string) map[string]interface{} {
	out := make(map[string]interface{})
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := toStringMap(v); ok && len(child) > 0 {
			for ck, cv := range flattenKeys(child, key) {
				out[ck] = cv
			}
			continue
		}
		out[key] = v
	}
	return out
}

func indexOf(ss []string, want string) int {
	for i, s := range ss {
		if s == want {
			return i
		}
	}
	return -1
}

package settings

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// placeholderRe matches the names allowed inside {NAME} tokens. Anything else
// between braces is left alone, so JSON-ish or printf-ish string values don't
// trip the interpolator.
var placeholderRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// interpolator substitutes {NAME} placeholders across a merged settings
// mapping. Names resolve against the mapping itself by dotted path (loader
// context values are ordinary settings at this point). Resolution is
// recursive with memoization; reference cycles are reported as errors.
type interpolator struct {
	root      map[string]interface{}
	memo      map[string]interface{}
	resolving []string
}

// interpolate returns a copy of root with every placeholder substituted.
func interpolate(root map[string]interface{}) (map[string]interface{}, error) {
	in := &interpolator{
		root: root,
		memo: make(map[string]interface{}),
	}
	out, err := in.resolveMap(root, "")
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (in *interpolator) resolveValue(v interface{}, site string) (interface{}, error) {
	switch node := v.(type) {
	case string:
		return in.expand(node, site)
	case map[string]interface{}:
		return in.resolveMap(node, site)
	case map[interface{}]interface{}:
		m, _ := toStringMap(node)
		return in.resolveMap(m, site)
	case []interface{}:
		out := make([]interface{}, len(node))
		for i, item := range node {
			resolved, err := in.resolveValue(item, fmt.Sprintf("%s.%d", site, i))
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

func (in *interpolator) resolveMap(m map[string]interface{}, site string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		childSite := k
		if site != "" {
			childSite = site + "." + k
		}
		resolved, err := in.resolveValue(v, childSite)
		if err != nil {
			return nil, err
		}
		out[k] = resolved
	}
	return out, nil
}

// expand substitutes placeholders in a single string. A value that is exactly
// one placeholder adopts the referenced value's type; otherwise non-string
// values are spliced in using their JSON rendering. "{{" and "}}" escape
// literal braces.
func (in *interpolator) expand(s, site string) (interface{}, error) {
	if !strings.Contains(s, "{") && !strings.Contains(s, "}") {
		return s, nil
	}

	var b strings.Builder
	literalLen := 0
	var only interface{}
	placeholders := 0

	flush := func(v interface{}) {
		b.WriteString(stringify(v))
	}

	i := 0
	for i < len(s) {
		switch {
		case strings.HasPrefix(s[i:], "{{"):
			b.WriteByte('{')
			literalLen++
			i += 2
		case strings.HasPrefix(s[i:], "}}"):
			b.WriteByte('}')
			literalLen++
			i += 2
		case s[i] == '{':
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				b.WriteString(s[i:])
				literalLen += len(s) - i
				i = len(s)
				continue
			}
			name := s[i+1 : i+1+end]
			if !placeholderRe.MatchString(name) {
				b.WriteString(s[i : i+end+2])
				literalLen += end + 2
				i += end + 2
				continue
			}
			value, err := in.lookup(name, site)
			if err != nil {
				return nil, err
			}
			placeholders++
			only = value
			flush(value)
			i += end + 2
		default:
			b.WriteByte(s[i])
			literalLen++
			i++
		}
	}

	if placeholders == 1 && literalLen == 0 {
		return only, nil
	}
	return b.String(), nil
}

// lookup resolves a placeholder name to its (fully interpolated) value.
func (in *interpolator) lookup(name, site string) (interface{}, error) {
	if v, ok := in.memo[name]; ok {
		return v, nil
	}
	for _, active := range in.resolving {
		if active == name {
			return nil, &PlaceholderCycleError{Names: append(append([]string{}, in.resolving...), name)}
		}
	}

	raw, err := traverse(in.root, name)
	if err != nil {
		return nil, &PlaceholderError{Name: name, Key: site}
	}

	in.resolving = append(in.resolving, name)
	resolved, err := in.resolveValue(raw, name)
	in.resolving = in.resolving[:len(in.resolving)-1]
	if err != nil {
		return nil, err
	}
	in.memo[name] = resolved
	return resolved, nil
}

// stringify renders a value for splicing into a larger string. Strings are
// used as-is; everything else gets its JSON rendering.
func stringify(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(encoded)
}

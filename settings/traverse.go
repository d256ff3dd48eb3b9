package settings

import (
	"fmt"
	"strconv"
	"strings"
)

// traverse walks a nested settings mapping along a dotted path: mappings are
// indexed by key, lists by integer segment (e.g. "ALLOWED_HOSTS.0").
//
// A missing key or out-of-range index yields ErrNotFound. Descending into a
// scalar, or using a non-integer segment on a list, yields ErrNotTraversable:
// that means an existing setting is being accessed incorrectly, so it is
// never masked by a default.
func traverse(root map[string]interface{}, key string) (interface{}, error) {
	if key == "" {
		return nil, fmt.Errorf("empty key: %w", ErrNotFound)
	}
	segments := strings.Split(key, ".")
	var current interface{} = root
	for i, seg := range segments {
		switch node := current.(type) {
		case map[string]interface{}:
			v, ok := node[seg]
			if !ok {
				return nil, fmt.Errorf("%q: %w", key, ErrNotFound)
			}
			current = v
		case map[interface{}]interface{}:
			v, ok := node[seg]
			if !ok {
				return nil, fmt.Errorf("%q: %w", key, ErrNotFound)
			}
			current = v
		case []interface{}:
			index, err := strconv.Atoi(seg)
			if err != nil {
				return nil, fmt.Errorf("%q: list index %q is not an integer: %w", key, seg, ErrNotTraversable)
			}
			if index < 0 || index >= len(node) {
				return nil, fmt.Errorf("%q: index %d out of range: %w", key, index, ErrNotFound)
			}
			current = node[index]
		default:
			return nil, fmt.Errorf("%q: cannot traverse into %T at %q: %w",
				key, current, strings.Join(segments[:i], "."), ErrNotTraversable)
		}
	}
	return current, nil
}

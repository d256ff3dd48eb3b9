package settings

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a setting does not exist at the requested path.
	ErrNotFound = errors.New("setting not found")

	// ErrNotTraversable indicates a dotted path descends into a value that is
	// neither a mapping nor a list. This is reported even when a default is
	// supplied, because it means an existing setting is being accessed
	// incorrectly.
	ErrNotTraversable = errors.New("setting is not traversable")

	// ErrUnknownProfile indicates the selected profile is not declared by any
	// document in the extends chain.
	ErrUnknownProfile = errors.New("unknown profile")

	// ErrExtendsCycle indicates a document chain extends itself.
	ErrExtendsCycle = errors.New("extends cycle")
)

// ParseError describes a syntax or structure error in a settings document.
type ParseError struct {
	Line int    // 1-based line number, 0 if not line-scoped
	Msg  string // description of the problem
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

func parseErrorf(line int, format string, args ...interface{}) *ParseError {
	return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// PlaceholderError describes a {NAME} placeholder that could not be
// substituted.
type PlaceholderError struct {
	Name string // placeholder name, e.g. "PACKAGE" or "DATABASES.default.HOST"
	Key  string // dotted path of the setting containing the placeholder
}

func (e *PlaceholderError) Error() string {
	return fmt.Sprintf("setting %q references %q which has no value", e.Key, e.Name)
}

// PlaceholderCycleError describes placeholders that reference each other.
type PlaceholderCycleError struct {
	Names []string // resolution path, first element repeated at the point of the cycle
}

func (e *PlaceholderCycleError) Error() string {
	return fmt.Sprintf("placeholder cycle: %v", e.Names)
}

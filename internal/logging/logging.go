// Package logging provides structured logging for the layered library and
// CLI, backed by zerolog. Components obtain named loggers via GetLogger; the
// level is set once at startup with Initialize.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	output io.Writer = os.Stderr
	level            = zerolog.InfoLevel
)

// Initialize sets the global log level. Valid levels: trace, debug, info,
// warn, error, fatal. Called once at startup; loggers created afterwards
// honor the level.
func Initialize(levelStr string) error {
	parsed, err := zerolog.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		return fmt.Errorf("invalid log level %q (must be one of: trace, debug, info, warn, error, fatal)", levelStr)
	}
	mu.Lock()
	defer mu.Unlock()
	level = parsed
	return nil
}

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// GetLogger returns a logger annotated with the component name.
func GetLogger(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

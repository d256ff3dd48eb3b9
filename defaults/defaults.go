// Package defaults ships the organization's layered default settings for web
// applications: cascading environment profiles (dev, test, stage, prod) for
// database connections, logging, static and media paths, middleware stacks,
// installed application lists, and authentication defaults.
//
// The document is embedded; load it directly:
//
//	s, err := defaults.Load(defaults.Prod, settings.Options{
//	    Context: settings.Context{Package: "quickticket", RootDir: "/srv/quickticket"},
//	})
//
// or write it to disk with Write so a project document can extend it.
package defaults

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmolner/layered/settings"
)

// The environment profiles the document declares.
const (
	Dev   = "dev"
	Test  = "test"
	Stage = "stage"
	Prod  = "prod"
)

// Filename is the canonical name of the defaults document.
const Filename = "base.settings"

//go:embed base.settings
var document []byte

// Document returns a copy of the embedded defaults document.
func Document() []byte {
	out := make([]byte, len(document))
	copy(out, document)
	return out
}

// Load loads the embedded defaults for the given profile. Outside dev and
// test, SECRET_KEY resolves through the SECRET_KEY_VALUE placeholder, which
// must come from the environment (LAYERED_SECRET_KEY_VALUE), an override, or
// Context.Extra.
func Load(profile string, opts settings.Options) (*settings.Settings, error) {
	opts.Context.Profile = profile
	return settings.LoadBytes(document, opts)
}

// Write materializes the defaults document in dir so project documents can
// reference it with an extends declaration. Returns the written path.
func Write(dir string) (string, error) {
	path := filepath.Join(dir, Filename)
	if err := os.WriteFile(path, document, 0o644); err != nil {
		return "", fmt.Errorf("writing defaults document: %w", err)
	}
	return path, nil
}

// Profiles returns the environment profiles the document declares, in
// cascade order.
func Profiles() []string {
	return []string{Dev, Test, Stage, Prod}
}

// Package settings implements layered, profile-based configuration for web
// services.
//
// A settings document groups dotted-key assignments into named profiles
// (DEFAULT, dev, test, stage, prod). Loading a document selects one profile
// and overlays it onto DEFAULT, with the profile's values winning on key
// collision. Documents can extend other documents; the whole chain is merged
// base-first. String values may contain {NAME} placeholders that are
// substituted after merging, using either other settings or loader-provided
// context values (PACKAGE, ENV, ROOT_DIR).
//
// Basic usage:
//
//	s, err := settings.Load("app.settings", settings.Options{
//	    Context: settings.Context{Package: "quickticket", Profile: "prod"},
//	})
//	if err != nil {
//	    // malformed document, unknown profile, unresolved placeholder, ...
//	}
//	host, err := s.String("DATABASES.default.HOST")
//
// The merged mapping is immutable once loaded. Use Watcher to reload on file
// changes.
package settings

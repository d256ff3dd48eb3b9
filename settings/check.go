package settings

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Profiles returns the profile names declared across the extends chain of the
// document at path: DEFAULT first (when declared anywhere), the rest sorted.
func Profiles(path string) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("settings document %q: %w", path, err)
	}
	chain, err := resolveChain(abs, nil)
	if err != nil {
		return nil, err
	}
	names := declaredProfiles(chain)
	if i := indexOf(names, DefaultProfile); i > 0 {
		names = append([]string{DefaultProfile}, append(names[:i], names[i+1:]...)...)
	}
	return names, nil
}

// Check loads every profile the document chain declares and aggregates
// failures: parse errors, broken extends references, unresolved placeholders,
// interpolation cycles. Intended for CI; a nil return means every profile
// loads cleanly with the given options.
func Check(path string, opts Options) error {
	profiles, err := Profiles(path)
	if err != nil {
		return err
	}

	var failures []error
	for _, profile := range profiles {
		if profile == DefaultProfile {
			continue
		}
		profileOpts := opts
		profileOpts.Context.Profile = profile
		if _, err := Load(path, profileOpts); err != nil {
			failures = append(failures, fmt.Errorf("profile %q: %w", profile, err))
		}
	}

	// A document declaring only DEFAULT still has to load.
	if len(profiles) == 0 || (len(profiles) == 1 && profiles[0] == DefaultProfile) {
		profileOpts := opts
		profileOpts.Context.Profile = DefaultProfile
		if _, err := Load(path, profileOpts); err != nil {
			failures = append(failures, fmt.Errorf("profile %q: %w", DefaultProfile, err))
		}
	}

	return errors.Join(failures...)
}

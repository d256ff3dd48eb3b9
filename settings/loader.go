package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the prefix for environment variable overrides.
// LAYERED_DATABASES__default__HOST=db1 overrides DATABASES.default.HOST.
const DefaultEnvPrefix = "LAYERED_"

// Context carries the runtime values the loader injects as settings when the
// documents don't set them. They back the {PACKAGE}, {ENV} and {ROOT_DIR}
// placeholders the default documents rely on.
type Context struct {
	// Package is the top-level project package name. Defaults to the base
	// name of RootDir.
	Package string

	// Profile selects the environment profile overlaid onto DEFAULT.
	// Defaults to "dev". Injected as the ENV setting.
	Profile string

	// RootDir is the project directory. Defaults to the directory of the
	// loaded document (the working directory for in-memory documents).
	RootDir string

	// PackageDir defaults to RootDir/Package.
	PackageDir string

	// Extra values are injected like the named fields, keyed by setting name.
	Extra map[string]interface{}
}

// Options controls loading.
type Options struct {
	Context Context

	// Overrides are programmatic settings applied after the documents and
	// before environment variables. Keys may be dotted paths.
	Overrides map[string]interface{}

	// EnvPrefix selects which environment variables override settings.
	// Empty means DefaultEnvPrefix.
	EnvPrefix string

	// DisableEnv skips the environment variable layer entirely.
	DisableEnv bool

	// BaseDir resolves a relative extends reference of an in-memory document.
	// Ignored by Load, which uses the document's own directory.
	BaseDir string
}

func (o Options) envPrefix() string {
	if o.EnvPrefix == "" {
		return DefaultEnvPrefix
	}
	return o.EnvPrefix
}

// Load reads the settings document at path, resolves its extends chain,
// merges the selected profile over DEFAULT (base documents first, each later
// layer winning on collision), applies overrides and environment variables,
// injects context values, and substitutes placeholders.
func Load(path string, opts Options) (*Settings, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("settings document %q: %w", path, err)
	}
	chain, err := resolveChain(abs, nil)
	if err != nil {
		return nil, err
	}
	if opts.Context.RootDir == "" {
		opts.Context.RootDir = filepath.Dir(abs)
	}
	return build(chain, opts)
}

// LoadBytes loads an in-memory document in the native format, e.g. the
// embedded defaults. If the document extends another file, the reference is
// resolved against Options.BaseDir.
func LoadBytes(document []byte, opts Options) (*Settings, error) {
	raw, err := rawbytes.Provider(document).ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("settings document: %w", err)
	}
	top, err := NewParser().Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("settings document: %w", err)
	}
	doc, err := newDocument(top)
	if err != nil {
		return nil, fmt.Errorf("settings document: %w", err)
	}

	chain := []*Document{doc}
	if doc.Extends != "" {
		if opts.BaseDir == "" {
			return nil, fmt.Errorf("in-memory document extends %q but Options.BaseDir is unset", doc.Extends)
		}
		base := doc.Extends
		if !filepath.IsAbs(base) {
			base = filepath.Join(opts.BaseDir, base)
		}
		baseChain, err := resolveChain(base, map[string]bool{})
		if err != nil {
			return nil, err
		}
		chain = append(baseChain, doc)
	}
	if opts.Context.RootDir == "" {
		if wd, err := os.Getwd(); err == nil {
			opts.Context.RootDir = wd
		}
	}
	return build(chain, opts)
}

// resolveChain follows extends references and returns the documents ordered
// base-first, the requested document last.
func resolveChain(path string, visiting map[string]bool) ([]*Document, error) {
	if visiting == nil {
		visiting = make(map[string]bool)
	}
	if visiting[path] {
		return nil, fmt.Errorf("%q: %w", path, ErrExtendsCycle)
	}
	visiting[path] = true
	defer delete(visiting, path)

	doc, err := defaultCache.load(path)
	if err != nil {
		return nil, err
	}
	if doc.Extends == "" {
		return []*Document{doc}, nil
	}

	base := doc.Extends
	if !filepath.IsAbs(base) {
		base = filepath.Join(filepath.Dir(path), base)
	}
	baseChain, err := resolveChain(base, visiting)
	if err != nil {
		return nil, err
	}
	return append(baseChain, doc), nil
}

// build merges a resolved chain into a Settings instance.
func build(chain []*Document, opts Options) (*Settings, error) {
	profile := opts.Context.Profile
	if profile == "" {
		profile = "dev"
	}

	if profile != DefaultProfile {
		declared := false
		for _, doc := range chain {
			if doc.HasProfile(profile) {
				declared = true
				break
			}
		}
		if !declared {
			return nil, fmt.Errorf("%q (declared: %s): %w",
				profile, strings.Join(declaredProfiles(chain), ", "), ErrUnknownProfile)
		}
	}

	k := koanf.New(".")
	overlay := func(m map[string]interface{}) error {
		if len(m) == 0 {
			return nil
		}
		return k.Load(confmap.Provider(m, "."), nil, koanf.WithMergeFunc(mergeOverride))
	}

	for _, doc := range chain {
		if err := overlay(doc.Profile(DefaultProfile)); err != nil {
			return nil, fmt.Errorf("merging DEFAULT from %q: %w", doc.Path, err)
		}
	}
	if profile != DefaultProfile {
		for _, doc := range chain {
			if err := overlay(doc.Profile(profile)); err != nil {
				return nil, fmt.Errorf("merging profile %q from %q: %w", profile, doc.Path, err)
			}
		}
	}

	if err := overlay(opts.Overrides); err != nil {
		return nil, fmt.Errorf("applying overrides: %w", err)
	}

	if !opts.DisableEnv {
		prefix := opts.envPrefix()
		provider := env.ProviderWithValue(prefix, ".", func(key, value string) (string, interface{}) {
			name := strings.ReplaceAll(strings.TrimPrefix(key, prefix), "__", ".")
			return name, parseValue(value)
		})
		if err := k.Load(provider, nil, koanf.WithMergeFunc(mergeOverride)); err != nil {
			return nil, fmt.Errorf("applying environment overrides: %w", err)
		}
	}

	startTime := time.Now().UTC()
	if err := injectContext(k, opts.Context, profile, startTime); err != nil {
		return nil, err
	}

	resolved, err := interpolate(k.Raw())
	if err != nil {
		return nil, err
	}

	final := koanf.New(".")
	if err := final.Load(confmap.Provider(resolved, "."), nil); err != nil {
		return nil, fmt.Errorf("assembling settings: %w", err)
	}

	sources := make([]string, 0, len(chain))
	for _, doc := range chain {
		if doc.Path != "" {
			sources = append(sources, doc.Path)
		}
	}

	return &Settings{
		k:         final,
		raw:       resolved,
		profile:   profile,
		sources:   sources,
		startTime: startTime,
	}, nil
}

// injectContext adds the loader context as settings with setdefault
// semantics: a document that already sets a key wins.
func injectContext(k *koanf.Koanf, ctx Context, profile string, startTime time.Time) error {
	rootDir := ctx.RootDir
	pkg := ctx.Package
	if pkg == "" && rootDir != "" {
		pkg = sanitizePackage(filepath.Base(rootDir))
	}
	pkgDir := ctx.PackageDir
	if pkgDir == "" && rootDir != "" && pkg != "" {
		pkgDir = filepath.Join(rootDir, pkg)
	}

	values := map[string]interface{}{
		"ENV":        profile,
		"START_TIME": startTime.Format(time.RFC3339),
	}
	if pkg != "" {
		values["PACKAGE"] = pkg
	}
	if rootDir != "" {
		values["ROOT_DIR"] = rootDir
	}
	if pkgDir != "" {
		values["PACKAGE_DIR"] = pkgDir
	}
	for key, value := range ctx.Extra {
		values[key] = value
	}

	defaults := make(map[string]interface{})
	for key, value := range values {
		if !k.Exists(key) {
			defaults[key] = value
		}
	}
	if len(defaults) == 0 {
		return nil
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return fmt.Errorf("injecting context settings: %w", err)
	}
	return nil
}

// mergeOverride deep-merges src over dest. Mappings merge recursively; on key
// collision the incoming value wins, lists are replaced wholesale.
func mergeOverride(src, dest map[string]interface{}) error {
	return mergo.Merge(&dest, src, mergo.WithOverride)
}

// sanitizePackage turns a directory name into a usable package identifier.
func sanitizePackage(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}

func declaredProfiles(chain []*Document) []string {
	set := make(map[string]bool)
	for _, doc := range chain {
		for _, name := range doc.Profiles() {
			set[name] = true
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

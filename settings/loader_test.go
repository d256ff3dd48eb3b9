package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDocument writes a settings document into dir and returns its path.
func writeDocument(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ProfileOverlaysDefault(t *testing.T) {
	path := writeDocument(t, t.TempDir(), "app.settings", `
[DEFAULT]
DEBUG = false
GREETING = "hello"
TIMEOUT = 30

[dev]
DEBUG = true
`)

	s, err := Load(path, Options{Context: Context{Profile: "dev"}, DisableEnv: true})
	require.NoError(t, err)

	debug, err := s.Bool("DEBUG")
	require.NoError(t, err)
	assert.True(t, debug, "dev profile must win on collision")

	greeting, err := s.String("GREETING")
	require.NoError(t, err)
	assert.Equal(t, "hello", greeting, "DEFAULT keys without overrides survive")

	timeout, err := s.Int("TIMEOUT")
	require.NoError(t, err)
	assert.Equal(t, 30, timeout)
}

func TestLoad_DeepMergeKeepsSiblings(t *testing.T) {
	path := writeDocument(t, t.TempDir(), "app.settings", `
[DEFAULT]
LOGGING.handlers.console.level = "INFO"
LOGGING.handlers.console.formatter = "verbose"
LOGGING.root.level = "INFO"

[dev]
LOGGING.handlers.console.level = "DEBUG"
`)

	s, err := Load(path, Options{Context: Context{Profile: "dev"}, DisableEnv: true})
	require.NoError(t, err)

	level, err := s.String("LOGGING.handlers.console.level")
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", level)

	formatter, err := s.String("LOGGING.handlers.console.formatter")
	require.NoError(t, err)
	assert.Equal(t, "verbose", formatter, "sibling keys survive a nested override")

	rootLevel, err := s.String("LOGGING.root.level")
	require.NoError(t, err)
	assert.Equal(t, "INFO", rootLevel)
}

func TestLoad_ListsReplacedWholesale(t *testing.T) {
	path := writeDocument(t, t.TempDir(), "app.settings", `
[DEFAULT]
INSTALLED_APPS = ["admin", "auth", "sessions"]

[prod]
INSTALLED_APPS = ["auth"]
`)

	s, err := Load(path, Options{Context: Context{Profile: "prod"}, DisableEnv: true})
	require.NoError(t, err)

	apps, err := s.Strings("INSTALLED_APPS")
	require.NoError(t, err)
	assert.Equal(t, []string{"auth"}, apps, "profile lists replace, never append")
}

func TestLoad_ExtendsChainBaseFirst(t *testing.T) {
	dir := t.TempDir()
	writeDocument(t, dir, "base.settings", `
[DEFAULT]
A = "base"
B = "base"

[dev]
B = "base-dev"
C = "base-dev"
`)
	path := writeDocument(t, dir, "app.settings", `
extends = "base.settings"

[DEFAULT]
A = "app"

[dev]
C = "app-dev"
`)

	s, err := Load(path, Options{Context: Context{Profile: "dev"}, DisableEnv: true})
	require.NoError(t, err)

	for key, want := range map[string]string{
		"A": "app",      // derived DEFAULT beats base DEFAULT
		"B": "base-dev", // base profile beats every DEFAULT
		"C": "app-dev",  // derived profile beats base profile
	} {
		got, err := s.String(key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}

	require.Len(t, s.Sources(), 2)
	assert.Equal(t, "base.settings", filepath.Base(s.Sources()[0]))
	assert.Equal(t, "app.settings", filepath.Base(s.Sources()[1]))
}

func TestLoad_ExtendsCycle(t *testing.T) {
	dir := t.TempDir()
	writeDocument(t, dir, "a.settings", "extends = \"b.settings\"\n[DEFAULT]\nX = 1\n")
	writeDocument(t, dir, "b.settings", "extends = \"a.settings\"\n[DEFAULT]\nY = 2\n")

	_, err := Load(filepath.Join(dir, "a.settings"), Options{DisableEnv: true})
	assert.ErrorIs(t, err, ErrExtendsCycle)
}

func TestLoad_UnknownProfile(t *testing.T) {
	path := writeDocument(t, t.TempDir(), "app.settings", `
[DEFAULT]
DEBUG = false

[dev]
DEBUG = true
`)

	_, err := Load(path, Options{Context: Context{Profile: "qa"}, DisableEnv: true})
	require.ErrorIs(t, err, ErrUnknownProfile)
	assert.Contains(t, err.Error(), "dev", "error lists the declared profiles")
}

func TestLoad_MissingDocument(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.settings"), Options{DisableEnv: true})
	assert.Error(t, err)
}

func TestLoad_OverridesBeatDocuments(t *testing.T) {
	path := writeDocument(t, t.TempDir(), "app.settings", `
[DEFAULT]
DEBUG = false
DATABASES.default.HOST = "db1"

[dev]
DEBUG = true
`)

	s, err := Load(path, Options{
		Context:    Context{Profile: "dev"},
		Overrides:  map[string]interface{}{"DATABASES.default.HOST": "override-host"},
		DisableEnv: true,
	})
	require.NoError(t, err)

	host, err := s.String("DATABASES.default.HOST")
	require.NoError(t, err)
	assert.Equal(t, "override-host", host)
}

func TestLoad_EnvironmentBeatsOverrides(t *testing.T) {
	path := writeDocument(t, t.TempDir(), "app.settings", `
[DEFAULT]
DEBUG = false
DATABASES.default.PORT = 5432

[dev]
DEBUG = true
`)
	t.Setenv("LAYERED_DATABASES__default__PORT", "6543")
	t.Setenv("LAYERED_DEBUG", "false")

	s, err := Load(path, Options{
		Context:   Context{Profile: "dev"},
		Overrides: map[string]interface{}{"DATABASES.default.PORT": 9999},
	})
	require.NoError(t, err)

	port, err := s.Int("DATABASES.default.PORT")
	require.NoError(t, err)
	assert.Equal(t, 6543, port, "environment values are typed like document values")

	debug, err := s.Bool("DEBUG")
	require.NoError(t, err)
	assert.False(t, debug)
}

func TestLoad_DisableEnv(t *testing.T) {
	path := writeDocument(t, t.TempDir(), "app.settings", `
[dev]
DEBUG = true
`)
	t.Setenv("LAYERED_DEBUG", "false")

	s, err := Load(path, Options{Context: Context{Profile: "dev"}, DisableEnv: true})
	require.NoError(t, err)

	debug, err := s.Bool("DEBUG")
	require.NoError(t, err)
	assert.True(t, debug)
}

func TestLoad_ContextInjection(t *testing.T) {
	dir := t.TempDir()
	path := writeDocument(t, dir, "app.settings", `
[dev]
DEBUG = true
`)

	s, err := Load(path, Options{
		Context:    Context{Profile: "dev", Package: "quickticket", RootDir: "/srv/quickticket"},
		DisableEnv: true,
	})
	require.NoError(t, err)

	env, err := s.String("ENV")
	require.NoError(t, err)
	assert.Equal(t, "dev", env)

	assert.Equal(t, "quickticket", s.Package())
	assert.Equal(t, "/srv/quickticket", s.RootDir())

	pkgDir, err := s.String("PACKAGE_DIR")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/quickticket", "quickticket"), pkgDir)

	startTime, err := s.String("START_TIME")
	require.NoError(t, err)
	parsed, err := time.Parse(time.RFC3339, startTime)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), parsed, time.Minute)
}

func TestLoad_ContextDefaultsFromDocumentPath(t *testing.T) {
	dir := t.TempDir()
	path := writeDocument(t, dir, "app.settings", `
[dev]
DEBUG = true
`)

	s, err := Load(path, Options{Context: Context{Profile: "dev"}, DisableEnv: true})
	require.NoError(t, err)

	assert.Equal(t, dir, s.RootDir(), "ROOT_DIR defaults to the document directory")
	assert.Equal(t, sanitizePackage(filepath.Base(dir)), s.Package())
}

func TestLoad_DocumentWinsOverContext(t *testing.T) {
	path := writeDocument(t, t.TempDir(), "app.settings", `
[DEFAULT]
PACKAGE = "pinned"

[dev]
DEBUG = true
`)

	s, err := Load(path, Options{
		Context:    Context{Profile: "dev", Package: "ignored"},
		DisableEnv: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "pinned", s.Package(), "context injection has setdefault semantics")
}

func TestLoad_DefaultProfileIsDev(t *testing.T) {
	path := writeDocument(t, t.TempDir(), "app.settings", `
[dev]
DEBUG = true
`)

	s, err := Load(path, Options{DisableEnv: true})
	require.NoError(t, err)
	assert.Equal(t, "dev", s.Profile())
}

func TestLoad_YAMLDocument(t *testing.T) {
	path := writeDocument(t, t.TempDir(), "app.yaml", `
DEFAULT:
  DEBUG: false
  DATABASES:
    default:
      HOST: db1
dev:
  DEBUG: true
`)

	s, err := Load(path, Options{Context: Context{Profile: "dev"}, DisableEnv: true})
	require.NoError(t, err)

	debug, err := s.Bool("DEBUG")
	require.NoError(t, err)
	assert.True(t, debug)

	host, err := s.String("DATABASES.default.HOST")
	require.NoError(t, err)
	assert.Equal(t, "db1", host)
}

func TestLoadBytes_InMemoryDocument(t *testing.T) {
	s, err := LoadBytes([]byte(`
[DEFAULT]
DEBUG = false

[test]
DEBUG = true
`), Options{Context: Context{Profile: "test"}, DisableEnv: true})
	require.NoError(t, err)

	debug, err := s.Bool("DEBUG")
	require.NoError(t, err)
	assert.True(t, debug)
	assert.Empty(t, s.Sources())
}

func TestLoadBytes_ExtendsNeedsBaseDir(t *testing.T) {
	doc := []byte("extends = \"base.settings\"\n[dev]\nDEBUG = true\n")

	_, err := LoadBytes(doc, Options{Context: Context{Profile: "dev"}, DisableEnv: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BaseDir")

	dir := t.TempDir()
	writeDocument(t, dir, "base.settings", "[DEFAULT]\nGREETING = \"hi\"\n")

	s, err := LoadBytes(doc, Options{
		Context:    Context{Profile: "dev"},
		BaseDir:    dir,
		DisableEnv: true,
	})
	require.NoError(t, err)

	greeting, err := s.String("GREETING")
	require.NoError(t, err)
	assert.Equal(t, "hi", greeting)
}

func TestLoad_CacheInvalidatedOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeDocument(t, dir, "app.settings", "[dev]\nN = 1\n")

	s, err := Load(path, Options{Context: Context{Profile: "dev"}, DisableEnv: true})
	require.NoError(t, err)
	n, err := s.Int("N")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Rewrite with a different size so mtime granularity can't mask the change.
	require.NoError(t, os.WriteFile(path, []byte("[dev]\nN = 22\n"), 0o644))

	s, err = Load(path, Options{Context: Context{Profile: "dev"}, DisableEnv: true})
	require.NoError(t, err)
	n, err = s.Int("N")
	require.NoError(t, err)
	assert.Equal(t, 22, n)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_NilFlags(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "notes", cfg.Storage.Name)
	assert.Equal(t, 4, cfg.Storage.Version)
}

func TestLoad_Layering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notetaker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  backend: bolt
  dir: /var/lib/notes
http:
  addr: ":9000"
  read_timeout: 5s
log:
  level: debug
`), 0o600))

	t.Setenv("NOTETAKER_STORAGE__UNIQUE_TITLES", "true")
	t.Setenv("NOTETAKER_HTTP__ADDR", ":9100")

	cfg, err := Load(newFlags(t, "--config", path, "--http.addr", ":9200", "--log.format", "json"))
	require.NoError(t, err)

	// file
	assert.Equal(t, "bolt", cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/notes", cfg.Storage.Dir)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	// env
	assert.True(t, cfg.Storage.UniqueTitles)
	// flags win over env and file
	assert.Equal(t, ":9200", cfg.HTTP.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	// untouched defaults
	assert.Equal(t, "notes", cfg.Storage.Name)
	assert.Equal(t, 30*time.Second, cfg.HTTP.WriteTimeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":9000\"\n"), 0o600))
	t.Setenv("NOTETAKER_CONFIG", path)
	t.Setenv("NOTETAKER_HTTP__ADDR", ":9100")

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.HTTP.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{name: "Unknown backend", args: []string{"--storage.backend", "mongo"}},
		{name: "Bad log level", args: []string{"--log.level", "loud"}},
		{name: "Zero version", args: []string{"--storage.version", "0"}},
		{name: "Name with separator", args: []string{"--storage.name", "a/b"}},
		{name: "Missing config file", args: []string{"--config", "/does/not/exist.yaml"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(newFlags(t, tc.args...))
			assert.Error(t, err)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "storage.unique_titles", envKey("NOTETAKER_STORAGE__UNIQUE_TITLES"))
	assert.Equal(t, "log.level", envKey("NOTETAKER_LOG__LEVEL"))
}

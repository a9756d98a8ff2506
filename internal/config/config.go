package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment override, e.g.
// NOTETAKER_STORAGE__UNIQUE_TITLES=true sets storage.unique_titles.
const EnvPrefix = "NOTETAKER_"

type Config struct {
	Storage Storage `koanf:"storage"`
	HTTP    HTTP    `koanf:"http"`
	Log     Log     `koanf:"log"`
	MCP     MCP     `koanf:"mcp"`
}

type Storage struct {
	Backend      string `koanf:"backend" validate:"oneof=sqlite bolt"`
	Dir          string `koanf:"dir" validate:"required"`
	Name         string `koanf:"name" validate:"required,excludesall=/\\"`
	Version      int    `koanf:"version" validate:"min=1"`
	UniqueTitles bool   `koanf:"unique_titles"`
}

type HTTP struct {
	Addr         string        `koanf:"addr" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gt=0"`
}

type Log struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

type MCP struct {
	Enabled bool `koanf:"enabled"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Storage: Storage{
			Backend: "sqlite",
			Dir:     ".",
			Name:    "notes",
			Version: 4,
		},
		HTTP: HTTP{
			Addr:         ":7521",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		MCP: MCP{Enabled: true},
	}
}

// RegisterFlags adds one flag per key, named after the key.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "Path to a YAML config file")
	fs.String("storage.backend", d.Storage.Backend, "Storage backend: sqlite or bolt")
	fs.String("storage.dir", d.Storage.Dir, "Directory holding the notes database")
	fs.String("storage.name", d.Storage.Name, "Database name")
	fs.Int("storage.version", d.Storage.Version, "Schema version to open the database at")
	fs.Bool("storage.unique_titles", d.Storage.UniqueTitles, "Reject notes whose title is already used")
	fs.String("http.addr", d.HTTP.Addr, "HTTP listen address")
	fs.Duration("http.read_timeout", d.HTTP.ReadTimeout, "HTTP read timeout")
	fs.Duration("http.write_timeout", d.HTTP.WriteTimeout, "HTTP write timeout")
	fs.String("log.level", d.Log.Level, "Log level")
	fs.String("log.format", d.Log.Format, "Log format: text or json")
	fs.Bool("mcp.enabled", d.MCP.Enabled, "Serve MCP tools on /mcp")
}

// Load layers the YAML file, the environment and the command line flags on
// top of Default, then validates the result. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	path := ""
	if flags != nil {
		if f := flags.Lookup("config"); f != nil {
			path = f.Value.String()
		}
	}
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}
	k.Delete("config")

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// envKey maps NOTETAKER_STORAGE__UNIQUE_TITLES to storage.unique_titles.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

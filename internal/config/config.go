// Package config loads infranest settings. Precedence, highest first:
// command-line flags, INFRANEST_* environment variables, the config file,
// built-in defaults.
package config

import (
	stderrors "errors"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	nesterrors "infranest/internal/errors"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Upstream   UpstreamConfig   `mapstructure:"upstream"`
	Validation ValidationConfig `mapstructure:"validation"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Files      FilesConfig      `mapstructure:"files"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// Mode is the gin mode: debug, release or test.
	Mode string `mapstructure:"mode"`
}

// UpstreamConfig points at the translation, validation and generation service.
type UpstreamConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ValidationConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// CatalogConfig names an optional directory of framework YAML files merged
// over the built-in catalog.
type CatalogConfig struct {
	Dir string `mapstructure:"dir"`
}

// FilesConfig is the root of the local blob store for downloaded archives.
type FilesConfig struct {
	Root string `mapstructure:"root"`
}

// DatabaseConfig is used by the DDL commands. An empty URL disables them.
type DatabaseConfig struct {
	URL    string `mapstructure:"url"`
	Schema string `mapstructure:"schema"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{ //nolint:gochecknoglobals // static table
	"addr":      "server.addr",
	"mode":      "server.mode",
	"upstream":  "upstream.url",
	"timeout":   "upstream.timeout",
	"debounce":  "validation.debounce",
	"catalog":   "catalog.dir",
	"files":     "files.root",
	"db":        "database.url",
	"schema":    "database.schema",
	"log-level": "log.level",
	"log-file":  "log.file",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("upstream.url", "http://localhost:8000")
	v.SetDefault("upstream.timeout", "30s")
	v.SetDefault("validation.debounce", "500ms")
	v.SetDefault("validation.timeout", "15s")
	v.SetDefault("catalog.dir", "")
	v.SetDefault("files.root", "./data")
	v.SetDefault("database.url", "")
	v.SetDefault("database.schema", "public")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("INFRANEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := Load("", nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads path (when non-empty) and binds the known flags of fs that
// were set. A missing path is an error; an empty one is not.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if stderrors.As(err, &notFound) || stderrors.Is(err, os.ErrNotExist) {
				return nil, nesterrors.Wrapf(nesterrors.ErrConfigInvalid, "config file %s not found", path)
			}
			return nil, nesterrors.Wrap(err, "failed to read config")
		}
	}
	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, nesterrors.Wrapf(err, "bind flag %s", name)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decoderOption()); err != nil {
		return nil, nesterrors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, nesterrors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

func decoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}

// Validate returns the first invalid setting.
func Validate(cfg *Config) error {
	if cfg == nil {
		return nesterrors.ErrConfigNil
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return nesterrors.Wrap(nesterrors.ErrConfigInvalid, "server.addr must not be empty")
	}
	switch cfg.Server.Mode {
	case "debug", "release", "test":
	default:
		return nesterrors.Wrapf(nesterrors.ErrConfigInvalid,
			"server.mode must be debug, release or test, got %q", cfg.Server.Mode)
	}
	u, err := url.Parse(cfg.Upstream.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nesterrors.Wrapf(nesterrors.ErrConfigInvalid,
			"upstream.url must be an absolute URL, got %q", cfg.Upstream.URL)
	}
	durations := []struct {
		key string
		d   time.Duration
	}{
		{"upstream.timeout", cfg.Upstream.Timeout},
		{"validation.debounce", cfg.Validation.Debounce},
		{"validation.timeout", cfg.Validation.Timeout},
	}
	for _, x := range durations {
		if x.d <= 0 {
			return nesterrors.Wrapf(nesterrors.ErrConfigInvalid, "%s must be positive, got %s", x.key, x.d)
		}
	}
	if strings.TrimSpace(cfg.Files.Root) == "" {
		return nesterrors.Wrap(nesterrors.ErrConfigInvalid, "files.root must not be empty")
	}
	return nil
}

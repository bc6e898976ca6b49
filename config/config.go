// Package config loads bpl's settings. Sources are layered with later ones
// winning: built-in defaults, the YAML config file, then BPLPLUS_* environment
// variables. Command-line flags are applied by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "BPLPLUS_"

const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

type Config struct {
	History    HistoryConfig    `koanf:"history" yaml:"history"`
	Autoimport AutoimportConfig `koanf:"autoimport" yaml:"autoimport"`
	SearchPath []string         `koanf:"search_path" yaml:"search_path"`
	Log        LogConfig        `koanf:"log" yaml:"log"`
}

type HistoryConfig struct {
	// Path of the SQLite history database. Empty disables persistence.
	Path string `koanf:"path" yaml:"path"`
	// LoadLength bounds how many entries the autoimport cache is mined from.
	LoadLength int `koanf:"load_length" yaml:"load_length"`
}

type AutoimportConfig struct {
	Enabled bool `koanf:"enabled" yaml:"enabled"`
	// Color is one of auto, always, never.
	Color string `koanf:"color" yaml:"color"`
}

type LogConfig struct {
	Level string `koanf:"level" yaml:"level"`
}

// DefaultDir is ~/.bplplus.
func DefaultDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".bplplus")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		History: HistoryConfig{
			Path:       filepath.Join(DefaultDir(), "history.db"),
			LoadLength: 1000,
		},
		Autoimport: AutoimportConfig{
			Enabled: true,
			Color:   ColorAuto,
		},
		SearchPath: []string{".", "lib"},
		Log:        LogConfig{Level: "warn"},
	}
}

// envKeys maps each recognised environment variable to its config key.
var envKeys = map[string]string{
	"BPLPLUS_HISTORY":        "history.path",
	"BPLPLUS_HISTORY_LENGTH": "history.load_length",
	"BPLPLUS_AUTOIMPORT":     "autoimport.enabled",
	"BPLPLUS_COLOR":          "autoimport.color",
	"BPLPLUS_PATH":           "search_path",
	"BPLPLUS_LOG_LEVEL":      "log.level",
}

// envValue converts a raw environment value into the type its key expects.
// Unrecognised variables and unparsable values are dropped.
func envValue(name, raw string) (string, any) {
	key, ok := envKeys[name]
	if !ok {
		return "", nil
	}
	switch key {
	case "history.load_length":
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return "", nil
		}
		return key, n
	case "autoimport.enabled":
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return "", nil
		}
		return key, b
	case "search_path":
		var dirs []string
		for _, d := range filepath.SplitList(raw) {
			if d != "" {
				dirs = append(dirs, d)
			}
		}
		return key, dirs
	default:
		return key, raw
	}
}

// Load reads the config file at path and applies environment overrides.
// An empty path means DefaultConfigPath. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	k := koanf.New(".")
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat config file %s: %w", path, err)
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	// Unmarshal over the defaults. Slices are decoded in place, so a
	// configured search path must start empty.
	cfg := Default()
	if k.Exists("search_path") {
		cfg.SearchPath = nil
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated and bounded settings.
func (c *Config) Validate() error {
	switch c.Autoimport.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("autoimport.color: want auto, always or never, got %q", c.Autoimport.Color)
	}
	if c.History.LoadLength < 0 {
		return fmt.Errorf("history.load_length: must be >= 0, got %d", c.History.LoadLength)
	}
	return nil
}

// Marshal renders c as YAML, in the layout Load reads.
func Marshal(c *Config) ([]byte, error) {
	return yamlv3.Marshal(c)
}

// Save writes c to path, creating the directory if needed.
func Save(c *Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Package config loads narrator settings from TOML, YAML or JSON files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Config is the full narrator configuration.
type Config struct {
	Output  OutputConfig  `toml:"output"  yaml:"output"  json:"output"`
	Logging LoggingConfig `toml:"logging" yaml:"logging" json:"logging"`
	Replay  ReplayConfig  `toml:"replay"  yaml:"replay"  json:"replay"`
	Server  ServerConfig  `toml:"server"  yaml:"server"  json:"server"`
}

// OutputConfig controls how results are printed.
type OutputConfig struct {
	Format string `toml:"format" yaml:"format" json:"format"`
	Pretty bool   `toml:"pretty" yaml:"pretty" json:"pretty"`
	// History bounds the jobs kept per session. Zero keeps all.
	History int `toml:"history" yaml:"history" json:"history"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level       string `toml:"level"       yaml:"level"       json:"level"`
	Development bool   `toml:"development" yaml:"development" json:"development"`
	// File receives logs instead of stderr when set.
	File string `toml:"file" yaml:"file" json:"file"`
}

// ReplayConfig controls script replay.
type ReplayConfig struct {
	PaceMs      int  `toml:"pace_ms"       yaml:"pace_ms"       json:"pace_ms"`
	StopOnError bool `toml:"stop_on_error" yaml:"stop_on_error" json:"stop_on_error"`
	// Language is the BCP 47 tag used to format spoken numbers.
	Language string `toml:"language" yaml:"language" json:"language"`
}

// ServerConfig controls the MCP server.
type ServerConfig struct {
	Transport   string `toml:"transport"     yaml:"transport"     json:"transport"`
	Addr        string `toml:"addr"          yaml:"addr"          json:"addr"`
	CacheTTLSec int    `toml:"cache_ttl_sec" yaml:"cache_ttl_sec" json:"cache_ttl_sec"`
}

// Transports accepted by ServerConfig.Transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Output:  OutputConfig{Format: "yaml"},
		Logging: LoggingConfig{Level: "warn"},
		Replay:  ReplayConfig{StopOnError: true, Language: "en"},
		Server:  ServerConfig{Transport: TransportStdio, Addr: "127.0.0.1:8765", CacheTTLSec: 300},
	}
}

// DefaultPath returns ~/.config/desktop-narrator/config.toml, or "" when
// the home directory is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "desktop-narrator", "config.toml")
}

// Load reads path on top of the defaults, applies environment overrides and
// validates the result. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := decode(data, filepath.Ext(path), cfg); err != nil {
				return nil, err
			}
		}
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

func decode(data []byte, ext string, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode TOML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config extension %q", ext)
	}
	return nil
}

// ApplyEnvOverrides applies NARRATOR_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NARRATOR_FORMAT"); v != "" {
		c.Output.Format = v
	}
	if v := os.Getenv("NARRATOR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("NARRATOR_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("NARRATOR_PACE_MS"); v != "" {
		if ms, err := cast.ToIntE(v); err == nil {
			c.Replay.PaceMs = ms
		}
	}
	if v := os.Getenv("NARRATOR_LANGUAGE"); v != "" {
		c.Replay.Language = v
	}
}

// Validate checks every field.
func (c *Config) Validate() error {
	var errs []error
	switch c.Output.Format {
	case "yaml", "json":
	default:
		errs = append(errs, fmt.Errorf("output.format: unsupported %q", c.Output.Format))
	}
	if c.Output.History < 0 {
		errs = append(errs, fmt.Errorf("output.history: must be >= 0"))
	}
	if _, err := zap.ParseAtomicLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Replay.PaceMs < 0 {
		errs = append(errs, fmt.Errorf("replay.pace_ms: must be >= 0"))
	}
	if _, err := language.Parse(c.Replay.Language); err != nil {
		errs = append(errs, fmt.Errorf("replay.language: %w", err))
	}
	switch c.Server.Transport {
	case TransportStdio:
	case TransportHTTP:
		if c.Server.Addr == "" {
			errs = append(errs, fmt.Errorf("server.addr: required for http transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("server.transport: unsupported %q", c.Server.Transport))
	}
	if c.Server.CacheTTLSec < 0 {
		errs = append(errs, fmt.Errorf("server.cache_ttl_sec: must be >= 0"))
	}
	return errors.Join(errs...)
}

// Pace returns the delay between replayed steps.
func (c *Config) Pace() time.Duration {
	return time.Duration(c.Replay.PaceMs) * time.Millisecond
}

// CacheTTL returns how long the server keeps loaded scripts.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Server.CacheTTLSec) * time.Second
}

// LanguageTag returns the parsed replay language, English when invalid.
func (c *Config) LanguageTag() language.Tag {
	tag, err := language.Parse(c.Replay.Language)
	if err != nil {
		return language.English
	}
	return tag
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package config

import (
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	warderr "github.com/ward-dev/ward/pkg/errors"
)

// Config is the top-level Ward configuration.
type Config struct {
	Plugins PluginsConfig `mapstructure:"plugins"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
	MCP     MCPConfig     `mapstructure:"mcp"`
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
}

// PluginsConfig controls where Ward looks for installed plugins.
type PluginsConfig struct {
	Dir string `mapstructure:"dir"`
}

// SandboxConfig controls the confinement fallback behavior.
type SandboxConfig struct {
	// AllowUnconfined permits loading a plugin with environment filtering
	// only when sandbox profile synthesis fails. Off by default: a sandbox
	// error refuses the load.
	AllowUnconfined bool `mapstructure:"allow_unconfined"`
}

// MCPConfig controls the protocol client timeouts.
type MCPConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig controls the local control API.
type ServerConfig struct {
	ListenAddr  string   `mapstructure:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// StorageConfig selects the audit trail backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	// Path is the directory holding backend data files. Empty uses the
	// ward config directory.
	Path string `mapstructure:"path"`
}

// DefaultDir returns the ward configuration directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", warderr.Errorf(warderr.CodeConfigLoadReadFailure, "resolving config directory: %w", err)
	}
	return filepath.Join(base, "ward"), nil
}

// defaultPluginsDir is best-effort: an unresolvable config directory
// leaves the default empty and validation reports it.
func defaultPluginsDir() string {
	dir, err := DefaultDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "plugins")
}

// SetDefaults applies Ward's configuration defaults to a Viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("plugins.dir", defaultPluginsDir())
	v.SetDefault("sandbox.allow_unconfined", false)
	v.SetDefault("mcp.request_timeout", "15s")
	v.SetDefault("mcp.shutdown_grace", "3s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("server.listen_addr", "127.0.0.1:18219")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "")
}

// SetupEnv binds WARD_-prefixed environment variables to a Viper instance,
// so e.g. WARD_PLUGINS_DIR overrides plugins.dir.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("WARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix WARD_).
func Load(path string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, warderr.Errorf(warderr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates a Config from an already populated
// Viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, warderr.Errorf(warderr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, warderr.Errorf(warderr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns a slice
// of all validation errors found, collecting all issues rather than
// stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validatePlugins()...)
	errs = append(errs, c.validateMCP()...)
	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateStorage()...)

	return errs
}

func (c *Config) validatePlugins() []error {
	var errs []error

	if c.Plugins.Dir == "" {
		errs = append(errs, warderr.Errorf(warderr.CodeConfigValidateInvalidValue,
			"config: plugins.dir must not be empty"))
	}

	return errs
}

func (c *Config) validateMCP() []error {
	var errs []error

	if c.MCP.RequestTimeout <= 0 {
		errs = append(errs, warderr.Errorf(warderr.CodeConfigValidateInvalidValue,
			"config: mcp.request_timeout must be greater than 0, got %s",
			c.MCP.RequestTimeout,
		))
	}
	if c.MCP.ShutdownGrace <= 0 {
		errs = append(errs, warderr.Errorf(warderr.CodeConfigValidateInvalidValue,
			"config: mcp.shutdown_grace must be greater than 0, got %s",
			c.MCP.ShutdownGrace,
		))
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, warderr.Errorf(warderr.CodeConfigValidateInvalidValue,
			"config: logging.level must be one of [debug, info, warn, error], got %q",
			c.Logging.Level,
		))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Logging.Format] {
		errs = append(errs, warderr.Errorf(warderr.CodeConfigValidateInvalidValue,
			"config: logging.format must be one of [text, json], got %q",
			c.Logging.Format,
		))
	}

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.ListenAddr == "" {
		errs = append(errs, warderr.Errorf(warderr.CodeConfigValidateInvalidValue,
			"config: server.listen_addr must not be empty"))
		return errs
	}

	host, portStr, err := net.SplitHostPort(c.Server.ListenAddr)
	if err != nil {
		errs = append(errs, warderr.Errorf(warderr.CodeConfigValidateInvalidValue,
			"config: server.listen_addr must be a valid host:port address, got %q: %w",
			c.Server.ListenAddr, err,
		))
		return errs
	}
	_ = host // host can be empty (e.g., ":18219"), which is valid

	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, warderr.Errorf(warderr.CodeConfigValidateInvalidValue,
			"config: server.listen_addr port must be a number, got %q",
			portStr,
		))
	} else if port < 1 || port > 65535 {
		errs = append(errs, warderr.Errorf(warderr.CodeConfigValidateInvalidValue,
			"config: server.listen_addr port must be between 1 and 65535, got %d",
			port,
		))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true, "memory": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, warderr.Errorf(warderr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [sqlite, memory], got %q",
			c.Storage.Backend,
		))
	}

	return errs
}

// StoragePath resolves the directory holding backend data files,
// defaulting to the ward config directory.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	return DefaultDir()
}

// SlogLevel maps logging.level to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

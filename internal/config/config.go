// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package config loads and persists wasmdbg's own configuration: things
// that shape how the debug inspection engine behaves, not the inspected
// module itself.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dotandev/wasmdbg/internal/errors"
)

// Config is wasmdbg's persisted configuration.
type Config struct {
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `json:"log_level,omitempty"`
	// CachePath is a directory setting for on-disk caches. It is loaded,
	// defaulted and overridable via WASMDBG_CACHE_PATH here; the `cache`
	// subcommands do not read it.
	CachePath string `json:"cache_path,omitempty"`
	// PreferredMemoryExport names a linear memory export to use as the
	// default. The runtime adapter does not read it: it always prefers the
	// export named "memory", then the first other memory export.
	PreferredMemoryExport string `json:"preferred_memory_export,omitempty"`
	// Demangle records a legacy Rust symbol demangling preference. Nothing
	// reads it: function names are demangled unconditionally.
	Demangle bool `json:"demangle"`
	// HexdumpWidth is a bytes-per-line setting for hex dumps. Nothing reads
	// it: memdump output is fixed at 16 bytes per line (spec.md §6).
	HexdumpWidth int `json:"hexdump_width,omitempty"`
	// CrashReporting opts into sending anonymous crash reports. Off by default.
	CrashReporting bool `json:"crash_reporting"`
	// CrashSentryDSN forwards crash reports to Sentry when non-empty.
	CrashSentryDSN string `json:"crash_sentry_dsn,omitempty"`
	// CrashEndpoint, when non-empty, is an endpoint crash reports are also
	// sent to. There is no built-in default endpoint.
	CrashEndpoint string `json:"crash_endpoint,omitempty"`
	// TelemetryEnabled opts into exporting OpenTelemetry traces for a debug
	// session (breakpoint hits, step counts) to TelemetryExporterURL.
	TelemetryEnabled bool `json:"telemetry_enabled"`
	// TelemetryExporterURL is the OTLP/HTTP collector endpoint.
	TelemetryExporterURL string `json:"telemetry_exporter_url,omitempty"`
}

var defaultConfig = &Config{
	LogLevel:              "info",
	CachePath:             filepath.Join(os.ExpandEnv("$HOME"), ".wasmdbg", "cache"),
	PreferredMemoryExport: "memory",
	Demangle:              true,
	HexdumpWidth:          16,
	CrashReporting:        false,
}

// DefaultConfig returns a copy of the built-in defaults.
func DefaultConfig() *Config {
	cfg := *defaultConfig
	return &cfg
}

// GetConfigPath returns the directory wasmdbg stores its configuration in.
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapConfigError("failed to resolve home directory", err)
	}
	return filepath.Join(home, ".wasmdbg"), nil
}

// GetConfigFilePath returns the path to the JSON config file.
func GetConfigFilePath() (string, error) {
	dir, err := GetConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadConfig loads the configuration from disk, falling back to defaults if
// no config file exists.
func LoadConfig() (*Config, error) {
	path, err := GetConfigFilePath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfigError("failed to read config file", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapConfigError("failed to parse config file", err)
	}

	return cfg, nil
}

// Load merges environment variable overrides onto LoadConfig's result.
func Load() (*Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = getEnv("WASMDBG_LOG_LEVEL", cfg.LogLevel)
	cfg.CachePath = getEnv("WASMDBG_CACHE_PATH", cfg.CachePath)
	cfg.PreferredMemoryExport = getEnv("WASMDBG_MEMORY_EXPORT", cfg.PreferredMemoryExport)

	if raw := os.Getenv("WASMDBG_DEMANGLE"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.Demangle = v
		}
	}
	if raw := os.Getenv("WASMDBG_HEXDUMP_WIDTH"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.HexdumpWidth = v
		}
	}
	if raw := os.Getenv("WASMDBG_CRASH_REPORTING"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.CrashReporting = v
		}
	}
	cfg.CrashSentryDSN = getEnv("WASMDBG_SENTRY_DSN", cfg.CrashSentryDSN)
	cfg.CrashEndpoint = getEnv("WASMDBG_CRASH_ENDPOINT", cfg.CrashEndpoint)
	if raw := os.Getenv("WASMDBG_TELEMETRY"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.TelemetryEnabled = v
		}
	}
	cfg.TelemetryExporterURL = getEnv("WASMDBG_TELEMETRY_URL", cfg.TelemetryExporterURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig writes the configuration to disk as JSON.
func SaveConfig(cfg *Config) error {
	path, err := GetConfigFilePath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.WrapConfigError("failed to create config directory", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.WrapConfigError("failed to marshal config", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.WrapConfigError("failed to write config file", err)
	}

	return nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.HexdumpWidth <= 0 {
		return errors.WrapValidationError("hexdump_width must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapValidationError("log_level must be one of debug, info, warn, error")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for labchat.
//
// TOML configuration with built-in defaults, environment variable
// overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - path given explicitly to LoadFromPath
//   - ~/.labchat/config.toml
//   - built-in defaults
//
// The API credential is deliberately absent from the config: it is
// supplied per request and held only in session memory.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete labchat configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	OpenAI  OpenAIConfig  `toml:"openai"`
	Cache   CacheConfig   `toml:"cache"`
	Rules   RulesConfig   `toml:"rules"`
	Session SessionConfig `toml:"session"`
	Storage StorageConfig `toml:"storage"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the listen address.
	Host string `toml:"host"`
	// Port is the listen port.
	Port int `toml:"port"`
	// RateLimitPerSec is the per-IP request rate limit.
	RateLimitPerSec float64 `toml:"rate_limit_per_sec"`
	// RateLimitBurst is the per-IP burst allowance.
	RateLimitBurst int `toml:"rate_limit_burst"`
	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes int64 `toml:"max_body_bytes"`
	// MaxUploadBytes caps multipart document uploads.
	MaxUploadBytes int64 `toml:"max_upload_bytes"`
}

// OpenAIConfig contains remote API settings.
type OpenAIConfig struct {
	// BaseURL is the API base URL.
	BaseURL string `toml:"base_url"`
	// Model is the default model for all pages.
	Model string `toml:"model"`
	// TimeoutSecs is the per-request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs"`
}

// CacheConfig contains answer cache settings.
type CacheConfig struct {
	// MaxEntries bounds each session's answer cache. 0 means unbounded.
	MaxEntries int `toml:"max_entries"`
}

// RulesConfig contains rules-bot settings.
type RulesConfig struct {
	// Path is the rulebook text file. Empty uses the built-in
	// placeholder and disables hot-reload.
	Path string `toml:"path"`
	// ReloadDebounceMs is the watcher debounce in milliseconds.
	ReloadDebounceMs int `toml:"reload_debounce_ms"`
}

// SessionConfig contains session lifecycle settings.
type SessionConfig struct {
	// IdleTimeoutSecs is how long a session may sit idle before expiry.
	IdleTimeoutSecs int `toml:"idle_timeout_secs"`
	// SweepIntervalSecs is how often the expiry sweeper runs.
	SweepIntervalSecs int `toml:"sweep_interval_secs"`
}

// StorageConfig contains transcript store settings.
type StorageConfig struct {
	// Path is the SQLite database file. Empty uses the default under
	// the config directory.
	Path string `toml:"path"`
}

// =============================================================================
// DEFAULTS AND PATHS
// =============================================================================

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			RateLimitPerSec: 10,
			RateLimitBurst:  20,
			MaxBodyBytes:    1 << 20,  // 1MB
			MaxUploadBytes:  50 << 20, // matches the remote upload cap
		},
		OpenAI: OpenAIConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-5-mini",
			TimeoutSecs: 60,
		},
		Cache: CacheConfig{
			MaxEntries: 0,
		},
		Rules: RulesConfig{
			ReloadDebounceMs: 500,
		},
		Session: SessionConfig{
			IdleTimeoutSecs:   1800,
			SweepIntervalSecs: 60,
		},
	}
}

// ConfigDir returns the labchat configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".labchat"), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultStoragePath returns the default transcript database path.
func DefaultStoragePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "transcripts.db"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the config from the default location. A missing file is
// not an error; defaults apply. Env overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath reads the config from an explicit path. The file must
// exist. Env overrides are applied last.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides:
//   - LABCHAT_HOST: overrides server.host
//   - LABCHAT_PORT: overrides server.port
//   - LABCHAT_BASE_URL: overrides openai.base_url
//   - LABCHAT_MODEL: overrides openai.model
//   - LABCHAT_RULES_PATH: overrides rules.path
//   - LABCHAT_STORAGE_PATH: overrides storage.path
func (c *Config) ApplyEnvOverrides() {
	if host := os.Getenv("LABCHAT_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("LABCHAT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if base := os.Getenv("LABCHAT_BASE_URL"); base != "" {
		c.OpenAI.BaseURL = base
	}
	if model := os.Getenv("LABCHAT_MODEL"); model != "" {
		c.OpenAI.Model = model
	}
	if path := os.Getenv("LABCHAT_RULES_PATH"); path != "" {
		c.Rules.Path = path
	}
	if path := os.Getenv("LABCHAT_STORAGE_PATH"); path != "" {
		c.Storage.Path = path
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{"server.port", "must be 1-65535"}.Error())
	}
	if c.Server.RateLimitPerSec <= 0 {
		errs = append(errs, ValidationError{"server.rate_limit_per_sec", "must be positive"}.Error())
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, ValidationError{"server.max_body_bytes", "must be positive"}.Error())
	}

	if u, err := url.Parse(c.OpenAI.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{"openai.base_url", "must be an absolute URL"}.Error())
	}
	if c.OpenAI.Model == "" {
		errs = append(errs, ValidationError{"openai.model", "must not be empty"}.Error())
	}
	if c.OpenAI.TimeoutSecs <= 0 {
		errs = append(errs, ValidationError{"openai.timeout_secs", "must be positive"}.Error())
	}

	if c.Cache.MaxEntries < 0 {
		errs = append(errs, ValidationError{"cache.max_entries", "must not be negative"}.Error())
	}
	if c.Session.IdleTimeoutSecs <= 0 {
		errs = append(errs, ValidationError{"session.idle_timeout_secs", "must be positive"}.Error())
	}
	if c.Session.SweepIntervalSecs <= 0 {
		errs = append(errs, ValidationError{"session.sweep_interval_secs", "must be positive"}.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

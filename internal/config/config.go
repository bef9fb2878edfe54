// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for cauris.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.cauris/config.toml
//   - ~/.cauris/config.json
//   - Built-in defaults
package config

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/caurisai/cauris-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete cauris configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Backend endpoints
	Server ServerConfig `toml:"server" json:"server"`

	// Realtime session behaviour
	Session SessionConfig `toml:"session" json:"session"`

	// Document ingestion
	Upload UploadConfig `toml:"upload" json:"upload"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Logging configuration
	Log LogConfig `toml:"log" json:"log"`
}

// ServerConfig locates the assistant backend.
type ServerConfig struct {
	// BaseURL is the REST root, e.g. http://localhost:8000/api/v1
	BaseURL string `toml:"base_url" json:"base_url"`
	// RealtimeURL is the websocket endpoint. Derived from BaseURL when empty.
	RealtimeURL string `toml:"realtime_url" json:"realtime_url"`
	// RequestTimeoutSecs bounds every REST call except uploads.
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`
	// UploadTimeoutSecs bounds document uploads.
	UploadTimeoutSecs int `toml:"upload_timeout_secs" json:"upload_timeout_secs"`
	// TLSMinVersion is the lowest TLS version accepted for https/wss: "1.2" or "1.3".
	TLSMinVersion string `toml:"tls_min_version" json:"tls_min_version"`
}

// SessionConfig tunes the realtime session controller.
type SessionConfig struct {
	// ReconnectDelayMs is the constant delay before a reconnect attempt.
	ReconnectDelayMs int `toml:"reconnect_delay_ms" json:"reconnect_delay_ms"`
	// HistoryTimeoutSecs bounds one history refresh.
	HistoryTimeoutSecs int `toml:"history_timeout_secs" json:"history_timeout_secs"`
}

// UploadConfig contains document ingestion settings.
type UploadConfig struct {
	// AcceptedType is the only MIME type the workflow lets through.
	AcceptedType string `toml:"accepted_type" json:"accepted_type"`
	// DismissDelayMs is how long the success state stays visible.
	DismissDelayMs int `toml:"dismiss_delay_ms" json:"dismiss_delay_ms"`
	// MaxSizeMB rejects oversized files before they are read.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb"`
	// WatchDir is the default folder for `cauris watch`.
	WatchDir string `toml:"watch_dir" json:"watch_dir"`
	// WatchRatePerSec caps uploads started by the folder watcher.
	WatchRatePerSec float64 `toml:"watch_rate_per_sec" json:"watch_rate_per_sec"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the initial theme when no preference is stored: "auto", "dark", "light"
	Theme string `toml:"theme" json:"theme"`
	// WordWrap is the markdown wrap width for assistant answers (0 = viewport width)
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level" json:"level"`
	// File receives log output; the TUI owns the terminal.
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			BaseURL:            "http://localhost:8000/api/v1",
			RealtimeURL:        "",
			RequestTimeoutSecs: 30,
			UploadTimeoutSecs:  300,
			TLSMinVersion:      "1.2",
		},

		Session: SessionConfig{
			ReconnectDelayMs:   3000,
			HistoryTimeoutSecs: 15,
		},

		Upload: UploadConfig{
			AcceptedType:    "application/pdf",
			DismissDelayMs:  2000,
			MaxSizeMB:       50,
			WatchDir:        "",
			WatchRatePerSec: 1,
		},

		UI: UIConfig{
			Theme:    "auto",
			WordWrap: 0,
		},

		Log: LogConfig{
			Level: "info",
			File:  "",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the cauris configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("CAURIS_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".cauris"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	cfg, err = finish(Default())
	if err != nil {
		return nil, err
	}
	// Return defaults (with any load error for informational purposes)
	return cfg, loadErr
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// Server
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = defaults.Server.BaseURL
	}
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = defaults.Server.RequestTimeoutSecs
	}
	if cfg.Server.UploadTimeoutSecs == 0 {
		cfg.Server.UploadTimeoutSecs = defaults.Server.UploadTimeoutSecs
	}
	if cfg.Server.TLSMinVersion == "" {
		cfg.Server.TLSMinVersion = defaults.Server.TLSMinVersion
	}

	// Session
	if cfg.Session.ReconnectDelayMs == 0 {
		cfg.Session.ReconnectDelayMs = defaults.Session.ReconnectDelayMs
	}
	if cfg.Session.HistoryTimeoutSecs == 0 {
		cfg.Session.HistoryTimeoutSecs = defaults.Session.HistoryTimeoutSecs
	}

	// Upload
	if cfg.Upload.AcceptedType == "" {
		cfg.Upload.AcceptedType = defaults.Upload.AcceptedType
	}
	if cfg.Upload.DismissDelayMs == 0 {
		cfg.Upload.DismissDelayMs = defaults.Upload.DismissDelayMs
	}
	if cfg.Upload.MaxSizeMB == 0 {
		cfg.Upload.MaxSizeMB = defaults.Upload.MaxSizeMB
	}
	if cfg.Upload.WatchRatePerSec == 0 {
		cfg.Upload.WatchRatePerSec = defaults.Upload.WatchRatePerSec
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// RealtimeEndpoint returns the websocket URL, deriving it from the REST
// base URL (http→ws, https→wss, + /chat/ws) when not set explicitly.
func (c *Config) RealtimeEndpoint() (string, error) {
	if c.Server.RealtimeURL != "" {
		return c.Server.RealtimeURL, nil
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server.base_url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/chat/ws"
	return u.String(), nil
}

// TLSConfig returns the client TLS settings shared by the REST client and
// the websocket dialer.
func (c *Config) TLSConfig() (*tls.Config, error) {
	var minVersion uint16
	switch c.Server.TLSMinVersion {
	case "1.2", "":
		minVersion = tls.VersionTLS12
	case "1.3":
		minVersion = tls.VersionTLS13
	default:
		return nil, fmt.Errorf("unsupported TLS version %q, must be 1.2 or 1.3", c.Server.TLSMinVersion)
	}
	return &tls.Config{MinVersion: minVersion}, nil
}

// ReconnectDelay returns the reconnect delay as a duration.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Session.ReconnectDelayMs) * time.Millisecond
}

// HistoryTimeout returns the history refresh timeout as a duration.
func (c *Config) HistoryTimeout() time.Duration {
	return time.Duration(c.Session.HistoryTimeoutSecs) * time.Second
}

// RequestTimeout returns the REST timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSecs) * time.Second
}

// UploadTimeout returns the upload timeout as a duration.
func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.Server.UploadTimeoutSecs) * time.Second
}

// DismissDelay returns how long a successful upload stays on screen.
func (c *Config) DismissDelay() time.Duration {
	return time.Duration(c.Upload.DismissDelayMs) * time.Millisecond
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Upload.MaxSizeMB) * 1024 * 1024
}

// LogFile returns the log file path, defaulting to ~/.cauris/cauris.log.
func (c *Config) LogFile() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cauris.log"), nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# cauris configuration file\n")
	b.WriteString("# Generated by cauris - edit with care\n\n")

	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Server.BaseURL); err != nil || u.Host == "" ||
		(u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ValidationError{
			Field:   "server.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[:port]/path", c.Server.BaseURL),
		})
	}

	if c.Server.RealtimeURL != "" {
		if u, err := url.Parse(c.Server.RealtimeURL); err != nil || u.Host == "" ||
			(u.Scheme != "ws" && u.Scheme != "wss") {
			errs = append(errs, ValidationError{
				Field:   "server.realtime_url",
				Message: fmt.Sprintf("invalid URL '%s', must be ws(s)://host[:port]/path", c.Server.RealtimeURL),
			})
		}
	}

	if c.Server.RequestTimeoutSecs < 1 || c.Server.RequestTimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "server.request_timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.Server.RequestTimeoutSecs),
		})
	}

	if _, err := c.TLSConfig(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "server.tls_min_version",
			Message: err.Error(),
		})
	}

	if c.Session.ReconnectDelayMs < 100 || c.Session.ReconnectDelayMs > 600000 {
		errs = append(errs, ValidationError{
			Field:   "session.reconnect_delay_ms",
			Message: fmt.Sprintf("must be between 100 and 600000, got %d", c.Session.ReconnectDelayMs),
		})
	}

	if c.Session.HistoryTimeoutSecs < 1 {
		errs = append(errs, ValidationError{
			Field:   "session.history_timeout_secs",
			Message: fmt.Sprintf("must be positive, got %d", c.Session.HistoryTimeoutSecs),
		})
	}

	if !strings.Contains(c.Upload.AcceptedType, "/") {
		errs = append(errs, ValidationError{
			Field:   "upload.accepted_type",
			Message: fmt.Sprintf("invalid MIME type '%s'", c.Upload.AcceptedType),
		})
	}

	if c.Upload.DismissDelayMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "upload.dismiss_delay_ms",
			Message: "must not be negative",
		})
	}

	if c.Upload.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "upload.max_size_mb",
			Message: fmt.Sprintf("must be positive, got %d", c.Upload.MaxSizeMB),
		})
	}

	if c.Upload.WatchRatePerSec <= 0 {
		errs = append(errs, ValidationError{
			Field:   "upload.watch_rate_per_sec",
			Message: "must be positive",
		})
	}

	validThemes := map[string]bool{"auto": true, "dark": true, "light": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - CAURIS_BASE_URL: overrides server.base_url
//   - CAURIS_REALTIME_URL: overrides server.realtime_url
//   - CAURIS_LOG_LEVEL: overrides log.level
//   - CAURIS_WATCH_DIR: overrides upload.watch_dir
//   - CAURIS_THEME: overrides ui.theme
//
// CAURIS_TOKEN is read by the storage package, not here.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CAURIS_BASE_URL"); v != "" {
		c.Server.BaseURL = strings.TrimSuffix(v, "/")
	}
	if v := os.Getenv("CAURIS_REALTIME_URL"); v != "" {
		c.Server.RealtimeURL = v
	}
	if v := os.Getenv("CAURIS_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("CAURIS_WATCH_DIR"); v != "" {
		c.Upload.WatchDir = v
	}
	if v := os.Getenv("CAURIS_THEME"); v != "" {
		c.UI.Theme = strings.ToLower(v)
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

// String returns the configuration as indented JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

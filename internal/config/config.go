package config

import (
	"fmt"
	"time"
)

const (
	DefaultLogLevel                 = "info"
	DefaultLogFormat                = "text"
	DefaultDebounceMS               = 10
	DefaultReconcileIntervalSeconds = 10
	DefaultEventBuffer              = 64
)

// Config holds the daemon settings read from daemon.yaml. The user
// configuration script itself is Lua and is not described here.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// ConfigPath overrides the script location. Relative paths are resolved
	// against the settings file; "~/" expands to the home directory.
	ConfigPath string `yaml:"config_path"`

	DebounceMS               int  `yaml:"debounce_ms"`
	ReconcileIntervalSeconds int  `yaml:"reconcile_interval_seconds"`
	RestoreOnExit            bool `yaml:"restore_on_exit"`
	IPC                      bool `yaml:"ipc"`
	EventBuffer              int  `yaml:"event_buffer"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:                 DefaultLogLevel,
		LogFormat:                DefaultLogFormat,
		DebounceMS:               DefaultDebounceMS,
		ReconcileIntervalSeconds: DefaultReconcileIntervalSeconds,
		RestoreOnExit:            true,
		IPC:                      true,
		EventBuffer:              DefaultEventBuffer,
	}
}

// Debounce returns the hot-reload quiet period.
func (c *Config) Debounce() time.Duration {
	if c == nil {
		return DefaultDebounceMS * time.Millisecond
	}
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// ReconcileInterval returns the window reconcile period. Zero disables
// periodic reconciliation.
func (c *Config) ReconcileInterval() time.Duration {
	if c == nil {
		return DefaultReconcileIntervalSeconds * time.Second
	}
	return time.Duration(c.ReconcileIntervalSeconds) * time.Second
}

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Validate performs strict validation of the settings.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return &ValidationError{Path: "log_format", Err: fmt.Errorf("log_format must be one of: text, json")}
	}
	if c.DebounceMS < 0 {
		return &ValidationError{Path: "debounce_ms", Err: fmt.Errorf("debounce_ms must be >= 0")}
	}
	if c.ReconcileIntervalSeconds < 0 {
		return &ValidationError{Path: "reconcile_interval_seconds", Err: fmt.Errorf("reconcile_interval_seconds must be >= 0")}
	}
	if c.EventBuffer <= 0 {
		return &ValidationError{Path: "event_buffer", Err: fmt.Errorf("event_buffer must be > 0")}
	}
	return nil
}

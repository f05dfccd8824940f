package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "daemon.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Debounce() != 10*time.Millisecond {
		t.Fatalf("Debounce() = %v, want 10ms", cfg.Debounce())
	}
	if cfg.ReconcileInterval() != 10*time.Second {
		t.Fatalf("ReconcileInterval() = %v, want 10s", cfg.ReconcileInterval())
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "daemon.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.File != "" {
		t.Fatalf("expected no file, got %q", res.File)
	}
	if res.Config.LogLevel != DefaultLogLevel || !res.Config.IPC || !res.Config.RestoreOnExit {
		t.Fatalf("expected defaults, got %#v", res.Config)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := writeSettings(t, "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.EventBuffer != DefaultEventBuffer {
		t.Fatalf("expected event_buffer %d, got %d", DefaultEventBuffer, res.Config.EventBuffer)
	}
}

func TestLoadFromPath_OverridesKeepOtherDefaults(t *testing.T) {
	path := writeSettings(t, "log_level: debug\ndebounce_ms: 250\nipc: false\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Debounce() != 250*time.Millisecond {
		t.Fatalf("Debounce() = %v, want 250ms", cfg.Debounce())
	}
	if cfg.IPC {
		t.Fatalf("expected ipc disabled")
	}
	if cfg.LogFormat != DefaultLogFormat || cfg.ReconcileIntervalSeconds != DefaultReconcileIntervalSeconds {
		t.Fatalf("expected untouched keys to keep defaults, got %#v", cfg)
	}
	if src := res.Sources["debounce_ms"]; src.Line != 2 {
		t.Fatalf("expected debounce_ms on line 2, got %#v", src)
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	path := writeSettings(t, "unknown_key: 1\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "unknown_key") && !strings.Contains(err.Error(), "field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error to include file path, got %v", err)
	}
}

func TestLoadFromPath_InvalidValueHasSourceContext(t *testing.T) {
	path := writeSettings(t, "log_format: text\nlog_level: loud\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Path != "log_level" {
		t.Fatalf("Path = %q, want log_level", verr.Path)
	}
	if !strings.HasPrefix(err.Error(), path+":2:1:") {
		t.Fatalf("expected file:line:col prefix, got %v", err)
	}
}

func TestLoadFromPath_ConfigPathResolution(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		name  string
		value string
		want  func(settings string) string
	}{
		{"absolute", "/etc/nog/config.nog", func(string) string { return "/etc/nog/config.nog" }},
		{"relative", "scripts/config.nog", func(s string) string { return filepath.Join(filepath.Dir(s), "scripts/config.nog") }},
		{"home", "~/nog/config.nog", func(string) string { return filepath.Join(home, "nog/config.nog") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSettings(t, "config_path: "+tt.value+"\n")
			res, err := LoadFromPath(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			got, err := res.Config.ScriptPath()
			if err != nil {
				t.Fatalf("ScriptPath: %v", err)
			}
			if want := tt.want(path); got != want {
				t.Fatalf("ScriptPath() = %q, want %q", got, want)
			}
		})
	}
}

func TestScriptPath_DefaultsToConfigDir(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", td)

	got, err := DefaultConfig().ScriptPath()
	if err != nil {
		t.Fatalf("ScriptPath: %v", err)
	}
	if want := filepath.Join(td, "nog", "config.nog"); got != want {
		t.Fatalf("ScriptPath() = %q, want %q", got, want)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"negative debounce", func(c *Config) { c.DebounceMS = -1 }, "debounce_ms"},
		{"negative reconcile", func(c *Config) { c.ReconcileIntervalSeconds = -5 }, "reconcile_interval_seconds"},
		{"zero buffer", func(c *Config) { c.EventBuffer = 0 }, "event_buffer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Path != tt.path {
				t.Fatalf("Validate() = %v, want error on %s", err, tt.path)
			}
		})
	}
}

func TestLoad_UsesSettingsFile(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", td)
	dir := filepath.Join(td, "nog")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "daemon.yaml"), []byte("event_buffer: 8\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	res, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.EventBuffer != 8 {
		t.Fatalf("EventBuffer = %d, want 8", res.Config.EventBuffer)
	}
}

package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// AppName is the directory name used under the user configuration directory.
	AppName = "nog"
	// ConfigFileName is the user script executed at startup and on hot reload.
	ConfigFileName = "config.nog"
	// SettingsFileName holds daemon-level settings.
	SettingsFileName = "daemon.yaml"
	socketFileName   = "nog.sock"
)

// ConfigDir returns <user-config-dir>/nog. It fails when the base user
// configuration directory cannot be determined.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config dir: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// ConfigFile returns the path of the user configuration script.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// SettingsFile returns the path of the daemon settings file.
func SettingsFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SettingsFileName), nil
}

// RuntimeDir returns the runtime directory used for the IPC socket. Priority:
// 1) XDG_RUNTIME_DIR (if set)
// 2) /run/user/<uid> (if present)
// 3) /tmp/nog-runtime-<uid> (created)
func RuntimeDir() (string, error) {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir, nil
	}

	uid := os.Getuid()
	runUserDir := fmt.Sprintf("/run/user/%d", uid)
	if info, err := os.Stat(runUserDir); err == nil && info.IsDir() {
		return runUserDir, nil
	}

	tmpDir := fmt.Sprintf("/tmp/nog-runtime-%d", uid)
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return tmpDir, nil
}

// SocketPath returns the daemon IPC socket path.
func SocketPath() (string, error) {
	runtimeDir, err := RuntimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, socketFileName), nil
}

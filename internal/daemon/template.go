package daemon

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultScript is written when no configuration exists yet.
const DefaultScript = `-- nog configuration
--
-- This file is plain Lua. Saving it reloads the configuration; callbacks and
-- keybindings from the previous run are discarded first.

if not nog.is_setup() then
  -- Runs once per daemon start.
  nog.log("info", "nog started")
end

nog.bind("Mod4-Shift-w", function()
  for _, w in ipairs(nog.windows()) do
    nog.log("info", string.format("%d %s %s", w.id, w.name, w.style))
  end
end)
`

// EnsureConfigFile creates path with DefaultScript when it does not exist.
// It reports whether the file was created.
func EnsureConfigFile(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(DefaultScript), 0644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}

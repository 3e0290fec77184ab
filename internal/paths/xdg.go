package paths

import (
	"os"
	"path/filepath"
)

func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	h, _ := os.UserHomeDir()
	return h
}

func xdgDir(envVar, fallbackSuffix string) string {
	if v := os.Getenv(envVar); v != "" {
		return filepath.Join(v, "capbridge")
	}
	return filepath.Join(homeDir(), fallbackSuffix, "capbridge")
}

// ConfigDir returns the capbridge config directory ($XDG_CONFIG_HOME/capbridge).
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the capbridge state directory ($XDG_STATE_HOME/capbridge).
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// RuntimeDir returns the capbridge runtime directory.
// Falls back to $XDG_STATE_HOME/capbridge if XDG_RUNTIME_DIR is unset.
func RuntimeDir() string {
	if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
		return filepath.Join(v, "capbridge")
	}
	return StateDir()
}

// ConfigFile returns the path to config.toml.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DefaultChannelDir returns the default channel directory shared with the host
// process. Both sides must resolve the same location, so it avoids anything
// process-specific.
func DefaultChannelDir() string {
	return filepath.Join(RuntimeDir(), "channel")
}

// EnsureDir creates a directory and parents if needed.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0700)
}

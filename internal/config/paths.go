// ABOUTME: Standard filesystem paths for chatshell configuration and logs
// ABOUTME: Resolves $XDG_CONFIG_HOME/chatshell or ~/.config/chatshell; EnsureExists writes defaults under a file lock

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	appDirName     = "chatshell"
	configFileName = "config.toml"
	logFileName    = "chatshell.log"
)

// Dir returns the chatshell config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+appDirName)
	}
	return filepath.Join(home, ".config", appDirName)
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(Dir(), configFileName)
}

// LogPath returns the default log file path.
func LogPath() string {
	return filepath.Join(Dir(), logFileName)
}

// EnsureDir creates a directory and all parents if they don't exist.
// Uses 0o700 because the config may contain an API key.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o700)
}

// EnsureExists writes the default configuration to path if no file is there.
// A lock file next to it serializes concurrent first runs. It reports
// whether the file was created.
func EnsureExists(path string) (bool, error) {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return false, fmt.Errorf("creating config dir: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return false, fmt.Errorf("locking %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("checking %s: %w", path, err)
	}

	if err := Default().Save(path); err != nil {
		return false, err
	}
	return true, nil
}

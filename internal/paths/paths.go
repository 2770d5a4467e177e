// Package paths defines the on-disk layout of the cache data directory.
package paths

import (
	"os"
	"path/filepath"
)

// BaseDir returns the default data directory, ~/.occache.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".occache")
}

// ChatDBPath returns the chat cache database file for one principal. Each
// principal gets its own file; account isolation falls out of the naming.
func ChatDBPath(dataDir, principal string) string {
	return filepath.Join(dataDir, "openchat_db_"+principal+".sqlite")
}

// UserDBPath returns the global user cache database file.
func UserDBPath(dataDir string) string {
	return filepath.Join(dataDir, "openchat_users.sqlite")
}

// LogDir returns the log directory.
func LogDir(dataDir string) string {
	return filepath.Join(dataDir, "logs")
}

// LogPath returns the agent log file path.
func LogPath(dataDir string) string {
	return filepath.Join(LogDir(dataDir), "occache.log")
}

// ConfigPath returns the config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the data directory tree with owner-only permissions.
func EnsureDir(dataDir string) error {
	for _, d := range []string{dataDir, LogDir(dataDir)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}

package storage

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "netchess"

// DefaultDataDir returns the platform-specific data directory used
// when the configuration does not name one.
// - macOS: ~/Library/Application Support/netchess/
// - Linux: ~/.local/share/netchess/
// - Windows: %APPDATA%/netchess/
func DefaultDataDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support")

	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, "AppData", "Roaming")
		}

	default:
		// Linux and other Unix-like: XDG_DATA_HOME or ~/.local/share/
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, ".local", "share")
		}
	}

	dataDir := filepath.Join(baseDir, appName, "db")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	return dataDir, nil
}

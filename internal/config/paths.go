package config

import (
	"os"
	"path/filepath"

	gap "github.com/muesli/go-app-paths"

	"qvox/internal/common/fsutil"
)

// EnvConfigPath overrides DefaultPath when set.
const EnvConfigPath = "QVOX_CONFIG"

const defaultFileName = "config.toml"

// DefaultPath returns the config file qvox uses when none is given: $QVOX_CONFIG,
// else the first existing config.toml among the user's config dirs, else the
// primary user config location.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return fsutil.ExpandHome(p)
	}
	scope := gap.NewScope(gap.User, "qvox")
	dirs, err := scope.ConfigDirs()
	if err == nil {
		for _, d := range dirs {
			p := filepath.Join(d, defaultFileName)
			if fsutil.PathExists(p) {
				return p, nil
			}
		}
	}
	return scope.ConfigPath(defaultFileName)
}

// OutputDir is where the CLI writes generated audio when no path is given.
func OutputDir() (string, error) {
	return gap.NewScope(gap.User, "qvox").DataPath("output")
}

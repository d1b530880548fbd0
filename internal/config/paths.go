package config

import (
	"os"
	"path/filepath"

	"github.com/weldr-dev/runr/internal/constants"
	"github.com/weldr-dev/runr/internal/errors"
)

// GlobalConfigDir returns the path to the global runr configuration
// directory. This is typically ~/.runr on Unix systems.
func GlobalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.RunsHome), nil
}

// ProjectConfigDir returns the relative path to the project configuration
// directory, always .runr relative to the project root.
func ProjectConfigDir() string {
	return constants.RunsHome
}

// GlobalConfigPath returns the full path to the global configuration file.
func GlobalConfigPath() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "get global config path")
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ProjectConfigPath returns the relative path to the project configuration
// file, always .runr/config.yaml relative to the project root.
func ProjectConfigPath() string {
	return filepath.Join(ProjectConfigDir(), "config.yaml")
}

// RunsRoot returns the directory under which individual run directories are
// created (spec.md §6 run directory layout), relative to the repository
// root.
func RunsRoot(repoRoot string) string {
	return filepath.Join(repoRoot, constants.RunsHome, "runs")
}

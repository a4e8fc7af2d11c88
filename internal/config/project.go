package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Quidge/streamtck/internal/pathutil"
)

// ProjectConfigFilename is the name of the project configuration file.
const ProjectConfigFilename = ".streamtck.yaml"

// FindProjectConfig searches for a .streamtck.yaml file starting from the
// given directory and walking up to parent directories until it finds one or
// reaches the filesystem root. Returns "" when there is none.
func FindProjectConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ProjectConfigFilename)
		if pathutil.IsFile(configPath) {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadProjectConfig loads the project configuration from configPath.
// If configPath is empty, searches from the current directory.
// If the file doesn't exist, returns default configuration (not an error).
// If the file exists but is invalid YAML, returns an error.
func LoadProjectConfig(configPath string) (ProjectConfig, error) {
	if configPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return DefaultProjectConfig(), nil
		}
		configPath = FindProjectConfig(cwd)
		if configPath == "" {
			return DefaultProjectConfig(), nil
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultProjectConfig(), nil
		}
		return ProjectConfig{}, fmt.Errorf("failed to read project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ProjectConfig{}, fmt.Errorf("invalid YAML in %s: %w", configPath, err)
	}
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	abs, err := filepath.Abs(configPath)
	if err != nil {
		return ProjectConfig{}, fmt.Errorf("failed to resolve %s: %w", configPath, err)
	}
	cfg.dir = filepath.Dir(abs)

	return cfg, nil
}

// LoadProjectConfigFromDir loads the project configuration from a specific directory.
func LoadProjectConfigFromDir(dir string) (ProjectConfig, error) {
	return LoadProjectConfig(filepath.Join(dir, ProjectConfigFilename))
}

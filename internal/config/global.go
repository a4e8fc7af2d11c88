package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfigPath returns the path to the global configuration file.
// STREAMTCK_CONFIG overrides the default location.
func GlobalConfigPath() (string, error) {
	if p := os.Getenv("STREAMTCK_CONFIG"); p != "" {
		return p, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "streamtck", "config.yaml"), nil
}

// LoadGlobalConfig loads the global configuration from path, or from
// GlobalConfigPath when path is empty.
// If the file doesn't exist, returns default configuration (not an error).
// If the file exists but is invalid YAML, returns an error.
func LoadGlobalConfig(path string) (GlobalConfig, error) {
	if path == "" {
		var err error
		path, err = GlobalConfigPath()
		if err != nil {
			return DefaultGlobalConfig(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultGlobalConfig(), nil
		}
		return GlobalConfig{}, fmt.Errorf("failed to read global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return GlobalConfig{}, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	return applyGlobalDefaults(cfg), nil
}

// applyGlobalDefaults fills in missing fields with default values.
func applyGlobalDefaults(cfg GlobalConfig) GlobalConfig {
	defaults := DefaultGlobalConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}
	if cfg.DefaultImplementation == "" {
		cfg.DefaultImplementation = defaults.DefaultImplementation
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.Parallelism == 0 {
		cfg.Parallelism = defaults.Parallelism
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}

	// The built-in implementations are always addressable by their type name.
	if cfg.Implementations == nil {
		cfg.Implementations = map[string]Implementation{}
	}
	for name, im := range defaults.Implementations {
		if _, ok := cfg.Implementations[name]; !ok {
			cfg.Implementations[name] = im
		}
	}

	return cfg
}

// writeFile writes data to path, creating the parent directory.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

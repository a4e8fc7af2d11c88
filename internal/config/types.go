package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents the global configuration loaded from
// ~/.config/streamtck/config.yaml
type GlobalConfig struct {
	Version               int                       `yaml:"version"`
	DefaultImplementation string                    `yaml:"default_implementation"`
	LogLevel              string                    `yaml:"log_level"`
	Parallelism           int                       `yaml:"parallelism"`
	Timeout               Duration                  `yaml:"timeout"`
	HistoryDB             string                    `yaml:"history_db"`
	Implementations       map[string]Implementation `yaml:"implementations"`
}

// Implementation configures a named implementation under test.
type Implementation struct {
	// Type is the registered implementation type (e.g., "reference").
	Type string `yaml:"type"`

	// MaxSubscribers declares how many subscribers one publisher supports.
	// Zero leaves the implementation's own declaration in place.
	MaxSubscribers int64 `yaml:"max_subscribers,omitempty"`
}

// ProjectConfig represents the project configuration loaded from
// .streamtck.yaml, searched for from the working directory upwards.
type ProjectConfig struct {
	Version        int      `yaml:"version"`
	Implementation string   `yaml:"implementation,omitempty"`
	Checks         Patterns `yaml:"checks,omitempty"`
	Tags           Patterns `yaml:"tags,omitempty"`
	Timeout        Duration `yaml:"timeout,omitempty"`
	Parallelism    int      `yaml:"parallelism,omitempty"`
	Report         Report   `yaml:"report,omitempty"`

	// dir is the directory containing the file, used to resolve
	// relative paths. Empty when no file was found.
	dir string
}

// Dir returns the directory the project config was loaded from, or "" when
// defaults are in use.
func (p ProjectConfig) Dir() string {
	return p.dir
}

// Patterns is an include/exclude pair.
type Patterns struct {
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// Report selects an additional report written after each run.
type Report struct {
	Format string `yaml:"format,omitempty"` // table, json or junit
	File   string `yaml:"file,omitempty"`   // relative to the project config
}

// Duration is a time.Duration that reads from YAML as either a Go duration
// string ("30s") or a whole number of seconds.
type Duration time.Duration

// UnmarshalYAML implements custom unmarshaling for Duration to handle both
// duration strings and integer seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var secs int64
	if err := value.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(ExpandEnvVars(str))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", str, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MergedConfig represents the final merged configuration after applying
// precedence rules (defaults → global → project → flags).
type MergedConfig struct {
	// Implementation selection
	Implementation string
	ImplType       string
	MaxSubscribers int64

	// Run settings
	Parallelism int
	Timeout     time.Duration
	LogLevel    string

	// HistoryDB is the expanded history database path.
	HistoryDB string

	// Check selection (from project config and flags)
	Checks Patterns
	Tags   Patterns

	// Report written after the run; File is absolute.
	Report Report
}

// DefaultGlobalConfig returns a GlobalConfig with sensible defaults.
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		Version:               1,
		DefaultImplementation: "reference",
		LogLevel:              "warn",
		Parallelism:           4,
		Timeout:               Duration(10 * time.Second),
		Implementations: map[string]Implementation{
			"reference": {Type: "reference"},
			"unicast":   {Type: "unicast"},
		},
	}
}

// DefaultProjectConfig returns a ProjectConfig with sensible defaults.
func DefaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
	}
}

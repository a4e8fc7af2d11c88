package config

import (
	"errors"
	"fmt"
	"os"
)

// GlobalConfigTemplate is the default template for ~/.config/streamtck/config.yaml.
// It includes comments explaining each option.
const GlobalConfigTemplate = `# streamtck global configuration
# Location: ~/.config/streamtck/config.yaml

# Schema version (required)
version: 1

# Implementation used when neither --impl nor the project config names one
default_implementation: reference

# Log level: trace, debug, info, warn, error or off
log_level: warn

# Checks run concurrently
parallelism: 4

# Upper bound for a single check body (Go duration or seconds)
timeout: 10s

# Run history database (default: ~/.local/share/streamtck/history.db)
# history_db: ${XDG_DATA_HOME:-~/.local/share}/streamtck/history.db

# Implementations under test, by name.
# "reference" and "unicast" are always available.
implementations:
  reference:
    type: reference

  # Declare a subscriber capacity to skip multi-subscriber checks
  # single-subscriber:
  #   type: reference
  #   max_subscribers: 1
`

// ProjectConfigTemplate is the default template for .streamtck.yaml.
// It includes commented examples for all configuration options.
const ProjectConfigTemplate = `# streamtck project configuration
# Location: .streamtck.yaml (searched from the working directory upwards)

# Schema version (required)
version: 1

# Implementation to verify (overrides default_implementation)
# implementation: reference

# Check selection by ID glob
# checks:
#   include:
#     - required_*
#   exclude:
#     - required_spec317_*

# Check selection by tag kind
# (not_verified, stochastic, required, subscribers, additional)
# tags:
#   exclude:
#     - stochastic

# Overrides
# timeout: 30s
# parallelism: 1

# Report written after every run (relative to this file)
# report:
#   format: junit
#   file: build/streamtck-junit.xml
`

// ErrConfigExists is returned when refusing to overwrite a config file.
var ErrConfigExists = errors.New("config file already exists")

// WriteTemplate writes template to path unless the file already exists and
// force is false.
func WriteTemplate(path, template string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}
	return writeFile(path, []byte(template))
}

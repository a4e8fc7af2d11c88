package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/Quidge/streamtck/internal/pathutil"
)

// envVarPattern matches ${VAR} or ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ExpandEnvVars expands ${VAR} patterns in a string using environment variables.
// If a variable is not set, it expands to an empty string, or to the default
// given as ${VAR:-default}.
func ExpandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]

		if idx := strings.Index(varName, ":-"); idx != -1 {
			name := varName[:idx]
			defaultVal := varName[idx+2:]
			if val, ok := os.LookupEnv(name); ok && val != "" {
				return val
			}
			return defaultVal
		}

		return os.Getenv(varName)
	})
}

// ExpandPath expands environment variables and ~ in path, then resolves it
// relative to base. Empty paths stay empty.
func ExpandPath(base, path string) (string, error) {
	return pathutil.Resolve(base, ExpandEnvVars(path))
}

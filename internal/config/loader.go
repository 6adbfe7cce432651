package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads a YAML configuration file, expands environment variables,
// and parses it into a Config struct.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, err := expandEnv(string(raw))
	if err != nil {
		return nil, fmt.Errorf("config: expanding variables in %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// expandEnv replaces ${VAR} and ${VAR:-default} patterns. A variable with
// neither an environment value nor a default is an error; all unresolved
// names are reported together.
func expandEnv(raw string) (string, error) {
	var unresolved []string

	result := envPattern.ReplaceAllStringFunc(raw, func(match string) string {
		subs := envPattern.FindStringSubmatch(match)
		name := subs[1]

		if value, ok := os.LookupEnv(name); ok {
			return value
		}

		// Submatch 2 is the default; distinguish "no default" from an
		// empty default by re-checking for the ":-" separator.
		if strings.HasPrefix(match, "${"+name+":-") {
			return subs[2]
		}

		unresolved = append(unresolved, name)
		return match
	})

	if len(unresolved) > 0 {
		return result, fmt.Errorf("unresolved variables: %s", strings.Join(unresolved, ", "))
	}
	return result, nil
}

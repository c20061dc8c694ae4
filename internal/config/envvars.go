// ABOUTME: Environment variable expansion in config string fields
// ABOUTME: Replaces ${VAR} patterns with os.Getenv values; unset vars become empty

package config

import (
	"os"
	"regexp"
)

var envVarPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// ResolveEnvVars expands ${VAR} patterns in the shell command, its
// arguments and environment, and the assistant credentials.
func ResolveEnvVars(c *Config) {
	c.Shell.Command = expandEnv(c.Shell.Command)
	for i, a := range c.Shell.Args {
		c.Shell.Args[i] = expandEnv(a)
	}
	for k, v := range c.Shell.Env {
		c.Shell.Env[k] = expandEnv(v)
	}

	c.Assistant.APIKey = expandEnv(c.Assistant.APIKey)
	c.Assistant.APIBase = expandEnv(c.Assistant.APIBase)
	c.Assistant.Model = expandEnv(c.Assistant.Model)
}

// expandEnv replaces ${VAR} with os.Getenv(VAR). Unset vars become "".
func expandEnv(s string) string {
	if s == "" {
		return s
	}
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

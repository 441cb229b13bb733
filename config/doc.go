// Package config loads the application configuration from defaults, an
// optional YAML file, and AGENTVERSE_* environment variable overrides,
// in that order of precedence.
package config

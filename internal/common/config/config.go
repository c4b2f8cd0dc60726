// Package config loads YAML configuration files shared by the control
// plane, agent, and indexer binaries. Each binary defines its own typed
// config struct and passes it to Load.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path and unmarshals it into dst. dst must be
// a pointer. Returns an error wrapping the underlying cause if the file is
// missing or is not valid YAML for the target shape.
func Load(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// EnvOrDefault returns the value of the named environment variable, or
// defaultVal if it is unset or empty.
func EnvOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// Package config defines the indexer's YAML/flag configuration.
package config

import "github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/config"

// Config is the indexer's full runtime configuration.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file and no overriding
// flags are supplied.
func Default() Config {
	return Config{
		Host:     "0.0.0.0",
		Port:     8901,
		LogLevel: "info",
	}
}

// Load reads path (if non-empty) over Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := config.Load(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

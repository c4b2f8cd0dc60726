// Package config defines the control plane's YAML/flag configuration.
package config

import "github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/config"

// Config is the control plane's full runtime configuration, loadable from
// a YAML file and overridable by flags/env vars at the cmd layer.
type Config struct {
	Host                        string   `yaml:"host"`
	Port                        int      `yaml:"port"`
	AllowOrigins                []string `yaml:"allow_origins"`
	AgentOfflineThresholdSeconds int     `yaml:"agent_offline_threshold_seconds"`
	DBDriver                    string   `yaml:"db_driver"`
	DatabaseURL                 string   `yaml:"database_url"`
	LogLevel                    string   `yaml:"log_level"`
}

// Default returns the configuration used when no file and no overriding
// flags are supplied.
func Default() Config {
	return Config{
		Host:                        "0.0.0.0",
		Port:                        8900,
		AllowOrigins:                []string{"*"},
		AgentOfflineThresholdSeconds: 20,
		DBDriver:                    "sqlite",
		DatabaseURL:                 "./observix_control_plane.db",
		LogLevel:                    "info",
	}
}

// Load reads path (if non-empty) over Default, then env-overrides DBDriver/
// DatabaseURL/LogLevel. The agent and indexer config loaders apply no env
// overrides of this kind.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := config.Load(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.DBDriver = config.EnvOrDefault("OBSERVIX_DB_DRIVER", cfg.DBDriver)
	cfg.DatabaseURL = config.EnvOrDefault("OBSERVIX_DATABASE_URL", cfg.DatabaseURL)
	cfg.LogLevel = config.EnvOrDefault("OBSERVIX_LOG_LEVEL", cfg.LogLevel)
	return cfg, nil
}

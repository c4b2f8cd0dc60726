// Package config defines the agent's YAML/flag configuration.
package config

import (
	"time"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/config"
)

// Fixed (non-configurable) loop parameters, matching the contract's
// explicit "heartbeat_seconds (fixed 5), http_timeout_seconds (fixed 5.0)".
const (
	HeartbeatInterval  = 5 * time.Second
	HTTPTimeout        = 5 * time.Second
	SchedulerCadence   = 50 * time.Millisecond
	MetricsInterval    = 5 * time.Second
)

// Config is the agent's full runtime configuration.
type Config struct {
	AgentID                string `yaml:"agent_id"`
	Region                 string `yaml:"region"`
	TenantID               string `yaml:"tenant_id"`
	AdminPort              *int   `yaml:"admin_port"`
	ControlPlaneURL        string `yaml:"control_plane_url"`
	PollAssignmentsSeconds int    `yaml:"poll_assignments_seconds"`
	StateDir               string `yaml:"state_dir"`
	LogLevel               string `yaml:"log_level"`
}

// Default returns the configuration used when no file and no overriding
// flags are supplied.
func Default() Config {
	return Config{
		Region:                 "default",
		ControlPlaneURL:        "http://localhost:8900",
		PollAssignmentsSeconds: 3,
		StateDir:               "./observix_agent_state",
		LogLevel:               "info",
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

// PollAssignmentsInterval returns PollAssignmentsSeconds as a Duration.
func (c Config) PollAssignmentsInterval() time.Duration {
	return time.Duration(c.PollAssignmentsSeconds) * time.Second
}

// Package main is the entry point for the observix-agent binary.
// It wires config, state, the control-plane HTTP client, and the
// reconciler together and starts the control loop.
//
// Startup sequence:
//  1. Parse CLI flags / environment variables
//  2. Load YAML config (if any) over defaults
//  3. Build logger
//  4. Load persisted agent_token.json (best-effort, not yet enforced)
//  5. Build control-plane client
//  6. Register with the control plane
//  7. Build and run the reconciler
//  8. Block until SIGINT/SIGTERM, then graceful shutdown
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	agentclient "github.com/theeghanprojecthub/Observix-Pro-Max/internal/agent/client"
	agentconfig "github.com/theeghanprojecthub/Observix-Pro-Max/internal/agent/config"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/agent/reconciler"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/agent/state"
	commonconfig "github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/config"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type flags struct {
	configFile      string
	agentID         string
	region          string
	controlPlaneURL string
	stateDir        string
	logLevel        string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "observix-agent",
		Short: "Observix agent — runs assigned log-collection pipelines",
		Long: `Observix agent registers with a control plane, heartbeats, pulls its
assigned pipeline set, and runs each pipeline's source -> processor ->
destination flow with retry and backoff.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}

	root.AddCommand(newVersionCmd())

	root.PersistentFlags().StringVar(&f.configFile, "config", "", "Path to YAML config file")
	root.PersistentFlags().StringVar(&f.agentID, "agent-id", commonconfig.EnvOrDefault("OBSERVIX_AGENT_ID", ""), "Stable agent identifier (overrides config)")
	root.PersistentFlags().StringVar(&f.region, "region", "", "Region tag (overrides config)")
	root.PersistentFlags().StringVar(&f.controlPlaneURL, "control-plane-url", "", "Control plane base URL (overrides config)")
	root.PersistentFlags().StringVar(&f.stateDir, "state-dir", "", "State directory (overrides config)")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error; overrides config)")

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("observix-agent %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func loadConfig(f *flags) (agentconfig.Config, error) {
	cfg, err := agentconfig.Load(f.configFile)
	if err != nil {
		return agentconfig.Config{}, err
	}
	if f.agentID != "" {
		cfg.AgentID = f.agentID
	}
	if f.region != "" {
		cfg.Region = f.region
	}
	if f.controlPlaneURL != "" {
		cfg.ControlPlaneURL = f.controlPlaneURL
	}
	if f.stateDir != "" {
		cfg.StateDir = f.stateDir
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return cfg, nil
}

func run(ctx context.Context, f *flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.AgentID == "" {
		return fmt.Errorf("agent_id is required (set via --agent-id, OBSERVIX_AGENT_ID, or config file)")
	}

	logger, err := logging.Build("agent", cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting observix agent",
		zap.String("version", version),
		zap.String("agent_id", cfg.AgentID),
		zap.String("region", cfg.Region),
		zap.String("control_plane_url", cfg.ControlPlaneURL),
		zap.String("state_dir", cfg.StateDir),
	)

	// --- Signal handling ---
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// --- Load persisted token (best-effort; not yet enforced anywhere in
	// the request path — see the auth open question) ---
	if tok, err := state.LoadToken(cfg.StateDir); err != nil {
		logger.Warn("failed to load agent_token.json, continuing without it", zap.Error(err))
	} else if tok.Token != "" {
		logger.Debug("loaded persisted agent token")
	}

	capabilities := []string{"file_tail", "syslog_udp", "http_listener"}

	c := agentclient.New(cfg.ControlPlaneURL, agentconfig.HTTPTimeout)

	if err := c.Register(ctx, cfg.AgentID, cfg.Region, cfg.AdminPort, capabilities); err != nil {
		logger.Warn("initial registration failed, reconciler will keep trying on its own cadence", zap.Error(err))
	} else {
		logger.Info("registered with control plane")
	}

	rec := reconciler.New(reconciler.Config{
		AgentID:           cfg.AgentID,
		Region:            cfg.Region,
		TenantID:          cfg.TenantID,
		AdminPort:         cfg.AdminPort,
		Capabilities:      capabilities,
		HeartbeatInterval: agentconfig.HeartbeatInterval,
		PollInterval:      cfg.PollAssignmentsInterval(),
	}, c, logger)

	rec.Run(ctx)

	logger.Info("observix agent stopped")
	return nil
}

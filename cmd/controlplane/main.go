package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/config"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/logging"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/controlplane/api"
	cpconfig "github.com/theeghanprojecthub/Observix-Pro-Max/internal/controlplane/config"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/controlplane/db"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/controlplane/repository"
)

var (
	version = "dev"
	commit  = "none"
)

type flags struct {
	configFile string
	httpAddr   string
	dbDriver   string
	dbDSN      string
	logLevel   string
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
		Use:   "observix-control-plane",
		Short: "Observix control plane — pipeline definitions and agent assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("observix-control-plane %s (commit: %s)\n", version, commit)
		},
	})

	root.PersistentFlags().StringVar(&f.configFile, "config", config.EnvOrDefault("OBSERVIX_CONFIG", ""), "path to a YAML config file")
	root.PersistentFlags().StringVar(&f.httpAddr, "http-addr", config.EnvOrDefault("OBSERVIX_HTTP_ADDR", ":8900"), "HTTP listen address")
	root.PersistentFlags().StringVar(&f.dbDriver, "db-driver", "", "database driver (sqlite or postgres); overrides the config file")
	root.PersistentFlags().StringVar(&f.dbDSN, "db-dsn", "", "database DSN; overrides the config file")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")

	return root
}

func run(ctx context.Context, f *flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.Build("control_plane", cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting observix control plane",
		zap.String("version", version),
		zap.String("http_addr", f.httpAddr),
		zap.String("db_driver", cfg.DBDriver),
	)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gormDB, err := db.New(db.Config{
		Driver:   cfg.DBDriver,
		DSN:      cfg.DatabaseURL,
		Logger:   logger,
		LogLevel: gormLogLevel(cfg.LogLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	defer sqlDB.Close()

	agentRepo := repository.NewAgentRepository(gormDB)
	pipelineRepo := repository.NewPipelineRepository(gormDB)
	assignmentRepo := repository.NewAssignmentRepository(gormDB)

	offlineThreshold := time.Duration(cfg.AgentOfflineThresholdSeconds) * time.Second
	agentHandler := api.NewAgentHandler(agentRepo, assignmentRepo, pipelineRepo, offlineThreshold, logger)
	pipelineHandler := api.NewPipelineHandler(pipelineRepo, logger)
	assignmentHandler := api.NewAssignmentHandler(assignmentRepo, agentRepo, pipelineRepo, logger)

	router := api.NewRouter(agentHandler, pipelineHandler, assignmentHandler, logger)

	httpAddr := f.httpAddr
	httpSrv := &http.Server{
		Addr:         httpAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", httpAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down observix control plane")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server graceful shutdown error", zap.Error(err))
	}

	logger.Info("observix control plane stopped")
	return nil
}

func loadConfig(f *flags) (cpconfig.Config, error) {
	cfg, err := cpconfig.Load(f.configFile)
	if err != nil {
		return cpconfig.Config{}, err
	}
	if f.dbDriver != "" {
		cfg.DBDriver = f.dbDriver
	}
	if f.dbDSN != "" {
		cfg.DatabaseURL = f.dbDSN
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return cfg, nil
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug":
		return gormlogger.Info
	case "info":
		return gormlogger.Warn
	default:
		return gormlogger.Error
	}
}

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

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/config"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/logging"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/indexer/api"
	indexerconfig "github.com/theeghanprojecthub/Observix-Pro-Max/internal/indexer/config"
)

var (
	version = "dev"
	commit  = "none"
)

type flags struct {
	configFile string
	httpAddr   string
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
		Use:   "observix-indexer",
		Short: "Observix indexer — normalizes raw log lines into structured documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("observix-indexer %s (commit: %s)\n", version, commit)
		},
	})

	root.PersistentFlags().StringVar(&f.configFile, "config", config.EnvOrDefault("OBSERVIX_CONFIG", ""), "path to a YAML config file")
	root.PersistentFlags().StringVar(&f.httpAddr, "http-addr", "", "HTTP listen address; overrides the config file's host/port")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")

	return root
}

func run(ctx context.Context, f *flags) error {
	cfg, err := indexerconfig.Load(f.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}

	logger, err := logging.Build("indexer", cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	httpAddr := f.httpAddr
	if httpAddr == "" {
		httpAddr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	logger.Info("starting observix indexer",
		zap.String("version", version),
		zap.String("http_addr", httpAddr),
	)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	handler := api.NewHandler(logger)
	router := api.NewRouter(handler, logger)

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
	logger.Info("shutting down observix indexer")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server graceful shutdown error", zap.Error(err))
	}

	logger.Info("observix indexer stopped")
	return nil
}

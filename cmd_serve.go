package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"filterdesk/pkg/config"
	"filterdesk/pkg/console"
	"filterdesk/pkg/logger"
	"filterdesk/pkg/settingsapi"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web console (default)",
	RunE:  runServeCmd,
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	return serve(cmd.Context(), configPath, sigChan)
}

// serve runs the console until a shutdown signal arrives. SIGHUP re-reads
// the config file and applies its log level.
func serve(ctx context.Context, path string, sigChan <-chan os.Signal) error {
	cfg, err := config.Setup(path)
	if err != nil {
		return err
	}

	log := logger.Setup(cfg.Logging.Level, cfg.Logging.File)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv, err := console.New(console.Options{
		Listen:   cfg.Server.Listen,
		API:      apiOptions(cfg, log),
		Console:  cfg.Console,
		AuditLog: cfg.Logging.AuditLog,
		Log:      log,
	})
	if err != nil {
		return fmt.Errorf("build console: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		log.Error("failed to start server", "error", err)
		return err
	}

	for {
		sig := <-sigChan
		switch sig {
		case syscall.SIGHUP:
			log.Info("received SIGHUP signal, reloading log level")
			reloaded, err := config.Setup(path)
			if err != nil {
				log.Error("failed to reload config", "error", err)
				continue
			}
			logger.SetLevel(reloaded.Logging.Level)
			log.Info("log level reloaded", "level", reloaded.Logging.Level)
		case syscall.SIGINT, syscall.SIGTERM:
			log.Info("received shutdown signal", "signal", sig)

			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("shutdown failed", "error", err)
				return err
			}
			return nil
		}
	}
}

func apiOptions(cfg *config.Config, log *slog.Logger) settingsapi.Options {
	return settingsapi.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Log:     log,
	}
}

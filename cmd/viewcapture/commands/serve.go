package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/viewcapture/internal/api"
	"github.com/bryanchriswhite/viewcapture/internal/logger"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the viewcapture server",
	Long: `Start the viewcapture HTTP server.

The server answers capture requests over REST (POST /api/capture) and over a
WebSocket (/api/capture/stream), and lists which windows match each target.`,
	Example: `  # Start server on default port (8090)
  viewcapture serve

  # Start server on custom port
  viewcapture serve --port 9090

  # Start with specific config file
  viewcapture serve --config /path/to/config.yaml

  # Start with debug logging
  viewcapture serve --log-level debug --pretty`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()
	log.Info().
		Str("path", configMgr.GetConfigPath()).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	a, err := newApp(configMgr)
	if err != nil {
		return err
	}
	defer a.Close()

	server := api.NewServer(a.orchestrator, a.resolver, configMgr)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(cfg.ServerPort)
	}()

	log.Info().
		Int("port", cfg.ServerPort).
		Str("native_capturer", a.orchestrator.Native().Name()).
		Msgf("viewcapture is running, API at http://localhost:%d/api", cfg.ServerPort)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-sigChan:
	}

	log.Info().Msg("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

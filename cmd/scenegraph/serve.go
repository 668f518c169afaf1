package scenegraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundprediction/scenegraph"
	"github.com/soundprediction/scenegraph/pkg/config"
	"github.com/soundprediction/scenegraph/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Scenegraph HTTP server",
	Long: `Start the Scenegraph HTTP server to provide REST API access to the registry.

The server provides endpoints for:
- Submitting observation batches
- Listing and reading registered entities
- Inspecting the reflected class schema
- Health checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServe,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server-specific flags
	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serveCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serveCmd.Flags().StringVar(&serverMode, "mode", "debug", "Server mode (debug, release, test)")
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.flush()

	overrideServerFlags(cmd, rt.cfg)
	if err := validateServerConfig(rt.cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := context.Background()
	client, err := scenegraph.NewFromConfig(ctx, rt.cfg, rt.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize scenegraph: %w", err)
	}
	defer client.Close(ctx)

	if err := client.Ping(ctx); err != nil {
		rt.logger.Warn("graph store not reachable yet", "driver", rt.cfg.Store.Driver, "error", err)
	}
	rt.logger.Info("scenegraph initialized",
		"driver", rt.cfg.Store.Driver,
		"class", client.Schema().Name,
		"attributes", len(client.Schema().Attributes))

	srv := server.New(rt.cfg, client, rt.logger)
	srv.Setup()
	return serveUntilSignal(srv, rt.logger)
}

// serveUntilSignal runs srv until SIGINT or SIGTERM, then drains in-flight
// requests for up to 30 seconds.
func serveUntilSignal(srv *server.Server, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}

func overrideServerFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/nl2sparql/internal/api/handlers"
	"github.com/cloo-solutions/nl2sparql/internal/api/middleware"
	"github.com/cloo-solutions/nl2sparql/internal/config"
	"github.com/cloo-solutions/nl2sparql/internal/logging"
	"github.com/cloo-solutions/nl2sparql/internal/server"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Serve POST /ask and POST /generate over HTTP until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, version)
		},
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (default: PORT or 8080)")
	cmd.Flags().Bool("no-warm", false, "Skip embedding the schema catalog at startup")
	bindEnv(cmd, "port", "PORT")

	return cmd
}

func runServe(cmd *cobra.Command, version string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if portFlag, _ := cmd.Flags().GetString("port"); portFlag != "" {
		cfg.Port = portFlag
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())

	app, err := NewApp(cfg, logger, version)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if noWarm, _ := cmd.Flags().GetBool("no-warm"); !noWarm {
		stopWarmer := app.StartWarmer(ctx)
		defer stopWarmer()
	}

	routerCfg := server.RouterConfig{
		AskHandler:     handlers.NewAskHandler(app.Pipeline),
		MetricsHandler: app.Metrics,
		Logger:         logger.With("component", "http"),
	}
	if cfg.APIToken != "" {
		routerCfg.TokenValidator = middleware.StaticToken{Token: cfg.APIToken}
	} else {
		logger.Warn("API_TOKEN not set, question routes are open")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port, "endpoint", cfg.SPARQLEndpoint)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}


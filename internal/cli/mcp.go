package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloo-solutions/nl2sparql/internal/config"
	"github.com/cloo-solutions/nl2sparql/internal/logging"
	"github.com/cloo-solutions/nl2sparql/internal/mcpserver"
	"github.com/spf13/cobra"
)

// MCPCmd returns the mcp command.
func MCPCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the pipeline as MCP tools over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing the
generate_sparql and ask_dbpedia tools. Logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			// stdout carries the protocol
			logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

			app, err := NewApp(cfg, logger, version)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			stopWarmer := app.StartWarmer(ctx)
			defer stopWarmer()

			return mcpserver.NewMCPServer(app.Pipeline, version, logger.With("component", "mcp")).Run(ctx)
		},
	}
}

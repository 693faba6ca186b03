package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the query tools over MCP (stdio)",
	Long: `Serve querygate as a Model Context Protocol server on stdin/stdout.

Tools:
  query_model       Query records of one entity
  list_models       List every queryable entity
  describe_model    Describe one entity and its fields
  database_schema   List the tables of the backing database
  list_migrations   List migrations and whether they are applied
  application_info  Service name, version, driver and namespaces
  list_commands     The commands of this CLI

Logs are written to stderr.

Example client configuration:
  {"command": "querygate", "args": ["mcp", "--config", "/etc/querygate/querygate.yaml"]}`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := openApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	return app.RunMCP(ctx)
}

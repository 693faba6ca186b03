package main

import (
	"context"
	"fmt"

	"github.com/artpar/querygate/bootstrap"
	"github.com/artpar/querygate/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP query server",
	Long: `Start the querygate HTTP server.

The server will:
  - Load configuration from querygate.yaml (or --config)
  - Or load configuration from QUERYGATE_* environment variables
  - Build the catalog and open the store
  - Serve POST /v1/query and the /v1 introspection endpoints

Environment variables (for Docker deployments):
  QUERYGATE_DATABASE_DRIVER  - sqlite or memory (default: sqlite)
  QUERYGATE_DATABASE_DSN     - Database path (default: querygate.db)
  QUERYGATE_CATALOG_DIR      - Entity definitions (default: embedded demo)
  QUERYGATE_SERVER_PORT      - Server port (default: 8080)
  QUERYGATE_LOG_LEVEL        - Log level: debug, info, warn, error

Examples:
  querygate serve
  querygate serve --config /etc/querygate/querygate.yaml
  querygate serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var (
		app *bootstrap.App
		err error
	)
	if hotReload {
		// The holder logs through its own writer until the app logger exists.
		h, herr := config.NewHolder(cfgFile, zerolog.New(cmd.ErrOrStderr()).With().Timestamp().Logger())
		if herr != nil {
			return fmt.Errorf("config error: %w", herr)
		}
		app, err = bootstrap.NewFromHolder(ctx, h, bootstrap.Options{
			Version:  version,
			Commands: commandCatalog(rootCmd),
		})
	} else {
		cfg, cerr := loadConfig()
		if cerr != nil {
			return cerr
		}
		app, err = bootstrap.New(ctx, cfg, bootstrap.Options{
			Version:  version,
			Commands: commandCatalog(rootCmd),
		})
	}
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	return app.Run()
}

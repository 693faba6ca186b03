package main

import (
	"context"
	"fmt"

	"github.com/artpar/querygate/bootstrap"
	"github.com/spf13/cobra"
)

var migrateList bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and apply pending migrations",
	Long: `Create the catalog's tables and apply pending migrations (SQLite only).

Migrations live one directory per namespace; each file is applied once and
recorded in schema_migrations.

Examples:
  querygate migrate
  querygate migrate --list`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&migrateList, "list", false, "list migrations without applying them")
	addFormatFlag(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Applying is explicit here; listing must not change the database.
	cfg.Database.AutoMigrate = false

	app, err := bootstrap.New(ctx, cfg, appOptions())
	if err != nil {
		return err
	}
	defer app.Shutdown()

	if !migrateList {
		if err := app.Migrate(ctx); err != nil {
			return err
		}
	}

	resp, err := app.Prober.ListMigrations(ctx)
	if err != nil {
		return err
	}
	if !migrateList {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s Database is up to date\n", checkMark)
	}
	return printValue(cmd, resp)
}

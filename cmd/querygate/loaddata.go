package main

import (
	"context"
	"fmt"

	"github.com/artpar/querygate/config"
	"github.com/spf13/cobra"
)

var loaddataCmd = &cobra.Command{
	Use:   "loaddata [dir]",
	Short: "Insert fixture records into the database",
	Long: `Insert the fixture records found in dir (.json, .yaml, .yml files) into
the SQLite database. Without dir the demo records are loaded when the demo
catalog is served.

Each fixture names its model as namespace.entity:

  [{"model": "blog.category", "pk": 1, "fields": {"name": "Travel", "slug": "travel"}}]

Examples:
  querygate loaddata
  querygate loaddata ./fixtures`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLoaddata,
}

func init() {
	rootCmd.AddCommand(loaddataCmd)
}

func runLoaddata(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.Driver != config.DriverSQLite {
		return fmt.Errorf("loaddata needs the %s driver; the memory store loads fixtures.dir at startup", config.DriverSQLite)
	}

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	dir := ""
	if len(args) == 1 {
		dir = args[0]
	}
	n, err := app.LoadFixtures(ctx, dir)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Installed %d record(s)\n", n)
	return nil
}

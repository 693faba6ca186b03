package main

import (
	"context"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the tables of the backing database",
	Long: `Show the tables, columns and indexes of the backing database.

With the memory driver the layout derived from the catalog is shown.

Examples:
  querygate schema
  querygate schema --format json`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	addFormatFlag(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	resp, err := app.Prober.DatabaseSchema(ctx)
	if err != nil {
		return err
	}
	return printValue(cmd, resp)
}

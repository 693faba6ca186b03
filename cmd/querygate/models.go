package main

import (
	"context"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models [namespace entity]",
	Short: "List queryable entities, or describe one",
	Long: `List every entity in the catalog, or describe one entity's fields.

Examples:
  querygate models
  querygate models blog Post
  querygate models blog Post --format yaml`,
	Args: cobra.MatchAll(cobra.MaximumNArgs(2), func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return cobra.ExactArgs(2)(cmd, args)
		}
		return nil
	}),
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	addFormatFlag(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	app, err := openApp(context.Background())
	if err != nil {
		return err
	}
	defer app.Shutdown()

	if len(args) == 0 {
		return printValue(cmd, app.Prober.ListModels())
	}

	resp, err := app.Prober.DescribeModel(args[0], args[1])
	if err != nil {
		return err
	}
	return printValue(cmd, resp)
}

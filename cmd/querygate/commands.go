package main

import (
	"github.com/artpar/querygate/core/introspect"
	"github.com/spf13/cobra"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the available commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printValue(cmd, introspect.CommandsResponse{Commands: commandCatalog(rootCmd)})
	},
}

func init() {
	rootCmd.AddCommand(commandsCmd)
	addFormatFlag(commandsCmd)
}

package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/artpar/querygate/bootstrap"
	"github.com/artpar/querygate/config"
	"github.com/artpar/querygate/core/formatter"
	"github.com/artpar/querygate/core/introspect"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	format  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "querygate",
	Short: "Read-only query gateway over catalog entities",
	Long: `querygate serves read-only queries over the entities of a catalog.

Entities are described in YAML and stored in SQLite (or an in-memory store).
Queries filter by field equality, order by any field and return a page of
records with their to-one relations rendered as key and display string.

Quick start:
  querygate serve                        # HTTP API on :8080
  querygate mcp                          # MCP tools over stdio
  querygate query -n blog -e Post -l 5   # One query from the shell
  querygate models                       # What can be queried`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "querygate.yaml", "config file path")
}

// addFormatFlag registers --format on commands that print results.
func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&format, "format", "table", fmt.Sprintf("output format %v", formatter.List()))
}

// loadConfig reads the config file, or the environment when the file is absent.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

// openApp initializes the application for a one-shot command. Logs go to
// stderr so stdout carries only the command's output.
func openApp(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg, appOptions())
}

func appOptions() bootstrap.Options {
	return bootstrap.Options{
		Version:   version,
		Commands:  commandCatalog(rootCmd),
		LogOutput: os.Stderr,
	}
}

// commandCatalog lists the runnable commands under root.
func commandCatalog(root *cobra.Command) []introspect.Command {
	var out []introspect.Command
	var walk func(cmd *cobra.Command)
	walk = func(cmd *cobra.Command) {
		for _, c := range cmd.Commands() {
			if !c.IsAvailableCommand() || c.Name() == "help" || c.Name() == "completion" {
				continue
			}
			if c.Runnable() {
				out = append(out, introspect.Command{
					Name:  c.CommandPath(),
					Usage: c.UseLine(),
					Short: c.Short,
				})
			}
			walk(c)
		}
	}
	walk(root)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// printValue renders an introspection result in the selected format.
func printValue(cmd *cobra.Command, v any) error {
	f, err := formatter.Lookup(format)
	if err != nil {
		return err
	}
	return f.FormatValue(cmd.OutOrStdout(), v, formatter.FormatOptions{})
}

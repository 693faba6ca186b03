package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/artpar/querygate/adapters/sqlite"
	"github.com/artpar/querygate/config"
	"github.com/artpar/querygate/core/catalog"
	"github.com/artpar/querygate/core/schema"
	"github.com/artpar/querygate/demo"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var validateCheckDatabase bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and entity definitions",
	Long: `Validate the querygate configuration and the catalog it points to.

Checks:
  - YAML syntax is valid
  - Required fields are present
  - Entity definitions parse and their relations resolve
  - Database opens (optional)

Examples:
  querygate validate
  querygate validate --config /etc/querygate/querygate.yaml --check-database`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckDatabase, "check-database", false, "check that the database opens")
}

func runValidate(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Validating %s...\n\n", cfgFile)

	var (
		cfg *config.Config
		err error
	)
	if _, statErr := os.Stat(cfgFile); statErr == nil {
		fmt.Fprintf(w, "  %s Config file exists\n", checkMark)
		cfg, err = config.Load(cfgFile)
	} else {
		fmt.Fprintf(w, "  %s Config file not found, using environment\n", checkMark)
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		fmt.Fprintf(w, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(w, "  %s Config valid\n", checkMark)

	// Show config summary
	fmt.Fprintf(w, "  %s Listen: %s\n", checkMark, cfg.Server.Addr())
	fmt.Fprintf(w, "  %s Database: %s (%s)\n", checkMark, cfg.Database.DSN, cfg.Database.Driver)

	cat, err := validateCatalog(cfg)
	if err != nil {
		fmt.Fprintf(w, "  %s Catalog valid\n", crossMark)
		return fmt.Errorf("catalog error: %w", err)
	}
	fmt.Fprintf(w, "  %s Catalog: %d models in %v\n", checkMark, cat.Len(), cat.Namespaces())

	// Optional: check database
	if validateCheckDatabase && cfg.Database.Driver == config.DriverSQLite {
		if err := checkDatabase(cfg); err != nil {
			fmt.Fprintf(w, "  %s Database opens\n", crossMark)
			fmt.Fprintf(w, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(w, "  %s Database opens\n", checkMark)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configuration is valid.")
	return nil
}

func validateCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	var (
		entities []schema.Entity
		err      error
	)
	if cfg.Catalog.Dir != "" {
		entities, err = schema.ParseDir(cfg.Catalog.Dir)
	} else {
		entities, err = demo.Entities()
	}
	if err != nil {
		return nil, err
	}
	return catalog.Build(entities)
}

func checkDatabase(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := sqlite.Open(ctx, cfg.Database.DSN, sqlite.Options{
		BusyTimeout:    cfg.Database.BusyTimeout,
		ConnectTimeout: 5 * time.Second,
	}, zerolog.Nop())
	if err != nil {
		return err
	}
	return db.Close()
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)

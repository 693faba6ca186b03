package main

import (
	"context"

	"github.com/artpar/querygate/core/openapi"
	"github.com/spf13/cobra"
)

var (
	openapiServer  string
	openapiCompact bool
)

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Print the OpenAPI document of the HTTP API",
	Long: `Print the OpenAPI 3.0 document describing the HTTP API.

The same document is served at /v1/openapi.json.

Examples:
  querygate openapi > openapi.json
  querygate openapi --server https://api.example.com --compact`,
	Args: cobra.NoArgs,
	RunE: runOpenAPI,
}

func init() {
	rootCmd.AddCommand(openapiCmd)
	openapiCmd.Flags().StringVar(&openapiServer, "server", "", "Server URL to list in the document")
	openapiCmd.Flags().BoolVar(&openapiCompact, "compact", false, "Print without indentation")
}

func runOpenAPI(cmd *cobra.Command, args []string) error {
	app, err := openApp(context.Background())
	if err != nil {
		return err
	}
	defer app.Shutdown()

	spec := app.OpenAPI()
	if openapiServer != "" {
		spec.Servers = append(spec.Servers, openapi.Server{URL: openapiServer})
	}

	encode := spec.ToJSON
	if openapiCompact {
		encode = spec.ToJSONCompact
	}
	data, err := encode()
	if err != nil {
		return err
	}
	cmd.OutOrStdout().Write(append(data, '\n'))
	return nil
}

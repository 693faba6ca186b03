package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/artpar/querygate/core/formatter"
	"github.com/artpar/querygate/core/query"
	"github.com/spf13/cobra"
)

var (
	queryNamespace string
	queryEntity    string
	queryFilters   []string
	queryOrderBy   []string
	queryLimit     int
	queryColumns   []string
	queryNoHeader  bool
	queryCompact   bool
	queryMaxWidth  int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query records of one entity",
	Long: `Run one read-only query and print the result.

Filters are field=value equality checks combined with AND. A value of null
matches missing values. Ordering fields may be prefixed with - for descending.

Examples:
  querygate query -n blog -e Post
  querygate query -n blog -e Post -f status=published -o -created_at -l 5
  querygate query -n blog -e Post -f author=2 --columns id,title,author_str
  querygate query -n blog -e Comment -f is_approved=false --format json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVarP(&queryNamespace, "namespace", "n", "", "entity namespace (required)")
	queryCmd.Flags().StringVarP(&queryEntity, "entity", "e", "", "entity name (required)")
	queryCmd.Flags().StringArrayVarP(&queryFilters, "filter", "f", nil, "field=value filter, repeatable")
	queryCmd.Flags().StringSliceVarP(&queryOrderBy, "order-by", "o", nil, "fields to order by, prefix - for descending")
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "l", 0, fmt.Sprintf("maximum records (default %d, capped at %d)", query.DefaultLimit, query.MaxLimit))
	queryCmd.Flags().StringSliceVar(&queryColumns, "columns", nil, "fields to print (default all)")
	queryCmd.Flags().BoolVar(&queryNoHeader, "no-header", false, "omit the table header")
	queryCmd.Flags().BoolVar(&queryCompact, "compact", false, "compact json output")
	queryCmd.Flags().IntVar(&queryMaxWidth, "max-width", 40, "truncate table cells to this width (0 = no limit)")
	addFormatFlag(queryCmd)

	queryCmd.MarkFlagRequired("namespace")
	queryCmd.MarkFlagRequired("entity")
}

func runQuery(cmd *cobra.Command, args []string) error {
	f, err := formatter.Lookup(format)
	if err != nil {
		return err
	}

	filters, err := parseFilters(queryFilters)
	if err != nil {
		return err
	}

	req := query.Request{
		Namespace: queryNamespace,
		Entity:    queryEntity,
		Filters:   filters,
		OrderBy:   queryOrderBy,
	}
	if cmd.Flags().Changed("limit") {
		limit := queryLimit
		req.Limit = &limit
	}

	ctx := context.Background()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	env := app.Engine.Handle(ctx, req)
	opts := formatter.FormatOptions{
		Columns:  queryColumns,
		NoHeader: queryNoHeader,
		Compact:  queryCompact,
		MaxWidth: queryMaxWidth,
	}
	if err := formatter.FormatEnvelope(f, cmd.OutOrStdout(), env, opts); err != nil {
		return err
	}
	if !env.OK() {
		return fmt.Errorf("query failed")
	}
	return nil
}

// parseFilters turns field=value pairs into a filter map. The literal null
// becomes a nil value.
func parseFilters(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filters := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		field, value, ok := strings.Cut(pair, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid filter %q: expected field=value", pair)
		}
		if _, dup := filters[field]; dup {
			return nil, fmt.Errorf("invalid filter %q: %s given twice", pair, field)
		}
		if value == "null" {
			filters[field] = nil
			continue
		}
		filters[field] = value
	}
	return filters, nil
}

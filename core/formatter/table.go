package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/artpar/querygate/core/introspect"
	"github.com/artpar/querygate/core/query"
	"github.com/artpar/querygate/core/schema"
)

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Description returns the formatter description.
func (f *TableFormatter) Description() string {
	return "Aligned text table output"
}

// FormatResponse formats the response records as a table followed by a count line.
func (f *TableFormatter) FormatResponse(w io.Writer, resp *query.Response, opts FormatOptions) error {
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}

	columns := f.resolveColumns(resp.Results, opts.Columns)
	rows := make([][]string, 0, len(resp.Results))
	for _, rec := range resp.Results {
		var values []string
		for _, col := range columns {
			v, _ := rec.Get(col)
			values = append(values, f.formatValue(v, opts.MaxWidth))
		}
		rows = append(rows, values)
	}

	if err := f.writeTable(w, columns, rows, opts.NoHeader); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d of %d %s.%s records (limit %d)\n",
		resp.ReturnedCount, resp.TotalCount, resp.Namespace, resp.Entity, resp.Limit)
	return nil
}

// FormatValue formats introspection results as tables. Values without a
// tabular layout are written as YAML.
func (f *TableFormatter) FormatValue(w io.Writer, v any, opts FormatOptions) error {
	switch x := v.(type) {
	case schema.EntityListResponse:
		var rows [][]string
		for _, e := range x.Entities {
			rows = append(rows, []string{e.Namespace, e.Entity, e.Table, fmt.Sprint(len(e.Fields)), e.Description})
		}
		return f.writeTable(w, []string{"namespace", "entity", "table", "fields", "description"}, rows, opts.NoHeader)

	case schema.EntitySchemaResponse:
		fmt.Fprintf(w, "%s.%s (table %s, primary key %s)\n\n", x.Namespace, x.Entity, x.Table, x.PrimaryKey)
		var rows [][]string
		for _, fs := range x.Fields {
			rows = append(rows, []string{
				fs.Name, fs.Type, fs.Column, f.formatValue(fs.Nullable, 0), f.formatValue(fs.Ref, 0),
			})
		}
		return f.writeTable(w, []string{"field", "type", "column", "nullable", "ref"}, rows, opts.NoHeader)

	case introspect.SchemaResponse:
		var rows [][]string
		for _, t := range x.Tables {
			var cols []string
			for _, c := range t.Columns {
				cols = append(cols, c.Name)
			}
			rows = append(rows, []string{t.Name, f.formatValue(strings.Join(cols, ", "), opts.MaxWidth), fmt.Sprint(len(t.Indexes))})
		}
		return f.writeTable(w, []string{"table", "columns", "indexes"}, rows, opts.NoHeader)

	case introspect.MigrationsResponse:
		if len(x.Migrations) == 0 {
			fmt.Fprintln(w, "No migrations found.")
			return nil
		}
		var rows [][]string
		for _, m := range x.Migrations {
			at := "-"
			if m.AppliedAt != nil {
				at = m.AppliedAt.Format("2006-01-02 15:04:05")
			}
			rows = append(rows, []string{m.Namespace, m.Name, f.formatValue(m.Applied, 0), at})
		}
		if err := f.writeTable(w, []string{"namespace", "name", "applied", "applied_at"}, rows, opts.NoHeader); err != nil {
			return err
		}
		fmt.Fprintf(w, "\n%d applied, %d pending\n", x.Applied, x.Pending)
		return nil

	case introspect.CommandsResponse:
		var rows [][]string
		for _, c := range x.Commands {
			rows = append(rows, []string{c.Name, c.Short})
		}
		return f.writeTable(w, []string{"command", "description"}, rows, opts.NoHeader)

	default:
		return NewYAMLFormatter().FormatValue(w, v, opts)
	}
}

// FormatError formats an error message.
func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	fmt.Fprintf(w, "Error: %s\n", err.Error())
	return nil
}

func (f *TableFormatter) writeTable(w io.Writer, columns []string, rows [][]string, noHeader bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !noHeader {
		var headers []string
		for _, col := range columns {
			headers = append(headers, strings.ToUpper(col))
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	return tw.Flush()
}

// resolveColumns determines which columns to display: the requested ones, or
// every key of the records in first-seen order.
func (f *TableFormatter) resolveColumns(records []query.Record, requested []string) []string {
	if len(requested) > 0 {
		return requested
	}

	var columns []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, k := range rec.Keys() {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	return columns
}

// formatValue formats a value for display.
func (f *TableFormatter) formatValue(val any, maxWidth int) string {
	if val == nil {
		return "-"
	}

	var str string
	switch v := val.(type) {
	case string:
		if v == "" {
			return "-"
		}
		str = v
	case bool:
		if v {
			str = "yes"
		} else {
			str = "no"
		}
	case []byte:
		str = "[binary]"
	case float64:
		// Check if it's a whole number
		if v == float64(int64(v)) {
			str = fmt.Sprintf("%d", int64(v))
		} else {
			str = fmt.Sprintf("%.2f", v)
		}
	default:
		b, _ := json.Marshal(v)
		str = string(b)
	}

	// Truncate if needed
	if maxWidth > 3 && len(str) > maxWidth {
		str = str[:maxWidth-3] + "..."
	}

	return str
}

func init() {
	Register(NewTableFormatter())
}

package formatter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/artpar/querygate/core/query"
)

// JSONFormatter formats output as JSON. Responses are written exactly as the
// HTTP and MCP transports return them.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Description returns the formatter description.
func (f *JSONFormatter) Description() string {
	return "JSON output format"
}

// FormatResponse formats a query response as JSON.
func (f *JSONFormatter) FormatResponse(w io.Writer, resp *query.Response, opts FormatOptions) error {
	return f.encode(w, projectResponse(resp, opts.Columns), opts.Compact)
}

// FormatValue formats any value as JSON.
func (f *JSONFormatter) FormatValue(w io.Writer, v any, opts FormatOptions) error {
	return f.encode(w, v, opts.Compact)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, query.ErrorEnvelope{Error: err.Error()}, false)
}

// encode writes JSON to the writer.
func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewJSONFormatter()); err != nil {
		fmt.Printf("failed to register json formatter: %v\n", err)
	}
}

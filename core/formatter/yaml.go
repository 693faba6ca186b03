package formatter

import (
	"fmt"
	"io"

	"github.com/artpar/querygate/core/query"
	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Description returns the formatter description.
func (f *YAMLFormatter) Description() string {
	return "YAML output format"
}

// FormatResponse formats a query response as YAML.
func (f *YAMLFormatter) FormatResponse(w io.Writer, resp *query.Response, opts FormatOptions) error {
	return f.encode(w, projectResponse(resp, opts.Columns))
}

// FormatValue formats any value as YAML.
func (f *YAMLFormatter) FormatValue(w io.Writer, v any, _ FormatOptions) error {
	return f.encode(w, v)
}

// FormatError formats an error as YAML.
func (f *YAMLFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, query.ErrorEnvelope{Error: err.Error()})
}

// encode writes YAML to the writer.
func (f *YAMLFormatter) encode(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewYAMLFormatter()); err != nil {
		fmt.Printf("failed to register yaml formatter: %v\n", err)
	}
}

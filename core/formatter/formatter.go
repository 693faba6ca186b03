// Package formatter renders query responses and introspection results for the CLI.
// Formatters are looked up by name (table, json, yaml) from a registry.
package formatter

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/artpar/querygate/core/query"
)

// Formatter converts query output to a specific output format.
type Formatter interface {
	// Name returns the formatter name (e.g., "table", "json", "yaml").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// FormatResponse formats a query response.
	FormatResponse(w io.Writer, resp *query.Response, opts FormatOptions) error

	// FormatValue formats an introspection result such as a model list.
	FormatValue(w io.Writer, v any, opts FormatOptions) error

	// FormatError formats an error.
	FormatError(w io.Writer, err error) error
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// Columns specifies which record fields to include (nil = all).
	Columns []string

	// NoHeader disables header row for tabular formats.
	NoHeader bool

	// Compact minimizes whitespace (for json).
	Compact bool

	// MaxWidth truncates long values (0 = no limit).
	MaxWidth int
}

// FormatEnvelope writes env with f: the response on success, the error otherwise.
func FormatEnvelope(f Formatter, w io.Writer, env query.Envelope, opts FormatOptions) error {
	if !env.OK() {
		return f.FormatError(w, env.Err)
	}
	return f.FormatResponse(w, env.Response, opts)
}

// project returns records restricted to columns, in column order.
// Columns a record lacks are skipped.
func project(records []query.Record, columns []string) []query.Record {
	if len(columns) == 0 {
		return records
	}
	out := make([]query.Record, len(records))
	for i, rec := range records {
		for _, col := range columns {
			if v, ok := rec.Get(col); ok {
				out[i].Set(col, v)
			}
		}
	}
	return out
}

// projectResponse returns a copy of resp with its records restricted to columns.
func projectResponse(resp *query.Response, columns []string) *query.Response {
	if len(columns) == 0 {
		return resp
	}
	cp := *resp
	cp.Results = project(resp.Results, columns)
	return &cp
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "table",
	}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}

	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[name]
	return f, ok
}

// Default returns the default formatter.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[r.defaultFmt]
	if !ok {
		// Fallback to first available
		for _, f := range r.formatters {
			return f
		}
		return nil
	}
	return f
}

// SetDefault sets the default formatter.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[name]; !exists {
		return fmt.Errorf("formatter %q not registered", name)
	}

	r.defaultFmt = name
	return nil
}

// List returns all registered formatter names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(f Formatter) error {
	return DefaultRegistry.Register(f)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// Default returns the default formatter from the default registry.
func Default() Formatter {
	return DefaultRegistry.Default()
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}

// Lookup returns the named formatter from the default registry, or the default
// formatter when name is empty.
func Lookup(name string) (Formatter, error) {
	if name == "" {
		if f := Default(); f != nil {
			return f, nil
		}
	}
	f, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown format %q (available: %v)", name, List())
	}
	return f, nil
}

// Package query validates, executes and serializes read-only queries against
// catalog entities. Engine is the outer boundary the transports call.
package query

// Limits applied to the number of returned records.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Request names an entity collection and how to narrow, order and cap it.
type Request struct {
	Namespace string         `json:"namespace" jsonschema:"namespace the entity belongs to, e.g. blog"`
	Entity    string         `json:"entity" jsonschema:"entity name, case-insensitive, e.g. Post"`
	Filters   map[string]any `json:"filters,omitempty" jsonschema:"field to value equality filters, combined with AND"`
	OrderBy   []string       `json:"order_by,omitempty" jsonschema:"fields to order by, prefix with - for descending"`
	Limit     *int           `json:"limit,omitempty" jsonschema:"maximum number of records, default 100, capped at 1000"`
}

// Response is a page of serialized records plus counts.
type Response struct {
	Namespace     string         `json:"namespace" yaml:"namespace"`
	Entity        string         `json:"entity" yaml:"entity"`
	TotalCount    int            `json:"total_count" yaml:"total_count"`
	ReturnedCount int            `json:"returned_count" yaml:"returned_count"`
	Limit         int            `json:"limit" yaml:"limit"`
	Filters       map[string]any `json:"filters" yaml:"filters"`
	OrderBy       []string       `json:"order_by" yaml:"order_by"`
	Results       []Record       `json:"results" yaml:"results"`
}

// EffectiveLimit resolves the caller's limit: absent, zero or negative values
// become DefaultLimit and values above MaxLimit are clamped.
// clamped reports whether the cap was applied.
func EffectiveLimit(limit *int) (n int, clamped bool) {
	if limit == nil || *limit <= 0 {
		return DefaultLimit, false
	}
	if *limit > MaxLimit {
		return MaxLimit, true
	}
	return *limit, false
}

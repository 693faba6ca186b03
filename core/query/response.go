package query

import (
	"encoding/json"
	"net/http"

	"github.com/artpar/querygate/core/catalog"
)

// Assemble composes the success response. The caller's filters and order_by are
// echoed as given, empty rather than null when absent.
func Assemble(d *catalog.Descriptor, total, limit int, filters map[string]any, orderBy []string, records []Record) *Response {
	if filters == nil {
		filters = map[string]any{}
	}
	if orderBy == nil {
		orderBy = []string{}
	}
	if records == nil {
		records = []Record{}
	}

	return &Response{
		Namespace:     d.Namespace,
		Entity:        d.Name,
		TotalCount:    total,
		ReturnedCount: len(records),
		Limit:         limit,
		Filters:       filters,
		OrderBy:       orderBy,
		Results:       records,
	}
}

// ErrorEnvelope is the body of a failed request.
type ErrorEnvelope struct {
	Error string `json:"error" yaml:"error"`
}

// Envelope is the outcome of a request: either a Response or an error, never both.
type Envelope struct {
	Response *Response
	Err      error
}

// OK reports whether the request succeeded.
func (e Envelope) OK() bool {
	return e.Err == nil
}

// Body returns the value transports encode: *Response or ErrorEnvelope.
func (e Envelope) Body() any {
	if e.Err != nil {
		return ErrorEnvelope{Error: e.Err.Error()}
	}
	return e.Response
}

// StatusCode returns the HTTP status for the envelope.
func (e Envelope) StatusCode() int {
	if e.Err != nil {
		return StatusCode(e.Err)
	}
	return http.StatusOK
}

// MarshalJSON encodes Body.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Body())
}

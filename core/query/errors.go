package query

import (
	"errors"
	"fmt"
	"net/http"
)

// UnknownEntityError is returned when the namespace/entity pair is not in the catalog.
type UnknownEntityError struct {
	Namespace string
	Entity    string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("entity %q not found", e.Namespace+"."+e.Entity)
}

// InvalidFilterError is returned when a filter names an unusable field or carries
// a value that cannot be coerced to the field's kind.
type InvalidFilterError struct {
	Field  string
	Reason string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid filter %q: %s", e.Field, e.Reason)
}

// InvalidOrderingError is returned when an order_by entry names an unusable field.
type InvalidOrderingError struct {
	Field  string
	Reason string
}

func (e *InvalidOrderingError) Error() string {
	return fmt.Sprintf("invalid ordering %q: %s", e.Field, e.Reason)
}

// ExecutionError wraps any failure of the store while counting or fetching.
type ExecutionError struct {
	Entity string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Entity, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// SerializationError is returned when a record field cannot be read for a reason
// other than being unavailable on the row.
type SerializationError struct {
	Entity string
	Field  string
	Err    error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize %s.%s: %v", e.Entity, e.Field, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// InternalError carries a panic recovered at the engine boundary.
type InternalError struct {
	Value any
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %v", e.Value)
}

// Outcome labels of a query, used for logging and metrics.
const (
	OutcomeOK                 = "ok"
	OutcomeUnknownEntity      = "unknown_entity"
	OutcomeInvalidFilter      = "invalid_filter"
	OutcomeInvalidOrdering    = "invalid_ordering"
	OutcomeExecutionError     = "execution_error"
	OutcomeSerializationError = "serialization_error"
	OutcomeInternalError      = "internal_error"
)

// Outcome classifies err into one of the Outcome labels.
func Outcome(err error) string {
	var (
		unknown  *UnknownEntityError
		filter   *InvalidFilterError
		ordering *InvalidOrderingError
		exec     *ExecutionError
		ser      *SerializationError
	)
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &unknown):
		return OutcomeUnknownEntity
	case errors.As(err, &filter):
		return OutcomeInvalidFilter
	case errors.As(err, &ordering):
		return OutcomeInvalidOrdering
	case errors.As(err, &exec):
		return OutcomeExecutionError
	case errors.As(err, &ser):
		return OutcomeSerializationError
	default:
		return OutcomeInternalError
	}
}

// StatusCode maps err to an HTTP status.
func StatusCode(err error) int {
	switch Outcome(err) {
	case OutcomeOK:
		return http.StatusOK
	case OutcomeUnknownEntity:
		return http.StatusNotFound
	case OutcomeInvalidFilter, OutcomeInvalidOrdering:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

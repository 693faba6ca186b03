// Package storage provides the read port the query engine fetches records through.
// It has a SQLite implementation built with squirrel and an in-memory implementation
// used for fixtures and tests.
package storage

import (
	"context"
	"errors"

	"github.com/artpar/querygate/core/catalog"
)

// ErrFieldUnavailable is returned by Row.Get when the row carries no value for a field.
var ErrFieldUnavailable = errors.New("field unavailable")

// ErrNotRegistered is returned when a store holds no collection for an entity.
var ErrNotRegistered = errors.New("entity not registered with store")

// Reader fetches records of one entity.
type Reader interface {
	// Count returns the number of records matching all filters.
	Count(ctx context.Context, d *catalog.Descriptor, filters []Filter) (int, error)

	// Slice returns at most limit records matching all filters, in the given order.
	Slice(ctx context.Context, d *catalog.Descriptor, filters []Filter, ordering []Order, limit int) ([]Row, error)
}

// Store is a Reader that can also pin a consistent view across several reads.
type Store interface {
	Reader

	// Snapshot calls fn with a Reader whose reads all observe the same state.
	Snapshot(ctx context.Context, fn func(Reader) error) error

	// Close releases the store's resources.
	Close() error
}

// Filter is an equality condition on a field. A nil Value matches NULL.
type Filter struct {
	Field catalog.FieldDescriptor
	Value any
}

// Order is one sort key.
type Order struct {
	Field catalog.FieldDescriptor
	Desc  bool
}

// Row is a fetched record.
type Row interface {
	// Get returns the value of the named field.
	// Scalars come back as string, int64, float64, bool or time.Time; to-one
	// relations as *Ref; unset values as nil. Fields the row does not carry
	// return ErrFieldUnavailable.
	Get(field string) (any, error)
}

// Ref is the value of a set to-one relation.
type Ref struct {
	Key     any
	Display string
}

// MapRow is a Row backed by a map of field name to value.
type MapRow map[string]any

// Get implements Row.
func (r MapRow) Get(field string) (any, error) {
	v, ok := r[field]
	if !ok {
		return nil, ErrFieldUnavailable
	}
	return v, nil
}

package query

import (
	"sort"
	"strings"

	"github.com/artpar/querygate/core/catalog"
	"github.com/artpar/querygate/core/storage"
)

// pkAlias names the primary key of any entity in filters and ordering.
const pkAlias = "pk"

// ValidateFilters checks every filter key against d and coerces its value to the
// field's kind. The result is sorted by field name.
//
// Keys may name a field, "pk" for the primary key, or "<field>_id" for the key of
// a to-one relation.
func ValidateFilters(d *catalog.Descriptor, filters map[string]any) ([]storage.Filter, error) {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]storage.Filter, 0, len(names))
	for _, name := range names {
		f, ok := lookupField(d, name)
		if !ok {
			return nil, &InvalidFilterError{Field: name, Reason: "unknown field"}
		}
		if f.IsToMany() {
			return nil, &InvalidFilterError{Field: name, Reason: "to-many relations cannot be filtered"}
		}

		v, err := f.Coerce(filters[name])
		if err != nil {
			return nil, &InvalidFilterError{Field: name, Reason: err.Error()}
		}
		out = append(out, storage.Filter{Field: f, Value: v})
	}

	return out, nil
}

// ValidateOrdering parses order_by entries ("field" ascending, "-field" descending).
// Later entries naming an already ordered field are dropped.
func ValidateOrdering(d *catalog.Descriptor, orderBy []string) ([]storage.Order, error) {
	out := make([]storage.Order, 0, len(orderBy))
	seen := make(map[string]bool, len(orderBy))

	for _, entry := range orderBy {
		name, desc := strings.CutPrefix(entry, "-")
		if name == "" {
			return nil, &InvalidOrderingError{Field: entry, Reason: "empty field name"}
		}

		f, ok := lookupField(d, name)
		if !ok {
			return nil, &InvalidOrderingError{Field: entry, Reason: "unknown field"}
		}
		if f.IsToMany() {
			return nil, &InvalidOrderingError{Field: entry, Reason: "to-many relations cannot be ordered"}
		}

		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		out = append(out, storage.Order{Field: f, Desc: desc})
	}

	return out, nil
}

func lookupField(d *catalog.Descriptor, name string) (catalog.FieldDescriptor, bool) {
	if f, ok := d.Field(name); ok {
		return f, true
	}
	if name == pkAlias {
		return d.PrimaryKey(), true
	}
	if base, ok := strings.CutSuffix(name, "_id"); ok {
		if f, ok := d.Field(base); ok && f.IsToOne() {
			return f, true
		}
	}
	return catalog.FieldDescriptor{}, false
}

// withTieBreakers extends ordering with the entity's default ordering and then the
// primary key ascending, so that records comparing equal on every requested key
// still come back in a repeatable order.
func withTieBreakers(d *catalog.Descriptor, ordering []storage.Order) []storage.Order {
	out := make([]storage.Order, 0, len(ordering)+len(d.Ordering())+1)
	seen := make(map[string]bool, cap(out))

	add := func(o storage.Order) {
		if seen[o.Field.Name] {
			return
		}
		seen[o.Field.Name] = true
		out = append(out, o)
	}

	for _, o := range ordering {
		add(o)
	}
	// Default ordering was checked when the schema was parsed.
	if defaults, err := ValidateOrdering(d, d.Ordering()); err == nil {
		for _, o := range defaults {
			add(o)
		}
	}
	add(storage.Order{Field: d.PrimaryKey()})

	return out
}

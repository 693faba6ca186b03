package storage

import (
	"cmp"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/artpar/querygate/core/catalog"
)

// MemoryStore implements Store over in-process collections.
// Records are loaded with Insert, typically from fixtures.
type MemoryStore struct {
	mu sync.RWMutex

	// collections by entity key; each record maps field name to coerced value
	collections map[string][]map[string]any
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]map[string]any),
	}
}

// Register creates an empty collection for d. Inserting registers implicitly.
func (s *MemoryStore) Register(d *catalog.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[d.Key()]; !ok {
		s.collections[d.Key()] = nil
	}
}

// Insert adds a record. Values are coerced to the field kinds; fields left out of
// values are stored as absent and read back as unavailable.
func (s *MemoryStore) Insert(_ context.Context, d *catalog.Descriptor, values map[string]any) error {
	record := make(map[string]any, len(values))
	for name, v := range values {
		f, ok := d.Field(name)
		if !ok {
			return fmt.Errorf("%s: unknown field %q", d.Key(), name)
		}
		if f.IsToMany() {
			keys, err := coerceKeys(f, v)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", d.Key(), name, err)
			}
			record[name] = keys
			continue
		}
		cv, err := f.Coerce(v)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", d.Key(), name, err)
		}
		record[name] = cv
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.collections[d.Key()] = append(s.collections[d.Key()], record)
	return nil
}

func coerceKeys(f catalog.FieldDescriptor, v any) ([]any, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected list of keys, got %T", v)
	}
	pk := f.Target.PrimaryKey()
	keys := make([]any, 0, len(list))
	for _, item := range list {
		k, err := pk.Coerce(item)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Count implements Reader.
func (s *MemoryStore) Count(ctx context.Context, d *catalog.Descriptor, filters []Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return memoryReader{s}.Count(ctx, d, filters)
}

// Slice implements Reader.
func (s *MemoryStore) Slice(ctx context.Context, d *catalog.Descriptor, filters []Filter, ordering []Order, limit int) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return memoryReader{s}.Slice(ctx, d, filters, ordering, limit)
}

// Snapshot holds the read lock for the duration of fn.
func (s *MemoryStore) Snapshot(_ context.Context, fn func(Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(memoryReader{s})
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

// memoryReader reads without locking; callers hold the store's read lock.
type memoryReader struct {
	s *MemoryStore
}

func (r memoryReader) Count(_ context.Context, d *catalog.Descriptor, filters []Filter) (int, error) {
	records, err := r.match(d, filters)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (r memoryReader) Slice(_ context.Context, d *catalog.Descriptor, filters []Filter, ordering []Order, limit int) ([]Row, error) {
	records, err := r.match(d, filters)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		for _, o := range ordering {
			c := compareValues(records[i][o.Field.Name], records[j][o.Field.Name])
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	if limit >= 0 && len(records) > limit {
		records = records[:limit]
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, r.row(d, rec))
	}
	return rows, nil
}

func (r memoryReader) match(d *catalog.Descriptor, filters []Filter) ([]map[string]any, error) {
	all, ok := r.s.collections[d.Key()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", d.Key(), ErrNotRegistered)
	}

	var out []map[string]any
	for _, rec := range all {
		matched := true
		for _, f := range filters {
			if compareValues(rec[f.Field.Name], f.Value) != 0 {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, rec)
		}
	}
	return out, nil
}

// row projects a stored record onto the serializable fields, resolving to-one displays.
// A to-one key whose target record is missing leaves the field unavailable.
func (r memoryReader) row(d *catalog.Descriptor, rec map[string]any) MapRow {
	row := make(MapRow, len(rec))
	for _, f := range d.SerializableFields() {
		v, ok := rec[f.Name]
		if !ok {
			continue
		}
		if f.IsToOne() && v != nil {
			if ref, ok := r.ref(f.Target, v); ok {
				row[f.Name] = ref
			}
			continue
		}
		row[f.Name] = v
	}
	return row
}

func (r memoryReader) ref(target *catalog.Descriptor, key any) (*Ref, bool) {
	pk := target.PrimaryKey().Name
	for _, rec := range r.s.collections[target.Key()] {
		if compareValues(rec[pk], key) != 0 {
			continue
		}
		var display any
		if df, ok := target.DisplayField(); ok {
			display = rec[df.Name]
		}
		return &Ref{Key: key, Display: target.DisplayString(key, display)}, true
	}
	return nil, false
}

// compareValues orders two coerced values: nil first, then by natural order.
// Values of mismatched types compare by their text form.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, y)
		case float64:
			return cmp.Compare(float64(x), y)
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmp.Compare(x, y)
		case int64:
			return cmp.Compare(x, float64(y))
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

package query

import (
	"context"

	"github.com/artpar/querygate/core/catalog"
	"github.com/artpar/querygate/core/storage"
)

// Execute counts the records of d matching filters and fetches at most limit of
// them in the requested order. Both reads run against one store snapshot.
//
// The count is taken before ordering and truncation. Records tying on every
// requested key are ordered by the entity's default ordering, then by primary key.
// Store failures, cancellation included, are returned as *ExecutionError.
func Execute(ctx context.Context, store storage.Store, d *catalog.Descriptor, filters []storage.Filter, ordering []storage.Order, limit int) (int, []storage.Row, error) {
	var (
		total int
		rows  []storage.Row
	)

	ordering = withTieBreakers(d, ordering)

	err := store.Snapshot(ctx, func(r storage.Reader) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Count(ctx, d, filters)
		if err != nil {
			return err
		}
		total = n
		if total == 0 || limit <= 0 {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err = r.Slice(ctx, d, filters, ordering, limit)
		return err
	})
	if err != nil {
		return 0, nil, &ExecutionError{Entity: d.Key(), Err: err}
	}

	if len(rows) > limit {
		rows = rows[:limit]
	}
	return total, rows, nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/artpar/querygate/core/catalog"
	"github.com/artpar/querygate/core/schema"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements Store over a SQLite database.
// It only issues SELECT statements.
type SQLiteStore struct {
	db *sql.DB
	sqliteReader
}

// NewSQLiteStore creates a store reading from an open database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:           db,
		sqliteReader: sqliteReader{q: db},
	}
}

// Snapshot runs fn inside a read-only transaction so every read sees the same state.
func (s *SQLiteStore) Snapshot(ctx context.Context, fn func(Reader) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	// Read-only: nothing to commit
	defer tx.Rollback()

	return fn(sqliteReader{q: tx})
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

type sqliteReader struct {
	q queryer
}

// Count implements Reader.
func (r sqliteReader) Count(ctx context.Context, d *catalog.Descriptor, filters []Filter) (int, error) {
	query, args, err := sq.Select("COUNT(*)").
		From(quoteIdent(d.Table) + " AS t").
		Where(whereClause(filters)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var count int
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", d.Key(), err)
	}
	return count, nil
}

// column maps one selected expression back to the row value it feeds.
type column struct {
	field     catalog.FieldDescriptor
	targetKey bool // primary key of the joined to-one target
	display   bool // display value of a to-one target
}

// Slice implements Reader.
func (r sqliteReader) Slice(ctx context.Context, d *catalog.Descriptor, filters []Filter, ordering []Order, limit int) ([]Row, error) {
	var (
		exprs []string
		cols  []column
	)

	sel := sq.Select().From(quoteIdent(d.Table) + " AS t")

	for _, f := range d.SerializableFields() {
		exprs = append(exprs, "t."+quoteIdent(f.Column))
		cols = append(cols, column{field: f})

		if !f.IsToOne() || f.Target == nil {
			continue
		}
		alias := "r_" + f.Name
		targetPK := alias + "." + quoteIdent(f.Target.PrimaryKey().Column)
		sel = sel.LeftJoin(fmt.Sprintf("%s AS %s ON %s = t.%s",
			quoteIdent(f.Target.Table), alias, targetPK, quoteIdent(f.Column)))
		exprs = append(exprs, targetPK)
		cols = append(cols, column{field: f, targetKey: true})

		if display, ok := f.Target.DisplayField(); ok {
			exprs = append(exprs, alias+"."+quoteIdent(display.Column))
			cols = append(cols, column{field: f, display: true})
		}
	}

	sel = sel.Columns(exprs...).Where(whereClause(filters))
	for _, o := range ordering {
		dir := " ASC"
		if o.Desc {
			dir = " DESC"
		}
		sel = sel.OrderBy("t." + quoteIdent(o.Field.Column) + dir)
	}
	if limit >= 0 {
		sel = sel.Limit(uint64(limit))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", d.Key(), err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", d.Key(), err)
		}
		out = append(out, buildRow(cols, values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", d.Key(), err)
	}

	return out, nil
}

// buildRow assembles a row from the scanned columns. A set to-one key whose
// target record is missing leaves the field unavailable.
func buildRow(cols []column, values []any) MapRow {
	row := make(MapRow, len(cols))
	for i, c := range cols {
		f := c.field
		switch {
		case c.targetKey:
			if _, ok := row[f.Name].(*Ref); ok && values[i] == nil {
				delete(row, f.Name)
			}
		case c.display:
			// Follows the key column; a NULL key leaves the row value nil.
			if ref, ok := row[f.Name].(*Ref); ok {
				ref.Display = f.Target.DisplayString(ref.Key, fromDB(values[i], displayKind(f)))
			}
		case f.IsToOne():
			key := fromDB(values[i], keyKind(f))
			if key == nil {
				row[f.Name] = nil
				continue
			}
			ref := &Ref{Key: key}
			if f.Target != nil {
				// Overwritten by the display column when the target has one.
				ref.Display = f.Target.DisplayString(key, nil)
			}
			row[f.Name] = ref
		default:
			row[f.Name] = fromDB(values[i], f.Kind)
		}
	}
	return row
}

func displayKind(f catalog.FieldDescriptor) schema.FieldType {
	display, _ := f.Target.DisplayField()
	return display.Kind
}

func whereClause(filters []Filter) sq.Sqlizer {
	and := sq.And{}
	for _, f := range filters {
		and = append(and, sq.Eq{"t." + quoteIdent(f.Field.Column): toDB(f.Value, f.Field)})
	}
	return and
}

// quoteIdent quotes a SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

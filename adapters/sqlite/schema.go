package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/artpar/querygate/core/introspect"
)

// Tables lists the user tables of the database with their columns and indexes.
// SQLite's internal tables are left out.
func (db *DB) Tables(ctx context.Context) ([]introspect.Table, error) {
	names, err := db.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]introspect.Table, 0, len(names))
	for _, name := range names {
		columns, err := db.columns(ctx, name)
		if err != nil {
			return nil, err
		}
		indexes, err := db.indexes(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, introspect.Table{Name: name, Columns: columns, Indexes: indexes})
	}
	return tables, nil
}

func (db *DB) tableNames(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (db *DB) columns(ctx context.Context, table string) ([]introspect.Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var columns []introspect.Column
	for rows.Next() {
		var (
			cid     int
			col     introspect.Column
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		col.NotNull = notNull != 0 || pk > 0
		col.PrimaryKey = pk > 0
		if dflt.Valid {
			col.Default = &dflt.String
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (db *DB) indexes(ctx context.Context, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND name NOT LIKE 'sqlite_%' ORDER BY name",
		table,
	)
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s: %w", table, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

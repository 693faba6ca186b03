package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/artpar/querygate/core/catalog"
	"github.com/artpar/querygate/core/convention"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// BuildCreateTableSQL generates the CREATE TABLE statements for an entity:
// its own table followed by one link table per to-many relation.
func BuildCreateTableSQL(d *catalog.Descriptor) []string {
	var columns []string
	var constraints []string

	for _, f := range d.Fields() {
		if f.IsToMany() {
			continue
		}
		columns = append(columns, buildColumnDef(f))

		if f.IsToOne() && f.Target != nil {
			constraints = append(constraints, fmt.Sprintf(
				"FOREIGN KEY(%s) REFERENCES %s(%s)",
				quoteIdent(f.Column), quoteIdent(f.Target.Table), quoteIdent(f.Target.PrimaryKey().Column),
			))
		}
	}

	stmt := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s",
		quoteIdent(d.Table),
		strings.Join(columns, ",\n  "),
	)
	if len(constraints) > 0 {
		stmt += ",\n  " + strings.Join(constraints, ",\n  ")
	}
	stmt += "\n)"

	stmts := []string{stmt}
	for _, f := range d.Fields() {
		if f.IsToMany() && f.Target != nil {
			stmts = append(stmts, buildJoinTableSQL(d, f))
		}
	}
	return stmts
}

// buildColumnDef builds a column definition from a field descriptor.
func buildColumnDef(f catalog.FieldDescriptor) string {
	parts := []string{quoteIdent(f.Column), f.SQLType()}

	if f.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	} else if !f.Nullable {
		parts = append(parts, "NOT NULL")
	}

	return strings.Join(parts, " ")
}

func buildJoinTableSQL(d *catalog.Descriptor, f catalog.FieldDescriptor) string {
	from, to := JoinColumns(d, f)
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  \"id\" INTEGER PRIMARY KEY,\n  %s %s NOT NULL REFERENCES %s(%s),\n  %s %s NOT NULL REFERENCES %s(%s),\n  UNIQUE(%s, %s)\n)",
		quoteIdent(f.JoinTable),
		quoteIdent(from), d.PrimaryKey().SQLType(), quoteIdent(d.Table), quoteIdent(d.PrimaryKey().Column),
		quoteIdent(to), f.Target.PrimaryKey().SQLType(), quoteIdent(f.Target.Table), quoteIdent(f.Target.PrimaryKey().Column),
		quoteIdent(from), quoteIdent(to),
	)
}

// JoinColumns returns the columns of a to-many link table pointing at the owner and the target.
// Self-referencing relations get "from_" and "to_" prefixes.
func JoinColumns(d *catalog.Descriptor, f catalog.FieldDescriptor) (from, to string) {
	from = convention.JoinColumn(d.Name)
	to = convention.JoinColumn(f.Target.Name)
	if from == to {
		return "from_" + from, "to_" + to
	}
	return from, to
}

// BuildIndexSQL generates CREATE INDEX statements for to-one relation columns.
func BuildIndexSQL(d *catalog.Descriptor) []string {
	var indexes []string

	for _, f := range d.Fields() {
		if f.IsToOne() {
			indexes = append(indexes, fmt.Sprintf(
				"CREATE INDEX IF NOT EXISTS %s ON %s(%s)",
				quoteIdent("idx_"+d.Table+"_"+f.Column), quoteIdent(d.Table), quoteIdent(f.Column),
			))
		}
	}

	return indexes
}

// CreateTables creates the tables and indexes of every entity in the catalog.
// Existing tables are left untouched.
func CreateTables(ctx context.Context, db execer, cat *catalog.Catalog) error {
	for _, d := range cat.List() {
		stmts := append(BuildCreateTableSQL(d), BuildIndexSQL(d)...)
		for _, stmt := range stmts {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create tables for %s: %w", d.Key(), err)
			}
		}
	}
	return nil
}

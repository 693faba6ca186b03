package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/artpar/querygate/core/catalog"
	"gopkg.in/yaml.v3"
)

// Fixture is one serialized record, in the layout:
//
//	{"model": "blog.post", "pk": 1, "fields": {"title": "Hello", "tags": [1, 2]}}
type Fixture struct {
	Model  string         `yaml:"model"`
	PK     any            `yaml:"pk"`
	Fields map[string]any `yaml:"fields"`
}

// Inserter stores fixture records.
type Inserter interface {
	Insert(ctx context.Context, d *catalog.Descriptor, values map[string]any) error
}

// ParseFixtures decodes a JSON or YAML list of fixtures.
func ParseFixtures(data []byte) ([]Fixture, error) {
	var fixtures []Fixture
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return fixtures, nil
}

// ReadFixtureDir reads every .json, .yaml and .yml file in dir, in lexical order.
func ReadFixtureDir(dir string) ([]Fixture, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		switch filepath.Ext(entry.Name()) {
		case ".json", ".yaml", ".yml":
			if !entry.IsDir() {
				names = append(names, entry.Name())
			}
		}
	}
	sort.Strings(names)

	var all []Fixture
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read file %s: %w", name, err)
		}
		fixtures, err := ParseFixtures(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		all = append(all, fixtures...)
	}
	return all, nil
}

// LoadFixtures resolves each fixture's model in the catalog and inserts it.
// Models are "namespace.entity" with the entity matched case-insensitively.
func LoadFixtures(ctx context.Context, cat *catalog.Catalog, ins Inserter, fixtures []Fixture) error {
	for i, fx := range fixtures {
		ns, entity, ok := strings.Cut(fx.Model, ".")
		if !ok {
			return fmt.Errorf("fixture %d: model %q must be namespace.entity", i, fx.Model)
		}
		d, err := cat.Resolve(ns, entity)
		if err != nil {
			return fmt.Errorf("fixture %d: %w", i, err)
		}

		values := make(map[string]any, len(fx.Fields)+1)
		for k, v := range fx.Fields {
			values[k] = v
		}
		if fx.PK != nil {
			values[d.PrimaryKey().Name] = fx.PK
		}

		if err := ins.Insert(ctx, d, values); err != nil {
			return fmt.Errorf("fixture %d: %w", i, err)
		}
	}
	return nil
}

// SQLiteLoader inserts fixture records into a SQLite database.
// It is a seeding tool; the query path never writes.
type SQLiteLoader struct {
	db execer
}

// NewSQLiteLoader creates a loader writing through db.
func NewSQLiteLoader(db *sql.DB) *SQLiteLoader {
	return &SQLiteLoader{db: db}
}

// Insert implements Inserter. To-many values are written to the link table.
func (l *SQLiteLoader) Insert(ctx context.Context, d *catalog.Descriptor, values map[string]any) error {
	for name := range values {
		if _, ok := d.Field(name); !ok {
			return fmt.Errorf("%s: unknown field %q", d.Key(), name)
		}
	}

	var (
		columns []string
		args    []any
		links   []catalog.FieldDescriptor
	)
	// Deterministic column order
	for _, f := range d.Fields() {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		if f.IsToMany() {
			links = append(links, f)
			continue
		}
		cv, err := f.Coerce(v)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", d.Key(), f.Name, err)
		}
		columns = append(columns, quoteIdent(f.Column))
		args = append(args, toDB(cv, f))
	}
	if len(columns) == 0 {
		return fmt.Errorf("%s: no column values", d.Key())
	}

	ins := sq.Insert(quoteIdent(d.Table)).Columns(columns...).Values(args...)
	query, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert %s: %w", d.Key(), err)
	}

	if len(links) == 0 {
		return nil
	}

	pk, err := l.ownerKey(d, values, res)
	if err != nil {
		return err
	}
	for _, f := range links {
		keys, err := coerceKeys(f, values[f.Name])
		if err != nil {
			return fmt.Errorf("%s.%s: %w", d.Key(), f.Name, err)
		}
		from, to := JoinColumns(d, f)
		for _, k := range keys {
			query, args, err := sq.Insert(quoteIdent(f.JoinTable)).
				Columns(quoteIdent(from), quoteIdent(to)).
				Values(pk, toDB(k, f.Target.PrimaryKey())).
				ToSql()
			if err != nil {
				return fmt.Errorf("build link insert: %w", err)
			}
			if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert %s: %w", f.JoinTable, err)
			}
		}
	}
	return nil
}

func (l *SQLiteLoader) ownerKey(d *catalog.Descriptor, values map[string]any, res sql.Result) (any, error) {
	pk := d.PrimaryKey()
	if v, ok := values[pk.Name]; ok {
		cv, err := pk.Coerce(v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", d.Key(), pk.Name, err)
		}
		return toDB(cv, pk), nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%s: read generated key: %w", d.Key(), err)
	}
	return id, nil
}

package introspect

import (
	"context"
	"fmt"

	"github.com/artpar/querygate/core/catalog"
	"github.com/artpar/querygate/core/storage"
)

// CatalogSchema reports the table layout the catalog implies, for stores
// without a database to inspect.
type CatalogSchema struct {
	Catalog *catalog.Catalog
}

// Tables implements SchemaReader. Link tables of to-many relations follow
// their owning table.
func (s CatalogSchema) Tables(_ context.Context) ([]Table, error) {
	var tables []Table
	for _, d := range s.Catalog.List() {
		t := Table{Name: d.Table}
		for _, f := range d.Fields() {
			if f.IsToMany() {
				continue
			}
			t.Columns = append(t.Columns, Column{
				Name:       f.Column,
				Type:       f.SQLType(),
				NotNull:    !f.Nullable || f.PrimaryKey,
				PrimaryKey: f.PrimaryKey,
			})
			if f.IsToOne() {
				t.Indexes = append(t.Indexes, fmt.Sprintf("idx_%s_%s", d.Table, f.Column))
			}
		}
		tables = append(tables, t)

		for _, f := range d.Fields() {
			if !f.IsToMany() {
				continue
			}
			from, to := storage.JoinColumns(d, f)
			tables = append(tables, Table{
				Name: f.JoinTable,
				Columns: []Column{
					{Name: "id", Type: "INTEGER", NotNull: true, PrimaryKey: true},
					{Name: from, Type: d.PrimaryKey().SQLType(), NotNull: true},
					{Name: to, Type: f.Target.PrimaryKey().SQLType(), NotNull: true},
				},
			})
		}
	}
	return tables, nil
}

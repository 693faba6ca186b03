package catalog

import (
	"github.com/artpar/querygate/core/schema"
)

// Models returns the introspection listing of every entity.
func (c *Catalog) Models() schema.EntityListResponse {
	resp := schema.EntityListResponse{
		Entities: make([]schema.EntitySummary, 0, len(c.list)),
		Count:    len(c.list),
	}
	for _, d := range c.list {
		resp.Entities = append(resp.Entities, d.Summary())
	}
	return resp
}

// Summary returns the introspection overview of the entity.
func (d *Descriptor) Summary() schema.EntitySummary {
	return schema.EntitySummary{
		Namespace:   d.Namespace,
		Entity:      d.Name,
		Table:       d.Table,
		Description: d.Description,
		Fields:      d.fieldSchemas(),
	}
}

// Schema returns the detailed introspection view of the entity.
func (d *Descriptor) Schema() schema.EntitySchemaResponse {
	resp := schema.EntitySchemaResponse{
		Namespace:   d.Namespace,
		Entity:      d.Name,
		Table:       d.Table,
		PrimaryKey:  d.PrimaryKey().Name,
		Ordering:    append([]string{}, d.ordering...),
		Description: d.Description,
		Version:     d.Version,
		Fields:      d.fieldSchemas(),
	}
	if f, ok := d.DisplayField(); ok {
		resp.Display = f.Name
	}
	return resp
}

func (d *Descriptor) fieldSchemas() []schema.FieldSchema {
	out := make([]schema.FieldSchema, 0, len(d.fields))
	for _, f := range d.fields {
		fs := schema.FieldSchema{
			Name:        f.Name,
			Type:        string(f.Kind),
			Column:      f.Column,
			Nullable:    f.Nullable,
			PrimaryKey:  f.PrimaryKey,
			Filterable:  !f.IsToMany(),
			Sortable:    !f.IsToMany(),
			Implicit:    f.Implicit,
			SQLType:     f.SQLType(),
			Description: f.Description,
		}
		if f.Target != nil {
			fs.Ref = f.Target.Key()
		}
		out = append(out, fs)
	}
	return out
}

// SQLType returns the SQLite column type of the field.
// Ref columns take the type of the target's primary key; refs have no column.
func (f FieldDescriptor) SQLType() string {
	switch f.Kind {
	case schema.FieldTypeRefs:
		return ""
	case schema.FieldTypeRef:
		if f.Target != nil {
			return f.Target.PrimaryKey().SQLType()
		}
		return "INTEGER"
	}
	return schema.Field{Type: f.Kind}.SQLType()
}

// Package convention derives storage defaults from minimal entity definitions.
// It applies naming conventions and the implicit primary key.
package convention

import (
	"strings"

	"github.com/artpar/querygate/core/schema"
)

// ImplicitPrimaryKey is the name of the primary key added to entities that declare none.
const ImplicitPrimaryKey = "id"

// Derived contains all derived information from an entity definition.
// This is the fully-expanded form the catalog is built from.
type Derived struct {
	// Source is the original entity definition.
	Source schema.Entity

	// Table is the database table name.
	Table string

	// Fields contains all fields in declaration order, the implicit primary key first.
	Fields []DerivedField

	// PrimaryKey is the name of the primary key field.
	PrimaryKey string
}

// DerivedField is a fully-derived field with all defaults applied.
type DerivedField struct {
	// Name of the field.
	Name string

	// Type is the resolved field type.
	Type schema.FieldType

	// Column is the database column. Empty for to-many relations.
	Column string

	// SQLType is the SQL column type.
	SQLType string

	// Nullable indicates the column may hold NULL.
	Nullable bool

	// PrimaryKey marks the primary key field.
	PrimaryKey bool

	// Ref is the unresolved target of a relation ("Entity" or "namespace.Entity").
	Ref string

	// JoinTable holds the link rows of a to-many relation.
	JoinTable string

	// Implicit indicates this is an auto-generated field.
	Implicit bool

	// Description provides human-readable documentation for this field.
	Description string
}

// Derive expands a minimal entity definition into a fully-derived form.
func Derive(e schema.Entity) Derived {
	d := Derived{
		Source: e,
		Table:  e.Table,
	}
	if d.Table == "" {
		d.Table = TableName(e.Namespace, e.Name)
	}

	d.Fields, d.PrimaryKey = deriveFields(e, d.Table)

	return d
}

// deriveFields creates the full list of fields including the implicit primary key.
func deriveFields(e schema.Entity, table string) ([]DerivedField, string) {
	fields := make([]DerivedField, 0, len(e.Fields)+1)
	pk := ""

	for _, f := range e.Fields {
		if f.PrimaryKey {
			pk = f.Name
		}
	}

	if pk == "" {
		pk = ImplicitPrimaryKey
		fields = append(fields, DerivedField{
			Name:       ImplicitPrimaryKey,
			Type:       schema.FieldTypeInt,
			Column:     ImplicitPrimaryKey,
			SQLType:    "INTEGER",
			PrimaryKey: true,
			Implicit:   true,
		})
	}

	for _, f := range e.Fields {
		field := DerivedField{
			Name:        f.Name,
			Type:        f.Type,
			Column:      f.Column,
			SQLType:     f.SQLType(),
			Nullable:    f.Null,
			PrimaryKey:  f.PrimaryKey,
			Ref:         f.To,
			Description: f.Description,
		}

		switch f.Type {
		case schema.FieldTypeRefs:
			field.Column = ""
			field.SQLType = ""
			field.JoinTable = JoinTableName(table, f.Name)
		case schema.FieldTypeRef:
			if field.Column == "" {
				field.Column = f.Name + "_id"
			}
		default:
			if field.Column == "" {
				field.Column = f.Name
			}
		}

		fields = append(fields, field)
	}

	return fields, pk
}

// TableName derives the table of an entity: "blog" + "Post" gives "blog_post".
func TableName(namespace, entity string) string {
	return strings.ToLower(namespace) + "_" + strings.ToLower(entity)
}

// JoinTableName derives the link table of a to-many field: "blog_post" + "tags" gives "blog_post_tags".
func JoinTableName(table, field string) string {
	return table + "_" + field
}

// JoinColumn derives the column a join table uses to point at an entity: "Post" gives "post_id".
func JoinColumn(entity string) string {
	return strings.ToLower(entity) + "_id"
}

// SplitRef splits a relation target into namespace and entity.
// Targets without a namespace resolve in defaultNamespace.
func SplitRef(ref, defaultNamespace string) (namespace, entity string) {
	if i := strings.LastIndexByte(ref, '.'); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return defaultNamespace, ref
}

package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Field defines a data field of an entity.
type Field struct {
	// Name is taken from the mapping key in the YAML document.
	Name string `yaml:"-"`

	// Type is the field type. See FieldType constants.
	Type FieldType `yaml:"type"`

	// To names the target entity of ref and refs fields.
	// Either "Entity" (same namespace) or "namespace.Entity".
	To string `yaml:"to,omitempty"`

	// Null marks the field as nullable.
	Null bool `yaml:"null,omitempty"`

	// PrimaryKey marks the field as the entity's primary key.
	// Entities without one get an implicit integer "id".
	PrimaryKey bool `yaml:"primary_key,omitempty"`

	// Column overrides the derived column name.
	Column string `yaml:"column,omitempty"`

	// Description provides human-readable documentation for this field.
	Description string `yaml:"description,omitempty"`
}

// FieldType represents the type of a schema field.
type FieldType string

const (
	// Scalar types
	FieldTypeString FieldType = "string"
	FieldTypeText   FieldType = "text"
	FieldTypeInt    FieldType = "int"
	FieldTypeFloat  FieldType = "float"
	FieldTypeBool   FieldType = "bool"

	// Temporal types
	FieldTypeTimestamp FieldType = "timestamp"
	FieldTypeDate      FieldType = "date"

	// Relations
	FieldTypeRef  FieldType = "ref"  // to-one, requires To
	FieldTypeRefs FieldType = "refs" // to-many, requires To
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeString, FieldTypeText, FieldTypeInt, FieldTypeFloat, FieldTypeBool,
		FieldTypeTimestamp, FieldTypeDate, FieldTypeRef, FieldTypeRefs:
		return true
	}
	return false
}

// IsRelation reports whether the type references another entity.
func (t FieldType) IsRelation() bool {
	return t == FieldTypeRef || t == FieldTypeRefs
}

// IsTemporal reports whether the type holds a point in time.
func (t FieldType) IsTemporal() bool {
	return t == FieldTypeTimestamp || t == FieldTypeDate
}

// SQLType returns the SQLite column type for this field.
// Relations report the type of the key they hold; refs have no column.
func (f Field) SQLType() string {
	switch f.Type {
	case FieldTypeInt, FieldTypeBool, FieldTypeRef:
		return "INTEGER"
	case FieldTypeFloat:
		return "REAL"
	case FieldTypeTimestamp:
		return "DATETIME"
	case FieldTypeDate:
		return "DATE"
	default:
		return "TEXT"
	}
}

// Fields is an ordered list of fields decoded from a YAML mapping.
// Declaration order is preserved so records serialize in a stable order.
type Fields []Field

// UnmarshalYAML decodes a mapping of field name to definition, keeping key order.
func (fs *Fields) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: fields must be a mapping", value.Line)
	}

	out := make(Fields, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode, valNode := value.Content[i], value.Content[i+1]

		var f Field
		// Shorthand: "title: string"
		if valNode.Kind == yaml.ScalarNode {
			f.Type = FieldType(valNode.Value)
		} else if err := valNode.Decode(&f); err != nil {
			return fmt.Errorf("field %q: %w", keyNode.Value, err)
		}
		f.Name = keyNode.Value
		out = append(out, f)
	}

	*fs = out
	return nil
}

package catalog

import (
	"fmt"

	"github.com/artpar/querygate/core/schema"
)

// Descriptor describes one entity collection: where it lives and which fields it has.
// Descriptors are built once by Build and never modified afterwards; they are
// safe to share between goroutines.
type Descriptor struct {
	Namespace   string
	Name        string
	Table       string
	Description string
	Version     string

	fields   []FieldDescriptor
	index    map[string]int
	pk       int
	display  int // -1 when the entity has no display field
	ordering []string
}

// FieldDescriptor describes one field of an entity.
type FieldDescriptor struct {
	Name        string
	Column      string
	Kind        schema.FieldType
	Nullable    bool
	PrimaryKey  bool
	Implicit    bool
	Description string

	// Target is the referenced entity of ref and refs fields.
	Target *Descriptor

	// JoinTable holds the link rows of a refs field.
	JoinTable string
}

// IsToOne reports whether the field references a single other record.
func (f FieldDescriptor) IsToOne() bool { return f.Kind == schema.FieldTypeRef }

// IsToMany reports whether the field references a set of other records.
func (f FieldDescriptor) IsToMany() bool { return f.Kind == schema.FieldTypeRefs }

// Key returns the qualified name, e.g. "blog.Post".
func (d *Descriptor) Key() string {
	return d.Namespace + "." + d.Name
}

// String implements fmt.Stringer.
func (d *Descriptor) String() string {
	return d.Key()
}

// Fields returns all fields in declaration order, to-many relations included.
// The slice is shared; callers must not modify it.
func (d *Descriptor) Fields() []FieldDescriptor {
	return d.fields
}

// Field returns the named field.
func (d *Descriptor) Field(name string) (FieldDescriptor, bool) {
	i, ok := d.index[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return d.fields[i], true
}

// SerializableFields returns the fields that appear in serialized records,
// in declaration order. To-many relations are excluded.
func (d *Descriptor) SerializableFields() []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(d.fields))
	for _, f := range d.fields {
		if f.IsToMany() {
			continue
		}
		out = append(out, f)
	}
	return out
}

// PrimaryKey returns the primary key field.
func (d *Descriptor) PrimaryKey() FieldDescriptor {
	return d.fields[d.pk]
}

// DisplayField returns the field used to render records as text.
func (d *Descriptor) DisplayField() (FieldDescriptor, bool) {
	if d.display < 0 {
		return FieldDescriptor{}, false
	}
	return d.fields[d.display], true
}

// Ordering returns the default ordering, e.g. ["-created_at"].
// The slice is shared; callers must not modify it.
func (d *Descriptor) Ordering() []string {
	return d.ordering
}

// DisplayString renders a record of this entity as text.
// display is the value of the display field. Without a display field, or when its
// value is nil, the record renders as "<Entity> object (<pk>)".
func (d *Descriptor) DisplayString(pk, display any) string {
	if d.display < 0 || display == nil {
		return fmt.Sprintf("%s object (%v)", d.Name, pk)
	}
	if b, ok := display.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(display)
}

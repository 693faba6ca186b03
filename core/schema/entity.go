package schema

// File is the top-level structure of a schema document.
// One file describes one namespace and any number of its entities.
type File struct {
	// Namespace groups related entities (e.g., "blog", "auth").
	Namespace string `yaml:"namespace"`

	// Entities defined in this namespace.
	Entities []Entity `yaml:"entities"`
}

// Entity is the definition of a single record type.
type Entity struct {
	// Namespace is inherited from the enclosing File when empty.
	Namespace string `yaml:"namespace,omitempty"`

	// Name is the entity name (e.g., "Post"). Lookups are case-insensitive.
	Name string `yaml:"entity"`

	// Table overrides the derived table name.
	Table string `yaml:"table,omitempty"`

	// Fields in declaration order.
	Fields Fields `yaml:"fields"`

	// Display names the field used to render a record as text.
	// When empty, records render as "<Entity> object (<pk>)".
	Display string `yaml:"display,omitempty"`

	// Ordering is the default ordering, e.g. ["-published_at", "title"].
	Ordering []string `yaml:"ordering,omitempty"`

	// Meta contains optional metadata.
	Meta EntityMeta `yaml:"meta,omitempty"`
}

// EntityMeta contains optional entity metadata.
type EntityMeta struct {
	// Version of the entity definition.
	Version string `yaml:"version,omitempty"`

	// Description for documentation.
	Description string `yaml:"description,omitempty"`
}

// Field returns the named field and whether it exists.
func (e Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

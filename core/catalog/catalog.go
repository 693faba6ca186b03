// Package catalog builds and serves the immutable set of entity descriptors.
// Entities are registered from schema definitions, cross-checked, and frozen
// into a Catalog that answers lookups without locking.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/artpar/querygate/core/convention"
	"github.com/artpar/querygate/core/schema"
)

// Builder collects entity definitions before the catalog is frozen.
type Builder struct {
	mu sync.Mutex

	// entities by qualified key, lower-cased entity name
	entities map[string]convention.Derived

	// registration order
	order []string

	// tables to entity keys
	tables map[string]string
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		entities: make(map[string]convention.Derived),
		tables:   make(map[string]string),
	}
}

// Register registers an entity definition.
// Returns an error if the entity or its table is already claimed.
func (b *Builder) Register(e schema.Entity) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := lookupKey(e.Namespace, e.Name)

	// Entity names are case-insensitive within a namespace
	if existing, exists := b.entities[key]; exists {
		return &ConflictError{Kind: "entity", Name: e.Namespace + "." + e.Name, Owner: existing.Source.Namespace + "." + existing.Source.Name}
	}

	derived := convention.Derive(e)

	if owner, exists := b.tables[derived.Table]; exists {
		return &ConflictError{Kind: "table", Name: derived.Table, Owner: owner}
	}

	b.entities[key] = derived
	b.order = append(b.order, key)
	b.tables[derived.Table] = e.Namespace + "." + e.Name

	return nil
}

// Build resolves relations and freezes the registered entities into a Catalog.
func (b *Builder) Build() (*Catalog, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := &Catalog{
		byKey: make(map[string]*Descriptor, len(b.entities)),
	}

	// First pass: descriptors without relation targets
	for _, key := range b.order {
		c.byKey[key] = newDescriptor(b.entities[key])
	}

	// Second pass: resolve relation targets
	var errs []string
	for _, key := range b.order {
		d := c.byKey[key]
		for i := range d.fields {
			f := &d.fields[i]
			if !f.IsToOne() && !f.IsToMany() {
				continue
			}
			ref := b.entities[key].Fields[i].Ref
			ns, name := convention.SplitRef(ref, d.Namespace)
			target, ok := c.byKey[lookupKey(ns, name)]
			if !ok {
				errs = append(errs, fmt.Sprintf("%s.%s: target %q not registered", d.Key(), f.Name, ref))
				continue
			}
			f.Target = target
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("unresolved relations:\n  - %s", strings.Join(errs, "\n  - "))
	}

	c.list = make([]*Descriptor, 0, len(c.byKey))
	for _, d := range c.byKey {
		c.list = append(c.list, d)
	}
	sort.Slice(c.list, func(i, j int) bool {
		if c.list[i].Namespace != c.list[j].Namespace {
			return c.list[i].Namespace < c.list[j].Namespace
		}
		return c.list[i].Name < c.list[j].Name
	})

	return c, nil
}

func newDescriptor(derived convention.Derived) *Descriptor {
	src := derived.Source
	d := &Descriptor{
		Namespace:   src.Namespace,
		Name:        src.Name,
		Table:       derived.Table,
		Description: src.Meta.Description,
		Version:     src.Meta.Version,
		fields:      make([]FieldDescriptor, len(derived.Fields)),
		index:       make(map[string]int, len(derived.Fields)),
		display:     -1,
		ordering:    append([]string(nil), src.Ordering...),
	}

	for i, f := range derived.Fields {
		d.fields[i] = FieldDescriptor{
			Name:        f.Name,
			Column:      f.Column,
			Kind:        f.Type,
			Nullable:    f.Nullable,
			PrimaryKey:  f.PrimaryKey,
			Implicit:    f.Implicit,
			Description: f.Description,
			JoinTable:   f.JoinTable,
		}
		d.index[f.Name] = i
		if f.Name == derived.PrimaryKey {
			d.pk = i
		}
		if src.Display != "" && f.Name == src.Display {
			d.display = i
		}
	}

	return d
}

// Build registers all entities and freezes them into a Catalog.
func Build(entities []schema.Entity) (*Catalog, error) {
	b := NewBuilder()
	for _, e := range entities {
		if err := b.Register(e); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// Catalog is the read-only set of entity descriptors.
type Catalog struct {
	byKey map[string]*Descriptor
	list  []*Descriptor
}

// Resolve finds an entity by namespace and name.
// The namespace must match exactly; the entity name is matched case-insensitively.
func (c *Catalog) Resolve(namespace, entity string) (*Descriptor, error) {
	if d, ok := c.byKey[lookupKey(namespace, entity)]; ok {
		return d, nil
	}
	return nil, &NotFoundError{Namespace: namespace, Entity: entity}
}

// FieldsOf returns the serializable fields of d in declaration order.
func (c *Catalog) FieldsOf(d *Descriptor) []FieldDescriptor {
	return d.SerializableFields()
}

// List returns all descriptors sorted by namespace, then name.
// The slice is shared; callers must not modify it.
func (c *Catalog) List() []*Descriptor {
	return c.list
}

// Namespaces returns the distinct namespaces in sorted order.
func (c *Catalog) Namespaces() []string {
	var out []string
	for _, d := range c.list {
		if len(out) == 0 || out[len(out)-1] != d.Namespace {
			out = append(out, d.Namespace)
		}
	}
	return out
}

// Len returns the number of entities.
func (c *Catalog) Len() int {
	return len(c.list)
}

func lookupKey(namespace, entity string) string {
	return namespace + "." + strings.ToLower(entity)
}

// NotFoundError is returned when an entity cannot be resolved.
type NotFoundError struct {
	Namespace string
	Entity    string
}

// Error returns the not-found message.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entity %q not found", e.Namespace+"."+e.Entity)
}

// ConflictError is returned when two entities claim the same name or table.
type ConflictError struct {
	Kind  string // "entity" or "table"
	Name  string
	Owner string
}

// Error returns the conflict message.
func (e *ConflictError) Error() string {
	if e.Kind == "table" {
		return fmt.Sprintf("table %q already claimed by entity %q", e.Name, e.Owner)
	}
	return fmt.Sprintf("entity %q already registered", e.Name)
}

package schema

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile parses a schema document from a YAML file.
func ParseFile(path string) ([]Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses a schema document from YAML bytes.
// Entities inherit the document namespace unless they set their own.
func Parse(data []byte) ([]Entity, error) {
	var doc File
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	entities := make([]Entity, 0, len(doc.Entities))
	for _, e := range doc.Entities {
		if e.Namespace == "" {
			e.Namespace = doc.Namespace
		}
		if err := Validate(e); err != nil {
			return nil, fmt.Errorf("validate entity %q: %w", e.Namespace+"."+e.Name, err)
		}
		entities = append(entities, e)
	}

	return entities, nil
}

// ParseDir parses all schema documents from a directory, including subdirectories.
func ParseDir(dir string) ([]Entity, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	return ParseFS(os.DirFS(dir), ".")
}

// ParseFS parses all schema documents below root in fsys.
// Files are visited in lexical order so the result is deterministic.
func ParseFS(fsys fs.FS, root string) ([]Entity, error) {
	var entities []Entity

	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(d.Name()) {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read file %s: %w", p, err)
		}

		parsed, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		entities = append(entities, parsed...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entities, nil
}

func isYAML(name string) bool {
	ext := path.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

// Validate validates an entity definition in isolation.
// Cross-entity checks (ref targets, duplicate tables) happen when the catalog is built.
func Validate(e Entity) error {
	var errs []string

	if e.Namespace == "" {
		errs = append(errs, "namespace is required")
	} else if !isValidIdentifier(e.Namespace) {
		errs = append(errs, fmt.Sprintf("namespace %q is not a valid identifier", e.Namespace))
	}

	if e.Name == "" {
		errs = append(errs, "entity name is required")
	} else if !isValidIdentifier(e.Name) {
		errs = append(errs, fmt.Sprintf("entity name %q is not a valid identifier", e.Name))
	}

	if e.Table != "" && !isValidIdentifier(e.Table) {
		errs = append(errs, fmt.Sprintf("table %q is not a valid identifier", e.Table))
	}

	if len(e.Fields) == 0 {
		errs = append(errs, "entity must have at least one field")
	}

	seen := make(map[string]bool, len(e.Fields))
	primaryKeys := 0
	for _, f := range e.Fields {
		if !isValidIdentifier(f.Name) {
			errs = append(errs, fmt.Sprintf("field name %q is not a valid identifier", f.Name))
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Sprintf("field %q is declared twice", f.Name))
		}
		seen[f.Name] = true

		if f.PrimaryKey {
			primaryKeys++
		}

		if err := validateField(f); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if primaryKeys > 1 {
		errs = append(errs, "at most one field may be the primary key")
	}

	if e.Display != "" {
		if f, ok := e.Field(e.Display); !ok {
			errs = append(errs, fmt.Sprintf("display field %q not in fields", e.Display))
		} else if f.Type.IsRelation() {
			errs = append(errs, fmt.Sprintf("display field %q must not be a relation", e.Display))
		}
	}

	for _, o := range e.Ordering {
		name := strings.TrimPrefix(o, "-")
		f, ok := e.Field(name)
		switch {
		case name == "id" && !ok:
			// implicit primary key
		case !ok:
			errs = append(errs, fmt.Sprintf("ordering field %q not in fields", name))
		case f.Type == FieldTypeRefs:
			errs = append(errs, fmt.Sprintf("ordering field %q is a to-many relation", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// validateField validates a single field definition.
func validateField(f Field) error {
	if !f.Type.Valid() {
		return fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
	}

	if f.Type.IsRelation() && f.To == "" {
		return fmt.Errorf("field %q: %s type requires 'to' target", f.Name, f.Type)
	}

	if !f.Type.IsRelation() && f.To != "" {
		return fmt.Errorf("field %q: 'to' is only valid on ref and refs", f.Name)
	}

	if f.PrimaryKey && (f.Type.IsRelation() || f.Null) {
		return fmt.Errorf("field %q: primary key must be a non-null scalar", f.Name)
	}

	if f.Column != "" && !isValidIdentifier(f.Column) {
		return fmt.Errorf("field %q: column %q is not a valid identifier", f.Name, f.Column)
	}

	return nil
}

// isValidIdentifier checks if a string is a valid identifier.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, c := range s {
		if i == 0 {
			if !isLetter(c) && c != '_' {
				return false
			}
		} else {
			if !isLetter(c) && !isDigit(c) && c != '_' {
				return false
			}
		}
	}

	return true
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

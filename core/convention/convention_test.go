package convention

import (
	"testing"

	"github.com/artpar/querygate/core/schema"
)

func TestDerive_ImplicitPrimaryKey(t *testing.T) {
	e := schema.Entity{
		Namespace: "blog",
		Name:      "Tag",
		Fields:    schema.Fields{{Name: "name", Type: schema.FieldTypeString}},
	}

	d := Derive(e)

	if d.Table != "blog_tag" {
		t.Errorf("Table = %q, want %q", d.Table, "blog_tag")
	}
	if d.PrimaryKey != "id" {
		t.Errorf("PrimaryKey = %q, want %q", d.PrimaryKey, "id")
	}
	if len(d.Fields) != 2 {
		t.Fatalf("len(Fields) = %d, want 2", len(d.Fields))
	}

	id := d.Fields[0]
	if id.Name != "id" || !id.Implicit || !id.PrimaryKey || id.Type != schema.FieldTypeInt {
		t.Errorf("Fields[0] = %+v, want implicit int primary key id", id)
	}
	if d.Fields[1].Column != "name" {
		t.Errorf("name column = %q, want %q", d.Fields[1].Column, "name")
	}
}

func TestDerive_ExplicitPrimaryKeyAndTable(t *testing.T) {
	e := schema.Entity{
		Namespace: "shop",
		Name:      "Country",
		Table:     "countries",
		Fields: schema.Fields{
			{Name: "code", Type: schema.FieldTypeString, PrimaryKey: true},
			{Name: "name", Type: schema.FieldTypeString, Column: "display_name"},
		},
	}

	d := Derive(e)

	if d.Table != "countries" {
		t.Errorf("Table = %q, want %q", d.Table, "countries")
	}
	if d.PrimaryKey != "code" {
		t.Errorf("PrimaryKey = %q, want %q", d.PrimaryKey, "code")
	}
	if len(d.Fields) != 2 {
		t.Fatalf("len(Fields) = %d, want 2 (no implicit id)", len(d.Fields))
	}
	if d.Fields[1].Column != "display_name" {
		t.Errorf("name column = %q, want %q", d.Fields[1].Column, "display_name")
	}
}

func TestDerive_Relations(t *testing.T) {
	e := schema.Entity{
		Namespace: "blog",
		Name:      "Post",
		Fields: schema.Fields{
			{Name: "author", Type: schema.FieldTypeRef, To: "auth.User"},
			{Name: "category", Type: schema.FieldTypeRef, To: "Category", Null: true},
			{Name: "tags", Type: schema.FieldTypeRefs, To: "Tag"},
		},
	}

	d := Derive(e)

	tests := []struct {
		name      string
		column    string
		joinTable string
		nullable  bool
	}{
		{"author", "author_id", "", false},
		{"category", "category_id", "", true},
		{"tags", "", "blog_post_tags", false},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := d.Fields[i+1]
			if f.Name != tt.name {
				t.Fatalf("Fields[%d].Name = %q, want %q", i+1, f.Name, tt.name)
			}
			if f.Column != tt.column {
				t.Errorf("Column = %q, want %q", f.Column, tt.column)
			}
			if f.JoinTable != tt.joinTable {
				t.Errorf("JoinTable = %q, want %q", f.JoinTable, tt.joinTable)
			}
			if f.Nullable != tt.nullable {
				t.Errorf("Nullable = %v, want %v", f.Nullable, tt.nullable)
			}
		})
	}
}

func TestSplitRef(t *testing.T) {
	tests := []struct {
		ref, ns       string
		wantNamespace string
		wantEntity    string
	}{
		{"Category", "blog", "blog", "Category"},
		{"auth.User", "blog", "auth", "User"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			ns, entity := SplitRef(tt.ref, tt.ns)
			if ns != tt.wantNamespace || entity != tt.wantEntity {
				t.Errorf("SplitRef(%q, %q) = %q, %q, want %q, %q", tt.ref, tt.ns, ns, entity, tt.wantNamespace, tt.wantEntity)
			}
		})
	}
}

func TestJoinColumn(t *testing.T) {
	if got := JoinColumn("Post"); got != "post_id" {
		t.Errorf("JoinColumn(Post) = %q, want %q", got, "post_id")
	}
}

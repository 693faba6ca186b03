package catalog

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/artpar/querygate/core/schema"
)

func TestFieldDescriptor_Coerce(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		kind    schema.FieldType
		in      any
		want    any
		wantErr bool
	}{
		{"string", schema.FieldTypeString, "published", "published", false},
		{"string from number", schema.FieldTypeString, float64(42), "42", false},
		{"string from bool", schema.FieldTypeText, true, "true", false},
		{"string from map", schema.FieldTypeString, map[string]any{}, nil, true},

		{"int", schema.FieldTypeInt, 5, int64(5), false},
		{"int from json float", schema.FieldTypeInt, float64(5), int64(5), false},
		{"int from json.Number", schema.FieldTypeInt, json.Number("12"), int64(12), false},
		{"int from string", schema.FieldTypeInt, "42", int64(42), false},
		{"int from fraction", schema.FieldTypeInt, 1.5, nil, true},
		{"int from word", schema.FieldTypeInt, "abc", nil, true},
		{"int from bool", schema.FieldTypeInt, true, nil, true},

		{"float", schema.FieldTypeFloat, 1.25, 1.25, false},
		{"float from int", schema.FieldTypeFloat, 3, float64(3), false},
		{"float from string", schema.FieldTypeFloat, "2.5", 2.5, false},
		{"float from word", schema.FieldTypeFloat, "x", nil, true},

		{"bool", schema.FieldTypeBool, true, true, false},
		{"bool from string", schema.FieldTypeBool, "yes", true, false},
		{"bool from F", schema.FieldTypeBool, "F", false, false},
		{"bool from 0", schema.FieldTypeBool, float64(0), false, false},
		{"bool from 2", schema.FieldTypeBool, 2, nil, true},
		{"bool from word", schema.FieldTypeBool, "maybe", nil, true},

		{"timestamp rfc3339", schema.FieldTypeTimestamp, "2024-01-15T10:30:00Z", ts, false},
		{"timestamp offset", schema.FieldTypeTimestamp, "2024-01-15T12:30:00+02:00", ts, false},
		{"timestamp space", schema.FieldTypeTimestamp, "2024-01-15 10:30:00", ts, false},
		{"timestamp date only", schema.FieldTypeTimestamp, "2024-01-15", day, false},
		{"timestamp garbage", schema.FieldTypeTimestamp, "yesterday", nil, true},
		{"timestamp number", schema.FieldTypeTimestamp, 12, nil, true},

		{"date", schema.FieldTypeDate, "2024-01-15", day, false},
		{"date from timestamp", schema.FieldTypeDate, "2024-01-15T10:30:00Z", day, false},

		{"to-many", schema.FieldTypeRefs, 1, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FieldDescriptor{Name: "f", Kind: tt.kind}
			got, err := f.Coerce(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Coerce(%v) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Coerce(%v) error = %v", tt.in, err)
			}
			if gt, ok := got.(time.Time); ok {
				if !gt.Equal(tt.want.(time.Time)) {
					t.Errorf("Coerce(%v) = %v, want %v", tt.in, gt, tt.want)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Coerce(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFieldDescriptor_CoerceNil(t *testing.T) {
	nullable := FieldDescriptor{Name: "category", Kind: schema.FieldTypeRef, Nullable: true}
	if got, err := nullable.Coerce(nil); err != nil || got != nil {
		t.Errorf("nullable Coerce(nil) = %v, %v, want nil, nil", got, err)
	}

	required := FieldDescriptor{Name: "title", Kind: schema.FieldTypeString}
	if _, err := required.Coerce(nil); !errors.Is(err, ErrNotNullable) {
		t.Errorf("Coerce(nil) error = %v, want ErrNotNullable", err)
	}
}

func TestFieldDescriptor_CoerceRef(t *testing.T) {
	c := mustBuild(t)
	post, _ := c.Resolve("blog", "Post")
	author, _ := post.Field("author")

	got, err := author.Coerce("3")
	if err != nil {
		t.Fatalf("Coerce() error = %v", err)
	}
	if got != int64(3) {
		t.Errorf("Coerce(\"3\") = %#v, want int64(3)", got)
	}

	if _, err := author.Coerce("alice"); err == nil {
		t.Error("Coerce(\"alice\") error = nil, want integer error")
	}
}

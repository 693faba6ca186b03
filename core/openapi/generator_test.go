package openapi

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/artpar/querygate/core/catalog"
	"github.com/artpar/querygate/demo"
)

func demoCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	entities, err := demo.Entities()
	if err != nil {
		t.Fatalf("demo.Entities failed: %v", err)
	}
	cat, err := catalog.Build(entities)
	if err != nil {
		t.Fatalf("catalog.Build failed: %v", err)
	}
	return cat
}

func TestNewGenerator(t *testing.T) {
	gen := NewGenerator(demoCatalog(t))

	if gen.info.Title != "querygate" {
		t.Errorf("default title = %q, want querygate", gen.info.Title)
	}
	if gen.info.Version != "dev" {
		t.Errorf("default version = %q, want dev", gen.info.Version)
	}
}

func TestGenerator_InfoAndServers(t *testing.T) {
	gen := NewGenerator(demoCatalog(t))
	gen.SetInfo(Info{Title: "Blog API", Version: "1.2.0"})
	gen.AddServer("http://localhost:8080", "local")

	spec := gen.Generate()

	if spec.OpenAPI != "3.0.3" {
		t.Errorf("OpenAPI = %s, want 3.0.3", spec.OpenAPI)
	}
	if spec.Info.Title != "Blog API" || spec.Info.Version != "1.2.0" {
		t.Errorf("Info = %+v", spec.Info)
	}
	if len(spec.Servers) != 1 || spec.Servers[0].URL != "http://localhost:8080" {
		t.Errorf("Servers = %+v", spec.Servers)
	}
}

func TestGenerator_Paths(t *testing.T) {
	spec := NewGenerator(demoCatalog(t)).Generate()

	tests := []struct {
		path   string
		method string
		codes  []string
	}{
		{"/v1/query", "post", []string{"200", "400", "404", "500"}},
		{"/v1/models", "get", []string{"200"}},
		{"/v1/models/{namespace}/{entity}", "get", []string{"200", "404"}},
		{"/v1/schema", "get", []string{"200"}},
		{"/v1/migrations", "get", []string{"200"}},
		{"/v1/info", "get", []string{"200"}},
		{"/v1/commands", "get", []string{"200"}},
		{"/healthz", "get", []string{"200"}},
		{"/readyz", "get", []string{"200", "503"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			item, ok := spec.Paths[tt.path]
			if !ok {
				t.Fatalf("path %s missing", tt.path)
			}
			op := item.Get
			if tt.method == "post" {
				op = item.Post
			}
			if op == nil {
				t.Fatalf("%s %s missing", tt.method, tt.path)
			}
			for _, code := range tt.codes {
				if _, ok := op.Responses[code]; !ok {
					t.Errorf("response %s missing", code)
				}
			}
		})
	}
}

func TestGenerator_RecordSchema(t *testing.T) {
	spec := NewGenerator(demoCatalog(t)).Generate()

	post, ok := spec.Components.Schemas["blog.Post"]
	if !ok {
		t.Fatal("schema blog.Post missing")
	}

	tests := []struct {
		field    string
		typ      string
		format   string
		nullable bool
	}{
		{"id", "integer", "int64", false},
		{"title", "string", "", false},
		{"author", "integer", "int64", false},
		{"author_str", "string", "", false},
		{"category", "integer", "int64", true},
		{"category_str", "string", "", true},
		{"featured", "boolean", "", false},
		{"rating", "number", "double", true},
		{"created_at", "string", "date-time", false},
		{"published_at", "string", "date-time", true},
		{"publish_date", "string", "date", true},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			s, ok := post.Properties[tt.field]
			if !ok {
				t.Fatalf("property %s missing", tt.field)
			}
			if s.Type != tt.typ || s.Format != tt.format {
				t.Errorf("%s type/format = %s/%s, want %s/%s", tt.field, s.Type, s.Format, tt.typ, tt.format)
			}
			if s.Nullable != tt.nullable {
				t.Errorf("%s nullable = %v, want %v", tt.field, s.Nullable, tt.nullable)
			}
		})
	}

	if _, ok := post.Properties["tags"]; ok {
		t.Error("to-many relation tags should not be a record property")
	}
}

func TestGenerator_QueryRequest(t *testing.T) {
	spec := NewGenerator(demoCatalog(t)).Generate()

	req := spec.Components.Schemas[SchemaQueryRequest]
	if req == nil {
		t.Fatal("QueryRequest schema missing")
	}
	if !reflect.DeepEqual(req.Required, []string{"namespace", "entity"}) {
		t.Errorf("Required = %v", req.Required)
	}
	if got := req.Properties["namespace"].Enum; !reflect.DeepEqual(got, []string{"auth", "blog"}) {
		t.Errorf("namespace enum = %v, want [auth blog]", got)
	}
	if got := req.Properties["entity"].Enum; !reflect.DeepEqual(got, []string{"Category", "Comment", "Post", "Tag", "User"}) {
		t.Errorf("entity enum = %v", got)
	}
	if limit := req.Properties["limit"]; limit.Maximum == nil || *limit.Maximum != 1000 {
		t.Errorf("limit maximum = %v, want 1000", limit.Maximum)
	}

	resp := spec.Components.Schemas[SchemaQueryResponse]
	if got := len(resp.Properties["results"].Items.OneOf); got != 5 {
		t.Errorf("results oneOf has %d schemas, want 5", got)
	}
}

func TestSpec_ToJSON(t *testing.T) {
	spec := NewGenerator(demoCatalog(t)).Generate()

	for name, encode := range map[string]func() ([]byte, error){
		"indent":  spec.ToJSON,
		"compact": spec.ToJSONCompact,
	} {
		t.Run(name, func(t *testing.T) {
			data, err := encode()
			if err != nil {
				t.Fatalf("encode error: %v", err)
			}
			var doc map[string]any
			if err := json.Unmarshal(data, &doc); err != nil {
				t.Fatalf("output is not JSON: %v", err)
			}
			if doc["openapi"] != "3.0.3" {
				t.Errorf("openapi = %v", doc["openapi"])
			}
		})
	}
}

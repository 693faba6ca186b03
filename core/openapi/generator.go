// Package openapi generates an OpenAPI 3.0 document for the HTTP API from the
// catalog. Every entity gets a record schema; the query endpoint lists the
// entities it accepts.
package openapi

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/artpar/querygate/core/catalog"
	"github.com/artpar/querygate/core/query"
	"github.com/artpar/querygate/core/schema"
)

// Spec represents an OpenAPI 3.0 specification.
type Spec struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Servers    []Server            `json:"servers,omitempty"`
	Paths      map[string]PathItem `json:"paths"`
	Components Components          `json:"components"`
	Tags       []Tag               `json:"tags,omitempty"`
}

// Info provides API metadata.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

// Server represents a server URL.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// PathItem contains operations for a path.
type PathItem struct {
	Get  *Operation `json:"get,omitempty"`
	Post *Operation `json:"post,omitempty"`
}

// Operation represents an API operation.
type Operation struct {
	Tags        []string            `json:"tags,omitempty"`
	Summary     string              `json:"summary,omitempty"`
	Description string              `json:"description,omitempty"`
	OperationID string              `json:"operationId,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses"`
}

// Parameter represents an API parameter.
type Parameter struct {
	Name        string  `json:"name"`
	In          string  `json:"in"` // path, query, header
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
}

// RequestBody represents a request body.
type RequestBody struct {
	Description string               `json:"description,omitempty"`
	Required    bool                 `json:"required,omitempty"`
	Content     map[string]MediaType `json:"content"`
}

// Response represents an API response.
type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// MediaType represents a media type.
type MediaType struct {
	Schema *Schema `json:"schema,omitempty"`
}

// Schema represents a JSON Schema.
type Schema struct {
	Type                 string             `json:"type,omitempty"`
	Format               string             `json:"format,omitempty"`
	Description          string             `json:"description,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Enum                 []string           `json:"enum,omitempty"`
	Ref                  string             `json:"$ref,omitempty"`
	Nullable             bool               `json:"nullable,omitempty"`
	Minimum              *float64           `json:"minimum,omitempty"`
	Maximum              *float64           `json:"maximum,omitempty"`
	Default              any                `json:"default,omitempty"`
	Example              any                `json:"example,omitempty"`
	OneOf                []*Schema          `json:"oneOf,omitempty"`
}

// Components contains reusable schemas.
type Components struct {
	Schemas map[string]*Schema `json:"schemas,omitempty"`
}

// Tag provides metadata for a group of operations.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Shared component names.
const (
	SchemaQueryRequest  = "QueryRequest"
	SchemaQueryResponse = "QueryResponse"
	SchemaError         = "ErrorEnvelope"
)

const jsonMedia = "application/json"

// Generator generates OpenAPI specs from a catalog.
type Generator struct {
	catalog *catalog.Catalog
	info    Info
	servers []Server
}

// NewGenerator creates a new OpenAPI generator.
func NewGenerator(cat *catalog.Catalog) *Generator {
	return &Generator{
		catalog: cat,
		info: Info{
			Title:       "querygate",
			Version:     "dev",
			Description: "Read-only queries over catalog entities",
		},
	}
}

// SetInfo sets the API info.
func (g *Generator) SetInfo(info Info) {
	g.info = info
}

// AddServer adds a server URL.
func (g *Generator) AddServer(url, description string) {
	g.servers = append(g.servers, Server{
		URL:         url,
		Description: description,
	})
}

// Generate creates the OpenAPI specification.
func (g *Generator) Generate() *Spec {
	spec := &Spec{
		OpenAPI: "3.0.3",
		Info:    g.info,
		Servers: g.servers,
		Paths:   make(map[string]PathItem),
		Components: Components{
			Schemas: make(map[string]*Schema),
		},
		Tags: []Tag{
			{Name: "query", Description: "Entity queries"},
			{Name: "introspection", Description: "Catalog and database introspection"},
			{Name: "health", Description: "Liveness and readiness"},
		},
	}

	var records []*Schema
	for _, d := range g.catalog.List() {
		spec.Components.Schemas[d.Key()] = g.recordSchema(d)
		records = append(records, ref(d.Key()))
	}

	spec.Components.Schemas[SchemaQueryRequest] = g.requestSchema()
	spec.Components.Schemas[SchemaQueryResponse] = responseSchema(records)
	spec.Components.Schemas[SchemaError] = &Schema{
		Type:       "object",
		Required:   []string{"error"},
		Properties: map[string]*Schema{"error": {Type: "string"}},
	}

	g.addQueryPath(spec)
	g.addProbePaths(spec)
	return spec
}

// recordSchema describes a serialized record: every field except to-many
// relations, with a <field>_str display string after each to-one relation.
func (g *Generator) recordSchema(d *catalog.Descriptor) *Schema {
	s := &Schema{
		Type:        "object",
		Description: d.Description,
		Properties:  make(map[string]*Schema),
	}
	for _, f := range d.SerializableFields() {
		s.Properties[f.Name] = fieldToSchema(f)
		s.Required = append(s.Required, f.Name)
		if f.IsToOne() {
			s.Properties[f.Name+"_str"] = &Schema{
				Type:        "string",
				Nullable:    f.Nullable,
				Description: fmt.Sprintf("Display string of the referenced %s", f.Target.Key()),
			}
			s.Required = append(s.Required, f.Name+"_str")
		}
	}
	return s
}

// fieldToSchema maps a field kind to the JSON type records carry.
func fieldToSchema(f catalog.FieldDescriptor) *Schema {
	s := &Schema{
		Description: f.Description,
		Nullable:    f.Nullable,
	}

	switch f.Kind {
	case schema.FieldTypeString, schema.FieldTypeText:
		s.Type = "string"
	case schema.FieldTypeInt:
		s.Type = "integer"
		s.Format = "int64"
	case schema.FieldTypeFloat:
		s.Type = "number"
		s.Format = "double"
	case schema.FieldTypeBool:
		s.Type = "boolean"
	case schema.FieldTypeTimestamp:
		s.Type = "string"
		s.Format = "date-time"
		s.Example = "2024-01-15T10:30:00Z"
	case schema.FieldTypeDate:
		s.Type = "string"
		s.Format = "date"
		s.Example = "2024-01-15"
	case schema.FieldTypeRef:
		key := fieldToSchema(f.Target.PrimaryKey())
		s.Type = key.Type
		s.Format = key.Format
		if s.Description == "" {
			s.Description = fmt.Sprintf("Primary key of the referenced %s", f.Target.Key())
		}
	default:
		s.Type = "string"
	}
	return s
}

func (g *Generator) requestSchema() *Schema {
	var entities []string
	for _, d := range g.catalog.List() {
		entities = append(entities, d.Name)
	}
	sort.Strings(entities)
	entities = dedupe(entities)

	minLimit, maxLimit := float64(1), float64(query.MaxLimit)
	return &Schema{
		Type:     "object",
		Required: []string{"namespace", "entity"},
		Properties: map[string]*Schema{
			"namespace": {Type: "string", Enum: g.catalog.Namespaces()},
			"entity": {
				Type:        "string",
				Description: "Entity name, matched case-insensitively",
				Enum:        entities,
			},
			"filters": {
				Type:                 "object",
				Description:          "Field to value equality filters, combined with AND. Use <field>_id or pk as aliases.",
				AdditionalProperties: &Schema{},
			},
			"order_by": {
				Type:        "array",
				Description: "Fields to order by; prefix - for descending",
				Items:       &Schema{Type: "string"},
			},
			"limit": {
				Type:        "integer",
				Description: fmt.Sprintf("Maximum records; absent or non-positive means %d, larger values are clamped", query.DefaultLimit),
				Minimum:     &minLimit,
				Maximum:     &maxLimit,
				Default:     query.DefaultLimit,
			},
		},
	}
}

func responseSchema(records []*Schema) *Schema {
	return &Schema{
		Type: "object",
		Required: []string{
			"namespace", "entity", "total_count", "returned_count", "limit", "filters", "order_by", "results",
		},
		Properties: map[string]*Schema{
			"namespace":      {Type: "string"},
			"entity":         {Type: "string"},
			"total_count":    {Type: "integer", Description: "Records matching the filters, ignoring the limit"},
			"returned_count": {Type: "integer"},
			"limit":          {Type: "integer", Description: "The limit that was applied"},
			"filters":        {Type: "object", AdditionalProperties: &Schema{}},
			"order_by":       {Type: "array", Items: &Schema{Type: "string"}},
			"results":        {Type: "array", Items: &Schema{OneOf: records}},
		},
	}
}

func (g *Generator) addQueryPath(spec *Spec) {
	spec.Paths["/v1/query"] = PathItem{
		Post: &Operation{
			Tags:        []string{"query"},
			Summary:     "Query records of one entity",
			OperationID: "queryModel",
			RequestBody: &RequestBody{
				Required: true,
				Content:  map[string]MediaType{jsonMedia: {Schema: ref(SchemaQueryRequest)}},
			},
			Responses: map[string]Response{
				"200": jsonResponse("Matching records", ref(SchemaQueryResponse)),
				"400": jsonResponse("Invalid filter or ordering", ref(SchemaError)),
				"404": jsonResponse("Unknown entity", ref(SchemaError)),
				"500": jsonResponse("Store or serialization failure", ref(SchemaError)),
			},
		},
	}
}

func (g *Generator) addProbePaths(spec *Spec) {
	probe := func(id, summary string) PathItem {
		return PathItem{Get: &Operation{
			Tags:        []string{"introspection"},
			Summary:     summary,
			OperationID: id,
			Responses: map[string]Response{
				"200": jsonResponse(summary, &Schema{Type: "object"}),
				"500": jsonResponse("Probe failure", ref(SchemaError)),
			},
		}}
	}

	spec.Paths["/v1/info"] = probe("applicationInfo", "Service identity")
	spec.Paths["/v1/models"] = probe("listModels", "List entities")
	spec.Paths["/v1/schema"] = probe("databaseSchema", "Database tables")
	spec.Paths["/v1/migrations"] = probe("listMigrations", "Migrations and their state")
	spec.Paths["/v1/commands"] = probe("listCommands", "CLI commands")

	describe := probe("describeModel", "Describe one entity")
	describe.Get.Parameters = []Parameter{
		{Name: "namespace", In: "path", Required: true, Schema: &Schema{Type: "string"}},
		{Name: "entity", In: "path", Required: true, Schema: &Schema{Type: "string"}},
	}
	describe.Get.Responses["404"] = jsonResponse("Unknown entity", ref(SchemaError))
	spec.Paths["/v1/models/{namespace}/{entity}"] = describe

	health := func(id, summary string, codes ...string) PathItem {
		op := &Operation{
			Tags:        []string{"health"},
			Summary:     summary,
			OperationID: id,
			Responses:   make(map[string]Response),
		}
		for _, code := range codes {
			op.Responses[code] = jsonResponse(summary, &Schema{Type: "object"})
		}
		return PathItem{Get: op}
	}
	spec.Paths["/healthz"] = health("liveness", "Liveness check", "200")
	spec.Paths["/readyz"] = health("readiness", "Readiness check", "200", "503")
}

func jsonResponse(description string, s *Schema) Response {
	return Response{
		Description: description,
		Content:     map[string]MediaType{jsonMedia: {Schema: s}},
	}
}

func ref(name string) *Schema {
	return &Schema{Ref: "#/components/schemas/" + name}
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

// ToJSON converts the spec to JSON.
func (spec *Spec) ToJSON() ([]byte, error) {
	return json.MarshalIndent(spec, "", "  ")
}

// ToJSONCompact converts the spec to compact JSON.
func (spec *Spec) ToJSONCompact() ([]byte, error) {
	return json.Marshal(spec)
}

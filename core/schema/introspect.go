package schema

// Introspection types for exposing entity metadata to clients.
// They are populated from catalog descriptors and served by the HTTP and MCP transports.

// EntityListResponse is returned by GET /v1/models and the list_models tool.
type EntityListResponse struct {
	Entities []EntitySummary `json:"entities"`
	Count    int             `json:"count"`
}

// EntitySummary provides a brief overview of an entity.
type EntitySummary struct {
	Namespace   string        `json:"namespace"`
	Entity      string        `json:"entity"`
	Table       string        `json:"table"`
	Description string        `json:"description,omitempty"`
	Fields      []FieldSchema `json:"fields"`
}

// EntitySchemaResponse is returned by GET /v1/models/{namespace}/{entity}
// and the describe_model tool.
type EntitySchemaResponse struct {
	Namespace   string        `json:"namespace"`
	Entity      string        `json:"entity"`
	Table       string        `json:"table"`
	PrimaryKey  string        `json:"primary_key"`
	Display     string        `json:"display,omitempty"`
	Ordering    []string      `json:"ordering"`
	Description string        `json:"description,omitempty"`
	Version     string        `json:"version,omitempty"`
	Fields      []FieldSchema `json:"fields"`
}

// FieldSchema describes an entity field for introspection.
type FieldSchema struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Column      string `json:"column,omitempty"`
	Nullable    bool   `json:"nullable,omitempty"`
	PrimaryKey  bool   `json:"primary_key,omitempty"`
	Ref         string `json:"ref,omitempty"`        // target entity as namespace.Entity
	Filterable  bool   `json:"filterable"`           // can be used in query filters
	Sortable    bool   `json:"sortable"`             // can be used in order_by
	Implicit    bool   `json:"implicit,omitempty"`   // auto-generated (id)
	SQLType     string `json:"sql_type,omitempty"`   // for tooling
	Description string `json:"description,omitempty"`
}

// Package mcp exposes the query engine and the introspection probes as MCP
// tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/artpar/querygate/core/introspect"
	"github.com/artpar/querygate/core/query"
	"github.com/google/uuid"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// Tool names.
const (
	ToolQueryModel      = "query_model"
	ToolListModels      = "list_models"
	ToolDescribeModel   = "describe_model"
	ToolDatabaseSchema  = "database_schema"
	ToolListMigrations  = "list_migrations"
	ToolApplicationInfo = "application_info"
	ToolListCommands    = "list_commands"
)

// Options identifies the server to clients.
type Options struct {
	Name    string
	Version string
}

// ModelArgs names one entity.
type ModelArgs struct {
	Namespace string `json:"namespace" jsonschema:"namespace the entity belongs to, e.g. blog"`
	Entity    string `json:"entity" jsonschema:"entity name, case-insensitive, e.g. Post"`
}

// NoArgs is the input of tools that take no arguments.
type NoArgs struct{}

// Server serves the tools.
type Server struct {
	engine *query.Engine
	prober *introspect.Prober
	logger zerolog.Logger
	server *gomcp.Server
}

// NewServer creates the tool server and registers every tool.
func NewServer(engine *query.Engine, prober *introspect.Prober, logger zerolog.Logger, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "querygate"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := &Server{
		engine: engine,
		prober: prober,
		logger: logger,
		server: gomcp.NewServer(&gomcp.Implementation{Name: opts.Name, Version: opts.Version}, nil),
	}

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name: ToolQueryModel,
		Description: "Query records of one entity. Filters are field=value equality checks combined with AND; " +
			"order_by lists fields, prefix - for descending; limit defaults to 100 and is capped at 1000. " +
			"Related records appear as <field> (key) and <field>_str (display string).",
	}, s.queryModel)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        ToolListModels,
		Description: "List every queryable entity with its namespace, table and fields.",
	}, s.listModels)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        ToolDescribeModel,
		Description: "Describe one entity: primary key, default ordering, display field and every field with its kind.",
	}, s.describeModel)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        ToolDatabaseSchema,
		Description: "List the tables of the backing database with their columns and indexes.",
	}, s.databaseSchema)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        ToolListMigrations,
		Description: "List migrations per namespace and whether each one has been applied.",
	}, s.listMigrations)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        ToolApplicationInfo,
		Description: "Report the service name, version, database driver, namespaces and model count.",
	}, s.applicationInfo)
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        ToolListCommands,
		Description: "List the commands of the querygate CLI.",
	}, s.listCommands)

	return s
}

// MCP returns the underlying SDK server.
func (s *Server) MCP() *gomcp.Server {
	return s.server
}

// Run serves over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info().Msg("serving MCP over stdio")
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

func (s *Server) queryModel(ctx context.Context, _ *gomcp.CallToolRequest, req query.Request) (*gomcp.CallToolResult, any, error) {
	id := uuid.NewString()
	start := time.Now()

	env := s.engine.Handle(ctx, req)

	event := s.logger.Debug()
	if !env.OK() {
		event = s.logger.Warn().Err(env.Err)
	}
	event.
		Str("request_id", id).
		Str("tool", ToolQueryModel).
		Str("namespace", req.Namespace).
		Str("entity", req.Entity).
		Dur("duration", time.Since(start)).
		Msg("tool call")

	return result(env.Body(), !env.OK())
}

func (s *Server) listModels(context.Context, *gomcp.CallToolRequest, NoArgs) (*gomcp.CallToolResult, any, error) {
	return result(s.prober.ListModels(), false)
}

func (s *Server) describeModel(_ context.Context, _ *gomcp.CallToolRequest, args ModelArgs) (*gomcp.CallToolResult, any, error) {
	resp, err := s.prober.DescribeModel(args.Namespace, args.Entity)
	if err != nil {
		return errorResult(err)
	}
	return result(resp, false)
}

func (s *Server) databaseSchema(ctx context.Context, _ *gomcp.CallToolRequest, _ NoArgs) (*gomcp.CallToolResult, any, error) {
	resp, err := s.prober.DatabaseSchema(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("tool", ToolDatabaseSchema).Msg("tool call failed")
		return errorResult(err)
	}
	return result(resp, false)
}

func (s *Server) listMigrations(ctx context.Context, _ *gomcp.CallToolRequest, _ NoArgs) (*gomcp.CallToolResult, any, error) {
	resp, err := s.prober.ListMigrations(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("tool", ToolListMigrations).Msg("tool call failed")
		return errorResult(err)
	}
	return result(resp, false)
}

func (s *Server) applicationInfo(context.Context, *gomcp.CallToolRequest, NoArgs) (*gomcp.CallToolResult, any, error) {
	return result(s.prober.ApplicationInfo(), false)
}

func (s *Server) listCommands(context.Context, *gomcp.CallToolRequest, NoArgs) (*gomcp.CallToolResult, any, error) {
	return result(s.prober.ListCommands(), false)
}

// result renders body as JSON text and as structured content.
func result(body any, isError bool) (*gomcp.CallToolResult, any, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &gomcp.CallToolResult{
		Content:           []gomcp.Content{&gomcp.TextContent{Text: string(data)}},
		StructuredContent: json.RawMessage(data),
		IsError:           isError,
	}, nil, nil
}

func errorResult(err error) (*gomcp.CallToolResult, any, error) {
	return result(query.ErrorEnvelope{Error: err.Error()}, true)
}

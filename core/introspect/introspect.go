// Package introspect answers read-only questions about the running service:
// which entities it serves, how the database is laid out, which migrations
// have run and which commands the CLI offers.
//
// Probes share the catalog with the query engine but never go through the
// query pipeline.
package introspect

import (
	"context"
	"runtime"
	"time"

	"github.com/artpar/querygate/core/catalog"
	"github.com/artpar/querygate/core/schema"
)

// Table is a database table as reported by the store.
type Table struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []Column `json:"columns" yaml:"columns"`
	Indexes []string `json:"indexes,omitempty" yaml:"indexes,omitempty"`
}

// Column is a table column.
type Column struct {
	Name       string  `json:"name" yaml:"name"`
	Type       string  `json:"type" yaml:"type"`
	NotNull    bool    `json:"not_null" yaml:"not_null"`
	PrimaryKey bool    `json:"primary_key" yaml:"primary_key"`
	Default    *string `json:"default,omitempty" yaml:"default,omitempty"`
}

// Migration is a migration file and whether it has been applied.
type Migration struct {
	Namespace string     `json:"namespace" yaml:"namespace"`
	Name      string     `json:"name" yaml:"name"`
	Version   string     `json:"version" yaml:"version"`
	Applied   bool       `json:"applied" yaml:"applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty" yaml:"applied_at,omitempty"`
}

// Command describes a CLI command.
type Command struct {
	Name  string `json:"name" yaml:"name"`
	Usage string `json:"usage" yaml:"usage"`
	Short string `json:"short" yaml:"short"`
}

// SchemaReader lists the tables of the backing database.
type SchemaReader interface {
	Tables(ctx context.Context) ([]Table, error)
}

// MigrationReader lists known migrations with their applied state.
type MigrationReader interface {
	Migrations(ctx context.Context) ([]Migration, error)
}

// Info identifies the running service.
type Info struct {
	Name     string
	Version  string
	Driver   string
	Debug    bool
	Started  time.Time
	Commands []Command
}

// ApplicationInfo is returned by the application_info probe.
type ApplicationInfo struct {
	Name       string    `json:"name" yaml:"name"`
	Version    string    `json:"version" yaml:"version"`
	GoVersion  string    `json:"go_version" yaml:"go_version"`
	Driver     string    `json:"database_driver" yaml:"database_driver"`
	Debug      bool      `json:"debug" yaml:"debug"`
	Namespaces []string  `json:"namespaces" yaml:"namespaces"`
	Models     int       `json:"model_count" yaml:"model_count"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
}

// SchemaResponse is returned by the database_schema probe.
type SchemaResponse struct {
	Driver string  `json:"driver" yaml:"driver"`
	Tables []Table `json:"tables" yaml:"tables"`
	Count  int     `json:"count" yaml:"count"`
}

// MigrationsResponse is returned by the list_migrations probe.
type MigrationsResponse struct {
	Migrations []Migration `json:"migrations" yaml:"migrations"`
	Applied    int         `json:"applied" yaml:"applied"`
	Pending    int         `json:"pending" yaml:"pending"`
}

// CommandsResponse is returned by the list_commands probe.
type CommandsResponse struct {
	Commands []Command `json:"commands" yaml:"commands"`
}

// Prober serves the introspection probes.
type Prober struct {
	info       Info
	catalog    *catalog.Catalog
	schema     SchemaReader
	migrations MigrationReader
}

// New creates a prober. A nil migrations reader reports no migrations; a nil
// schema reader falls back to the layout derived from the catalog.
func New(info Info, cat *catalog.Catalog, schema SchemaReader, migrations MigrationReader) *Prober {
	if schema == nil {
		schema = CatalogSchema{Catalog: cat}
	}
	if info.Started.IsZero() {
		info.Started = time.Now()
	}
	return &Prober{
		info:       info,
		catalog:    cat,
		schema:     schema,
		migrations: migrations,
	}
}

// ApplicationInfo reports the service identity and what it serves.
func (p *Prober) ApplicationInfo() ApplicationInfo {
	return ApplicationInfo{
		Name:       p.info.Name,
		Version:    p.info.Version,
		GoVersion:  runtime.Version(),
		Driver:     p.info.Driver,
		Debug:      p.info.Debug,
		Namespaces: p.catalog.Namespaces(),
		Models:     p.catalog.Len(),
		StartedAt:  p.info.Started.UTC(),
	}
}

// ListModels summarizes every entity in the catalog.
func (p *Prober) ListModels() schema.EntityListResponse {
	return p.catalog.Models()
}

// DescribeModel returns one entity in detail. It fails with a
// *catalog.NotFoundError for unknown entities.
func (p *Prober) DescribeModel(namespace, entity string) (schema.EntitySchemaResponse, error) {
	d, err := p.catalog.Resolve(namespace, entity)
	if err != nil {
		return schema.EntitySchemaResponse{}, err
	}
	return d.Schema(), nil
}

// DatabaseSchema lists the tables of the backing database.
func (p *Prober) DatabaseSchema(ctx context.Context) (SchemaResponse, error) {
	tables, err := p.schema.Tables(ctx)
	if err != nil {
		return SchemaResponse{}, err
	}
	if tables == nil {
		tables = []Table{}
	}
	return SchemaResponse{Driver: p.info.Driver, Tables: tables, Count: len(tables)}, nil
}

// ListMigrations lists migrations with their applied state.
func (p *Prober) ListMigrations(ctx context.Context) (MigrationsResponse, error) {
	resp := MigrationsResponse{Migrations: []Migration{}}
	if p.migrations == nil {
		return resp, nil
	}

	migrations, err := p.migrations.Migrations(ctx)
	if err != nil {
		return MigrationsResponse{}, err
	}
	for _, m := range migrations {
		if m.Applied {
			resp.Applied++
		} else {
			resp.Pending++
		}
	}
	if migrations != nil {
		resp.Migrations = migrations
	}
	return resp, nil
}

// ListCommands lists the CLI commands.
func (p *Prober) ListCommands() CommandsResponse {
	commands := p.info.Commands
	if commands == nil {
		commands = []Command{}
	}
	return CommandsResponse{Commands: commands}
}

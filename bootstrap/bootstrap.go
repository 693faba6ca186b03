// Package bootstrap wires all dependencies and starts the application.
// The catalog and store are built once at startup; a config reload only
// re-applies the log level and the request timeout.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	apihttp "github.com/artpar/querygate/adapters/http"
	"github.com/artpar/querygate/adapters/mcp"
	"github.com/artpar/querygate/adapters/metrics"
	"github.com/artpar/querygate/adapters/sqlite"
	"github.com/artpar/querygate/config"
	"github.com/artpar/querygate/core/catalog"
	"github.com/artpar/querygate/core/introspect"
	"github.com/artpar/querygate/core/openapi"
	"github.com/artpar/querygate/core/query"
	"github.com/artpar/querygate/core/schema"
	"github.com/artpar/querygate/core/storage"
	"github.com/artpar/querygate/demo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Options carries what the caller knows that the config file does not.
type Options struct {
	Version  string
	Commands []introspect.Command
	// LogOutput receives log lines; defaults to stdout. MCP mode passes stderr
	// because stdout carries the protocol.
	LogOutput io.Writer
}

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Catalog    *catalog.Catalog
	Store      storage.Store
	DB         *sqlite.DB
	Migrator   *sqlite.Migrator
	Engine     *query.Engine
	Prober     *introspect.Prober
	Metrics    *metrics.Collector
	Registry   *prometheus.Registry
	HTTPServer *http.Server

	config atomic.Pointer[config.Config]
	holder *config.Holder
	opts   Options
	ready  atomic.Bool
}

// New creates and initializes the application.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{
		Logger: SetupLogger(cfg.Logging.Level, cfg.Logging.Format, opts.LogOutput),
		opts:   opts,
	}
	a.config.Store(cfg)

	a.Logger.Info().
		Str("driver", cfg.Database.Driver).
		Str("catalog", catalogSource(cfg)).
		Msg("initializing querygate")

	if err := a.InitCatalog(); err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}
	if err := a.InitStore(ctx); err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := a.initServices(); err != nil {
		a.closeStore()
		return nil, fmt.Errorf("init services: %w", err)
	}

	a.ready.Store(true)
	a.Logger.Info().
		Int("models", a.Catalog.Len()).
		Strs("namespaces", a.Catalog.Namespaces()).
		Msg("querygate ready")
	return a, nil
}

// NewFromHolder creates the application from a watched configuration and
// subscribes it to reloads.
func NewFromHolder(ctx context.Context, h *config.Holder, opts Options) (*App, error) {
	a, err := New(ctx, h.Get(), opts)
	if err != nil {
		return nil, err
	}
	a.holder = h
	h.OnChange(a.ApplyConfig)
	h.OnReload(a.Metrics.ObserveReload)
	return a, nil
}

// Config returns the configuration currently in effect.
func (a *App) Config() *config.Config {
	return a.config.Load()
}

// Ready reports whether the catalog and store are initialized and the app has
// not been shut down.
func (a *App) Ready() bool {
	return a.ready.Load()
}

// InitCatalog builds the catalog from the configured directory, or from the
// embedded demo project when none is configured.
func (a *App) InitCatalog() error {
	cfg := a.Config()

	var (
		entities []schema.Entity
		err      error
	)
	if cfg.Catalog.Dir != "" {
		entities, err = schema.ParseDir(cfg.Catalog.Dir)
	} else {
		entities, err = demo.Entities()
	}
	if err != nil {
		return err
	}

	cat, err := catalog.Build(entities)
	if err != nil {
		return err
	}
	a.Catalog = cat
	return nil
}

// InitStore opens the configured store. SQLite databases get their tables and
// migrations when auto_migrate is set; the memory store is filled from
// fixtures.
func (a *App) InitStore(ctx context.Context) error {
	if a.Catalog == nil {
		return fmt.Errorf("catalog not initialized")
	}
	cfg := a.Config()

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Database.DSN, sqlite.Options{BusyTimeout: cfg.Database.BusyTimeout}, a.Logger)
		if err != nil {
			return err
		}
		a.DB = db
		a.Migrator = db.Migrator(a.migrationsFS())

		if cfg.Database.AutoMigrate {
			if err := a.Migrate(ctx); err != nil {
				db.Close()
				a.DB = nil
				return err
			}
		}
		a.Store = storage.NewSQLiteStore(db.DB)

	case config.DriverMemory:
		store := storage.NewMemoryStore()
		for _, d := range a.Catalog.List() {
			store.Register(d)
		}
		a.Store = store

		n, err := a.LoadFixtures(ctx, cfg.Fixtures.Dir)
		if err != nil {
			return err
		}
		a.Logger.Info().Int("records", n).Msg("memory store loaded")

	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	return nil
}

// Migrate creates the catalog's tables and applies pending migrations.
func (a *App) Migrate(ctx context.Context) error {
	if a.DB == nil {
		return fmt.Errorf("migrations need the %s driver", config.DriverSQLite)
	}
	if err := storage.CreateTables(ctx, a.DB.DB, a.Catalog); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	applied, err := a.Migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	for _, v := range applied {
		a.Logger.Info().Str("version", v).Msg("applied migration")
	}
	return nil
}

// LoadFixtures inserts the fixtures found in dir, or the demo records when dir
// is empty and the demo catalog is served. It returns the number of records.
func (a *App) LoadFixtures(ctx context.Context, dir string) (int, error) {
	var (
		fixtures []storage.Fixture
		err      error
	)
	switch {
	case dir != "":
		fixtures, err = storage.ReadFixtureDir(dir)
	case a.Config().Catalog.Dir == "":
		fixtures, err = demo.Fixtures()
	default:
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var ins storage.Inserter
	switch store := a.Store.(type) {
	case *storage.MemoryStore:
		ins = store
	default:
		if a.DB == nil {
			return 0, fmt.Errorf("store does not accept fixtures")
		}
		ins = storage.NewSQLiteLoader(a.DB.DB)
	}

	if err := storage.LoadFixtures(ctx, a.Catalog, ins, fixtures); err != nil {
		return 0, fmt.Errorf("load fixtures: %w", err)
	}
	return len(fixtures), nil
}

// migrationsFS returns the configured migrations directory; the demo catalog
// brings its own.
func (a *App) migrationsFS() fs.FS {
	cfg := a.Config()
	switch {
	case cfg.Database.Migrations != "":
		return os.DirFS(cfg.Database.Migrations)
	case cfg.Catalog.Dir == "":
		return demo.Migrations()
	default:
		return nil
	}
}

func (a *App) initServices() error {
	cfg := a.Config()

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.NewWithRegistry(a.Registry)

	a.Engine = query.NewEngine(a.Catalog, a.Store, a.Logger, query.WithObserver(a.Metrics))

	info := introspect.Info{
		Name:     cfg.MCP.Name,
		Version:  a.version(),
		Driver:   cfg.Database.Driver,
		Debug:    cfg.Logging.Level == "debug",
		Commands: a.opts.Commands,
	}
	var (
		schemaReader    introspect.SchemaReader
		migrationReader introspect.MigrationReader
	)
	if a.DB != nil {
		schemaReader = a.DB
		migrationReader = a.Migrator
		if err := a.Metrics.RegisterDBStats(a.DB.DB, "querygate"); err != nil {
			return fmt.Errorf("register db stats: %w", err)
		}
	}
	a.Prober = introspect.New(info, a.Catalog, schemaReader, migrationReader)

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return nil
}

// Handler builds the HTTP router.
func (a *App) Handler() http.Handler {
	cfg := a.Config()

	routerCfg := apihttp.RouterConfig{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: func() time.Duration { return a.Config().Server.RequestTimeout },
		OpenAPI:        a.OpenAPI(),
	}
	if cfg.Metrics.Enabled {
		routerCfg.Metrics = a.Metrics
		routerCfg.MetricsHandler = promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})
		routerCfg.MetricsPath = cfg.Metrics.Path
	}

	return apihttp.NewRouter(
		apihttp.NewQueryHandler(a.Engine, a.Logger),
		apihttp.NewProbeHandler(a.Prober, a.Logger),
		apihttp.NewHealthHandler(a),
		a.Logger,
		routerCfg,
	)
}

// OpenAPI generates the OpenAPI document for the HTTP API.
func (a *App) OpenAPI() *openapi.Spec {
	gen := openapi.NewGenerator(a.Catalog)
	gen.SetInfo(openapi.Info{
		Title:       a.Config().MCP.Name,
		Description: "Read-only queries over catalog entities",
		Version:     a.version(),
	})
	return gen.Generate()
}

// MCPServer builds the MCP tool server.
func (a *App) MCPServer() *mcp.Server {
	cfg := a.Config()
	return mcp.NewServer(a.Engine, a.Prober, a.Logger, mcp.Options{
		Name:    cfg.MCP.Name,
		Version: a.version(),
	})
}

func (a *App) version() string {
	if v := a.Config().MCP.Version; v != "" {
		return v
	}
	if a.opts.Version != "" {
		return a.opts.Version
	}
	return "dev"
}

// ApplyConfig applies the reloadable parts of a new configuration.
func (a *App) ApplyConfig(cfg *config.Config) {
	old := a.config.Swap(cfg)

	if old == nil || old.Logging.Level != cfg.Logging.Level {
		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
			a.Logger.Info().Str("level", level.String()).Msg("log level applied")
		}
	}
}

// Run starts the HTTP server and blocks until a signal or a server error.
func (a *App) Run() error {
	if a.holder != nil {
		if err := a.holder.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch disabled")
		}
		a.holder.WatchSignals()
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// RunMCP serves the MCP tools over stdio until ctx is done.
func (a *App) RunMCP(ctx context.Context) error {
	defer a.Shutdown()
	return a.MCPServer().Run(ctx)
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	a.ready.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	// Shutdown HTTP server
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.closeStore()

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func (a *App) closeStore() {
	// The SQLite store shares the connection closed below.
	if a.Store != nil && a.DB == nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("store close error")
		}
	}
	a.Store = nil

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
		a.DB = nil
	}
}

// SetupLogger builds the process logger and sets the global level.
// Unknown levels fall back to info.
func SetupLogger(levelStr, format string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}

func catalogSource(cfg *config.Config) string {
	if cfg.Catalog.Dir == "" {
		return "demo"
	}
	return cfg.Catalog.Dir
}

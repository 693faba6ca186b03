package query

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/querygate/core/catalog"
	"github.com/artpar/querygate/core/storage"
	"github.com/rs/zerolog"
)

// Observer is notified of every query the engine handles.
type Observer interface {
	// ObserveQuery records the outcome label, duration and returned record count.
	ObserveQuery(namespace, entity, outcome string, duration time.Duration, returned int)

	// ObserveClamp records a request whose limit exceeded MaxLimit.
	ObserveClamp(namespace, entity string)
}

type nopObserver struct{}

func (nopObserver) ObserveQuery(string, string, string, time.Duration, int) {}
func (nopObserver) ObserveClamp(string, string)                             {}

// Engine runs the query pipeline: resolve, validate, execute, serialize, assemble.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	catalog    *catalog.Catalog
	store      storage.Store
	serializer Serializer
	observer   Observer
	logger     zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver reports query outcomes to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// NewEngine creates an engine over a built catalog and a store.
func NewEngine(cat *catalog.Catalog, store storage.Store, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		catalog:    cat,
		store:      store,
		serializer: NewSerializer(logger),
		observer:   nopObserver{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the engine's catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Query runs req and returns a fully populated response or an error.
// Validation happens before the store is touched.
func (e *Engine) Query(ctx context.Context, req Request) (*Response, error) {
	d, err := e.catalog.Resolve(req.Namespace, req.Entity)
	if err != nil {
		var nf *catalog.NotFoundError
		if errors.As(err, &nf) {
			return nil, &UnknownEntityError{Namespace: req.Namespace, Entity: req.Entity}
		}
		return nil, err
	}

	filters, err := ValidateFilters(d, req.Filters)
	if err != nil {
		return nil, err
	}

	ordering, err := ValidateOrdering(d, req.OrderBy)
	if err != nil {
		return nil, err
	}

	limit, clamped := EffectiveLimit(req.Limit)
	if clamped {
		e.observer.ObserveClamp(d.Namespace, d.Name)
		e.logger.Debug().
			Str("entity", d.Key()).
			Int("requested", *req.Limit).
			Int("limit", limit).
			Msg("limit clamped")
	}

	total, rows, err := Execute(ctx, e.store, d, filters, ordering, limit)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := e.serializer.Serialize(d, row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return Assemble(d, total, limit, req.Filters, req.OrderBy, records), nil
}

// Handle runs req and never fails: every error, and any panic raised while
// handling, becomes an error envelope.
func (e *Engine) Handle(ctx context.Context, req Request) (env Envelope) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			env = Envelope{Err: &InternalError{Value: r}}
			e.logger.Error().
				Str("namespace", req.Namespace).
				Str("entity", req.Entity).
				Interface("panic", r).
				Msg("query panicked")
		}
		e.observe(req, env, time.Since(start))
	}()

	resp, err := e.Query(ctx, req)
	if err != nil {
		return Envelope{Err: err}
	}
	return Envelope{Response: resp}
}

func (e *Engine) observe(req Request, env Envelope, duration time.Duration) {
	outcome := Outcome(env.Err)
	returned := 0
	if env.Response != nil {
		returned = env.Response.ReturnedCount
	}
	namespace, entity := e.labels(req)
	e.observer.ObserveQuery(namespace, entity, outcome, duration, returned)

	if env.Err != nil {
		e.logger.Warn().
			Err(env.Err).
			Str("namespace", req.Namespace).
			Str("entity", req.Entity).
			Str("outcome", outcome).
			Dur("duration", duration).
			Msg("query failed")
		return
	}

	e.logger.Debug().
		Str("namespace", env.Response.Namespace).
		Str("entity", env.Response.Entity).
		Int("total", env.Response.TotalCount).
		Int("returned", env.Response.ReturnedCount).
		Int("limit", env.Response.Limit).
		Dur("duration", duration).
		Msg("query")
}

// unknownLabel stands in for names not in the catalog so callers cannot grow label sets.
const unknownLabel = "_unknown"

// labels returns the canonical namespace and entity names of req.
func (e *Engine) labels(req Request) (string, string) {
	d, err := e.catalog.Resolve(req.Namespace, req.Entity)
	if err != nil {
		return unknownLabel, unknownLabel
	}
	return d.Namespace, d.Name
}

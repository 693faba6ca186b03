package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/artpar/querygate/adapters/metrics"
	"github.com/artpar/querygate/core/openapi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-Id"

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics        *metrics.Collector
	MetricsHandler http.Handler // mounted at MetricsPath when set
	MetricsPath    string
	CORSOrigins    []string
	OpenAPI        *openapi.Spec // served at /v1/openapi.json, with Swagger UI under /docs/
	// RequestTimeout returns the current per-request deadline; it is read on
	// every request so a reloaded value applies without a restart.
	RequestTimeout func() time.Duration
}

// NewRouter creates the main HTTP router.
func NewRouter(queries *QueryHandler, probes *ProbeHandler, health *HealthHandler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", RequestIDHeader},
			ExposedHeaders: []string{RequestIDHeader},
		}).Handler)
	}
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
	}

	r.Get("/healthz", health.Liveness)
	r.Get("/readyz", health.Readiness)

	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsHandler)
	}

	if cfg.OpenAPI != nil {
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/v1/openapi.json")))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(NewTimeoutMiddleware(cfg.RequestTimeout))

		r.Method(http.MethodPost, "/query", queries)
		r.Get("/info", probes.Info)
		r.Get("/models", probes.Models)
		r.Get("/models/{namespace}/{entity}", probes.Model)
		r.Get("/schema", probes.Schema)
		r.Get("/migrations", probes.Migrations)
		r.Get("/commands", probes.Commands)
		if cfg.OpenAPI != nil {
			r.Get("/openapi.json", NewOpenAPIHandler(cfg.OpenAPI))
		}
	})

	return r
}

// RequestID assigns every request an id, keeping a well-formed one supplied
// by the caller. The id is echoed in the response header and is available
// through middleware.GetReqID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// NewTimeoutMiddleware bounds each request's context by the current timeout.
// Store reads observe the deadline through the context.
func NewTimeoutMiddleware(timeout func() time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if timeout == nil || timeout() <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout())
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewMetricsMiddleware creates middleware that records request metrics.
func NewMetricsMiddleware(m *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics for internal endpoints
			if isInternalPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			m.ObserveRequest(r.Method, metrics.NormalizePath(route), ww.Status(), time.Since(start))
		})
	}
}

// NewLoggingMiddleware creates a new logging middleware.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip logging for health checks and metrics
			if isInternalPath(r.URL.Path) {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

func isInternalPath(path string) bool {
	return strings.HasPrefix(path, "/healthz") || strings.HasPrefix(path, "/readyz") || path == "/metrics"
}

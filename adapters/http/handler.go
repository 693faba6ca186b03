// Package http serves the query engine and the introspection probes over HTTP.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/artpar/querygate/core/catalog"
	"github.com/artpar/querygate/core/introspect"
	"github.com/artpar/querygate/core/openapi"
	"github.com/artpar/querygate/core/query"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps the size of a query request body.
const maxBodyBytes = 1 << 20

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// QueryHandler serves POST /v1/query.
type QueryHandler struct {
	engine *query.Engine
	logger zerolog.Logger
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(engine *query.Engine, logger zerolog.Logger) *QueryHandler {
	return &QueryHandler{engine: engine, logger: logger}
}

// ServeHTTP decodes the request body, runs the query and writes the envelope.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req query.Request

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, query.ErrorEnvelope{
			Error: fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}

	env := h.engine.Handle(r.Context(), req)
	if !env.OK() {
		h.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("namespace", req.Namespace).
			Str("entity", req.Entity).
			Err(env.Err).
			Msg("query rejected")
	}

	writeJSON(w, env.StatusCode(), env)
}

// ProbeHandler serves the read-only introspection endpoints.
type ProbeHandler struct {
	prober *introspect.Prober
	logger zerolog.Logger
}

// NewProbeHandler creates a probe handler.
func NewProbeHandler(prober *introspect.Prober, logger zerolog.Logger) *ProbeHandler {
	return &ProbeHandler{prober: prober, logger: logger}
}

// Info serves GET /v1/info.
func (h *ProbeHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.prober.ApplicationInfo())
}

// Models serves GET /v1/models.
func (h *ProbeHandler) Models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.prober.ListModels())
}

// Model serves GET /v1/models/{namespace}/{entity}.
func (h *ProbeHandler) Model(w http.ResponseWriter, r *http.Request) {
	resp, err := h.prober.DescribeModel(chi.URLParam(r, "namespace"), chi.URLParam(r, "entity"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Schema serves GET /v1/schema.
func (h *ProbeHandler) Schema(w http.ResponseWriter, r *http.Request) {
	resp, err := h.prober.DatabaseSchema(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Migrations serves GET /v1/migrations.
func (h *ProbeHandler) Migrations(w http.ResponseWriter, r *http.Request) {
	resp, err := h.prober.ListMigrations(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Commands serves GET /v1/commands.
func (h *ProbeHandler) Commands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.prober.ListCommands())
}

func (h *ProbeHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var notFound *catalog.NotFoundError
	if errors.As(err, &notFound) {
		status = http.StatusNotFound
	} else {
		h.logger.Error().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Err(err).
			Msg("probe failed")
	}
	writeJSON(w, status, query.ErrorEnvelope{Error: err.Error()})
}

// ReadinessChecker reports whether the application can serve queries.
type ReadinessChecker interface {
	Ready() bool
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	ready ReadinessChecker
}

// NewHealthHandler creates a new health handler. A nil checker is always ready.
func NewHealthHandler(ready ReadinessChecker) *HealthHandler {
	return &HealthHandler{ready: ready}
}

// Liveness returns a simple liveness check.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readiness reports 503 until the catalog and store are initialized.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil && !h.ready.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Error:  "catalog or store not initialized",
		})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// NewOpenAPIHandler serves spec as JSON. The document is encoded once.
func NewOpenAPIHandler(spec *openapi.Spec) http.HandlerFunc {
	data, err := spec.ToJSON()
	return func(w http.ResponseWriter, r *http.Request) {
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, query.ErrorEnvelope{Error: fmt.Sprintf("encode openapi: %v", err)})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

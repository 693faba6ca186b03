// Package metrics provides Prometheus metrics collection for querygate.
package metrics

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "querygate"

// Collector holds all Prometheus metrics for querygate.
// It implements query.Observer.
type Collector struct {
	// HTTP request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Query metrics
	QueriesTotal    *prometheus.CounterVec
	QueryDuration   *prometheus.HistogramVec
	ReturnedRecords *prometheus.HistogramVec
	LimitClamps     *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge

	registerer prometheus.Registerer
}

// New creates a new metrics collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),

		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of entity queries by outcome",
			},
			[]string{"namespace", "entity", "outcome"},
		),
		QueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Entity query duration in seconds, validation through serialization",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"namespace", "entity"},
		),
		ReturnedRecords: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_returned_records",
				Help:      "Number of records returned per successful query",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
			[]string{"namespace", "entity"},
		),
		LimitClamps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "query_limit_clamped_total",
				Help:      "Total number of queries whose limit exceeded the cap",
			},
			[]string{"namespace", "entity"},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),

		registerer: reg,
	}
}

// ObserveQuery records a handled query.
func (c *Collector) ObserveQuery(ns, entity, outcome string, duration time.Duration, returned int) {
	c.QueriesTotal.WithLabelValues(ns, entity, outcome).Inc()
	c.QueryDuration.WithLabelValues(ns, entity).Observe(duration.Seconds())
	if outcome == "ok" {
		c.ReturnedRecords.WithLabelValues(ns, entity).Observe(float64(returned))
	}
}

// ObserveClamp records a query whose limit was clamped.
func (c *Collector) ObserveClamp(ns, entity string) {
	c.LimitClamps.WithLabelValues(ns, entity).Inc()
}

// ObserveRequest records a served HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, duration time.Duration) {
	class := StatusClass(status)
	c.RequestsTotal.WithLabelValues(method, route, class).Inc()
	c.RequestDuration.WithLabelValues(method, route, class).Observe(duration.Seconds())
}

// ObserveReload records a config reload attempt.
func (c *Collector) ObserveReload(err error) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.SetToCurrentTime()
}

// RegisterDBStats exports the connection pool statistics of db.
func (c *Collector) RegisterDBStats(db *sql.DB, name string) error {
	return c.registerer.Register(collectors.NewDBStatsCollector(db, name))
}

// StatusClass reduces a status code to its class ("2xx", "4xx", ...).
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return strconv.Itoa(status)
	}
	return strconv.Itoa(status/100) + "xx"
}

// NormalizePath reduces cardinality for requests that matched no route.
func NormalizePath(path string) string {
	if path == "" {
		return "unmatched"
	}
	if len(path) > 50 {
		return path[:50] + "..."
	}
	return path
}

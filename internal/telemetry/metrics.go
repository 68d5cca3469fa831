// Package telemetry provides application-level observability for the catalog
// sync service.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// served on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<CSY_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is NOT served by the Gin router, so it is
// never exposed through the public API ingress.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template,
//     not raw URL, to prevent unbounded label cardinality)
//   - Catalog sync run counters, durations, and per-entity upsert counters
//   - Content sync item counters
//   - Database connection pool gauge (polled every 30 s)
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
// The path label holds the Gin route template (e.g. /api/v1/credentials/:id),
// NOT the raw URL.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Catalog sync metrics, recorded by the catalog sync background job.
//
// CatalogSyncRunsTotal counts completed sync runs by terminal status
// ("success" | "error"). CatalogSyncDuration observes one complete run per
// sample. CatalogItemsUpserted counts rows written per entity type
// ("product" | "service" | "scheduling_link").
//
// Example PromQL queries:
//   - Failure rate:      rate(catalog_sync_runs_total{status="error"}[1h])
//   - p95 run duration:  histogram_quantile(0.95, rate(catalog_sync_duration_seconds_bucket[1h]))
var (
	CatalogSyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_runs_total",
			Help: "Total number of catalog sync runs, by terminal status.",
		},
		[]string{"status"},
	)

	CatalogSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_sync_duration_seconds",
			Help:    "Duration of a single catalog sync run.",
			Buckets: prometheus.DefBuckets,
		},
	)

	CatalogItemsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_items_upserted_total",
			Help: "Total number of catalog rows upserted, by entity type.",
		},
		[]string{"entity"},
	)
)

// ContentItemsSyncedTotal counts content records processed by the Notion sync,
// by outcome ("created" | "updated" | "error").
var ContentItemsSyncedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "content_items_synced_total",
		Help: "Total number of content records processed by the content sync, by outcome.",
	},
	[]string{"outcome"},
)

// DBOpenConnections is a Gauge that tracks the number of open connections
// currently held by the sql.DB connection pool. It is sampled every 30 seconds
// by StartDBStatsCollector rather than per-request to avoid the overhead of
// sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB
// connection pool statistics every 30 seconds and updates the DBOpenConnections
// gauge. The goroutine exits cleanly when the database becomes unreachable
// (db.Ping fails), which happens automatically when the application shuts down
// and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}

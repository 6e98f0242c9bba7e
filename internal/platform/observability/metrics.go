package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Metrics holds all application metrics
type Metrics struct {
	meter metric.Meter

	// Local cache metrics
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// List-view read path metrics: which tier served the request
	ListViewReads metric.Int64Counter

	// Full collection scan metrics
	CollectionScans metric.Int64Counter
	ScanDuration    metric.Float64Histogram

	// Materialized cache rebuild metrics
	RebuildDuration metric.Float64Histogram
	RebuildRows     metric.Int64Counter

	// Orphan cleanup metrics
	CleanupRuns metric.Int64Counter

	// Error metrics
	Errors metric.Int64Counter

	// Prometheus exporter for HTTP handler
	exporter *prometheus.Exporter
}

// NewMetrics creates a new Metrics instance
func NewMetrics(serviceName string, enabled bool) (*Metrics, error) {
	if !enabled {
		return &Metrics{}, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	meter := provider.Meter(serviceName)

	m := &Metrics{meter: meter, exporter: exporter}

	if m.CacheHits, err = meter.Int64Counter("cache_hits_total",
		metric.WithDescription("Local cache hits by cache name")); err != nil {
		return nil, err
	}
	if m.CacheMisses, err = meter.Int64Counter("cache_misses_total",
		metric.WithDescription("Local cache misses by cache name")); err != nil {
		return nil, err
	}
	if m.ListViewReads, err = meter.Int64Counter("listview_reads_total",
		metric.WithDescription("List-view reads by serving tier (local, document, scan)")); err != nil {
		return nil, err
	}
	if m.CollectionScans, err = meter.Int64Counter("collection_scans_total",
		metric.WithDescription("Full remote collection scans by collection")); err != nil {
		return nil, err
	}
	if m.ScanDuration, err = meter.Float64Histogram("collection_scan_duration_seconds",
		metric.WithDescription("Duration of full collection scans")); err != nil {
		return nil, err
	}
	if m.RebuildDuration, err = meter.Float64Histogram("listview_rebuild_duration_seconds",
		metric.WithDescription("Duration of materialized list-view rebuilds")); err != nil {
		return nil, err
	}
	if m.RebuildRows, err = meter.Int64Counter("listview_rebuild_rows_total",
		metric.WithDescription("Rows written by materialized list-view rebuilds")); err != nil {
		return nil, err
	}
	if m.CleanupRuns, err = meter.Int64Counter("orphan_cleanup_runs_total",
		metric.WithDescription("Orphan cleanup coordinator outcomes (run, skipped, failed)")); err != nil {
		return nil, err
	}
	if m.Errors, err = meter.Int64Counter("errors_total",
		metric.WithDescription("Errors by component and category")); err != nil {
		return nil, err
	}

	return m, nil
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCacheHit records a local cache hit
func (m *Metrics) RecordCacheHit(ctx context.Context, name string) {
	if m == nil || m.CacheHits == nil {
		return
	}
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", name)))
}

// RecordCacheMiss records a local cache miss
func (m *Metrics) RecordCacheMiss(ctx context.Context, name string) {
	if m == nil || m.CacheMisses == nil {
		return
	}
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", name)))
}

// RecordListViewRead records which tier served a list-view read
func (m *Metrics) RecordListViewRead(ctx context.Context, source string) {
	if m == nil || m.ListViewReads == nil {
		return
	}
	m.ListViewReads.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordCollectionScan records a full remote collection scan
func (m *Metrics) RecordCollectionScan(ctx context.Context, collection string, duration time.Duration) {
	if m == nil || m.CollectionScans == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("collection", collection))
	m.CollectionScans.Add(ctx, 1, attrs)
	m.ScanDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordRebuild records a materialized list-view rebuild
func (m *Metrics) RecordRebuild(ctx context.Context, rows int, duration time.Duration) {
	if m == nil || m.RebuildDuration == nil {
		return
	}
	m.RebuildDuration.Record(ctx, duration.Seconds())
	m.RebuildRows.Add(ctx, int64(rows))
}

// RecordCleanup records an orphan cleanup outcome
func (m *Metrics) RecordCleanup(ctx context.Context, outcome string) {
	if m == nil || m.CleanupRuns == nil {
		return
	}
	m.CleanupRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordError records an error by component
func (m *Metrics) RecordError(ctx context.Context, component, category string) {
	if m == nil || m.Errors == nil {
		return
	}
	m.Errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("category", category),
	))
}

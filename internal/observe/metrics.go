// Package observe provides application-wide observability primitives for
// Quindex: OpenTelemetry metrics, tracing helpers, and structured-logging
// glue.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [Init] wires a
// Prometheus exporter bridge so the instruments stay scrapeable when a
// /metrics endpoint is mounted. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Quindex metrics.
const meterName = "github.com/quindex/quindex"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// LookupDuration tracks end-to-end lookup latency, cache hits included.
	LookupDuration metric.Float64Histogram

	// SearchDuration tracks store-side candidate search latency.
	SearchDuration metric.Float64Histogram

	// PhaseDuration tracks pipeline phase latency. Use with attribute:
	//   attribute.String("phase", ...)
	PhaseDuration metric.Float64Histogram

	// --- Counters ---

	// EntitiesProcessed counts ingestion outcomes. Use with attribute:
	//   attribute.String("outcome", "stored"|"skipped")
	EntitiesProcessed metric.Int64Counter

	// ContextUpdates counts pass-2 context-string writes.
	ContextUpdates metric.Int64Counter

	// LookupRequests counts lookups by terminal status. Use with attribute:
	//   attribute.String("status", "ok"|"validation_error"|"upstream_error")
	LookupRequests metric.Int64Counter

	// CacheLookups counts query-cache reads. Use with attribute:
	//   attribute.String("result", "hit"|"miss")
	CacheLookups metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) covering
// sub-millisecond cache hits up to multi-second cold searches.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// phaseBuckets covers pipeline phases, which run seconds to hours.
var phaseBuckets = []float64{
	1, 5, 15, 60, 300, 900, 3600, 14400,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.LookupDuration, err = m.Float64Histogram("quindex.lookup.duration",
		metric.WithDescription("End-to-end lookup latency, cache hits included."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SearchDuration, err = m.Float64Histogram("quindex.search.duration",
		metric.WithDescription("Store-side candidate search latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PhaseDuration, err = m.Float64Histogram("quindex.pipeline.phase.duration",
		metric.WithDescription("Pipeline phase latency by phase."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(phaseBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.EntitiesProcessed, err = m.Int64Counter("quindex.ingest.entities",
		metric.WithDescription("Ingested dump records by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ContextUpdates, err = m.Int64Counter("quindex.ingest.context_updates",
		metric.WithDescription("Pass-2 context-string writes."),
	); err != nil {
		return nil, err
	}
	if met.LookupRequests, err = m.Int64Counter("quindex.lookup.requests",
		metric.WithDescription("Lookup requests by terminal status."),
	); err != nil {
		return nil, err
	}
	if met.CacheLookups, err = m.Int64Counter("quindex.lookup.cache",
		metric.WithDescription("Query-cache reads by result."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordEntities records n ingestion outcomes ("stored" or "skipped").
func (m *Metrics) RecordEntities(ctx context.Context, outcome string, n int64) {
	m.EntitiesProcessed.Add(ctx, n,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordLookup records one finished lookup with its terminal status and
// latency in seconds.
func (m *Metrics) RecordLookup(ctx context.Context, status string, seconds float64) {
	m.LookupRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
	m.LookupDuration.Record(ctx, seconds)
}

// RecordCacheLookup records one query-cache read ("hit" or "miss").
func (m *Metrics) RecordCacheLookup(ctx context.Context, result string) {
	m.CacheLookups.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", result)),
	)
}

// RecordPhase records one pipeline phase completion with its latency in
// seconds.
func (m *Metrics) RecordPhase(ctx context.Context, phase string, seconds float64) {
	m.PhaseDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("phase", phase)),
	)
}

// Package observe provides OpenTelemetry metrics and tracing for mojiscan.
//
// Metrics are recorded through the OTel Metrics API and bridged to Prometheus
// by [InitProvider], so they can be scraped from the /metrics endpoint. Tests
// should build their own instance with [NewMetrics] and a manual reader.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/timmy/mojiscan"

// Metrics holds all metric instruments for the service.
type Metrics struct {
	// TranscribeDuration tracks one backend transcription call. Attributes:
	//   provider, variant, status
	TranscribeDuration metric.Float64Histogram

	// BackendCalls counts requests actually sent to the inference backend
	// (cache hits are not counted). Attributes: provider, variant, status
	BackendCalls metric.Int64Counter

	// CacheLookups counts result cache lookups. Attribute: result (hit, miss)
	CacheLookups metric.Int64Counter

	// ConsensusOutcomes counts reconciled scans. Attribute: path
	ConsensusOutcomes metric.Int64Counter

	// ScanDuration tracks a whole scan, consensus plus scoring.
	ScanDuration metric.Float64Histogram

	// SimilarityPercent records the similarity of each scored scan.
	SimilarityPercent metric.Float64Histogram

	// ActiveScans is the number of scans currently in flight.
	ActiveScans metric.Int64UpDownCounter

	// HTTPRequestDuration tracks API latency. Attributes: method, route, status
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are in seconds; backend calls on handwriting take seconds, not milliseconds.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 90,
}

var percentBuckets = []float64{
	10, 25, 50, 75, 90, 95, 99, 100,
}

// NewMetrics creates all instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TranscribeDuration, err = m.Float64Histogram("mojiscan.transcribe.duration",
		metric.WithDescription("Latency of one inference backend transcription call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ScanDuration, err = m.Float64Histogram("mojiscan.scan.duration",
		metric.WithDescription("End-to-end latency of a scan."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SimilarityPercent, err = m.Float64Histogram("mojiscan.score.similarity",
		metric.WithDescription("Similarity between the final transcription and the reference."),
		metric.WithUnit("%"),
		metric.WithExplicitBucketBoundaries(percentBuckets...),
	); err != nil {
		return nil, err
	}

	if met.BackendCalls, err = m.Int64Counter("mojiscan.backend.calls",
		metric.WithDescription("Inference backend requests by provider, variant and status."),
	); err != nil {
		return nil, err
	}
	if met.CacheLookups, err = m.Int64Counter("mojiscan.cache.lookups",
		metric.WithDescription("Result cache lookups by result."),
	); err != nil {
		return nil, err
	}
	if met.ConsensusOutcomes, err = m.Int64Counter("mojiscan.consensus.outcomes",
		metric.WithDescription("Reconciled scans by consensus path."),
	); err != nil {
		return nil, err
	}

	if met.ActiveScans, err = m.Int64UpDownCounter("mojiscan.active_scans",
		metric.WithDescription("Number of scans in flight."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("mojiscan.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level instance built on the global
// meter provider. It is a no-op until InitProvider has run.
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

// Attr is shorthand for attribute.String at call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordBackendCall records one backend request and its latency in seconds.
func (m *Metrics) RecordBackendCall(ctx context.Context, provider, variant, status string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("variant", variant),
		attribute.String("status", status),
	)
	m.BackendCalls.Add(ctx, 1, attrs)
	m.TranscribeDuration.Record(ctx, seconds, attrs)
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordOutcome records which consensus path a scan took.
func (m *Metrics) RecordOutcome(ctx context.Context, path string) {
	m.ConsensusOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}

// RecordHTTPRequest records one served API request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, seconds float64) {
	m.HTTPRequestDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("route", route),
			attribute.Int("status", status),
		),
	)
}

// Package observe provides application-wide observability primitives for
// speaklab: OpenTelemetry metrics, tracing, and HTTP middleware that ties
// them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all speaklab metrics.
const meterName = "github.com/speaklab/speaklab"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// ListenDuration tracks how long practice attempts spend listening.
	ListenDuration metric.Float64Histogram

	// ScoreDistribution tracks committed practice scores (0-100).
	ScoreDistribution metric.Int64Histogram

	// PracticeSessions counts finished practice attempts. Use with attribute:
	//   attribute.String("status", ...)
	PracticeSessions metric.Int64Counter

	// EngineErrors counts capture/recognition engine failures. Use with
	// attribute: attribute.String("engine", ...)
	EngineErrors metric.Int64Counter

	// ActiveSessions tracks the number of live practice attempts.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// listenBuckets defines histogram bucket boundaries (in seconds) sized for
// single-sentence practice attempts.
var listenBuckets = []float64{
	0.5, 1, 2, 3, 5, 8, 13, 21, 34, 60,
}

// scoreBuckets covers the 0-100 similarity score range in ten-point steps.
var scoreBuckets = []float64{
	10, 20, 30, 40, 50, 60, 70, 80, 90, 100,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ListenDuration, err = m.Float64Histogram("speaklab.practice.listen.duration",
		metric.WithDescription("Listening time of practice attempts."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(listenBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ScoreDistribution, err = m.Int64Histogram("speaklab.practice.score",
		metric.WithDescription("Committed similarity scores of practice attempts."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PracticeSessions, err = m.Int64Counter("speaklab.practice.sessions",
		metric.WithDescription("Finished practice attempts by terminal status."),
	); err != nil {
		return nil, err
	}
	if met.EngineErrors, err = m.Int64Counter("speaklab.engine.errors",
		metric.WithDescription("Capture and recognition engine failures by engine."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("speaklab.practice.active_sessions",
		metric.WithDescription("Number of live practice attempts."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("speaklab.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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

// The methods below satisfy the practice session's telemetry interface.

// SessionStarted records a new live practice attempt.
func (m *Metrics) SessionStarted() {
	m.ActiveSessions.Add(context.Background(), 1)
}

// SessionEnded records a finished practice attempt with its terminal status.
func (m *Metrics) SessionEnded(status string) {
	ctx := context.Background()
	m.ActiveSessions.Add(ctx, -1)
	m.PracticeSessions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)))
}

// RecordScore records a committed similarity score.
func (m *Metrics) RecordScore(score int) {
	m.ScoreDistribution.Record(context.Background(), int64(score))
}

// ObserveListenDuration records how long an attempt spent listening.
func (m *Metrics) ObserveListenDuration(d time.Duration) {
	m.ListenDuration.Record(context.Background(), d.Seconds())
}

// EngineError records a capture or recognition engine failure.
func (m *Metrics) EngineError(engine string) {
	m.EngineErrors.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("engine", engine)))
}

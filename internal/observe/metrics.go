// Package observe provides observability primitives for sotto: OpenTelemetry
// metrics with a Prometheus exporter bridge so that an optional local
// /metrics endpoint can be scraped.
//
// A package-level default [Metrics] instance is deliberately absent; the
// coordinator receives its Metrics by injection, and tests construct their
// own via [NewMetrics] with a private MeterProvider to avoid cross-test
// pollution.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all sotto metrics.
const meterName = "github.com/sottovoce/sotto"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// TranscriptionDuration tracks speech-to-text latency.
	TranscriptionDuration metric.Float64Histogram

	// CompletionDuration tracks LLM post-processing latency.
	CompletionDuration metric.Float64Histogram

	// DeliveryDuration tracks focus-restore-plus-paste latency.
	DeliveryDuration metric.Float64Histogram

	// Sessions counts completed sessions. Use with attributes:
	//   attribute.String("mode", ...), attribute.String("status", ...)
	Sessions metric.Int64Counter

	// SessionErrors counts sessions terminated by an error. Use with:
	//   attribute.String("code", ...)
	SessionErrors metric.Int64Counter

	// ActiveSessions tracks whether a session is currently open (0 or 1).
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// record-then-transcribe round trips.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TranscriptionDuration, err = m.Float64Histogram("sotto.transcription.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CompletionDuration, err = m.Float64Histogram("sotto.completion.duration",
		metric.WithDescription("Latency of LLM post-processing."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DeliveryDuration, err = m.Float64Histogram("sotto.delivery.duration",
		metric.WithDescription("Latency of focus restoration and paste delivery."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Sessions, err = m.Int64Counter("sotto.sessions",
		metric.WithDescription("Completed sessions by mode and status."),
	); err != nil {
		return nil, err
	}
	if met.SessionErrors, err = m.Int64Counter("sotto.session.errors",
		metric.WithDescription("Sessions terminated by an error, by code."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("sotto.sessions.active",
		metric.WithDescription("Whether a session is currently open."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordStage records a stage duration histogram sample with the session mode
// attribute. hist may be nil (metrics disabled), in which case this is a
// no-op — callers never need to nil-check.
func (m *Metrics) RecordStage(ctx context.Context, hist metric.Float64Histogram, start time.Time, mode string) {
	if m == nil || hist == nil {
		return
	}
	hist.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("mode", mode),
	))
}

// SessionDone increments the session counter. Safe on a nil receiver.
func (m *Metrics) SessionDone(ctx context.Context, mode, status string) {
	if m == nil || m.Sessions == nil {
		return
	}
	m.Sessions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("status", status),
	))
}

// SessionFailed increments the error counter. Safe on a nil receiver.
func (m *Metrics) SessionFailed(ctx context.Context, code string) {
	if m == nil || m.SessionErrors == nil {
		return
	}
	m.SessionErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
	))
}

// SessionActive adjusts the active-session gauge by delta. Safe on a nil
// receiver.
func (m *Metrics) SessionActive(ctx context.Context, delta int64) {
	if m == nil || m.ActiveSessions == nil {
		return
	}
	m.ActiveSessions.Add(ctx, delta)
}

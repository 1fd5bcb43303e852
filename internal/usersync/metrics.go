package usersync

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsMeterName is the name used for the user sync meter.
const MetricsMeterName = "waste_ops_backend/usersync"

// Run labels.
const (
	TriggerStartup   = "startup"
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"

	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
	RunStatusSkipped = "skipped" // startup run abandoned by the readiness gate
)

// Metrics holds the OpenTelemetry instruments for user sync. A nil *Metrics
// records nothing.
type Metrics struct {
	records  metric.Int64Counter
	runs     metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics creates the instruments. If provider is nil, it returns nil.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(MetricsMeterName)

	records, err := meter.Int64Counter(
		"user_sync_records_total",
		metric.WithDescription("Remote identities processed by user sync, by result"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter(
		"user_sync_runs_total",
		metric.WithDescription("User sync runs, by trigger and status"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"user_sync_duration_seconds",
		metric.WithDescription("Duration of user sync runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{records: records, runs: runs, duration: duration}, nil
}

// RecordResult counts one processed identity.
func (m *Metrics) RecordResult(ctx context.Context, status RecordStatus) {
	if m == nil || m.records == nil {
		return
	}
	m.records.Add(ctx, 1, metric.WithAttributes(attribute.String("result", status.String())))
}

// RecordRun counts a finished run and, unless it was skipped, its duration.
func (m *Metrics) RecordRun(ctx context.Context, trigger, status string, d time.Duration) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("status", status),
	))
	if status != RunStatusSkipped {
		m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("trigger", trigger)))
	}
}

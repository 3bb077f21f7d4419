package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	metrics "github.com/tigerroll/processtracker/pkg/tracker/core/metrics"
)

// instrumentationName names the meter and tracer of the tracker.
const instrumentationName = "github.com/tigerroll/processtracker"

// OpenTelemetryRecorder is an implementation of metrics.Recorder using OpenTelemetry metrics.
type OpenTelemetryRecorder struct {
	runStarted    otelmetric.Int64Counter
	runRejected   otelmetric.Int64Counter
	runStatus     otelmetric.Int64Counter
	runDuration   otelmetric.Float64Histogram
	runErrors     otelmetric.Int64Counter
	extractStatus otelmetric.Int64Counter
	operation     otelmetric.Float64Histogram
}

// NewOpenTelemetryRecorder creates the instruments on meter. A nil meter uses
// the global meter provider.
func NewOpenTelemetryRecorder(meter otelmetric.Meter) (*OpenTelemetryRecorder, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	r := &OpenTelemetryRecorder{}
	var err error
	if r.runStarted, err = meter.Int64Counter("process_tracker.run.started",
		otelmetric.WithDescription("Number of process runs registered.")); err != nil {
		return nil, err
	}
	if r.runRejected, err = meter.Int64Counter("process_tracker.run.rejected",
		otelmetric.WithDescription("Number of refused run starts.")); err != nil {
		return nil, err
	}
	if r.runStatus, err = meter.Int64Counter("process_tracker.run.status",
		otelmetric.WithDescription("Number of run status changes.")); err != nil {
		return nil, err
	}
	if r.runDuration, err = meter.Float64Histogram("process_tracker.run.duration",
		otelmetric.WithDescription("Duration of finished process runs."),
		otelmetric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.runErrors, err = meter.Int64Counter("process_tracker.run.errors",
		otelmetric.WithDescription("Number of errors raised by runs.")); err != nil {
		return nil, err
	}
	if r.extractStatus, err = meter.Int64Counter("process_tracker.extract.status",
		otelmetric.WithDescription("Number of extract status changes.")); err != nil {
		return nil, err
	}
	if r.operation, err = meter.Float64Histogram("process_tracker.operation.duration",
		otelmetric.WithDescription("Duration of tracker operations."),
		otelmetric.WithUnit("s")); err != nil {
		return nil, err
	}
	return r, nil
}

// RecordRunStart implements metrics.Recorder.
func (r *OpenTelemetryRecorder) RecordRunStart(ctx context.Context, processName string) {
	r.runStarted.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("process_name", processName)))
}

// RecordRunRejected implements metrics.Recorder.
func (r *OpenTelemetryRecorder) RecordRunRejected(ctx context.Context, processName string, reason string) {
	r.runRejected.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("process_name", processName),
		attribute.String("reason", reason),
	))
}

// RecordRunStatus implements metrics.Recorder.
func (r *OpenTelemetryRecorder) RecordRunStatus(ctx context.Context, processName string, status string, elapsed time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("process_name", processName),
		attribute.String("status", status),
	)
	r.runStatus.Add(ctx, 1, attrs)
	if model.IsFinishedRunStatus(status) {
		r.runDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

// RecordRunError implements metrics.Recorder.
func (r *OpenTelemetryRecorder) RecordRunError(ctx context.Context, processName string, errorType string) {
	r.runErrors.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("process_name", processName),
		attribute.String("error_type", errorType),
	))
}

// RecordExtractStatus implements metrics.Recorder.
func (r *OpenTelemetryRecorder) RecordExtractStatus(ctx context.Context, status string) {
	r.extractStatus.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("status", status)))
}

// RecordDuration implements metrics.Recorder.
func (r *OpenTelemetryRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := []attribute.KeyValue{attribute.String("operation", name)}
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.operation.Record(ctx, duration.Seconds(), otelmetric.WithAttributes(attrs...))
}

var _ metrics.Recorder = (*OpenTelemetryRecorder)(nil)

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	metrics "github.com/tigerroll/processtracker/pkg/tracker/core/metrics"
	logger "github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

// OpenTelemetryTracer is an implementation of metrics.Tracer using OpenTelemetry.
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

// NewOpenTelemetryTracer creates a tracer from provider. A nil provider uses
// the global tracer provider.
func NewOpenTelemetryTracer(provider trace.TracerProvider) *OpenTelemetryTracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &OpenTelemetryTracer{tracer: provider.Tracer(instrumentationName)}
}

// StartRunSpan implements metrics.Tracer.
func (t *OpenTelemetryTracer) StartRunSpan(ctx context.Context, processName string) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "process.run",
		trace.WithAttributes(attribute.String("process.name", processName)))
	logger.Debugf("Tracer: started run span for process '%s'", processName)
	return ctx, func() { span.End() }
}

// StartSpan implements metrics.Tracer.
func (t *OpenTelemetryTracer) StartSpan(ctx context.Context, name string, attributes map[string]interface{}) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attributes)...))
	return ctx, func() { span.End() }
}

// RecordError implements metrics.Tracer.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("module", module)))
	span.SetStatus(codes.Error, err.Error())
}

// RecordEvent implements metrics.Tracer.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(toAttributes(attributes)...))
}

func toAttributes(m map[string]interface{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
	return attrs
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)

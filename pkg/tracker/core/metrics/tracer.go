package metrics

import "context"

// Tracer is an abstract interface for distributed tracing of tracker operations.
type Tracer interface {
	// StartRunSpan starts a span covering the registration of a run of processName.
	// The returned function ends the span.
	StartRunSpan(ctx context.Context, processName string) (context.Context, func())

	// StartSpan starts a span named name with the given attributes.
	// The returned function ends the span.
	StartSpan(ctx context.Context, name string, attributes map[string]interface{}) (context.Context, func())

	// RecordError records an error in the current span.
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}

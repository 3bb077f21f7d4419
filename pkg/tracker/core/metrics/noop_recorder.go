package metrics

import (
	"context"
	"time"
)

// NoOpRecorder is an implementation of Recorder that does nothing.
// It is used when metrics are disabled or during testing.
type NoOpRecorder struct{}

// NewNoOpRecorder creates a new instance of NoOpRecorder.
func NewNoOpRecorder() Recorder {
	return &NoOpRecorder{}
}

func (r *NoOpRecorder) RecordRunStart(ctx context.Context, processName string)                    {}
func (r *NoOpRecorder) RecordRunRejected(ctx context.Context, processName string, reason string) {}
func (r *NoOpRecorder) RecordRunStatus(ctx context.Context, processName string, status string, elapsed time.Duration) {
}
func (r *NoOpRecorder) RecordRunError(ctx context.Context, processName string, errorType string) {}
func (r *NoOpRecorder) RecordExtractStatus(ctx context.Context, status string)                   {}
func (r *NoOpRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

var _ Recorder = (*NoOpRecorder)(nil)

// NoOpTracer is an implementation of Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartRunSpan(ctx context.Context, processName string) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartSpan(ctx context.Context, name string, attributes map[string]interface{}) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {}

var _ Tracer = (*NoOpTracer)(nil)

// Package metrics defines the observability hooks called by the tracker engines.
package metrics

import (
	"context"
	"time"
)

// Recorder is an abstract interface for recording metrics about process runs
// and extract transitions. It lets the engines report to Prometheus,
// OpenTelemetry or nothing at all without knowing which.
type Recorder interface {
	// RecordRunStart records that a new run of processName was registered.
	//
	// ctx: The context for the operation.
	// processName: The name of the process whose run started.
	RecordRunStart(ctx context.Context, processName string)

	// RecordRunRejected records a refused run start.
	//
	// ctx: The context for the operation.
	// processName: The name of the process that could not start.
	// reason: The error kind that refused the start (e.g. "AlreadyRunning").
	RecordRunRejected(ctx context.Context, processName string, reason string)

	// RecordRunStatus records a run status change. elapsed is the time since
	// the run started and is only observed for finished statuses.
	//
	// ctx: The context for the operation.
	// processName: The name of the process owning the run.
	// status: The new run status.
	// elapsed: Time elapsed since the run started.
	RecordRunStatus(ctx context.Context, processName string, status string, elapsed time.Duration)

	// RecordRunError records an error raised during a run.
	//
	// ctx: The context for the operation.
	// processName: The name of the process owning the run.
	// errorType: The error type name recorded for the error.
	RecordRunError(ctx context.Context, processName string, errorType string)

	// RecordExtractStatus records an extract moving to status.
	//
	// ctx: The context for the operation.
	// status: The new extract status.
	RecordExtractStatus(ctx context.Context, status string)

	// RecordDuration records the execution time of a named operation.
	//
	// ctx: The context for the operation.
	// name: The operation name (e.g. "register_extracts_by_location").
	// duration: The length of the duration to record.
	// tags: Additional labels. Only the keys known to the backend are kept.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}

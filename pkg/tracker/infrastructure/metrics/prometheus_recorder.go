// Package metrics provides the Prometheus and OpenTelemetry implementations of
// the tracker's metrics.Recorder and metrics.Tracer.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	metrics "github.com/tigerroll/processtracker/pkg/tracker/core/metrics"
	logger "github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.Recorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// Run Metrics
	runStartedCounter  *prometheus.CounterVec
	runRejectedCounter *prometheus.CounterVec
	runStatusCounter   *prometheus.CounterVec
	runDurationSeconds *prometheus.HistogramVec
	runErrorCounter    *prometheus.CounterVec

	// Extract Metrics
	extractStatusCounter *prometheus.CounterVec

	operationDurationSeconds *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		runStartedCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "process_tracker_run_started_total",
			Help: "Total number of process runs registered.",
		}, []string{"process_name"}),
		runRejectedCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "process_tracker_run_rejected_total",
			Help: "Total number of refused run starts by reason.",
		}, []string{"process_name", "reason"}),
		runStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "process_tracker_run_status_total",
			Help: "Total number of run status changes by status.",
		}, []string{"process_name", "status"}),
		runDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "process_tracker_run_duration_seconds",
			Help:    "Duration of finished process runs.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"process_name", "status"}),
		runErrorCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "process_tracker_run_error_total",
			Help: "Total number of errors raised by runs.",
		}, []string{"process_name", "error_type"}),
		extractStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "process_tracker_extract_status_total",
			Help: "Total number of extract status changes by status.",
		}, []string{"status"}),
		operationDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "process_tracker_operation_duration_seconds",
			Help:    "Duration of tracker operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	registry.MustRegister(
		r.runStartedCounter,
		r.runRejectedCounter,
		r.runStatusCounter,
		r.runDurationSeconds,
		r.runErrorCounter,
		r.extractStatusCounter,
		r.operationDurationSeconds,
	)
	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// WriteToTextfile writes the registry in the text exposition format to path,
// for collection by the node exporter's textfile collector.
func (r *PrometheusRecorder) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// RecordRunStart implements metrics.Recorder.
func (r *PrometheusRecorder) RecordRunStart(ctx context.Context, processName string) {
	r.runStartedCounter.WithLabelValues(processName).Inc()
	logger.Debugf("Metrics: run of process '%s' started.", processName)
}

// RecordRunRejected implements metrics.Recorder.
func (r *PrometheusRecorder) RecordRunRejected(ctx context.Context, processName string, reason string) {
	r.runRejectedCounter.WithLabelValues(processName, reason).Inc()
}

// RecordRunStatus implements metrics.Recorder.
func (r *PrometheusRecorder) RecordRunStatus(ctx context.Context, processName string, status string, elapsed time.Duration) {
	r.runStatusCounter.WithLabelValues(processName, status).Inc()
	if model.IsFinishedRunStatus(status) {
		r.runDurationSeconds.WithLabelValues(processName, status).Observe(elapsed.Seconds())
		logger.Debugf("Metrics: run of process '%s' %s after %.3fs", processName, status, elapsed.Seconds())
	}
}

// RecordRunError implements metrics.Recorder.
func (r *PrometheusRecorder) RecordRunError(ctx context.Context, processName string, errorType string) {
	r.runErrorCounter.WithLabelValues(processName, errorType).Inc()
}

// RecordExtractStatus implements metrics.Recorder.
func (r *PrometheusRecorder) RecordExtractStatus(ctx context.Context, status string) {
	r.extractStatusCounter.WithLabelValues(status).Inc()
}

// RecordDuration implements metrics.Recorder. Tags are not used as labels.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationDurationSeconds.WithLabelValues(name).Observe(duration.Seconds())
}

var _ metrics.Recorder = (*PrometheusRecorder)(nil)

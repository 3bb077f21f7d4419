package metrics

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	config "github.com/tigerroll/processtracker/pkg/tracker/core/config"
	metrics "github.com/tigerroll/processtracker/pkg/tracker/core/metrics"
	logger "github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

// Backend is the Recorder and Tracer pair selected by configuration.
type Backend struct {
	fx.Out

	Recorder metrics.Recorder
	Tracer   metrics.Tracer
}

// NewBackend builds the metrics backend named by cfg.Metrics.Backend.
//
// prometheus writes the registry to cfg.Metrics.Textfile (when set) on stop.
// otel exports over OTLP and flushes on stop.
func NewBackend(lc fx.Lifecycle, cfg *config.Config) (Backend, error) {
	switch cfg.Metrics.Backend {
	case config.MetricsBackendPrometheus:
		recorder := NewPrometheusRecorder()
		if path := cfg.Metrics.Textfile; path != "" {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					logger.Debugf("Writing Prometheus metrics to %s", path)
					return recorder.WriteToTextfile(path)
				},
			})
		}
		return Backend{Recorder: recorder, Tracer: metrics.NewNoOpTracer()}, nil

	case config.MetricsBackendOtel:
		providers, err := SetupOTLP(context.Background())
		if err != nil {
			return Backend{}, err
		}
		lc.Append(fx.Hook{OnStop: providers.Shutdown})
		recorder, err := NewOpenTelemetryRecorder(providers.Meter.Meter(instrumentationName))
		if err != nil {
			return Backend{}, fmt.Errorf("failed to create OpenTelemetry instruments: %w", err)
		}
		return Backend{Recorder: recorder, Tracer: NewOpenTelemetryTracer(providers.Tracer)}, nil

	default:
		return Backend{Recorder: metrics.NewNoOpRecorder(), Tracer: metrics.NewNoOpTracer()}, nil
	}
}

// Module provides metrics.Recorder and metrics.Tracer to Fx.
var Module = fx.Options(
	fx.Provide(NewBackend),
)

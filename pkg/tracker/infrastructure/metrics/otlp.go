package metrics

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	logger "github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

// ServiceName is reported as the service.name resource attribute.
const ServiceName = "process-tracker"

// OTLP protocols accepted in OTEL_EXPORTER_OTLP_PROTOCOL.
const (
	ProtocolGRPC         = "grpc"
	ProtocolHTTPProtobuf = "http/protobuf"
)

// otlpProtocol returns the configured OTLP protocol, grpc when unset.
func otlpProtocol() (string, error) {
	p := strings.ToLower(strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL")))
	switch p {
	case "", ProtocolGRPC:
		return ProtocolGRPC, nil
	case ProtocolHTTPProtobuf, "http":
		return ProtocolHTTPProtobuf, nil
	default:
		return "", fmt.Errorf("unsupported OTEL_EXPORTER_OTLP_PROTOCOL: %s", p)
	}
}

// Providers are the SDK providers installed by SetupOTLP.
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Meter  *sdkmetric.MeterProvider
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	var result *multierror.Error
	if err := p.Tracer.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("tracer provider: %w", err))
	}
	if err := p.Meter.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("meter provider: %w", err))
	}
	return result.ErrorOrNil()
}

// SetupOTLP creates OTLP trace and metric exporters and installs SDK providers
// as the global OpenTelemetry providers. Endpoints and headers come from the
// standard OTEL_EXPORTER_OTLP_* environment variables.
func SetupOTLP(ctx context.Context) (*Providers, error) {
	protocol, err := otlpProtocol()
	if err != nil {
		return nil, err
	}

	var (
		spanExporter   sdktrace.SpanExporter
		metricExporter sdkmetric.Exporter
	)
	switch protocol {
	case ProtocolHTTPProtobuf:
		if spanExporter, err = otlptracehttp.New(ctx); err != nil {
			return nil, fmt.Errorf("failed to create OTLP/HTTP trace exporter: %w", err)
		}
		if metricExporter, err = otlpmetrichttp.New(ctx); err != nil {
			return nil, fmt.Errorf("failed to create OTLP/HTTP metric exporter: %w", err)
		}
	default:
		if spanExporter, err = otlptracegrpc.New(ctx); err != nil {
			return nil, fmt.Errorf("failed to create OTLP/gRPC trace exporter: %w", err)
		}
		if metricExporter, err = otlpmetricgrpc.New(ctx); err != nil {
			return nil, fmt.Errorf("failed to create OTLP/gRPC metric exporter: %w", err)
		}
	}

	res := resource.NewSchemaless(attribute.String("service.name", ServiceName))
	providers := &Providers{
		Tracer: sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(spanExporter),
			sdktrace.WithResource(res),
		),
		Meter: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
			sdkmetric.WithResource(res),
		),
	}
	otel.SetTracerProvider(providers.Tracer)
	otel.SetMeterProvider(providers.Meter)

	logger.Infof("OpenTelemetry OTLP exporters initialized (protocol: %s).", protocol)
	return providers, nil
}

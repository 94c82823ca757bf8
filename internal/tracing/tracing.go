// Package tracing installs the OpenTelemetry tracer provider for the service.
package tracing

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

type Config struct {
	ServiceName string
	// Exporter is none, stdout or otlp. Empty picks otlp when an endpoint is
	// set and none otherwise.
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
	// Output receives stdout spans. Defaults to os.Stdout.
	Output io.Writer
}

// Setup builds an sdk tracer provider, installs it as the global provider and
// returns it. Callers shut it down to flush buffered spans.
func Setup(ctx context.Context, cfg Config, logger *log.Logger) (*sdktrace.TracerProvider, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	exporter := cfg.Exporter
	if exporter == "" {
		exporter = ExporterNone
		if cfg.OTLPEndpoint != "" {
			exporter = ExporterOTLP
		}
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))),
	}
	switch exporter {
	case ExporterNone:
	case ExporterStdout:
		out := cfg.Output
		if out == nil {
			out = os.Stdout
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(out))
		if err != nil {
			return nil, fmt.Errorf("tracing: stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	case ExporterOTLP:
		if cfg.OTLPEndpoint == "" {
			return nil, fmt.Errorf("tracing: otlp exporter needs an endpoint")
		}
		clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
		}
		exp, err := otlptrace.New(ctx, otlptracegrpc.NewClient(clientOpts...))
		if err != nil {
			return nil, fmt.Errorf("tracing: otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	default:
		return nil, fmt.Errorf("tracing: unknown exporter %q, expected none, stdout or otlp", exporter)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	logger.Printf("tracing: exporter=%s endpoint=%s", exporter, cfg.OTLPEndpoint)
	return tp, nil
}

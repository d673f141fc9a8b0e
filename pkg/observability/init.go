package observability

import (
	"context"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	SamplingRate   float64
	// Exporter is "stdout" or "none". "none" records spans without
	// exporting them.
	Exporter     string
	Writer       io.Writer // stdout exporter destination, os.Stderr when nil
	BatchTimeout time.Duration
}

// DefaultTracingConfig returns tracing disabled with stdout export settings.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName:    "nebula-blocks",
		ServiceVersion: "dev",
		SamplingRate:   0.1,
		Exporter:       "stdout",
		BatchTimeout:   5 * time.Second,
	}
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// InitTracing installs a global tracer provider. When tracing is disabled
// the global no-op provider is left in place and the returned shutdown is a
// no-op.
func InitTracing(cfg TracingConfig) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create resource")
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SamplingRate)),
	}

	switch cfg.Exporter {
	case "stdout", "":
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create stdout exporter")
		}
		timeout := cfg.BatchTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(timeout)))
	case "none":
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported trace exporter %q", cfg.Exporter)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to shutdown tracer")
		}
		return nil
	}, nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate <= 0:
		return sdktrace.NeverSample()
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

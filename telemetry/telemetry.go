// Package telemetry exports the engine's run and state spans over OTLP/HTTP.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amp-labs/amp-reconnect/envutil"
	"github.com/amp-labs/amp-reconnect/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const (
	defaultServiceName    = "amp-reconnect"
	defaultServiceVersion = "dev"
	defaultTimeout        = 5 * time.Second
)

var ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")

// Config controls trace export. Tracing is off unless Enabled is set and an
// endpoint is known.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Timeout        time.Duration
	SampleRatio    float64
}

// LoadConfig reads OTEL_ENABLED, OTEL_SERVICE_NAME, OTEL_SERVICE_VERSION,
// OTEL_ENVIRONMENT, OTEL_EXPORTER_OTLP_TRACES_ENDPOINT,
// OTEL_EXPORTER_OTLP_TRACES_TIMEOUT and OTEL_TRACES_SAMPLER_RATIO.
func LoadConfig(ctx context.Context) (*Config, error) {
	enabled, err := envutil.Bool(ctx, "OTEL_ENABLED", envutil.Default(false)).Value()
	if err != nil {
		return nil, err
	}

	name, err := envutil.String(ctx, "OTEL_SERVICE_NAME", envutil.Default(defaultServiceName)).Value()
	if err != nil {
		return nil, err
	}

	version, err := envutil.String(ctx, "OTEL_SERVICE_VERSION", envutil.Default(defaultServiceVersion)).Value()
	if err != nil {
		return nil, err
	}

	endpoint, err := envutil.String(ctx, "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", envutil.Default("")).Value()
	if err != nil {
		return nil, err
	}

	timeout, err := envutil.Duration(ctx, "OTEL_EXPORTER_OTLP_TRACES_TIMEOUT", envutil.Default(defaultTimeout)).Value()
	if err != nil {
		return nil, err
	}

	ratio, err := envutil.Float64(ctx, "OTEL_TRACES_SAMPLER_RATIO",
		envutil.Default(1.0),
		envutil.Validate(func(r float64) error {
			if r < 0 || r > 1 {
				return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, r)
			}

			return nil
		})).Value()
	if err != nil {
		return nil, err
	}

	return &Config{
		Enabled:        enabled,
		ServiceName:    name,
		ServiceVersion: version,
		Environment:    envutil.String(ctx, "OTEL_ENVIRONMENT").ValueOrElse("local"),
		Endpoint:       endpoint,
		Timeout:        timeout,
		SampleRatio:    ratio,
	}, nil
}

// Setup installs a global tracer provider exporting to cfg.Endpoint. The
// returned function flushes and stops it; it is a no-op when tracing is off.
func Setup(ctx context.Context, cfg *Config) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	log := logger.Get(logger.WithSubsystem(ctx, "telemetry"))

	if cfg == nil || !cfg.Enabled {
		log.Debug("Tracing disabled")

		return noop, nil
	}

	if cfg.Endpoint == "" {
		log.Warn("Tracing enabled without an endpoint, spans will not be exported")

		return noop, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint),
		otlptracehttp.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info("Tracing initialized",
		"service", cfg.ServiceName,
		"version", cfg.ServiceVersion,
		"environment", cfg.Environment,
		"endpoint", cfg.Endpoint)

	return provider.Shutdown, nil
}

// Package telemetry owns the process-wide tracer provider, constructed once
// at startup and handed to every other component (C13).
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"

	"github.com/smallbiznis/auth-service/internal/config"
)

// Provider owns the TracerProvider and exposes the logger every layer
// below HTTP is constructed with.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	logger         *zap.Logger
}

// New builds a Provider. If cfg.TelemetryEndpoint is empty, it installs an
// SDK tracer provider with no exporter, so spans are recorded but never
// exported, rather than failing startup — telemetry is ambient, not
// load-bearing.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Provider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	if cfg.TelemetryEndpoint == "" {
		tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
		return &Provider{tracerProvider: tp, logger: logger}, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.TelemetryEndpoint)}
	if cfg.TelemetryInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("build otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	logger.Info("telemetry initialized", zap.String("endpoint", cfg.TelemetryEndpoint))
	return &Provider{tracerProvider: tp, logger: logger}, nil
}

// Logger returns the process-wide structured logger.
func (p *Provider) Logger() *zap.Logger {
	return p.logger
}

// Shutdown flushes and closes the exporter. Wired into fx.Lifecycle.OnStop.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}
	if err := p.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown tracer provider: %w", err)
	}
	return nil
}

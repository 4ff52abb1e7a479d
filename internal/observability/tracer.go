// Package observability provides the dashboard's own self-observability:
// an OTel tracer for its ingest/publish path, and Prometheus metrics.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig configures the dashboard's own tracer.
type TracingConfig struct {
	Enabled      bool
	ServiceName  string
	Exporter     string // "otlp-grpc", "otlp-http", or "stdout"
	Endpoint     string
	Insecure     bool
	Timeout      time.Duration
	SamplingRate float64
}

// SetDefaults fills in zero-valued fields with sensible defaults.
func (c *TracingConfig) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "observability-dashboard"
	}
	if c.Exporter == "" {
		c.Exporter = "stdout"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.SamplingRate <= 0 {
		c.SamplingRate = 1.0
	}
}

// Tracer wraps an OTel tracer with the span helpers the ingest and
// distribution paths use.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracer builds a Tracer from cfg, or returns (nil, nil) when tracing is
// disabled: every method on a nil *Tracer is a safe no-op.
func NewTracer(ctx context.Context, cfg *TracingConfig) (*Tracer, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	cfg.SetDefaults()

	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{provider: provider, tracer: provider.Tracer(cfg.ServiceName)}, nil
}

func createExporter(ctx context.Context, cfg *TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "otlp-grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithTimeout(cfg.Timeout)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case "otlp-http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithTimeout(cfg.Timeout)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", cfg.Exporter)
	}
}

// Start begins a span, tolerating a nil receiver.
func (t *Tracer) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, noopSpan()
	}
	return t.tracer.Start(ctx, spanName, opts...)
}

// StartIngest begins a span for one /v1/traces export request.
func (t *Tracer) StartIngest(ctx context.Context, contentType string, resourceSpanCount int) (context.Context, trace.Span) {
	return t.Start(ctx, "traces.ingest", trace.WithAttributes(
		attribute.String("http.content_type", contentType),
		attribute.Int("otlp.resource_span_count", resourceSpanCount),
	))
}

// StartPublish begins a span for fanning one event out to subscribers.
func (t *Tracer) StartPublish(ctx context.Context, eventType string, subscriberCount int) (context.Context, trace.Span) {
	return t.Start(ctx, "events.publish", trace.WithAttributes(
		attribute.String("event.type", eventType),
		attribute.Int("distributor.subscriber_count", subscriberCount),
	))
}

// RecordError records err on span, tolerating a nil span.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(attribute.String("error.message", err.Error()))
}

// Shutdown flushes and stops the tracer, tolerating a nil receiver.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

func noopSpan() trace.Span {
	_, span := trace.NewNoopTracerProvider().Tracer("noop").Start(context.Background(), "noop")
	return span
}

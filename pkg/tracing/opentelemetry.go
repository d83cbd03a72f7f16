package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/tagus/gemini-agent/pkg/interfaces"
	"github.com/tagus/gemini-agent/pkg/logging"
)

const spanPrefix = "github.com/tagus/gemini-agent/"

// OTelTracer implements interfaces.Tracer using OpenTelemetry
type OTelTracer struct {
	tracer      trace.Tracer
	provider    *sdktrace.TracerProvider
	enabled     bool
	serviceName string
}

// OTelSpan wraps an OpenTelemetry span to implement interfaces.Span
type OTelSpan struct {
	span trace.Span
}

// End implements interfaces.Span
func (s *OTelSpan) End() {
	s.span.End()
}

// AddEvent implements interfaces.Span
func (s *OTelSpan) AddEvent(name string, attributes map[string]interface{}) {
	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", v)))
	}
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttribute implements interfaces.Span
func (s *OTelSpan) SetAttribute(key string, value interface{}) {
	s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", value)))
}

// RecordError implements interfaces.Span
func (s *OTelSpan) RecordError(err error) {
	s.span.RecordError(err)
}

// OTelConfig contains configuration for OpenTelemetry
type OTelConfig struct {
	// Enabled determines whether spans are exported
	Enabled bool

	// ServiceName is reported as service.name
	ServiceName string

	// CollectorEndpoint is the OTLP/gRPC endpoint of the collector
	CollectorEndpoint string

	// Tracer allows passing a pre-built tracer instead of creating one
	Tracer trace.Tracer
}

// NewOTelTracer creates a new OpenTelemetry tracer. A disabled config
// yields a tracer whose spans are no-ops.
func NewOTelTracer(ctx context.Context, config OTelConfig) (*OTelTracer, error) {
	if !config.Enabled {
		return &OTelTracer{enabled: false}, nil
	}

	if config.Tracer != nil {
		return &OTelTracer{
			tracer:      config.Tracer,
			enabled:     true,
			serviceName: config.ServiceName,
		}, nil
	}

	exporter, err := otlptrace.New(
		ctx,
		otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(config.CollectorEndpoint),
			otlptracegrpc.WithInsecure(),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &OTelTracer{
		tracer:      tp.Tracer(config.ServiceName),
		provider:    tp,
		enabled:     true,
		serviceName: config.ServiceName,
	}, nil
}

// Enabled reports whether spans are recorded
func (t *OTelTracer) Enabled() bool {
	return t.enabled
}

// StartSpan implements interfaces.Tracer
func (t *OTelTracer) StartSpan(ctx context.Context, name string) (context.Context, interfaces.Span) {
	if !t.enabled {
		return ctx, &OTelSpan{span: trace.SpanFromContext(ctx)}
	}

	var attrs []attribute.KeyValue
	if runID, ok := logging.RunID(ctx); ok {
		attrs = append(attrs, attribute.String("run_id", runID))
	}

	ctx, span := t.tracer.Start(ctx, spanPrefix+name, trace.WithAttributes(attrs...))
	return ctx, &OTelSpan{span: span}
}

// Shutdown flushes pending spans when the tracer owns its provider
func (t *OTelTracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

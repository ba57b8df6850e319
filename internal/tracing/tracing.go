// Package tracing sets up OpenTelemetry spans for compute runs and node
// executions.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName is reported as the OpenTelemetry service name.
const ServiceName = "burstgraph"

// Common attribute keys.
const (
	RunIDKey    = attribute.Key("burstgraph.run.id")
	RunModeKey  = attribute.Key("burstgraph.run.mode")
	TargetKey   = attribute.Key("burstgraph.run.target")
	NodeIDKey   = attribute.Key("burstgraph.node.id")
	NodeTypeKey = attribute.Key("burstgraph.node.type")
	FPKey       = attribute.Key("burstgraph.node.fingerprint")
)

// Provider owns the tracer and its shutdown.
type Provider struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// Setup exports spans over OTLP/HTTP to endpoint. With an empty endpoint it
// returns a provider backed by the global tracer, which is a no-op unless
// something else installed one.
func Setup(ctx context.Context, endpoint string) (*Provider, error) {
	if endpoint == "" {
		return &Provider{
			tracer:   otel.Tracer(ServiceName),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(ServiceName)),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	return &Provider{tracer: tp.Tracer(ServiceName), shutdown: tp.Shutdown}, nil
}

// Tracer returns the tracer to start spans with.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return otel.Tracer(ServiceName)
	}
	return p.tracer
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.shutdown == nil {
		return nil
	}
	return p.shutdown(ctx)
}

// StartSpan starts a span with the given attributes. A nil tracer falls back
// to the global one.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = otel.Tracer(ServiceName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// SetError records err on span and marks it failed. Nil errors are ignored.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(attrs...))
}

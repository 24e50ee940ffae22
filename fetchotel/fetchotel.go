// Package fetchotel bridges the engine's run, round, and batch events to
// OpenTelemetry traces. It is entirely optional: without Setup the engine
// publishes no events and performs no tracing work.
package fetchotel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/fetch/internal/eventbus"
	events "github.com/hanpama/fetch/internal/events"
	runid "github.com/hanpama/fetch/internal/runid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

// Setup configures an OTLP/gRPC trace exporter, enables event publishing, and
// attaches the span-producing subscribers. It returns a shutdown function to
// flush the provider. If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithInsecure()))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	eventbus.Use(eventbus.New())
	sub := &subscriber{tracer: otel.Tracer("fetch")}
	sub.register()

	return tp.Shutdown, nil
}

// batchKey identifies one source's call within a run; a round dispatches at
// most one call per source, and runs execute rounds one at a time.
type batchKey struct {
	rid    uint64
	source string
}

type subscriber struct {
	tracer     trace.Tracer
	runSpans   sync.Map // rid -> trace.Span
	roundSpans sync.Map // rid -> trace.Span
	batchSpans sync.Map // batchKey -> trace.Span
}

func (s *subscriber) register() {
	eventbus.Subscribe(func(ctx context.Context, e events.RunStart) {
		rid, _ := runid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "fetch.run")
		s.runSpans.Store(rid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.RunFinish) {
		rid, _ := runid.FromContext(ctx)
		v, ok := s.runSpans.LoadAndDelete(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(attribute.Int("fetch.rounds", e.Rounds))
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.RoundStart) {
		rid, _ := runid.FromContext(ctx)
		parent := ctx
		if v, ok := s.runSpans.Load(rid); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		}
		_, span := s.tracer.Start(parent, "fetch.round")
		span.SetAttributes(
			attribute.Int("fetch.round.number", e.Number),
			attribute.StringSlice("fetch.round.sources", e.Sources),
		)
		s.roundSpans.Store(rid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.RoundFinish) {
		rid, _ := runid.FromContext(ctx)
		v, ok := s.roundSpans.LoadAndDelete(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(attribute.Int("fetch.round.queries", e.Queries))
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.BatchStart) {
		rid, _ := runid.FromContext(ctx)
		parent := ctx
		if v, ok := s.roundSpans.Load(rid); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		} else if v, ok := s.runSpans.Load(rid); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		}
		_, span := s.tracer.Start(parent, "fetch.batch")
		span.SetAttributes(
			attribute.String("fetch.source", e.Source),
			attribute.Int("fetch.batch.size", e.Identities),
		)
		s.batchSpans.Store(batchKey{rid: rid, source: e.Source}, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.BatchFinish) {
		rid, _ := runid.FromContext(ctx)
		v, ok := s.batchSpans.LoadAndDelete(batchKey{rid: rid, source: e.Source})
		if !ok {
			return
		}
		span := v.(trace.Span)
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})
}

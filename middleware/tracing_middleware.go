package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mini-wamp/message"
)

const defaultTracerName = "mini-wamp"

// TracingConfig configures the OpenTelemetry middleware.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "mini-wamp").
	TracerName string

	// Provider overrides the global tracer provider.
	Provider trace.TracerProvider

	// Filter selects which messages to trace. Nil traces everything.
	Filter func(m message.Message) bool
}

type TracingOption func(*TracingConfig)

func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) { c.TracerName = name }
}

func WithTracerProvider(p trace.TracerProvider) TracingOption {
	return func(c *TracingConfig) { c.Provider = p }
}

func WithMessageFilter(filter func(m message.Message) bool) TracingOption {
	return func(c *TracingConfig) { c.Filter = filter }
}

// Tracing starts one span per dispatched message, named after its type. The
// span context flows into ctx for the rest of the chain.
func Tracing(opts ...TracingOption) Middleware {
	config := TracingConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	var tracer trace.Tracer
	if config.Provider != nil {
		tracer = config.Provider.Tracer(config.TracerName)
	} else {
		tracer = otel.Tracer(config.TracerName)
	}

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, m message.Message) (bool, error) {
			if config.Filter != nil && !config.Filter(m) {
				return next(ctx, m)
			}

			ctx, span := tracer.Start(ctx, "wamp."+m.Type().String(), trace.WithSpanKind(trace.SpanKindConsumer))
			defer span.End()

			attrs := []attribute.KeyValue{attribute.Int64("wamp.message.type", int64(m.Type()))}
			if r, ok := m.(message.Requester); ok {
				attrs = append(attrs, attribute.Int64("wamp.request_id", int64(r.Request())))
			}
			if e, ok := m.(*message.Error); ok {
				attrs = append(attrs, attribute.String("wamp.error.uri", e.URI), attribute.String("wamp.error.cause", e.Cause.String()))
			}
			span.SetAttributes(attrs...)

			handled, err := next(ctx, m)
			span.SetAttributes(attribute.Bool("wamp.handled", handled))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return handled, err
		}
	}
}

package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for boxline traces.
const tracerName = "github.com/plantfloor/boxline"

// Tracing returns middleware that wraps each operation in an OTel span
// using the global TracerProvider. If no TracerProvider is configured,
// noop spans are used and this middleware becomes a pass-through.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, op *Operation, next Handler) error {
		ctx, span := tracer.Start(ctx, "boxline."+op.Name,
			trace.WithAttributes(
				attribute.String("boxline.job", op.Job),
				attribute.String("boxline.step", op.StepName),
				attribute.String("boxline.machine", op.MachineCode),
				attribute.String("boxline.actor", op.Actor),
			),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

package utils

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewTracerProvider installs a global tracer provider. Spans are sampled
// only when a parent asks for it unless debug is set.
func NewTracerProvider(debug bool, processors ...sdktrace.SpanProcessor) *sdktrace.TracerProvider {
	sampler := sdktrace.ParentBased(sdktrace.NeverSample())
	if debug {
		sampler = sdktrace.AlwaysSample()
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithSampler(sampler)}
	for _, p := range processors {
		opts = append(opts, sdktrace.WithSpanProcessor(p))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp
}

// ShutdownTracer flushes and stops the provider
func ShutdownTracer(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

// logProcessor writes ended spans to the logger at debug level
type logProcessor struct {
	logger *logrus.Logger
}

// NewLogSpanProcessor returns a span processor that logs every ended span
func NewLogSpanProcessor(logger *logrus.Logger) sdktrace.SpanProcessor {
	return logProcessor{logger: logger}
}

func (p logProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p logProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	p.logger.WithFields(logrus.Fields{
		"span":        s.Name(),
		"trace_id":    s.SpanContext().TraceID().String(),
		"duration_ms": s.EndTime().Sub(s.StartTime()).Milliseconds(),
		"status":      s.Status().Code.String(),
	}).Debug("Span ended")
}

func (p logProcessor) Shutdown(context.Context) error { return nil }

func (p logProcessor) ForceFlush(context.Context) error { return nil }

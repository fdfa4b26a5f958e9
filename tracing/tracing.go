package tracing

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/viant/procflux"

// Kind is a span kind name.
type Kind string

const (
	KindInternal Kind = "INTERNAL"
	KindServer   Kind = "SERVER"
)

var (
	mux      sync.Mutex
	provider *sdktrace.TracerProvider
	output   io.Closer
)

// Init installs a stdout exporter writing to outputFile, or to os.Stdout when
// outputFile is empty. Only the first successful call takes effect.
func Init(serviceName, serviceVersion, outputFile string) error {
	mux.Lock()
	defer mux.Unlock()
	if provider != nil {
		return nil
	}
	var w io.Writer = os.Stdout
	var closer io.Closer
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return err
		}
		w, closer = f, f
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return err
	}
	if err = install(serviceName, serviceVersion, exporter); err != nil {
		return err
	}
	output = closer
	return nil
}

// InitWithExporter installs the supplied exporter, e.g. an OTLP or in-memory one.
func InitWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) error {
	if exporter == nil {
		return nil
	}
	mux.Lock()
	defer mux.Unlock()
	if provider != nil {
		return nil
	}
	return install(serviceName, serviceVersion, exporter)
}

func install(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) error {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return err
	}
	provider = sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return nil
}

// Shutdown flushes the installed provider and releases the trace file.
func Shutdown(ctx context.Context) error {
	mux.Lock()
	defer mux.Unlock()
	if provider == nil {
		return nil
	}
	err := provider.Shutdown(ctx)
	if output != nil {
		err = errors.Join(err, output.Close())
	}
	provider, output = nil, nil
	return err
}

// Span wraps an OpenTelemetry span; a nil *Span is a no-op.
type Span struct {
	span trace.Span
}

// WithAttributes sets string attributes.
func (s *Span) WithAttributes(attrs map[string]string) *Span {
	if s == nil || len(attrs) == 0 {
		return s
	}
	kv := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kv = append(kv, attribute.String(k, v))
	}
	s.span.SetAttributes(kv...)
	return s
}

// SetStatus records err, or an OK status when err is nil.
func (s *Span) SetStatus(err error) {
	if s == nil {
		return
	}
	if err == nil {
		s.span.SetStatus(codes.Ok, "")
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// SetStatusFromHTTPCode maps 4xx and 5xx responses to an error status.
func (s *Span) SetStatusFromHTTPCode(code int) {
	if s == nil {
		return
	}
	s.span.SetAttributes(attribute.Int("http.status_code", code))
	switch {
	case code >= 500:
		s.span.SetStatus(codes.Error, "server error")
	case code >= 400:
		s.span.SetStatus(codes.Error, "client error")
	case code >= 100:
		s.span.SetStatus(codes.Ok, "")
	}
}

// StartSpan starts a child span of whatever span ctx carries. The parent ids
// are copied into attributes so that exported spans can be read in isolation.
func StartSpan(ctx context.Context, name string, kind Kind) (context.Context, *Span) {
	spanKind := trace.SpanKindInternal
	if kind == KindServer {
		spanKind = trace.SpanKindServer
	}
	parent := trace.SpanContextFromContext(ctx)
	ctx, span := otel.Tracer(tracerName).Start(ctx, name, trace.WithSpanKind(spanKind))
	if parent.IsValid() {
		span.SetAttributes(
			attribute.String("parent.trace_id", parent.TraceID().String()),
			attribute.String("parent.span_id", parent.SpanID().String()),
		)
	}
	return ctx, &Span{span: span}
}

// EndSpan sets the status from err and ends the span.
func EndSpan(sp *Span, err error) {
	if sp == nil {
		return
	}
	sp.SetStatus(err)
	sp.span.End()
}

// EndSpanWithHTTPCode sets the status from an HTTP response code and ends the span.
func EndSpanWithHTTPCode(sp *Span, code int) {
	if sp == nil {
		return
	}
	sp.SetStatusFromHTTPCode(code)
	sp.span.End()
}

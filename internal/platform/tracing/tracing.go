// Package tracing opens child spans for internal layers. A span is only
// started beneath a valid parent so helpers reached from untraced paths,
// such as /healthz or a sweep tick without a root span, stay silent.
package tracing

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var noop = trace.SpanFromContext(context.Background())

// Scope starts spans for one instrumentation scope.
type Scope struct {
	name     string
	provider trace.TracerProvider
	allow    func(spanName string) bool
}

type Option func(*Scope)

// WithNamePrefix restricts spans to names starting with prefix.
func WithNamePrefix(prefix string) Option {
	return func(s *Scope) {
		s.allow = func(name string) bool { return strings.HasPrefix(name, prefix) }
	}
}

// WithProvider pins the provider. Without it the global provider is read on
// every Start, so providers installed after package init are honoured.
func WithProvider(tp trace.TracerProvider) Option {
	return func(s *Scope) { s.provider = tp }
}

func NewScope(name string, opts ...Option) *Scope {
	s := &Scope{name: name}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scope) Allows(spanName string) bool {
	if strings.TrimSpace(spanName) == "" {
		return false
	}
	return s.allow == nil || s.allow(spanName)
}

func (s *Scope) Start(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() || !s.Allows(spanName) {
		return ctx, noop
	}
	provider := s.provider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return provider.Tracer(s.name).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// Fail marks the span in ctx as failed. It is a no-op for nil errors and
// non-recording spans.
func Fail(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

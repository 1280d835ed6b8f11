package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/kbukum/voxkit/errors"
)

// ProviderSpan tracks one call into a capability provider.
type ProviderSpan struct {
	span      trace.Span
	start     time.Time
	provider  string
	kind      string
	operation string
}

// StartProviderSpan starts a provider.call span tagged with the provider id
// and kind.
func StartProviderSpan(ctx context.Context, providerID, kind, operation string) (context.Context, *ProviderSpan) {
	ctx, span := StartSpan(ctx, SpanProviderCall, trace.WithAttributes(
		attribute.String(AttrProvider, providerID),
		attribute.String(AttrProviderKind, kind),
		attribute.String("operation", operation),
	))
	return ctx, &ProviderSpan{span: span, start: time.Now(), provider: providerID, kind: kind, operation: operation}
}

// End closes the span, records err on it and feeds m when it is not nil.
func (s *ProviderSpan) End(ctx context.Context, m *Metrics, err error) time.Duration {
	d := time.Since(s.start)
	s.span.SetAttributes(attribute.Int64(AttrDurationMs, d.Milliseconds()))
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
		s.span.SetAttributes(attribute.String(AttrErrorCode, string(apperrors.CodeOf(err))))
	}
	s.span.End()
	m.RecordProviderCall(ctx, s.provider, s.kind, s.operation, err, d)
	return d
}

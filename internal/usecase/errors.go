package usecase

import (
	"context"
	"errors"

	"github.com/riskibarqy/fantasy-draft/internal/domain/draft"
	"github.com/riskibarqy/fantasy-draft/internal/platform/tracing"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// callerErrors are outcomes of a bad or stale request. They are answered,
// not alerted on.
var callerErrors = []error{
	ErrInvalidInput,
	ErrNotFound,
	ErrUnauthorized,
	ErrForbidden,
	draft.ErrInvalidState,
	draft.ErrTurnViolation,
	draft.ErrAssetUnavailable,
	draft.ErrNoPicksRemaining,
	draft.ErrConcurrencyConflict,
}

func isCallerError(err error) bool {
	for _, target := range callerErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// traceFailure flags the active span for errors the service itself caused.
func traceFailure(ctx context.Context, err error) {
	if err == nil || isCallerError(err) {
		return
	}
	tracing.Fail(ctx, err)
}

var usecaseSpans = tracing.NewScope("fantasy-draft/internal/usecase")

func startUsecaseSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return usecaseSpans.Start(ctx, name)
}

package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/fantasy-draft/internal/domain/draft"
	"github.com/riskibarqy/fantasy-draft/internal/usecase"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestEnvelope_SuccessAndError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeSuccess(context.Background(), rec, http.StatusCreated, map[string]string{"league_id": "demo-draft-2026"})

	ok := decodeEnvelope[map[string]string](t, rec)
	if rec.Code != http.StatusCreated || ok.APIVersion != googleAPIVersion || ok.Error != nil {
		t.Fatalf("unexpected success envelope: code=%d body=%s", rec.Code, rec.Body.String())
	}
	if ok.Data["league_id"] != "demo-draft-2026" {
		t.Fatalf("unexpected data: %v", ok.Data)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	rec = httptest.NewRecorder()
	writeError(context.Background(), rec, fmt.Errorf("%w: seconds_per_pick must be positive", usecase.ErrInvalidInput))
	expectError(t, rec, http.StatusBadRequest, "INVALID_ARGUMENT")

	var raw map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if _, found := raw["data"]; found {
		t.Fatalf("error envelope must omit data: %s", rec.Body.String())
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"reason":"invalidInput"`)) {
		t.Fatalf("expected reason in error items: %s", rec.Body.String())
	}
}

func TestWriteError_MarksSpanOnServerErrors(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	for _, err := range []error{
		fmt.Errorf("%w: pick 3", draft.ErrTurnViolation),
		fmt.Errorf("%w: anubis down", usecase.ErrDependencyUnavailable),
	} {
		ctx, span := tp.Tracer("test").Start(context.Background(), "request")
		writeError(ctx, httptest.NewRecorder(), err)
		span.End()
	}

	ended := spans.Ended()
	if len(ended) != 2 {
		t.Fatalf("expected two spans, got %d", len(ended))
	}
	if ended[0].Status().Code == codes.Error {
		t.Fatalf("client errors must not fail the span")
	}
	if ended[1].Status().Code != codes.Error {
		t.Fatalf("expected server error to fail the span")
	}
}

func TestMapError_DraftErrors(t *testing.T) {
	tests := []struct {
		err        error
		wantCode   int
		wantStatus string
	}{
		{err: fmt.Errorf("%w: missing token", usecase.ErrUnauthorized), wantCode: http.StatusUnauthorized, wantStatus: "UNAUTHENTICATED"},
		{err: fmt.Errorf("%w: not commissioner", usecase.ErrForbidden), wantCode: http.StatusForbidden, wantStatus: "PERMISSION_DENIED"},
		{err: fmt.Errorf("%w: league", usecase.ErrNotFound), wantCode: http.StatusNotFound, wantStatus: "NOT_FOUND"},
		{err: fmt.Errorf("%w: draft is paused", draft.ErrInvalidState), wantCode: http.StatusConflict, wantStatus: "FAILED_PRECONDITION"},
		{err: fmt.Errorf("%w: pick 3", draft.ErrTurnViolation), wantCode: http.StatusConflict, wantStatus: "FAILED_PRECONDITION"},
		{err: draft.ErrNoPicksRemaining, wantCode: http.StatusConflict, wantStatus: "FAILED_PRECONDITION"},
		{err: fmt.Errorf("%w: idn-mid-01", draft.ErrAssetUnavailable), wantCode: http.StatusConflict, wantStatus: "ALREADY_EXISTS"},
		{err: draft.ErrConcurrencyConflict, wantCode: http.StatusConflict, wantStatus: "ABORTED"},
		{err: fmt.Errorf("%w: no teams", draft.ErrInvalidSetup), wantCode: http.StatusBadRequest, wantStatus: "INVALID_ARGUMENT"},
		{err: usecase.ErrDependencyUnavailable, wantCode: http.StatusServiceUnavailable, wantStatus: "UNAVAILABLE"},
		{err: fmt.Errorf("boom"), wantCode: http.StatusInternalServerError, wantStatus: "INTERNAL"},
	}

	for _, tt := range tests {
		got := mapError(tt.err)
		if got.HTTPStatus != tt.wantCode || got.Status != tt.wantStatus {
			t.Fatalf("mapError(%v)=%d/%s want=%d/%s", tt.err, got.HTTPStatus, got.Status, tt.wantCode, tt.wantStatus)
		}
	}
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, fmt.Errorf("select draft picks league=demo: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	body := decodeEnvelope[any](t, rec)
	if body.Error == nil || body.Error.Status != "INTERNAL" {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("connection refused")) {
		t.Fatalf("internal error detail leaked: %s", rec.Body.String())
	}
}

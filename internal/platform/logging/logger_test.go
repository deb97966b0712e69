package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/trace"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := sonic.UnmarshalString(line, &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLogger_FieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONWriter(&buf, LevelInfo).With("service", "fantasy-draft-api")

	logger.Debug("hidden")
	logger.Warn("draft pick rejected",
		"league_id", "demo-draft-2026",
		"error", errors.New("asset already drafted"),
		"deadline", time.Date(2026, 1, 1, 7, 0, 0, 0, time.FixedZone("WIB", 7*3600)),
		"dangling",
	)

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected one entry above info level, got %d: %s", len(entries), buf.String())
	}
	entry := entries[0]
	if entry["level"] != "WARN" || entry["msg"] != "draft pick rejected" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["service"] != "fantasy-draft-api" || entry["league_id"] != "demo-draft-2026" {
		t.Fatalf("missing fields: %v", entry)
	}
	if entry["error"] != "asset already drafted" {
		t.Fatalf("unexpected error field: %v", entry["error"])
	}
	if entry["deadline"] != "2026-01-01T00:00:00Z" {
		t.Fatalf("expected deadline in UTC, got %v", entry["deadline"])
	}
	if v, ok := entry["dangling"]; !ok || v != nil {
		t.Fatalf("expected dangling key logged as null, got %v", entry)
	}
	if caller, _ := entry["caller"].(string); !strings.HasPrefix(caller, "logging/logger_test.go") {
		t.Fatalf("expected caller to point at the call site, got %q", caller)
	}
}

func TestLogger_ContextAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONWriter(&buf, LevelDebug)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	logger.InfoContext(ctx, "draft started")
	logger.InfoContext(context.Background(), "no span")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected two entries, got %d", len(entries))
	}
	if entries[0]["trace_id"] != traceID.String() || entries[0]["span_id"] != spanID.String() {
		t.Fatalf("expected trace ids, got %v", entries[0])
	}
	if _, ok := entries[1]["trace_id"]; ok {
		t.Fatalf("expected no trace id without a span, got %v", entries[1])
	}
}

func TestLogger_NilAndDefault(t *testing.T) {
	var nilLogger *Logger
	nilLogger.Info("ignored")
	if err := nilLogger.Sync(); err != nil {
		t.Fatalf("nil sync: %v", err)
	}
	if nilLogger.Enabled(LevelError) {
		t.Fatalf("nil logger must not report enabled levels")
	}

	var buf bytes.Buffer
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	SetDefault(NewJSONWriter(&buf, LevelError))
	if !Default().Enabled(LevelError) || Default().Enabled(LevelWarn) {
		t.Fatalf("default logger level not applied")
	}
	SetDefault(nil)
	if Default() == nil {
		t.Fatalf("expected nop default after SetDefault(nil)")
	}
}

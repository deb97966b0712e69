package jobqueue

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/fantasy-draft/internal/platform/logging"
	"github.com/riskibarqy/fantasy-draft/internal/platform/resilience"
)

func TestQStashPublisher_EnqueueSetsUpstashHeaders(t *testing.T) {
	t.Parallel()

	var (
		gotPath    string
		gotHeaders http.Header
		gotBody    string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeaders = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	publisher := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:          srv.URL,
		Token:            "qstash-token",
		TargetBaseURL:    "https://draft.example.com/",
		Retries:          3,
		InternalJobToken: "job-secret",
	}, logging.NewNop())

	err := publisher.Enqueue(context.Background(), "/v1/internal/jobs/draft-autopick",
		map[string]any{"league_id": "demo-draft-2026", "overall_pick": 4},
		92*time.Second+300*time.Millisecond,
		"draft-autopick-demo-draft-2026-4-1788285690",
	)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if want := "/v2/publish/https://draft.example.com/v1/internal/jobs/draft-autopick"; gotPath != want {
		t.Fatalf("unexpected publish path: got=%q want=%q", gotPath, want)
	}
	checks := map[string]string{
		"Authorization":                        "Bearer qstash-token",
		"Upstash-Method":                       http.MethodPost,
		"Upstash-Retries":                      "3",
		"Upstash-Delay":                        "92s",
		"Upstash-Deduplication-Id":             "draft-autopick-demo-draft-2026-4-1788285690",
		"Upstash-Forward-X-Internal-Job-Token": "job-secret",
	}
	for header, want := range checks {
		if got := gotHeaders.Get(header); got != want {
			t.Fatalf("header %s: got=%q want=%q", header, got, want)
		}
	}
	if !strings.Contains(gotBody, `"overall_pick":4`) {
		t.Fatalf("unexpected body: %s", gotBody)
	}
}

func TestQStashPublisher_ZeroDelayOmitsHeader(t *testing.T) {
	t.Parallel()

	var delayHeader atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delayHeader.Store(r.Header.Get("Upstash-Delay"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	publisher := NewQStashPublisher(QStashPublisherConfig{BaseURL: srv.URL, TargetBaseURL: "http://localhost:8080"}, logging.NewNop())
	if err := publisher.Enqueue(context.Background(), "jobs", nil, -time.Second, ""); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if got := delayHeader.Load(); got != "" {
		t.Fatalf("expected no delay header, got %q", got)
	}
}

func TestQStashPublisher_InvalidConfig(t *testing.T) {
	t.Parallel()

	publisher := NewQStashPublisher(QStashPublisherConfig{BaseURL: "ftp://qstash", TargetBaseURL: "http://localhost"}, logging.NewNop())
	err := publisher.Enqueue(context.Background(), "/v1/internal/jobs/draft-autopick", nil, 0, "")
	if err == nil || !strings.Contains(err.Error(), "QSTASH_BASE_URL") {
		t.Fatalf("expected base url validation error, got %v", err)
	}

	if err := publisher.Enqueue(context.Background(), " / ", nil, 0, ""); err == nil {
		t.Fatalf("expected empty path error")
	}
}

func TestQStashPublisher_CircuitOpensOnTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	publisher := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:       srv.URL,
		TargetBaseURL: "http://localhost:8080",
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	}, logging.NewNop())

	for i := 0; i < 2; i++ {
		err := publisher.Enqueue(context.Background(), "/jobs", nil, 0, "")
		if !errors.Is(err, errQStashTransient) {
			t.Fatalf("attempt %d: expected transient error, got %v", i+1, err)
		}
	}

	err := publisher.Enqueue(context.Background(), "/jobs", nil, 0, "")
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", got)
	}
}

func TestQStashPublisher_ClientErrorsDoNotOpenCircuit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid destination"}`))
	}))
	defer srv.Close()

	publisher := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:        srv.URL,
		TargetBaseURL:  "http://localhost:8080",
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: true, FailureThreshold: 1},
	}, logging.NewNop())

	for i := 0; i < 3; i++ {
		err := publisher.Enqueue(context.Background(), "/jobs", nil, 0, "")
		if err == nil || errors.Is(err, resilience.ErrCircuitOpen) {
			t.Fatalf("attempt %d: expected plain client error, got %v", i+1, err)
		}
	}
}

func TestBuildQStashCurlPreview_MasksSecrets(t *testing.T) {
	t.Parallel()

	got := buildQStashCurlPreview("http://q/v2/publish/x", "/x", "5s", 2, "d-1", `{"a":"it's"}`, true)
	if strings.Contains(got, "job-secret") || !strings.Contains(got, "Bearer ***") {
		t.Fatalf("curl preview leaks secrets: %s", got)
	}
	if !strings.Contains(got, `'{"a":"it'"'"'s"}'`) {
		t.Fatalf("body not shell quoted: %s", got)
	}
}

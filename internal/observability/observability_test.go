package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/riskibarqy/fantasy-draft/internal/config"
	"github.com/riskibarqy/fantasy-draft/internal/platform/logging"
)

func TestStart_AllDisabled(t *testing.T) {
	cfg := config.Config{
		ServiceName:    "fantasy-draft-api",
		ServiceVersion: "dev",
		AppEnv:         config.EnvDev,
		UptraceEnabled: true,
	}

	telemetry, err := Start(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("start telemetry: %v", err)
	}
	if got := telemetry.Components(); len(got) != 0 {
		t.Fatalf("expected nothing started without a dsn, got %v", got)
	}
	if err := telemetry.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown telemetry: %v", err)
	}
}

func TestStart_PprofServesIndex(t *testing.T) {
	telemetry, err := Start(config.Config{PprofEnabled: true, PprofAddr: "127.0.0.1:0"}, nil)
	if err != nil {
		t.Fatalf("start telemetry: %v", err)
	}
	if got := telemetry.Components(); len(got) != 1 || got[0] != "pprof" {
		t.Fatalf("unexpected components: %v", got)
	}
	if err := telemetry.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown telemetry: %v", err)
	}
	if got := telemetry.Components(); len(got) != 0 {
		t.Fatalf("expected shutdown to clear components, got %v", got)
	}
}

func TestStart_PprofBadAddrFails(t *testing.T) {
	_, err := Start(config.Config{PprofEnabled: true, PprofAddr: "not-an-addr"}, logging.NewNop())
	if err == nil || !strings.Contains(err.Error(), "start pprof") {
		t.Fatalf("expected pprof start error, got %v", err)
	}
}

func TestTelemetry_ShutdownReverseOrderAndJoin(t *testing.T) {
	var order []string
	boom := errors.New("flush failed")
	telemetry := &Telemetry{
		logger: logging.NewNop(),
		running: []running{
			{name: "first", stop: func(context.Context) error { order = append(order, "first"); return nil }},
			{name: "second", stop: func(context.Context) error { order = append(order, "second"); return boom }},
		},
	}

	err := telemetry.Shutdown(context.Background())
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "stop second") {
		t.Fatalf("expected joined stop error, got %v", err)
	}
	if strings.Join(order, ",") != "second,first" {
		t.Fatalf("unexpected stop order: %v", order)
	}

	var nilTelemetry *Telemetry
	if err := nilTelemetry.Shutdown(context.Background()); err != nil {
		t.Fatalf("nil shutdown: %v", err)
	}
}

func TestProfileTypes_ContentionOutsideDev(t *testing.T) {
	dev := profileTypes(config.Config{AppEnv: config.EnvDev})
	prod := profileTypes(config.Config{AppEnv: config.EnvProd})
	if len(dev) != 6 || len(prod) != 10 {
		t.Fatalf("unexpected profile counts: dev=%d prod=%d", len(dev), len(prod))
	}
	for _, pt := range dev {
		if pt == pyroscope.ProfileMutexCount {
			t.Fatalf("dev must not enable mutex profiling")
		}
	}
}

func TestPprofMux_Routes(t *testing.T) {
	rec := httptest.NewRecorder()
	pprofMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "goroutine") {
		t.Fatalf("unexpected pprof index: code=%d", rec.Code)
	}
}

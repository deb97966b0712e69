package config

import (
	"testing"
	"time"

	"github.com/riskibarqy/fantasy-draft/internal/platform/logging"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ServiceName != "fantasy-draft-api" {
		t.Fatalf("unexpected ServiceName: %q", cfg.ServiceName)
	}
	if cfg.StorageDriver != StorageMemory {
		t.Fatalf("expected memory storage by default, got %q", cfg.StorageDriver)
	}
	if cfg.DraftDefaultSecondsPerPick != 90 || cfg.DraftMaxSecondsPerPick != 86400 {
		t.Fatalf("unexpected draft pick window defaults: %d/%d", cfg.DraftDefaultSecondsPerPick, cfg.DraftMaxSecondsPerPick)
	}
	if cfg.DraftAutoPickGrace != 2*time.Second {
		t.Fatalf("unexpected DraftAutoPickGrace: %s", cfg.DraftAutoPickGrace)
	}
	if cfg.LogLevel != logging.LevelInfo {
		t.Fatalf("unexpected LogLevel: %s", cfg.LogLevel)
	}
	if !cfg.AnubisCircuit.Enabled || cfg.AnubisCircuit.FailureThreshold != 5 {
		t.Fatalf("unexpected anubis circuit defaults: %+v", cfg.AnubisCircuit)
	}
	if cfg.NATSEnabled || cfg.QStashEnabled {
		t.Fatalf("expected NATS and QStash disabled by default")
	}
}

func TestLoad_StorageDriver(t *testing.T) {
	t.Run("rejects unknown driver", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvDev)
		t.Setenv("STORAGE_DRIVER", "sqlite")

		if _, err := Load(); err == nil {
			t.Fatalf("expected error for unknown STORAGE_DRIVER")
		}
	})

	t.Run("postgres keeps db settings", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvDev)
		t.Setenv("STORAGE_DRIVER", "Postgres")
		t.Setenv("DB_URL", "postgres://draft:draft@db:5432/draft")
		t.Setenv("DB_MAX_OPEN_CONNS", "7")
		t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "false")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.StorageDriver != StoragePostgres || cfg.DBMaxOpenConns != 7 || cfg.DBDisablePreparedBinary {
			t.Fatalf("unexpected storage config: %+v", cfg)
		}
	})
}

func TestLoad_DraftSettingsValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "default above max", env: map[string]string{"DRAFT_DEFAULT_SECONDS_PER_PICK": "120", "DRAFT_MAX_SECONDS_PER_PICK": "60"}},
		{name: "zero default", env: map[string]string{"DRAFT_DEFAULT_SECONDS_PER_PICK": "0"}},
		{name: "negative grace", env: map[string]string{"DRAFT_AUTOPICK_GRACE": "-1s"}},
		{name: "zero sweep interval", env: map[string]string{"DRAFT_SWEEP_INTERVAL": "0s"}},
		{name: "bad sweep workers", env: map[string]string{"DRAFT_SWEEP_WORKERS": "four"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("APP_ENV", EnvDev)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoad_QStashRequiresSettingsWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("QSTASH_ENABLED", "true")
	t.Setenv("QSTASH_TOKEN", "qstash-token")
	t.Setenv("QSTASH_TARGET_BASE_URL", "https://draft.example.com")
	t.Setenv("INTERNAL_JOB_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when QSTASH_ENABLED=true without INTERNAL_JOB_TOKEN")
	}

	t.Setenv("INTERNAL_JOB_TOKEN", "job-secret")
	t.Setenv("QSTASH_CIRCUIT_FAILURE_COUNT", "3")
	t.Setenv("QSTASH_CIRCUIT_OPEN_TIMEOUT", "45s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.QStashCircuit.FailureThreshold != 3 || cfg.QStashCircuit.OpenTimeout != 45*time.Second {
		t.Fatalf("unexpected qstash circuit config: %+v", cfg.QStashCircuit)
	}
}

func TestLoad_NATSSettings(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("NATS_STREAM", "LEAGUE_DRAFTS")
	t.Setenv("OUTBOX_RELAY_BATCH", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.NATSEnabled || cfg.NATSURL != "nats://nats:4222" || cfg.NATSStream != "LEAGUE_DRAFTS" {
		t.Fatalf("unexpected NATS config: %+v", cfg)
	}
	if cfg.OutboxRelayBatch != 25 {
		t.Fatalf("unexpected OutboxRelayBatch: %d", cfg.OutboxRelayBatch)
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_UptraceDSNFromOTLPHeaders(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", `foo=bar, uptrace-dsn="https://token@api.uptrace.dev?grpc=4317"`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev?grpc=4317" {
		t.Fatalf("unexpected UptraceDSN: %q", cfg.UptraceDSN)
	}
}

func TestLoad_PprofDefaultsAddrWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PPROF_ENABLED", "true")
	t.Setenv("PPROF_ADDR", "  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PprofAddr != ":6060" {
		t.Fatalf("expected default pprof addr :6060, got %q", cfg.PprofAddr)
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]logging.Level{
		"debug":   logging.LevelDebug,
		"WARNING": logging.LevelWarn,
		"error":   logging.LevelError,
		"":        logging.LevelInfo,
	}
	for raw, want := range cases {
		if got := parseLogLevel(raw); got != want {
			t.Fatalf("parseLogLevel(%q): got=%s want=%s", raw, got, want)
		}
	}
}

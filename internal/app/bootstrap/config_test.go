package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigLayersFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
service:
  http_port: 8181
  log_level: debug
dependencies:
  kafka_brokers: ["a:9092", " ", "b:9092"]
escrow:
  deal_cache_ttl: 30s
  arbiter_address: "0x4444444444444444444444444444444444444444"
worker:
  outbox_batch_size: 25
`)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("POSTGRES_URL", "postgres://fallback")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPPort != 9999 {
		t.Fatalf("env must override file, got port %d", cfg.HTTPPort)
	}
	if cfg.GRPCPort != 9090 {
		t.Fatalf("default grpc port lost, got %d", cfg.GRPCPort)
	}
	if cfg.DealCacheTTL != 30*time.Second || cfg.OutboxBatchSize != 25 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if strings.Join(cfg.KafkaBrokers, ",") != "a:9092,b:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.DatabaseURL != "postgres://fallback" {
		t.Fatalf("expected POSTGRES_URL fallback, got %q", cfg.DatabaseURL)
	}
	if cfg.slogLevel().String() != "DEBUG" {
		t.Fatalf("unexpected level %s", cfg.slogLevel())
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ServiceID != "M47-Deal-Escrow-Service" || cfg.KafkaTopicVerdicts != "escrow.arbitration_verdict" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	path := writeConfig(t, "escrow:\n  arbiter_address: nope\n")
	t.Setenv("JWT_SECRET", "short")
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected secret error, got %v", err)
	}
	t.Setenv("JWT_SECRET", testSecret)
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "arbiter_address") {
		t.Fatalf("expected arbiter error, got %v", err)
	}
	t.Setenv("OTEL_SAMPLE_RATIO", "2")
	if _, err := LoadConfig(writeConfig(t, "")); err == nil {
		t.Fatalf("expected sample ratio error")
	}
}

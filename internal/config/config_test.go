package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `telegram:
  token: "file-token"
  poll_timeout: "45s"
lookup:
  backend: "amazon"
  timeout: "20s"
recheck:
  interval: "30m"
notifier:
  rate_per_sec: 5
health:
  addr: ":9090"
logging:
  level: "debug"
  console: true
  file:
    enabled: false
    path: ""
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	m := NewManager(writeConfig(t, sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "file-token" {
		t.Fatalf("Token = %q", cfg.Telegram.Token)
	}
	if cfg.Telegram.PollTimeout != "45s" {
		t.Fatalf("PollTimeout = %q", cfg.Telegram.PollTimeout)
	}
	if cfg.Recheck.Interval != "30m" {
		t.Fatalf("Interval = %q", cfg.Recheck.Interval)
	}
	if cfg.Notifier.RatePerSec != 5 {
		t.Fatalf("RatePerSec = %d", cfg.Notifier.RatePerSec)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get did not return the committed config")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvTelegramToken, "env-token")
	t.Setenv(EnvLookupAPIKey, "env-key")
	t.Setenv(EnvHealthAddr, ":7070")

	m := NewManager(writeConfig(t, sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Fatalf("Token = %q, want env override", cfg.Telegram.Token)
	}
	if cfg.Lookup.APIKey != "env-key" {
		t.Fatalf("APIKey = %q", cfg.Lookup.APIKey)
	}
	if cfg.Health.Addr != ":7070" {
		t.Fatalf("Addr = %q", cfg.Health.Addr)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	m := NewManager(writeConfig(t, "telegram:\n  tokne: \"oops\"\n"))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadMissingFile(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnabledDefaults(t *testing.T) {
	var rc RecheckConfig
	if !rc.RecheckEnabled() {
		t.Fatal("recheck should default to enabled")
	}
	off := false
	rc.Enabled = &off
	if rc.RecheckEnabled() {
		t.Fatal("explicit false must disable")
	}

	var hc HealthConfig
	if !hc.HealthEnabled() {
		t.Fatal("health should default to enabled")
	}
}

func TestParseDurationField(t *testing.T) {
	d, err := ParseDurationField("recheck.interval", "90s")
	if err != nil || d.Seconds() != 90 {
		t.Fatalf("got %v, %v", d, err)
	}
	if _, err := ParseDurationField("recheck.interval", "soon"); err == nil {
		t.Fatal("expected error for bad duration")
	}
	if _, err := ParseDurationField("recheck.interval", "-5s"); err == nil {
		t.Fatal("expected error for negative duration")
	}
	d, err = ParseDurationOrDefault("lookup.timeout", "", time.Minute)
	if err != nil || d != time.Minute {
		t.Fatalf("default not applied: %v, %v", d, err)
	}
}

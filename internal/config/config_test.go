package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load with defaults failed: %v", err)
	}

	if cfg.App.Name != "pricetracker" {
		t.Fatalf("unexpected app name %q", cfg.App.Name)
	}
	if cfg.Alerting.ThresholdPct != 5.0 {
		t.Fatalf("default threshold should be 5.0, got %f", cfg.Alerting.ThresholdPct)
	}
	if cfg.Alerting.Cooldown != 5*time.Minute {
		t.Fatalf("default cooldown should be 5m, got %s", cfg.Alerting.Cooldown)
	}
	if cfg.Scheduler.CryptoInterval != time.Minute {
		t.Fatalf("default crypto interval should be 1m, got %s", cfg.Scheduler.CryptoInterval)
	}
	if cfg.Scheduler.EquityInterval != 5*time.Minute {
		t.Fatalf("default equity interval should be 5m, got %s", cfg.Scheduler.EquityInterval)
	}
	if cfg.Source.RateLimitPerMin != 50 {
		t.Fatalf("default rate limit should be 50, got %d", cfg.Source.RateLimitPerMin)
	}
	if cfg.Limits.DedupWindow != time.Minute {
		t.Fatalf("default dedup window should be 1m, got %s", cfg.Limits.DedupWindow)
	}
	if cfg.Limits.DefaultLimit != 50 || cfg.Limits.MaxLimit != 1000 {
		t.Fatalf("unexpected list limits: %+v", cfg.Limits)
	}
	if len(cfg.Source.CryptoAssets) == 0 || len(cfg.Source.EquityAssets) == 0 {
		t.Fatal("default asset lists should not be empty")
	}
	if cfg.Snapshot.Backend != "memory" {
		t.Fatalf("default snapshot backend should be memory, got %q", cfg.Snapshot.Backend)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
alerting:
  threshold_pct: 2.5
  cooldown: 120s
scheduler:
  crypto_interval: 30s
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Alerting.ThresholdPct != 2.5 {
		t.Fatalf("threshold from file should win, got %f", cfg.Alerting.ThresholdPct)
	}
	if cfg.Alerting.Cooldown != 2*time.Minute {
		t.Fatalf("cooldown from file should win, got %s", cfg.Alerting.Cooldown)
	}
	if cfg.Scheduler.CryptoInterval != 30*time.Second {
		t.Fatalf("interval from file should win, got %s", cfg.Scheduler.CryptoInterval)
	}
	// Untouched keys keep their defaults.
	if cfg.Scheduler.EquityInterval != 5*time.Minute {
		t.Fatalf("equity interval should keep its default, got %s", cfg.Scheduler.EquityInterval)
	}
}

func TestLoadRejectsOutOfRangeThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("alerting:\n  threshold_pct: 500\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("threshold above the allowed range should fail validation")
	}
}

func TestEmailPasswordFromEnvironment(t *testing.T) {
	t.Setenv("EMAIL_PASSWORD", "sekret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Alerting.Email.Password != "sekret" {
		t.Fatal("email password should be bound from EMAIL_PASSWORD")
	}
}

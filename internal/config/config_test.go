package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Source.QuoteURL != "https://www.huilvbiao.com/api/gold_indexApi" {
		t.Errorf("QuoteURL = %q", cfg.Source.QuoteURL)
	}
	if cfg.Scheduler.Enabled {
		t.Error("Scheduler.Enabled defaults to true, want false")
	}
	if cfg.Scheduler.RetentionDays != 35 {
		t.Errorf("RetentionDays = %d, want 35", cfg.Scheduler.RetentionDays)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.Server.ListenAddr)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GOLD_API_URL", "https://example.com/quote")
	t.Setenv("WEBHOOK_URL", "https://example.com/hook")
	t.Setenv("ENABLE_SCHEDULER", "true")
	t.Setenv("DATA_RETENTION_DAYS", "7")
	t.Setenv("LISTEN_ADDR", ":9090")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Source.QuoteURL != "https://example.com/quote" {
		t.Errorf("QuoteURL = %q", cfg.Source.QuoteURL)
	}
	if cfg.Webhook.URL != "https://example.com/hook" {
		t.Errorf("Webhook.URL = %q", cfg.Webhook.URL)
	}
	if !cfg.Scheduler.Enabled {
		t.Error("Scheduler.Enabled = false, want env override applied")
	}
	if cfg.Scheduler.RetentionDays != 7 {
		t.Errorf("RetentionDays = %d, want 7", cfg.Scheduler.RetentionDays)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", cfg.Server.ListenAddr)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
[scheduler]
retention_days = 10

[server]
listen_addr = ":7070"
`)
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), content, 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Scheduler.RetentionDays != 10 {
		t.Errorf("RetentionDays = %d, want 10", cfg.Scheduler.RetentionDays)
	}
	if cfg.Server.ListenAddr != ":7070" {
		t.Errorf("ListenAddr = %q, want :7070", cfg.Server.ListenAddr)
	}

	// Environment variables win over the file.
	t.Setenv("LISTEN_ADDR", ":6060")
	cfg, err = Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.ListenAddr != ":6060" {
		t.Errorf("ListenAddr = %q, want env to win", cfg.Server.ListenAddr)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg.Source.QuoteURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate succeeded with empty quote URL")
	}

	cfg, _ = Load(t.TempDir())
	cfg.Scheduler.RetentionDays = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate succeeded with zero retention")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/pepscore/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Tier != domain.TierCommunity || cfg.Mode != domain.ModeBatch {
		t.Errorf("expected community batch defaults, got %s %s", cfg.Tier, cfg.Mode)
	}
	if cfg.Repository.Driver != "sqlite" || cfg.Repository.SQLitePath != "./pepscore.db" {
		t.Errorf("unexpected repository defaults: %+v", cfg.Repository)
	}
	if cfg.Cache.RateTTL != 24*time.Hour {
		t.Errorf("expected 24h rate TTL, got %v", cfg.Cache.RateTTL)
	}
	if cfg.Scoring.AlertThreshold != 1.0 || cfg.Scoring.SaveRetries != 3 {
		t.Errorf("unexpected scoring defaults: %+v", cfg.Scoring)
	}
	if len(cfg.Scoring.DisabledRules) != 0 {
		t.Errorf("expected no disabled rules, got %v", cfg.Scoring.DisabledRules)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pepscore.yaml")
	content := `
mode: worker
repository:
  sqlite_path: /data/registry.db
cache:
  local_ttl: 30s
scoring:
  max_workers: 2
  alert_threshold: 1.5
  disabled_rules:
    - PEP04_reg
    - PEP07_creative
  year_from: 2016
  year_to: 2020
metrics:
  addr: ":9090"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Mode != domain.ModeWorker {
		t.Errorf("expected worker mode, got %s", cfg.Mode)
	}
	if cfg.Repository.SQLitePath != "/data/registry.db" {
		t.Errorf("expected file path override, got %q", cfg.Repository.SQLitePath)
	}
	if cfg.Repository.Driver != "sqlite" {
		t.Errorf("expected default driver to survive, got %q", cfg.Repository.Driver)
	}
	if cfg.Cache.LocalTTL != 30*time.Second {
		t.Errorf("expected 30s local TTL, got %v", cfg.Cache.LocalTTL)
	}
	if cfg.Scoring.MaxWorkers != 2 || cfg.Scoring.AlertThreshold != 1.5 {
		t.Errorf("unexpected scoring config: %+v", cfg.Scoring)
	}
	if len(cfg.Scoring.DisabledRules) != 2 || cfg.Scoring.DisabledRules[1] != "PEP07_creative" {
		t.Errorf("unexpected disabled rules: %v", cfg.Scoring.DisabledRules)
	}
	if cfg.Scoring.YearFrom != 2016 || cfg.Scoring.YearTo != 2020 {
		t.Errorf("unexpected year range: %d-%d", cfg.Scoring.YearFrom, cfg.Scoring.YearTo)
	}
	if cfg.Metrics.Addr != ":9090" {
		t.Errorf("expected metrics addr, got %q", cfg.Metrics.Addr)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("PEPSCORE_SCORING_MAX_WORKERS", "3")
	t.Setenv("PEPSCORE_SCORING_DISABLED_RULES", "PEP05_cash, PEP02_cars")
	t.Setenv("PEPSCORE_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Scoring.MaxWorkers != 3 {
		t.Errorf("expected env override 3, got %d", cfg.Scoring.MaxWorkers)
	}
	if len(cfg.Scoring.DisabledRules) != 2 || cfg.Scoring.DisabledRules[0] != "PEP05_cash" || cfg.Scoring.DisabledRules[1] != "PEP02_cars" {
		t.Errorf("unexpected disabled rules: %v", cfg.Scoring.DisabledRules)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Logging.Level)
	}
}

func TestLoadProTier(t *testing.T) {
	t.Setenv("PEPSCORE_TIER", "pro")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Repository.Driver != "postgres" || cfg.Cache.Type != "redis" || cfg.EventBus.Type != "nats" {
		t.Errorf("expected pro stack, got %s/%s/%s", cfg.Repository.Driver, cfg.Cache.Type, cfg.EventBus.Type)
	}
	if cfg.Mode != domain.ModeWorker {
		t.Errorf("expected worker mode for pro tier, got %s", cfg.Mode)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("InvalidValues", func(t *testing.T) {
		t.Setenv("PEPSCORE_MODE", "daemon")
		t.Setenv("PEPSCORE_REPOSITORY_DRIVER", "mysql")
		if _, err := Load(""); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestValidate(t *testing.T) {
	cfg := domain.DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	cfg.Scoring.YearFrom = 2020
	cfg.Scoring.YearTo = 2018
	cfg.Scoring.AlertThreshold = 0
	if err := Validate(cfg); err == nil {
		t.Error("expected error for inverted year range and zero threshold")
	}
}

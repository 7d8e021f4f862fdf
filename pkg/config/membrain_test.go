package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMembrainConfig(t *testing.T) {
	cfg := DefaultMembrainConfig()
	if cfg.CacheCapacity != 10000 {
		t.Errorf("CacheCapacity = %d, want 10000", cfg.CacheCapacity)
	}
	if cfg.BloomFPR != 0.01 {
		t.Errorf("BloomFPR = %f, want 0.01", cfg.BloomFPR)
	}
	if cfg.Embedder != "hash" {
		t.Errorf("Embedder = %q, want hash", cfg.Embedder)
	}
}

func TestLoadMembrainConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadMembrainConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadMembrainConfig: %v", err)
	}
	if cfg.CacheCapacity != 10000 {
		t.Errorf("CacheCapacity = %d, want default 10000", cfg.CacheCapacity)
	}
}

func TestLoadMembrainConfigYAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "membrain.yaml")
	yaml := "cache_capacity: 500\nbloom_fpr: 0.05\nembedder: openai\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadMembrainConfig(path)
	if err != nil {
		t.Fatalf("LoadMembrainConfig: %v", err)
	}
	if cfg.CacheCapacity != 500 {
		t.Errorf("CacheCapacity = %d, want 500", cfg.CacheCapacity)
	}
	if cfg.BloomFPR != 0.05 {
		t.Errorf("BloomFPR = %f, want 0.05", cfg.BloomFPR)
	}
	if cfg.Embedder != "openai" {
		t.Errorf("Embedder = %q, want openai", cfg.Embedder)
	}
}

func TestLoadMembrainConfigEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "membrain.yaml")
	if err := os.WriteFile(path, []byte("cache_capacity: 500\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("MEMBRAIN_CACHE_CAPACITY", "42")

	cfg, err := LoadMembrainConfig(path)
	if err != nil {
		t.Fatalf("LoadMembrainConfig: %v", err)
	}
	if cfg.CacheCapacity != 42 {
		t.Errorf("CacheCapacity = %d, want env override 42", cfg.CacheCapacity)
	}
}

func TestLoadMembrainConfigSnapshotPathEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "membrain.yaml")
	if err := os.WriteFile(path, []byte("db_path: /tmp/db\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("MEMBRAIN_SNAPSHOT_PATH", "/tmp/cache-snapshot.db")

	cfg, err := LoadMembrainConfig(path)
	if err != nil {
		t.Fatalf("LoadMembrainConfig: %v", err)
	}
	if cfg.SnapshotPath != "/tmp/cache-snapshot.db" {
		t.Errorf("SnapshotPath = %q, want /tmp/cache-snapshot.db", cfg.SnapshotPath)
	}
}

func TestDefaultMembrainDBPathRespectsEnv(t *testing.T) {
	t.Setenv("MEMBRAIN_DB_PATH", "/tmp/custom-membrain-db")
	if got := DefaultMembrainDBPath(); got != "/tmp/custom-membrain-db" {
		t.Errorf("DefaultMembrainDBPath() = %q, want /tmp/custom-membrain-db", got)
	}
}

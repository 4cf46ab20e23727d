package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadCreatesDefaults(t *testing.T) {
	dir := useTempHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("Load mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); err != nil {
		t.Fatalf("defaults were not persisted: %v", err)
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	dir := useTempHome(t)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"keepalive":"250ms"}`), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.KeepaliveDuration(); got != 250*time.Millisecond {
		t.Fatalf("KeepaliveDuration = %v", got)
	}
	if cfg.DuckDB.MemoryLimit != "2GB" || cfg.Results.MaxRows != 1000 {
		t.Fatalf("missing keys lost their defaults: %+v", cfg)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := useTempHome(t)
	os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{`), 0600)
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	useTempHome(t)
	t.Setenv("ORBITALDB_LOG_LEVEL", "debug")
	t.Setenv("ORBITALDB_KEEPALIVE", "3s")
	t.Setenv("ORBITALDB_MEMORY_LIMIT", "512MB")
	t.Setenv("ORBITALDB_THREADS", "8")
	t.Setenv("ORBITALDB_RESULT_LIMIT", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.KeepaliveDuration() != 3*time.Second ||
		cfg.DuckDB.MemoryLimit != "512MB" || cfg.DuckDB.Threads != 8 || cfg.Results.MaxRows != 50 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestEnvOverrideRejectsBadValues(t *testing.T) {
	useTempHome(t)
	t.Setenv("ORBITALDB_THREADS", "many")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric ORBITALDB_THREADS")
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := Config{Keepalive: "soon", Results: ResultsConfig{MaxExecution: "-1s"}}
	if got := cfg.KeepaliveDuration(); got != time.Second {
		t.Fatalf("KeepaliveDuration = %v, want 1s", got)
	}
	if got := cfg.Results.MaxExecutionDuration(); got != 30*time.Second {
		t.Fatalf("MaxExecutionDuration = %v, want 30s", got)
	}
}

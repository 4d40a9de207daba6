package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:9090"
  rate_limit: 5
cache:
  ttl: 5m
log:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != "127.0.0.1:9090" || cfg.Server.RateLimit != 5 {
		t.Fatalf("server: %+v", cfg.Server)
	}
	if cfg.Cache.TTL != 5*time.Minute || cfg.Cache.ProducerTimeout != 10*time.Second {
		t.Fatalf("cache: %+v", cfg.Cache)
	}
	if cfg.Store.Path != "college-api.bbolt" || cfg.Log.Level != "debug" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
cache:
  ttl: 0s
log:
  level: chatty
`)
	_, err := Load(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 2 {
		t.Fatalf("fields: %v", verr.Fields)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvConfigPath, writeConfig(t, "store:\n  path: from-file.bbolt\n"))
	t.Setenv(EnvAddr, ":7070")
	t.Setenv(EnvLogPath, "-")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":7070" || cfg.Store.Path != "from-file.bbolt" || cfg.Log.Path != "-" {
		t.Fatalf("got %+v", cfg)
	}
}

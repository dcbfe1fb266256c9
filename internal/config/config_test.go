package config

import (
	"os"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("GATEKEEPERD_STORE__DSN", "postgres://localhost/gatekeeper")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Cache.ConnectTTLMs != 60000 {
		t.Errorf("ConnectTTLMs = %d, want 60000", cfg.Cache.ConnectTTLMs)
	}
	if cfg.AdminPrefix != "admin/" {
		t.Errorf("AdminPrefix = %q, want admin/", cfg.AdminPrefix)
	}
	if cfg.Store.DSN != "postgres://localhost/gatekeeper" {
		t.Errorf("Store.DSN = %q", cfg.Store.DSN)
	}
}

func TestLoadMissingDSNFailsValidation(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for missing store.dsn")
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("GATEKEEPERD_STORE__DSN", "postgres://localhost/gatekeeper")
	t.Setenv("GATEKEEPERD_CACHE__CAPACITY", "500")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.Capacity != 500 {
		t.Errorf("Cache.Capacity = %d, want 500 (env override)", cfg.Cache.Capacity)
	}
}

func TestDurationHelpers(t *testing.T) {
	t.Setenv("GATEKEEPERD_STORE__DSN", "postgres://localhost/gatekeeper")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ConnectTTL().Seconds() != 60 {
		t.Errorf("ConnectTTL = %v, want 60s", cfg.ConnectTTL())
	}
	if cfg.DenyTTL().Seconds() != 5 {
		t.Errorf("DenyTTL = %v, want 5s", cfg.DenyTTL())
	}
	if cfg.EndpointDeadline().Seconds() != 5 {
		t.Errorf("EndpointDeadline = %v, want 5s", cfg.EndpointDeadline())
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	t.Setenv("GATEKEEPERD_STORE__DSN", "postgres://localhost/gatekeeper")

	f, err := os.CreateTemp(t.TempDir(), "gatekeeperd-*.yaml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer f.Close()

	if _, err := f.WriteString("admin_prefix: sys/admin/\ncache:\n  capacity: 2048\n"); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	cfg, err := Load(f.Name())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AdminPrefix != "sys/admin/" {
		t.Errorf("AdminPrefix = %q, want sys/admin/", cfg.AdminPrefix)
	}
	if cfg.Cache.Capacity != 2048 {
		t.Errorf("Cache.Capacity = %d, want 2048", cfg.Cache.Capacity)
	}
}

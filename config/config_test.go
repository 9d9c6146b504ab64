package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	c := Default()
	if c.SignatureWindow().Seconds() != 1800 {
		t.Errorf("got signature window %v, want 1800s", c.SignatureWindow())
	}
	if c.IdempotencyTTL().Hours() != 24 {
		t.Errorf("got idempotency TTL %v, want 24h", c.IdempotencyTTL())
	}
	if c.CollectionSection.DefaultPageSize != 30 {
		t.Errorf("got default page size %d, want 30", c.CollectionSection.DefaultPageSize)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	c := Default()
	c.ServerSection.Host = "example.com"
	c.ServerSection.Scheme = "https"
	c.IdempotencySection.KeyPrefix = "myapp"

	path := filepath.Join(t.TempDir(), "fedicore.ini")
	if err := Save(c, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to exist: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.ServerSection.Host != "example.com" {
		t.Errorf("got host %q, want %q", loaded.ServerSection.Host, "example.com")
	}
	if loaded.IdempotencySection.KeyPrefix != "myapp" {
		t.Errorf("got key prefix %q, want %q", loaded.IdempotencySection.KeyPrefix, "myapp")
	}
}

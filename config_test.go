package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file must yield defaults: %v", err)
	}
	if cfg.Backend != "local" || cfg.StoragePath != "library.db" || cfg.ModuleAddress != "0x1" {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book-vault.yaml")
	data := []byte("backend: ledger\nstorage_path: /tmp/books.db\nlibrary_address: \"0xabc\"\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != "ledger" || cfg.StoragePath != "/tmp/books.db" || cfg.LibraryAddress != "0xabc" {
		t.Fatalf("overrides: %+v", cfg)
	}
	// Unset fields keep defaults.
	if cfg.KeystorePath != "wallet.json" || cfg.Network != "simnet" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book-vault.yaml")
	if err := os.WriteFile(path, []byte("backend: cloud\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Fatal("unknown backend must be rejected")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := &Config{Principal: "abcde-fghij", NoCache: true}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Principal != "abcde-fghij" {
		t.Errorf("Principal = %q, want %q", loaded.Principal, "abcde-fghij")
	}
	if !loaded.NoCache {
		t.Error("NoCache did not round-trip")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestCachingDisabled(t *testing.T) {
	cfg := &Config{}
	if cfg.CachingDisabled() {
		t.Error("caching should be enabled by default")
	}

	cfg.NoCache = true
	if !cfg.CachingDisabled() {
		t.Error("NoCache should disable caching")
	}

	cfg.NoCache = false
	old := ClientCaching
	ClientCaching = "disabled"
	defer func() { ClientCaching = old }()
	if !cfg.CachingDisabled() {
		t.Error("build flag should disable caching")
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	if cfg.Backend.URL != DefaultBackendURL {
		t.Errorf("Backend.URL = %q, want %q", cfg.Backend.URL, DefaultBackendURL)
	}
	if cfg.Cache.Backend != "file" {
		t.Errorf("Cache.Backend = %q, want file", cfg.Cache.Backend)
	}
	if cfg.Dev.Listen != DefaultListen {
		t.Errorf("Dev.Listen = %q, want %q", cfg.Dev.Listen, DefaultListen)
	}
	if cfg.Dev.Blob.Backend != "disk" {
		t.Errorf("Dev.Blob.Backend = %q, want disk", cfg.Dev.Blob.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.URL != DefaultBackendURL {
		t.Errorf("Backend.URL = %q, want default", cfg.Backend.URL)
	}
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	raw := `{
  "username": "alice",
  "backend": {"url": "https://api.example.com"},
  "cache": {"backend": "redis", "redisAddr": "localhost:6379"}
}`
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Username != "alice" {
		t.Errorf("Username = %q, want alice", cfg.Username)
	}
	if cfg.Backend.URL != "https://api.example.com" {
		t.Errorf("Backend.URL = %q", cfg.Backend.URL)
	}
	if cfg.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("Cache.RedisAddr = %q", cfg.Cache.RedisAddr)
	}
	// Sections the file omits keep their defaults.
	if cfg.Dev.Listen != DefaultListen {
		t.Errorf("Dev.Listen = %q, want default", cfg.Dev.Listen)
	}
}

func TestLoadFileRejectsInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected an error for invalid JSON")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"UnknownCacheBackend", func(c *Config) { c.Cache.Backend = "etcd" }, "unknown cache backend"},
		{"SqliteWithoutDSN", func(c *Config) { c.Cache.Backend = "sqlite"; c.Cache.DSN = "" }, "requires dsn"},
		{"RedisWithoutAddr", func(c *Config) { c.Cache.Backend = "redis" }, "requires redisAddr"},
		{"S3WithoutBucket", func(c *Config) { c.Dev.Blob.Backend = "s3" }, "requires bucket"},
		{"UnknownBlobBackend", func(c *Config) { c.Dev.Blob.Backend = "ftp" }, "unknown blob backend"},
		{"NegativeTTL", func(c *Config) { c.Dev.TokenTTLSeconds = -1 }, "must not be negative"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := New()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tc.wantErr)
			}
		})
	}

	t.Run("SqliteWithDSN", func(t *testing.T) {
		cfg := New()
		cfg.Cache.Backend = "sqlite"
		cfg.Cache.DSN = "likes.db"
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate = %v, want nil", err)
		}
	})
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := New()
	cfg.Username = "bob"
	cfg.Backend.URL = "https://api.example.com"

	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after Save failed: %v", err)
	}
	if loaded.Username != "bob" || loaded.Backend.URL != "https://api.example.com" {
		t.Errorf("round trip lost values: %+v", loaded)
	}
	if loaded.Path() != filepath.Join(dir, ConfigFileName) {
		t.Errorf("Path = %q", loaded.Path())
	}
}

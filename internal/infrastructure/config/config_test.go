package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromFile_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config should not error: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("default addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Auth.TokenTTL != 30*time.Minute {
		t.Fatalf("default token ttl = %v", cfg.Auth.TokenTTL)
	}
	if cfg.Upload.MaxBytes != 20<<20 {
		t.Fatalf("default upload limit = %d", cfg.Upload.MaxBytes)
	}
	if cfg.Forecast.DefaultMethod != "trend_seasonal" {
		t.Fatalf("default method = %q", cfg.Forecast.DefaultMethod)
	}
}

func TestLoadFromFile_YAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
http:
  addr: ":9090"
upload:
  preview_rows: 8
forecast:
  default_method: linear
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("AUTH_SECRET", "env-secret")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 環境變數優先於 YAML。
	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("addr = %q, want :7070", cfg.HTTP.Addr)
	}
	if cfg.Auth.Secret != "env-secret" {
		t.Fatalf("secret = %q", cfg.Auth.Secret)
	}
	if cfg.Auth.TokenTTL != 30*time.Minute {
		t.Fatalf("token ttl = %v", cfg.Auth.TokenTTL)
	}
	if cfg.Upload.PreviewRows != 8 {
		t.Fatalf("preview rows = %d", cfg.Upload.PreviewRows)
	}
	if cfg.Forecast.DefaultMethod != "linear" {
		t.Fatalf("method = %q", cfg.Forecast.DefaultMethod)
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("http: ["), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

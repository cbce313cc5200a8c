package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.StorageType != "local" || cfg.SpacingMode != "fit" || cfg.FontFamily != "Helvetica" {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
	if cfg.MaxConcurrentConversions <= 0 || cfg.WorkerCount <= 0 {
		t.Errorf("Expected positive concurrency defaults, got %d/%d", cfg.WorkerCount, cfg.MaxConcurrentConversions)
	}
	if diff := cmp.Diff([]string{"*"}, cfg.AllowedOrigins); diff != "" {
		t.Errorf("AllowedOrigins mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("MAX_CONCURRENT_CONVERSIONS", "3")
	t.Setenv("DEFAULT_TIMEOUT", "90s")
	t.Setenv("COMPRESSION", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("SPACING_MODE", "legacy")
	t.Setenv("DB_DRIVER", "sqlite3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"ServerPort", cfg.ServerPort, "9090"},
		{"WorkerCount", cfg.WorkerCount, 8},
		{"MaxConcurrentConversions", cfg.MaxConcurrentConversions, int64(3)},
		{"DefaultTimeout", cfg.DefaultTimeout, 90 * time.Second},
		{"Compression", cfg.Compression, true},
		{"AllowedOrigins", cfg.AllowedOrigins, []string{"https://a.example", "https://b.example"}},
		{"SpacingMode", cfg.SpacingMode, "legacy"},
		{"DBDriver", cfg.DBDriver, "sqlite3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.got); diff != "" {
				t.Errorf("%s mismatch (-want +got):\n%s", tt.name, diff)
			}
		})
	}
}

func TestLoad_InvalidNumbersKeepDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("WORKER_COUNT", "many")
	t.Setenv("DEFAULT_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WorkerCount != Defaults().WorkerCount {
		t.Errorf("Expected default worker count, got %d", cfg.WorkerCount)
	}
	if cfg.DefaultTimeout != Defaults().DefaultTimeout {
		t.Errorf("Expected default timeout, got %v", cfg.DefaultTimeout)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := []byte(`
server_port: "7000"
storage_type: s3
s3_bucket: pdfs
spacing_mode: legacy
default_timeout: 2m
allowed_origins:
  - https://app.example
`)
	if err := os.WriteFile(path, doc, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "7001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != "7001" {
		t.Errorf("Expected environment to override file, got %q", cfg.ServerPort)
	}
	if cfg.StorageType != "s3" || cfg.S3Bucket != "pdfs" || cfg.SpacingMode != "legacy" {
		t.Errorf("Expected file values, got %+v", cfg)
	}
	if cfg.DefaultTimeout != 2*time.Minute {
		t.Errorf("Expected 2m timeout, got %v", cfg.DefaultTimeout)
	}
	if diff := cmp.Diff([]string{"https://app.example"}, cfg.AllowedOrigins); diff != "" {
		t.Errorf("AllowedOrigins mismatch (-want +got):\n%s", diff)
	}
	if cfg.FontFamily != "Helvetica" {
		t.Errorf("Expected untouched default font, got %q", cfg.FontFamily)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := Load(); err == nil {
		t.Error("Expected error for missing config file")
	}
}

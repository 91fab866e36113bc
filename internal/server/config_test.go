package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mixmodel/spend-allocator/pkg/constants"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Address != constants.DefaultServerAddress {
		t.Fatalf("expected default address, got %s", cfg.Address)
	}
	if cfg.UploadSizeBytes() != constants.DefaultMaxUploadSizeBytes {
		t.Fatalf("expected default max upload size, got %d", cfg.UploadSizeBytes())
	}
	if cfg.Logging.Level != "" || cfg.Logging.Format != "" || cfg.Logging.OutputFile != "" {
		t.Fatalf("expected empty logging defaults, got %+v", cfg.Logging)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server-config.yaml")

	contents := []byte(`address: 127.0.0.1:9100
maxUploadSize: 1M
logging:
  level: debug
  format: console
  outputFile: /tmp/allocator.log
`)
	if err := os.WriteFile(path, contents, 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Address != "127.0.0.1:9100" {
		t.Fatalf("expected address override, got %s", cfg.Address)
	}
	if cfg.UploadSizeBytes() != 1024*1024 {
		t.Fatalf("expected max upload override, got %d", cfg.UploadSizeBytes())
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected logging level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.OutputFile != "/tmp/allocator.log" {
		t.Fatalf("expected logging outputFile /tmp/allocator.log, got %s", cfg.Logging.OutputFile)
	}
}

func TestLoadConfigInvalidSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")

	if err := os.WriteFile(path, []byte("maxUploadSize: invalid"), 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for invalid upload size but got nil")
	}
}

func TestParseSize(t *testing.T) {
	tests := map[string]int64{
		"":        constants.DefaultMaxUploadSizeBytes,
		"2048":    2048,
		"512b":    512,
		"128K":    128 * 1024,
		"1m":      1024 * 1024,
		"2MB":     2 * 1024 * 1024,
		"1G":      1024 * 1024 * 1024,
		"  512  ": 512,
	}

	for input, expected := range tests {
		got, err := ParseSize(input)
		if err != nil {
			t.Fatalf("ParseSize(%q) returned error: %v", input, err)
		}
		if got != expected {
			t.Fatalf("ParseSize(%q) = %d, expected %d", input, got, expected)
		}
	}

	if _, err := ParseSize("1TB"); err == nil {
		t.Fatal("expected error for unsupported unit")
	}
	if _, err := ParseSize("abc"); err == nil {
		t.Fatal("expected error for invalid number")
	}
}

func TestSetUploadSizeBytes(t *testing.T) {
	cfg := &Config{}
	cfg.SetUploadSizeBytes(4096)

	if cfg.UploadSizeBytes() != 4096 {
		t.Fatalf("expected 4096 bytes, got %d", cfg.UploadSizeBytes())
	}
	if cfg.MaxUploadSize != "4096" {
		t.Fatalf("expected MaxUploadSize string to track override, got %q", cfg.MaxUploadSize)
	}

	// Non-positive overrides are ignored.
	cfg.SetUploadSizeBytes(0)
	if cfg.UploadSizeBytes() != 4096 {
		t.Fatalf("expected override to stick, got %d", cfg.UploadSizeBytes())
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadUsesRoutingDefaults(t *testing.T) {
	t.Setenv("CONCIERGE_CONFIG_FILE", "")
	t.Setenv("ROUTER_CONFIDENCE_THRESHOLD", "")
	t.Setenv("STREAM_CHUNK_CHARS", "")
	t.Setenv("SESSION_BACKEND", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RouterConfidenceThreshold != 0.7 {
		t.Fatalf("expected default confidence threshold 0.7, got %v", cfg.RouterConfidenceThreshold)
	}
	if cfg.StreamChunkChars != 120 {
		t.Fatalf("expected default chunk chars 120, got %d", cfg.StreamChunkChars)
	}
	if cfg.SessionBackend != "memory" {
		t.Fatalf("expected default session backend memory, got %q", cfg.SessionBackend)
	}
}

func TestLoadAppliesYAMLFileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "concierge.yaml")
	body := []byte("api_port: \"9000\"\nsession_backend: postgres\nstream_chunk_chars: 60\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONCIERGE_CONFIG_FILE", path)
	t.Setenv("STREAM_CHUNK_CHARS", "90")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "9000" {
		t.Fatalf("expected yaml api port 9000, got %q", cfg.APIPort)
	}
	if cfg.SessionBackend != "postgres" {
		t.Fatalf("expected yaml session backend postgres, got %q", cfg.SessionBackend)
	}
	// Env wins over the file.
	if cfg.StreamChunkChars != 90 {
		t.Fatalf("expected env chunk chars 90, got %d", cfg.StreamChunkChars)
	}
}

func TestLoadFailsOnMalformedConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(path, []byte("api_port: [\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONCIERGE_CONFIG_FILE", path)
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for malformed config file")
	}
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"codenerd/internal/config"
)

func TestLoadDefaultsWhenNoFileOrEnv(t *testing.T) {
	cfg, err := config.Load(t.TempDir(), config.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxFixLines != 50 {
		t.Fatalf("got MaxFixLines %d, want 50", cfg.MaxFixLines)
	}
	if cfg.MemoryFile != ".aura-memory.json" {
		t.Fatalf("got MemoryFile %q", cfg.MemoryFile)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "aura.yaml"), []byte("provider: genai\nmax_fix_lines: 80\n"), 0o644)

	cfg, err := config.Load(dir, config.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider != "genai" {
		t.Fatalf("got provider %q, want genai", cfg.Provider)
	}
	if cfg.MaxFixLines != 80 {
		t.Fatalf("got MaxFixLines %d, want 80", cfg.MaxFixLines)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "aura.yaml"), []byte("provider: genai\n"), 0o644)
	t.Setenv("AURA_PROVIDER", "openai_compat")

	cfg, err := config.Load(dir, config.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider != "openai_compat" {
		t.Fatalf("got provider %q, want env override openai_compat", cfg.Provider)
	}
}

func TestOverridesWinOverEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "aura.yaml"), []byte("provider: genai\n"), 0o644)
	t.Setenv("AURA_PROVIDER", "openai_compat")

	cfg, err := config.Load(dir, config.Config{Provider: "mock"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider != "mock" {
		t.Fatalf("got provider %q, want explicit override mock", cfg.Provider)
	}
}

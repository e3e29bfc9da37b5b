package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoader_DefaultsOnly(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("expected default log level info, got %q", cfg.Log.Level)
	}
	if cfg.Model.Provider != "anthropic" {
		t.Fatalf("expected default provider anthropic, got %q", cfg.Model.Provider)
	}
	if cfg.FileAccess.MaxFilesPerTurn != 10 {
		t.Fatalf("expected default max_files_per_turn 10, got %d", cfg.FileAccess.MaxFilesPerTurn)
	}
}

func TestLoader_ProjectConfigOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	teamDir := filepath.Join(tmpDir, ".team")
	if err := os.MkdirAll(teamDir, 0o750); err != nil {
		t.Fatalf("MkdirAll error: %v", err)
	}
	content := "log:\n  level: debug\nmodel:\n  provider: openai\n  model: gpt-5.3\n"
	if err := os.WriteFile(filepath.Join(teamDir, "config.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected log level debug, got %q", cfg.Log.Level)
	}
	if cfg.Model.Provider != "openai" {
		t.Fatalf("expected provider openai, got %q", cfg.Model.Provider)
	}
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	t.Setenv("QUORUM_MODEL_PROVIDER", "ollama")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Model.Provider != "ollama" {
		t.Fatalf("expected env override provider ollama, got %q", cfg.Model.Provider)
	}
}

func TestValidate_RejectsUnknownProvider(t *testing.T) {
	cfg := &Config{Model: ModelDefaults{Provider: "bogus"}, FileAccess: FileAccessConfig{MaxFileSizeBytes: 1}}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unrecognized provider")
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd error: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir error: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

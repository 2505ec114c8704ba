package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Port)
	}
	if cfg.RunPollInterval.Milliseconds() != 2000 {
		t.Fatalf("expected default poll interval 2000ms, got %v", cfg.RunPollInterval)
	}
}

func TestLoadPersona(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.json")
	content := `{
		"name": "Test",
		"model": "gpt-4o",
		"systemPrompt": "You are a test companion."
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write persona: %v", err)
	}

	p, err := LoadPersona(path)
	if err != nil {
		t.Fatalf("LoadPersona: %v", err)
	}
	if p.Target != "chat" {
		t.Fatalf("expected default target chat, got %q", p.Target)
	}
}

func TestLoadPersonaValidation(t *testing.T) {
	dir := t.TempDir()

	noModel := filepath.Join(dir, "no-model.json")
	os.WriteFile(noModel, []byte(`{"systemPrompt": "x"}`), 0o644)
	if _, err := LoadPersona(noModel); err == nil {
		t.Fatalf("expected error for missing model")
	}

	noPrompt := filepath.Join(dir, "no-prompt.json")
	os.WriteFile(noPrompt, []byte(`{"model": "gpt-4o"}`), 0o644)
	if _, err := LoadPersona(noPrompt); err == nil {
		t.Fatalf("expected error for missing systemPrompt")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if cfg.Hotkey.Key != "k" {
		t.Fatalf("expected default hotkey, got %q", cfg.Hotkey.Key)
	}
	if cfg.Dispatch.MaxChars != 144 {
		t.Fatalf("expected chatbox limit 144, got %d", cfg.Dispatch.MaxChars)
	}
	if cfg.Capture.MinDurationMS != 500 {
		t.Fatalf("expected min capture duration 500ms, got %d", cfg.Capture.MinDurationMS)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vrct.yaml")
	data := []byte(`
hotkey:
  key: v
translate:
  source_language: en
  target_languages: [ja, ko]
dispatch:
  max_chars: 100
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Hotkey.Key != "v" {
		t.Fatalf("expected hotkey v, got %q", cfg.Hotkey.Key)
	}
	if len(cfg.Translate.TargetLanguages) != 2 || cfg.Translate.TargetLanguages[0] != "ja" {
		t.Fatalf("unexpected target languages: %v", cfg.Translate.TargetLanguages)
	}
	if cfg.Dispatch.MaxChars != 100 {
		t.Fatalf("expected max chars override, got %d", cfg.Dispatch.MaxChars)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VRCT_HOTKEY", "m")
	t.Setenv("VRCT_SOURCE_LANGUAGE", "en")
	t.Setenv("VRCT_TARGET_LANGUAGES", "ja, ko")
	t.Setenv("VRCT_OSC_HOST", "10.0.0.5")
	t.Setenv("VRCT_OSC_PORT", "9100")
	t.Setenv("VRCT_REFINE_STRICT", "true")
	t.Setenv("VRCT_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("VRCT_CAPTURE_MIN_DURATION_MS", "250")
	t.Setenv("VRCT_TRANSLATE_API_KEY", "sk-test")
	t.Setenv("VRCT_SESSION_STORE_RETENTION_MODE", "persistent")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Hotkey.Key != "m" {
		t.Fatalf("expected hotkey override")
	}
	if cfg.Translate.SourceLanguage != "en" {
		t.Fatalf("expected source language override")
	}
	if len(cfg.Translate.TargetLanguages) != 2 {
		t.Fatalf("expected 2 target languages, got %v", cfg.Translate.TargetLanguages)
	}
	if cfg.Dispatch.Host != "10.0.0.5" || cfg.Dispatch.Port != 9100 {
		t.Fatalf("expected osc endpoint override")
	}
	if !cfg.Refine.Strict {
		t.Fatalf("expected strict refinement override")
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Fatalf("expected retry override, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Capture.MinDurationMS != 250 {
		t.Fatalf("expected min duration override, got %d", cfg.Capture.MinDurationMS)
	}
	if cfg.Translate.APIKey != "sk-test" {
		t.Fatalf("expected api key override")
	}
	if cfg.SessionStore.RetentionMode != "persistent" {
		t.Fatalf("expected retention mode override")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty hotkey", func(c *Config) { c.Hotkey.Key = "" }},
		{"bad capture mode", func(c *Config) { c.Capture.Mode = "portaudio" }},
		{"max below min duration", func(c *Config) { c.Capture.MaxDurationMS = 100 }},
		{"exec without command", func(c *Config) { c.Transcribe.Mode = "exec" }},
		{"openai without key", func(c *Config) { c.Translate.Mode = "openai" }},
		{"no targets", func(c *Config) { c.Translate.TargetLanguages = nil }},
		{"zero max chars", func(c *Config) { c.Dispatch.MaxChars = 0 }},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"backoff inverted", func(c *Config) { c.Retry.MaxBackoffMS = 1 }},
		{"bad retention", func(c *Config) { c.SessionStore.RetentionMode = "forever" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := validate(cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

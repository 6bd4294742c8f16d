package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderGoogle {
		t.Errorf("expected default provider %q, got %q", ProviderGoogle, cfg.Provider)
	}
	if cfg.Model != "gemini-2.5-flash" {
		t.Errorf("expected default model gemini-2.5-flash, got %q", cfg.Model)
	}
	if cfg.Renderer.Kind != RendererKroki || cfg.Renderer.URL != DefaultKrokiURL {
		t.Errorf("unexpected renderer defaults: %+v", cfg.Renderer)
	}
	if cfg.MaxFixAttempts != 5 {
		t.Errorf("expected default max_fix_attempts 5, got %d", cfg.MaxFixAttempts)
	}
	if cfg.RequestTimeout != 120*time.Second {
		t.Errorf("expected default request_timeout 2m, got %s", cfg.RequestTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.sketchiq.yml")

	original := DefaultConfig()
	original.Provider = ProviderOpenAI
	original.Model = "gpt-4o"
	original.Language = "dot"
	original.Renderer.Kind = RendererGraphviz
	original.MaxFixAttempts = 3
	original.RequestTimeout = 45 * time.Second
	original.RateLimitRPM = 30
	original.Server.Port = 9090

	// Save.
	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Load back.
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Provider != original.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Provider, original.Provider)
	}
	if loaded.Model != original.Model {
		t.Errorf("model: got %q, want %q", loaded.Model, original.Model)
	}
	if loaded.Language != "dot" {
		t.Errorf("language: got %q, want dot", loaded.Language)
	}
	if loaded.Renderer.Kind != RendererGraphviz {
		t.Errorf("renderer.kind: got %q", loaded.Renderer.Kind)
	}
	if loaded.MaxFixAttempts != 3 {
		t.Errorf("max_fix_attempts: got %d, want 3", loaded.MaxFixAttempts)
	}
	if loaded.RequestTimeout != 45*time.Second {
		t.Errorf("request_timeout: got %s, want 45s", loaded.RequestTimeout)
	}
	if loaded.RateLimitRPM != 30 {
		t.Errorf("rate_limit_rpm: got %d, want 30", loaded.RateLimitRPM)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("server.port: got %d, want 9090", loaded.Server.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load with missing file should not error, got: %v", err)
	}
	if cfg.Provider != ProviderGoogle {
		t.Errorf("expected default provider, got %q", cfg.Provider)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".sketchiq.yml")
	content := "provider: anthropic\nmodel: claude-haiku-4-5-20251001\nrenderer:\n  kind: mmdc\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderAnthropic || cfg.Renderer.Kind != RendererMMDC {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Renderer.MMDCPath != "mmdc" {
		t.Errorf("mmdc_path default lost: %q", cfg.Renderer.MMDCPath)
	}
	if cfg.MaxFixAttempts != 5 {
		t.Errorf("max_fix_attempts default lost: %d", cfg.MaxFixAttempts)
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".sketchiq.yml")

	t.Setenv("SKETCHIQ_PROVIDER", "ollama")
	t.Setenv("SKETCHIQ_MAX_FIX_ATTEMPTS", "2")
	t.Setenv("SKETCHIQ_RENDERER_KIND", "graphviz")
	t.Setenv("SKETCHIQ_SERVER_PORT", "7000")
	t.Setenv("SKETCHIQ_REQUEST_TIMEOUT", "30s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderOllama {
		t.Errorf("provider: got %q, want ollama", cfg.Provider)
	}
	if cfg.MaxFixAttempts != 2 {
		t.Errorf("max_fix_attempts: got %d, want 2", cfg.MaxFixAttempts)
	}
	if cfg.Renderer.Kind != RendererGraphviz {
		t.Errorf("renderer.kind: got %q, want graphviz", cfg.Renderer.Kind)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("server.port: got %d, want 7000", cfg.Server.Port)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("request_timeout: got %s, want 30s", cfg.RequestTimeout)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"SKETCHIQ_MODEL":                    "model",
		"SKETCHIQ_DATA_DIR":                 "data_dir",
		"SKETCHIQ_RENDERER_URL":             "renderer.url",
		"SKETCHIQ_RENDERER_MMDC_PATH":       "renderer.mmdc_path",
		"SKETCHIQ_SERVER_ALLOW_ALL_ORIGINS": "server.allow_all_origins",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "valid defaults", modify: func(c *Config) {}, wantErr: false},
		{name: "empty provider", modify: func(c *Config) { c.Provider = "" }, wantErr: true},
		{name: "invalid provider", modify: func(c *Config) { c.Provider = "invalid" }, wantErr: true},
		{name: "empty model", modify: func(c *Config) { c.Model = "" }, wantErr: true},
		{name: "invalid language", modify: func(c *Config) { c.Language = "plantuml" }, wantErr: true},
		{name: "graphviz alias", modify: func(c *Config) { c.Language = "graphviz" }, wantErr: false},
		{name: "invalid renderer", modify: func(c *Config) { c.Renderer.Kind = "canvas" }, wantErr: true},
		{name: "kroki without url", modify: func(c *Config) { c.Renderer.URL = "" }, wantErr: true},
		{name: "mmdc without url", modify: func(c *Config) { c.Renderer.Kind = RendererMMDC; c.Renderer.URL = "" }, wantErr: false},
		{name: "empty data dir", modify: func(c *Config) { c.DataDir = "" }, wantErr: true},
		{name: "negative fix attempts", modify: func(c *Config) { c.MaxFixAttempts = -1 }, wantErr: true},
		{name: "negative timeout", modify: func(c *Config) { c.RequestTimeout = -time.Second }, wantErr: true},
		{name: "zero timeout", modify: func(c *Config) { c.RequestTimeout = 0 }, wantErr: false},
		{name: "negative rpm", modify: func(c *Config) { c.RateLimitRPM = -1 }, wantErr: true},
		{name: "bad port", modify: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPresetModel(t *testing.T) {
	if got := PresetModel(ProviderOpenAI); got != "gpt-4o-mini" {
		t.Errorf("PresetModel(openai) = %q", got)
	}
	if got := PresetModel("unknown"); got != "gemini-2.5-flash" {
		t.Errorf("PresetModel(unknown) = %q", got)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderGoogle, "GOOGLE_API_KEY"},
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderOpenRouter, "OPENROUTER_API_KEY"},
		{ProviderOllama, ""},
	}
	for _, tt := range tests {
		if got := APIKeyEnvVar(tt.provider); got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}

	t.Setenv("GOOGLE_API_KEY", "from-env")
	if got := DefaultConfig().EnvAPIKey(); got != "from-env" {
		t.Errorf("EnvAPIKey = %q", got)
	}
}

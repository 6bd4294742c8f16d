package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = ".sketchiq.yml"

const envPrefix = "SKETCHIQ_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (SKETCHIQ_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// SKETCHIQ_RENDERER_KIND -> renderer.kind, SKETCHIQ_MODEL -> model.
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps an environment variable name to a config key. Only the
// renderer and server sections are nested.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for _, section := range []string{"renderer_", "server_"} {
		if strings.HasPrefix(key, section) {
			return strings.TrimSuffix(section, "_") + "." + strings.TrimPrefix(key, section)
		}
	}
	return key
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderGoogle:     true,
	ProviderOpenAI:     true,
	ProviderAnthropic:  true,
	ProviderOllama:     true,
	ProviderOpenRouter: true,
	ProviderMiniMax:    true,
}

var validRenderers = map[RendererKind]bool{
	RendererKroki:    true,
	RendererMMDC:     true,
	RendererGraphviz: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of google, openai, anthropic, ollama, openrouter, minimax", c.Provider)
	}

	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	switch c.Language {
	case "", "mermaid", "dot", "graphviz":
	default:
		return fmt.Errorf("invalid language %q: must be mermaid or dot", c.Language)
	}

	if !validRenderers[c.Renderer.Kind] {
		return fmt.Errorf("invalid renderer.kind %q: must be one of kroki, mmdc, graphviz", c.Renderer.Kind)
	}
	if c.Renderer.Kind == RendererKroki && c.Renderer.URL == "" {
		return fmt.Errorf("renderer.url is required for kroki")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.MaxFixAttempts < 0 {
		return fmt.Errorf("max_fix_attempts must be non-negative")
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must be non-negative")
	}

	if c.RateLimitRPM < 0 {
		return fmt.Errorf("rate_limit_rpm must be non-negative")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGoogle:
		return "GOOGLE_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	case ProviderMiniMax:
		return "MINIMAX_API_KEY"
	default:
		return ""
	}
}

// EnvAPIKey returns the API key found in the provider's environment
// variable, or "".
func (c *Config) EnvAPIKey() string {
	if v := APIKeyEnvVar(c.Provider); v != "" {
		return os.Getenv(v)
	}
	return ""
}

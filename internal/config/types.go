package config

import "time"

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderGoogle     ProviderType = "google"
	ProviderOpenAI     ProviderType = "openai"
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOllama     ProviderType = "ollama"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderMiniMax    ProviderType = "minimax"
)

// RendererKind selects the rendering collaborator.
type RendererKind string

const (
	RendererKroki    RendererKind = "kroki"
	RendererMMDC     RendererKind = "mmdc"
	RendererGraphviz RendererKind = "graphviz"
)

// Config is the top-level sketchiq configuration, corresponding to .sketchiq.yml.
type Config struct {
	Provider       ProviderType   `yaml:"provider" koanf:"provider"`
	Model          string         `yaml:"model" koanf:"model"`
	BaseURL        string         `yaml:"base_url,omitempty" koanf:"base_url"`
	Language       string         `yaml:"language" koanf:"language"`
	Renderer       RendererConfig `yaml:"renderer" koanf:"renderer"`
	DataDir        string         `yaml:"data_dir" koanf:"data_dir"`
	MaxFixAttempts int            `yaml:"max_fix_attempts" koanf:"max_fix_attempts"`
	RequestTimeout time.Duration  `yaml:"request_timeout" koanf:"request_timeout"`
	RateLimitRPM   int            `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
	Server         ServerConfig   `yaml:"server" koanf:"server"`
}

// RendererConfig holds rendering collaborator settings.
type RendererConfig struct {
	Kind     RendererKind `yaml:"kind" koanf:"kind"`
	URL      string       `yaml:"url,omitempty" koanf:"url"`
	MMDCPath string       `yaml:"mmdc_path,omitempty" koanf:"mmdc_path"`
}

// ServerConfig holds settings for the HTTP dashboard.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

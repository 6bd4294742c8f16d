package config

import "time"

// DefaultKrokiURL is the public Kroki instance.
const DefaultKrokiURL = "https://kroki.io"

// providerPresets is the default model for each provider.
var providerPresets = map[ProviderType]string{
	ProviderGoogle:     "gemini-2.5-flash",
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderAnthropic:  "claude-haiku-4-5-20251001",
	ProviderOllama:     "llama3",
	ProviderOpenRouter: "google/gemini-2.5-flash",
	ProviderMiniMax:    "MiniMax-M2.5",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGoogle,
		Model:    providerPresets[ProviderGoogle],
		Language: "mermaid",
		Renderer: RendererConfig{
			Kind:     RendererKroki,
			URL:      DefaultKrokiURL,
			MMDCPath: "mmdc",
		},
		DataDir:        ".sketchiq",
		MaxFixAttempts: 5,
		RequestTimeout: 120 * time.Second,
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

// PresetModel returns the default model for provider, falling back to the
// Gemini default for unknown providers.
func PresetModel(provider ProviderType) string {
	if m, ok := providerPresets[provider]; ok {
		return m
	}
	return providerPresets[ProviderGoogle]
}

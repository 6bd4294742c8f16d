package llm

import (
	"fmt"
	"os"
)

// Options carries provider settings that do not come from the model name.
type Options struct {
	// APIKey is the construction-time key. When empty the provider's
	// conventional environment variable is consulted; requests may still
	// supply their own key.
	APIKey  string
	BaseURL string
}

// openAICompatible lists providers reached through the OpenAI client.
var openAICompatible = map[string]struct {
	baseURL string
	envVar  string
}{
	"openai":     {baseURL: "", envVar: "OPENAI_API_KEY"},
	"openrouter": {baseURL: "https://openrouter.ai/api/v1", envVar: "OPENROUTER_API_KEY"},
	"minimax":    {baseURL: "https://api.minimax.io/v1", envVar: "MINIMAX_API_KEY"},
}

// NewProvider creates a new LLM provider based on the given provider type and model.
// Supported provider types: "google", "openai", "openrouter", "minimax", "anthropic", "ollama".
func NewProvider(providerType string, model string, opts Options) (Provider, error) {
	switch providerType {
	case "google":
		return NewGoogleProvider(keyOrEnv(opts.APIKey, "GOOGLE_API_KEY"), model, opts.BaseURL), nil

	case "openai", "openrouter", "minimax":
		compat := openAICompatible[providerType]
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = compat.baseURL
		}
		return NewOpenAIProvider(providerType, keyOrEnv(opts.APIKey, compat.envVar), model, baseURL), nil

	case "anthropic":
		p := NewAnthropicProvider(keyOrEnv(opts.APIKey, "ANTHROPIC_API_KEY"), model)
		if opts.BaseURL != "" {
			p.endpoint = opts.BaseURL
		}
		return p, nil

	case "ollama":
		host := opts.BaseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaProvider(host, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

// RequiresAPIKey reports whether providerType needs a credential to be called.
func RequiresAPIKey(providerType string) bool {
	return providerType != "ollama"
}

func keyOrEnv(key, envVar string) string {
	if key != "" {
		return key
	}
	return os.Getenv(envVar)
}

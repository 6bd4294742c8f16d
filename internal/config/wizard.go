package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// WizardResult is what the init wizard collected.
type WizardResult struct {
	Config *Config
	// Credential is the API key typed by the user, if any. It is stored in
	// the session database, never in the config file.
	Credential string
}

// RunWizard runs an interactive configuration wizard and saves the
// resulting Config to path.
func RunWizard(path string) (*WizardResult, error) {
	fmt.Println("Welcome to sketchiq! Let's set up diagram generation.")
	fmt.Println()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"google", "openai", "anthropic", "ollama", "openrouter", "minimax"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	provider := ProviderType(providerStr)

	// 2. Model.
	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: PresetModel(provider),
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 3. Diagram language.
	languagePrompt := promptui.Select{
		Label: "Diagram language",
		Items: []string{"mermaid", "dot"},
	}
	_, language, err := languagePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("language selection: %w", err)
	}

	// 4. Renderer.
	renderers := []string{"kroki", "mmdc"}
	if language == "dot" {
		renderers = []string{"graphviz", "kroki"}
	}
	rendererPrompt := promptui.Select{
		Label: "Renderer",
		Items: renderers,
	}
	_, kind, err := rendererPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("renderer selection: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Provider = provider
	cfg.Model = strings.TrimSpace(model)
	cfg.Language = language
	cfg.Renderer.Kind = RendererKind(kind)

	switch cfg.Renderer.Kind {
	case RendererKroki:
		urlPrompt := promptui.Prompt{
			Label:   "Kroki URL",
			Default: DefaultKrokiURL,
		}
		if cfg.Renderer.URL, err = urlPrompt.Run(); err != nil {
			return nil, fmt.Errorf("kroki url: %w", err)
		}
	case RendererMMDC:
		pathPrompt := promptui.Prompt{
			Label:   "Path to mmdc",
			Default: "mmdc",
		}
		if cfg.Renderer.MMDCPath, err = pathPrompt.Run(); err != nil {
			return nil, fmt.Errorf("mmdc path: %w", err)
		}
	}

	// 5. API key.
	result := &WizardResult{Config: cfg}
	if envVar := APIKeyEnvVar(provider); envVar != "" {
		keyPrompt := promptui.Prompt{
			Label: fmt.Sprintf("API key (leave blank to use %s)", envVar),
			Mask:  '*',
		}
		key, err := keyPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("api key: %w", err)
		}
		result.Credential = strings.TrimSpace(key)
		if result.Credential == "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s or run `sketchiq key set` before generating.\n", envVar)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return result, nil
}

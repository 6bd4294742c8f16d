package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ziadkadry99/sketchiq/internal/attempts"
	"github.com/ziadkadry99/sketchiq/internal/config"
	"github.com/ziadkadry99/sketchiq/internal/db"
	"github.com/ziadkadry99/sketchiq/internal/diagram"
	"github.com/ziadkadry99/sketchiq/internal/kv"
	"github.com/ziadkadry99/sketchiq/internal/llm"
	"github.com/ziadkadry99/sketchiq/internal/render"
	"github.com/ziadkadry99/sketchiq/internal/session"
	"github.com/ziadkadry99/sketchiq/internal/studio"
)

// workspace bundles what the commands share: config, the session
// database and, when built with openStudio, the controller.
type workspace struct {
	cfg   *config.Config
	db    *db.DB
	store *session.Store
	ctrl  *studio.Controller
}

func (w *workspace) Close() error { return w.db.Close() }

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `sketchiq init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// openSession opens the session database without building a provider or
// renderer. Settings commands use it.
func openSession(ctx context.Context) (*workspace, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openSessionWith(ctx, cfg)
}

func openSessionWith(ctx context.Context, cfg *config.Config) (*workspace, error) {
	dbPath := filepath.Join(cfg.DataDir, "sketchiq.db")
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := session.NewStore(kv.NewSQLStore(database))
	if err := store.Load(ctx); err != nil {
		database.Close()
		return nil, err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Session loaded from %s\n", dbPath)
	}
	return &workspace{cfg: cfg, db: database, store: store}, nil
}

// openStudio opens the session and builds a controller from config.
func openStudio(ctx context.Context) (*workspace, error) {
	w, err := openSession(ctx)
	if err != nil {
		return nil, err
	}
	cfg := w.cfg

	lang, err := diagram.ParseLanguage(cfg.Language)
	if err != nil {
		w.Close()
		return nil, err
	}

	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	renderer, err := render.New(render.Settings{
		Kind:     string(cfg.Renderer.Kind),
		URL:      cfg.Renderer.URL,
		MMDCPath: cfg.Renderer.MMDCPath,
		Language: lang,
	})
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("creating renderer: %w", err)
	}

	w.ctrl = studio.New(w.store, provider, renderer, studio.Options{
		Language:       lang,
		ProviderType:   string(cfg.Provider),
		Model:          cfg.Model,
		FallbackKey:    cfg.EnvAPIKey(),
		MaxFixAttempts: cfg.MaxFixAttempts,
		Timeout:        cfg.RequestTimeout,
	})
	w.ctrl.SetLedger(attempts.NewStore(w.db))

	if verbose {
		fmt.Fprintf(os.Stderr, "Provider: %s (%s), renderer: %s, language: %s\n",
			cfg.Provider, cfg.Model, renderer.Name(), lang.DisplayName())
	}
	return w, nil
}

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model, llm.Options{BaseURL: cfg.BaseURL})
	if err != nil {
		return nil, err
	}
	if cfg.RateLimitRPM > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.RateLimitRPM)
	}
	return provider, nil
}

package gemini

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/phrazzld/artisan-api/internal/config"
	"github.com/phrazzld/artisan-api/internal/generation"
	"github.com/phrazzld/artisan-api/internal/store"
)

// APIKeySetting is the settings key holding a user-supplied Gemini API key.
const APIKeySetting = "gemini_api_key"

// SettingsReader is the read side of store.SettingsStore.
type SettingsReader interface {
	Get(ctx context.Context, key string) (string, error)
}

// ConstructorFunc builds a generator for an API key.
type ConstructorFunc func(ctx context.Context, apiKey string) (generation.Generator, error)

// Provider holds at most one generator, rebuilt whenever the resolved API key changes.
type Provider struct {
	logger   *slog.Logger
	cfg      config.LLMConfig
	settings SettingsReader
	newGen   ConstructorFunc

	mu         sync.Mutex
	current    generation.Generator
	currentKey string
}

var _ generation.Resolver = (*Provider)(nil)

// NewProvider creates a Provider that builds real Gemini generators.
// settings may be nil, in which case only explicit and configured keys are used.
func NewProvider(logger *slog.Logger, cfg config.LLMConfig, settings SettingsReader) *Provider {
	p := &Provider{
		logger:   logger.With("component", "gemini_provider"),
		cfg:      cfg,
		settings: settings,
	}
	p.newGen = func(ctx context.Context, apiKey string) (generation.Generator, error) {
		return NewGeminiGenerator(ctx, logger, cfg, apiKey)
	}
	return p
}

// WithConstructor replaces the generator constructor.
func (p *Provider) WithConstructor(fn ConstructorFunc) *Provider {
	p.newGen = fn
	return p
}

// ResolveAPIKey returns the first non-empty key among explicit, the stored
// setting and the configured key.
func (p *Provider) ResolveAPIKey(ctx context.Context, explicit string) (string, error) {
	if key := strings.TrimSpace(explicit); key != "" {
		return key, nil
	}

	if p.settings != nil {
		stored, err := p.settings.Get(ctx, APIKeySetting)
		switch {
		case err == nil && strings.TrimSpace(stored) != "":
			return strings.TrimSpace(stored), nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			p.logger.WarnContext(ctx, "Failed to read stored API key, falling back to configuration",
				"error", err)
		}
	}

	if key := strings.TrimSpace(p.cfg.GeminiAPIKey); key != "" {
		return key, nil
	}

	return "", generation.ErrMissingAPIKey
}

// Get returns the cached generator when the resolved key is unchanged and
// builds a new one otherwise.
func (p *Provider) Get(ctx context.Context, explicitKey string) (generation.Generator, error) {
	key, err := p.ResolveAPIKey(ctx, explicitKey)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil && p.currentKey == key {
		return p.current, nil
	}

	gen, err := p.newGen(ctx, key)
	if err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "Created Gemini generator", "replaced", p.current != nil)
	p.current = gen
	p.currentKey = key
	return gen, nil
}

// Resolve implements generation.Resolver.
func (p *Provider) Resolve(ctx context.Context) (generation.Generator, error) {
	return p.Get(ctx, "")
}

// Reset drops the cached generator.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
	p.currentKey = ""
}

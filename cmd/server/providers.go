package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/artisan-api/internal/api"
	"github.com/phrazzld/artisan-api/internal/config"
	"github.com/phrazzld/artisan-api/internal/generation"
	"github.com/phrazzld/artisan-api/internal/platform/gemini"
	"github.com/phrazzld/artisan-api/internal/platform/openai"
)

// staticProvider serves a single generator built at start-up.
type staticProvider struct {
	gen generation.Generator
}

func (p staticProvider) Resolve(context.Context) (generation.Generator, error) {
	return p.gen, nil
}

func (staticProvider) Reset() {}

// newLLMProvider builds the provider selected by llm.provider. Gemini
// generators are created lazily so a key saved at runtime is picked up;
// the OpenAI-compatible client needs its key in configuration.
func newLLMProvider(cfg config.LLMConfig, settings gemini.SettingsReader, logger *slog.Logger) (api.LLMProvider, error) {
	switch cfg.Provider {
	case "gemini":
		return gemini.NewProvider(logger, cfg, settings), nil
	case "openai":
		gen, err := openai.NewGenerator(logger.With("component", "openai_generator"), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI generator: %w", err)
		}
		return staticProvider{gen: gen}, nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", generation.ErrInvalidConfig, cfg.Provider)
	}
}

// loadPromptTemplate returns the template at path, or the built-in default
// when path is empty.
func loadPromptTemplate(path string) (string, error) {
	if path == "" {
		return generation.DefaultPromptTemplate, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("prompt template file not found: %w", err)
		}
		return "", fmt.Errorf("failed to read prompt template: %w", err)
	}

	tmpl := strings.TrimSpace(string(data))
	if err := generation.ValidateTemplate(tmpl); err != nil {
		return "", err
	}
	return tmpl, nil
}

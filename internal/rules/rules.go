// Package rules stores the user's content rules and injects them into prompts.
package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/phrazzld/artisan-api/internal/domain"
	"github.com/phrazzld/artisan-api/internal/store"
)

// Settings keys
const (
	RulesKey   = "content_rules"
	EnabledKey = "content_rules_enabled"
)

const (
	rulesHeader = "Follow these content generation rules:"
	rulesFooter = "Make sure the generated content strictly follows the rules above."
)

// Service reads and writes content rules through a settings store.
type Service struct {
	settings store.SettingsStore
	logger   *slog.Logger
}

// NewService creates a rules Service.
func NewService(settings store.SettingsStore, logger *slog.Logger) (*Service, error) {
	if settings == nil {
		return nil, errors.New("settings store cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Service{settings: settings, logger: logger.With("component", "rules_service")}, nil
}

// Get returns the stored rules. A missing rule text yields the default
// block; rules are enabled unless the stored flag is exactly "false".
func (s *Service) Get(ctx context.Context) (domain.ContentRules, error) {
	rules := domain.DefaultRules()

	text, err := s.settings.Get(ctx, RulesKey)
	switch {
	case err == nil:
		rules.Rules = text
	case !store.IsNotFoundError(err):
		return domain.DefaultRules(), fmt.Errorf("failed to read content rules: %w", err)
	}

	enabled, err := s.settings.Get(ctx, EnabledKey)
	switch {
	case err == nil:
		rules.Enabled = enabled != "false"
	case !store.IsNotFoundError(err):
		return domain.DefaultRules(), fmt.Errorf("failed to read content rules flag: %w", err)
	}

	return rules, nil
}

// Save stores both the rule text and the enabled flag.
func (s *Service) Save(ctx context.Context, rules domain.ContentRules) error {
	if err := s.settings.Set(ctx, RulesKey, rules.Rules); err != nil {
		return fmt.Errorf("failed to save content rules: %w", err)
	}
	if err := s.settings.Set(ctx, EnabledKey, strconv.FormatBool(rules.Enabled)); err != nil {
		return fmt.Errorf("failed to save content rules flag: %w", err)
	}
	s.logger.InfoContext(ctx, "Content rules saved",
		"enabled", rules.Enabled,
		"rules_length", len(rules.Rules))
	return nil
}

// Reset restores the default rules.
func (s *Service) Reset(ctx context.Context) (domain.ContentRules, error) {
	defaults := domain.DefaultRules()
	if err := s.Save(ctx, defaults); err != nil {
		return domain.ContentRules{}, err
	}
	return defaults, nil
}

// Apply appends the enabled rules to basePrompt. Read failures fall back to
// the default rules so generation is never blocked by the settings store.
func (s *Service) Apply(ctx context.Context, basePrompt string) string {
	rules, err := s.Get(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Using default content rules", "error", err)
	}
	return Inject(basePrompt, rules)
}

// Inject appends rules to basePrompt, or returns it unchanged when the rules
// are disabled or blank.
func Inject(basePrompt string, rules domain.ContentRules) string {
	if !rules.Enabled || strings.TrimSpace(rules.Rules) == "" {
		return basePrompt
	}
	return basePrompt + "\n\n" + rulesHeader + "\n" + rules.Rules + "\n\n" + rulesFooter
}

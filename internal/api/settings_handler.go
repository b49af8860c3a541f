package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/artisan-api/internal/api/shared"
	"github.com/phrazzld/artisan-api/internal/domain"
	"github.com/phrazzld/artisan-api/internal/generation"
	"github.com/phrazzld/artisan-api/internal/platform/logger"
	"github.com/phrazzld/artisan-api/internal/store"
)

// connectionTestTimeout bounds POST /api/llm/test.
const connectionTestTimeout = 30 * time.Second

// RulesService reads and writes the content rules.
type RulesService interface {
	Get(ctx context.Context) (domain.ContentRules, error)
	Save(ctx context.Context, rules domain.ContentRules) error
	Reset(ctx context.Context) (domain.ContentRules, error)
}

// LLMProvider hands out the active generator. Reset drops any cached
// generator so a changed API key is picked up by the next Resolve.
type LLMProvider interface {
	generation.Resolver
	Reset()
}

// SettingsHandlerDeps holds the collaborators of SettingsHandler.
type SettingsHandlerDeps struct {
	Rules           RulesService
	Templates       store.TemplateStore
	DefaultTemplate string
	Settings        store.SettingsStore
	APIKeySetting   string
	Provider        LLMProvider
	Logger          *slog.Logger
}

// SettingsHandler serves rules, prompt template, API key and connection
// test routes.
type SettingsHandler struct {
	deps   SettingsHandlerDeps
	logger *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(deps SettingsHandlerDeps) *SettingsHandler {
	if deps.Rules == nil || deps.Templates == nil || deps.Settings == nil || deps.Provider == nil {
		panic("settings handler dependencies cannot be nil")
	}
	if deps.DefaultTemplate == "" {
		deps.DefaultTemplate = generation.DefaultPromptTemplate
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &SettingsHandler{deps: deps, logger: log.With("component", "settings_handler")}
}

// GetRules handles GET /api/rules.
func (h *SettingsHandler) GetRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.deps.Rules.Get(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load content rules")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, rules)
}

// SaveRules handles PUT /api/rules.
func (h *SettingsHandler) SaveRules(w http.ResponseWriter, r *http.Request) {
	var req RulesRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	rules := domain.ContentRules{Rules: req.Rules, Enabled: *req.Enabled}
	if err := h.deps.Rules.Save(r.Context(), rules); err != nil {
		HandleAPIError(w, r, err, "Failed to save content rules")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, rules)
}

// ResetRules handles DELETE /api/rules and returns the restored defaults.
func (h *SettingsHandler) ResetRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.deps.Rules.Reset(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to reset content rules")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, rules)
}

// GetPromptTemplate handles GET /api/prompt-template. The built-in
// template is returned when none has been stored.
func (h *SettingsHandler) GetPromptTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.deps.Templates.GetPromptTemplate(r.Context())
	switch {
	case errors.Is(err, store.ErrTemplateNotFound), err == nil && strings.TrimSpace(tmpl) == "":
		shared.RespondWithJSON(w, r, http.StatusOK, PromptTemplateResponse{
			Template:  h.deps.DefaultTemplate,
			IsDefault: true,
		})
	case err != nil:
		HandleAPIError(w, r, err, "Failed to load prompt template")
	default:
		shared.RespondWithJSON(w, r, http.StatusOK, PromptTemplateResponse{Template: tmpl})
	}
}

// SavePromptTemplate handles PUT /api/prompt-template.
func (h *SettingsHandler) SavePromptTemplate(w http.ResponseWriter, r *http.Request) {
	var req PromptTemplateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := generation.ValidateTemplate(req.Template); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.deps.Templates.SavePromptTemplate(r.Context(), req.Template); err != nil {
		HandleAPIError(w, r, err, "Failed to save prompt template")
		return
	}

	h.log(r).Info("prompt template updated", "length", len(req.Template))
	shared.RespondWithJSON(w, r, http.StatusOK, PromptTemplateResponse{Template: req.Template})
}

// SaveAPIKey handles PUT /api/settings/api-key. The cached generator is
// dropped so the next task uses the new key.
func (h *SettingsHandler) SaveAPIKey(w http.ResponseWriter, r *http.Request) {
	var req APIKeyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid APIKey: required field")
		return
	}

	if err := h.deps.Settings.Set(r.Context(), h.deps.APIKeySetting, key); err != nil {
		HandleAPIError(w, r, err, "Failed to save API key")
		return
	}
	h.deps.Provider.Reset()

	h.log(r).Info("API key updated")
	shared.RespondWithJSON(w, r, http.StatusOK, StatusResponse{Status: "ok"})
}

// TestConnection handles POST /api/llm/test.
func (h *SettingsHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), connectionTestTimeout)
	defer cancel()

	gen, err := h.deps.Provider.Resolve(ctx)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to initialize language model client")
		return
	}
	if err := gen.TestConnection(ctx); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err,
			shared.WithElevatedLogLevel())
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, StatusResponse{Status: "ok", Message: "Connection succeeded"})
}

func (h *SettingsHandler) log(r *http.Request) *slog.Logger {
	return logger.FromContextOrDefault(r.Context(), h.logger)
}

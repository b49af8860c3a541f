package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/artisan-api/internal/config"
	"github.com/phrazzld/artisan-api/internal/generation"
	"google.golang.org/genai"
)

const connectionTestPrompt = "Reply with the single word: ok"

// GeminiGenerator implements the generation.Generator interface using
// Google's Gemini API.
type GeminiGenerator struct {
	logger *slog.Logger
	client contentClient
	model  string
	policy generation.RetryPolicy
}

var _ generation.Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a GeminiGenerator that authenticates with apiKey.
// Model name and retry settings come from cfg.
func NewGeminiGenerator(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.LLMConfig,
	apiKey string,
) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, generation.ErrMissingAPIKey
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return newGenerator(logger, client.Models, cfg), nil
}

func newGenerator(logger *slog.Logger, client contentClient, cfg config.LLMConfig) *GeminiGenerator {
	return &GeminiGenerator{
		logger: logger.With("component", "gemini_generator", "model", cfg.ModelName),
		client: client,
		model:  cfg.ModelName,
		policy: generation.NewRetryPolicy(cfg.MaxRetries, cfg.RetryDelaySeconds),
	}
}

// Generate returns the complete text for prompt.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", generation.ErrEmptyPrompt
	}

	var text string
	err := generation.Retry(ctx, g.logger, g.policy, func(ctx context.Context) error {
		resp, err := g.client.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			return classifyError(err)
		}
		text, err = extractText(resp)
		return err
	})
	if err != nil {
		return "", err
	}

	g.logger.DebugContext(ctx, "Gemini generation finished", "response_length", len(text))
	return text, nil
}

// GenerateStream streams the response for prompt, calling onChunk with the
// accumulated text after every non-empty chunk. A retried attempt restarts
// the accumulation from empty.
func (g *GeminiGenerator) GenerateStream(
	ctx context.Context,
	prompt string,
	onChunk generation.ChunkFunc,
) (string, error) {
	if prompt == "" {
		return "", generation.ErrEmptyPrompt
	}

	var text string
	err := generation.Retry(ctx, g.logger, g.policy, func(ctx context.Context) error {
		var sb strings.Builder
		for resp, err := range g.client.GenerateContentStream(ctx, g.model, genai.Text(prompt), nil) {
			if err != nil {
				return classifyError(err)
			}
			if err := checkBlocked(resp); err != nil {
				return err
			}
			chunk := responseText(resp)
			if chunk == "" {
				continue
			}
			sb.WriteString(chunk)
			if onChunk != nil {
				onChunk(sb.String())
			}
		}
		if sb.Len() == 0 {
			return fmt.Errorf("%w: stream produced no content", generation.ErrInvalidResponse)
		}
		text = sb.String()
		return nil
	})
	if err != nil {
		return "", err
	}

	g.logger.DebugContext(ctx, "Gemini stream finished", "response_length", len(text))
	return text, nil
}

// TestConnection sends a tiny prompt without retries.
func (g *GeminiGenerator) TestConnection(ctx context.Context) error {
	resp, err := g.client.GenerateContent(ctx, g.model, genai.Text(connectionTestPrompt),
		&genai.GenerateContentConfig{MaxOutputTokens: 8})
	if err != nil {
		return classifyError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return fmt.Errorf("%w: no candidates returned", generation.ErrInvalidResponse)
	}
	return nil
}

// extractText validates a complete response and returns its text.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if err := checkBlocked(resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	if resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}
	return responseText(resp), nil
}

func checkBlocked(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return nil
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("%w: prompt blocked (%s)", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	return nil
}

// responseText concatenates the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// classifyError maps API errors onto generation sentinel errors. Client
// errors other than rate limiting are permanent; everything else is retried.
func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		case apiErr.Code >= http.StatusBadRequest:
			return fmt.Errorf("%w: %v", generation.ErrInvalidConfig, err)
		}
	}
	return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
}

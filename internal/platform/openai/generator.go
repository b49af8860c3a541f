package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/phrazzld/artisan-api/internal/config"
	"github.com/phrazzld/artisan-api/internal/generation"
)

const finishReasonContentFilter = "content_filter"

// Generator implements generation.Generator with chat completions.
type Generator struct {
	logger *slog.Logger
	client openaisdk.Client
	model  string
	policy generation.RetryPolicy
}

var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a Generator from cfg. The SDK's own retries are
// disabled so the shared retry policy is the only one in effect.
func NewGenerator(logger *slog.Logger, cfg config.LLMConfig, opts ...option.RequestOption) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return nil, generation.ErrMissingAPIKey
	}
	if cfg.OpenAIModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIAPIKey),
		option.WithMaxRetries(0),
	}
	if cfg.OpenAIBaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &Generator{
		logger: logger.With("component", "openai_generator", "model", cfg.OpenAIModelName),
		client: openaisdk.NewClient(reqOpts...),
		model:  cfg.OpenAIModelName,
		policy: generation.NewRetryPolicy(cfg.MaxRetries, cfg.RetryDelaySeconds),
	}, nil
}

func (g *Generator) params(prompt string) openaisdk.ChatCompletionNewParams {
	return openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(g.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(prompt),
		},
	}
}

// Generate returns the complete text for prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", generation.ErrEmptyPrompt
	}

	var text string
	err := generation.Retry(ctx, g.logger, g.policy, func(ctx context.Context) error {
		resp, err := g.client.Chat.Completions.New(ctx, g.params(prompt))
		if err != nil {
			return classifyError(err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("%w: empty choices", generation.ErrInvalidResponse)
		}
		if resp.Choices[0].FinishReason == finishReasonContentFilter {
			return fmt.Errorf("%w: content filtered", generation.ErrContentBlocked)
		}
		text = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// GenerateStream streams chat completion chunks, calling onChunk with the
// accumulated text after every non-empty delta.
func (g *Generator) GenerateStream(ctx context.Context, prompt string, onChunk generation.ChunkFunc) (string, error) {
	if prompt == "" {
		return "", generation.ErrEmptyPrompt
	}

	var text string
	err := generation.Retry(ctx, g.logger, g.policy, func(ctx context.Context) error {
		stream := g.client.Chat.Completions.NewStreaming(ctx, g.params(prompt))
		defer func() { _ = stream.Close() }()

		var sb strings.Builder
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if chunk.Choices[0].FinishReason == finishReasonContentFilter {
				return fmt.Errorf("%w: content filtered", generation.ErrContentBlocked)
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			sb.WriteString(delta)
			if onChunk != nil {
				onChunk(sb.String())
			}
		}
		if err := stream.Err(); err != nil {
			return classifyError(err)
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
	return text, nil
}

// TestConnection sends a one-token completion without retries.
func (g *Generator) TestConnection(ctx context.Context) error {
	params := g.params("ping")
	params.MaxCompletionTokens = openaisdk.Int(1)
	if _, err := g.client.Chat.Completions.New(ctx, params); err != nil {
		return classifyError(err)
	}
	return nil
}

func classifyError(err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		case apiErr.StatusCode >= http.StatusBadRequest:
			return fmt.Errorf("%w: %v", generation.ErrInvalidConfig, err)
		}
	}
	return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
}

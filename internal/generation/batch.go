package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/phrazzld/artisan-api/internal/domain"
)

// DefaultItemDelay is the pause between two consecutive articles of a batch.
const DefaultItemDelay = time.Second

// RulesApplier decorates a prompt with the user's content rules.
type RulesApplier interface {
	Apply(ctx context.Context, basePrompt string) string
}

// BatchRequest describes one batch of articles.
type BatchRequest struct {
	CompanyInfo     string
	ProductInfo     string
	ArticleCount    int
	TargetWordCount *int
	// Template is the prompt template; DefaultPromptTemplate is used when empty.
	Template string
}

// Callbacks receive progress notifications from GenerateArticles.
// Either field may be nil.
type Callbacks struct {
	// OnProgress receives an integer percentage after each item.
	OnProgress func(progress int)
	// OnPartial receives the accumulated text of the item being streamed.
	OnPartial func(index int, partial string)
}

func (c Callbacks) progress(p int) {
	if c.OnProgress != nil {
		c.OnProgress(p)
	}
}

func (c Callbacks) partial(index int, text string) {
	if c.OnPartial != nil {
		c.OnPartial(index, text)
	}
}

// BatchGenerator runs the sequential per-article generation loop.
type BatchGenerator struct {
	logger    *slog.Logger
	rules     RulesApplier
	itemDelay time.Duration
	stream    bool
}

// BatchOption configures a BatchGenerator.
type BatchOption func(*BatchGenerator)

// WithItemDelay sets the pause between items. Zero disables it.
func WithItemDelay(d time.Duration) BatchOption {
	return func(b *BatchGenerator) {
		if d >= 0 {
			b.itemDelay = d
		}
	}
}

// WithStreaming selects streamed generation so partial text is reported.
func WithStreaming(stream bool) BatchOption {
	return func(b *BatchGenerator) {
		b.stream = stream
	}
}

// NewBatchGenerator creates a BatchGenerator. rules may be nil, in which
// case prompts are used as built.
func NewBatchGenerator(logger *slog.Logger, rules RulesApplier, opts ...BatchOption) (*BatchGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	b := &BatchGenerator{
		logger:    logger.With("component", "batch_generator"),
		rules:     rules,
		itemDelay: DefaultItemDelay,
		stream:    true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// BuildPrompt produces the final prompt for req: template fill, length
// instruction, then rule injection.
func (b *BatchGenerator) BuildPrompt(ctx context.Context, req BatchRequest) string {
	template := req.Template
	if strings.TrimSpace(template) == "" {
		template = DefaultPromptTemplate
	}
	prompt := BuildPrompt(template, req.CompanyInfo, req.ProductInfo, req.TargetWordCount)
	if b.rules != nil {
		prompt = b.rules.Apply(ctx, prompt)
	}
	return prompt
}

// GenerateArticles produces req.ArticleCount articles one after another.
// A failed item becomes a placeholder article and the loop continues; only
// an invalid count or context cancellation fails the whole batch.
func (b *BatchGenerator) GenerateArticles(
	ctx context.Context,
	gen Generator,
	req BatchRequest,
	cb Callbacks,
) ([]domain.GeneratedArticle, error) {
	if !domain.ValidArticleCount(req.ArticleCount) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidArticleCount, req.ArticleCount)
	}
	if gen == nil {
		return nil, fmt.Errorf("%w: generator cannot be nil", ErrInvalidConfig)
	}

	prompt := b.BuildPrompt(ctx, req)
	total := req.ArticleCount
	articles := make([]domain.GeneratedArticle, 0, total)

	b.logger.InfoContext(ctx, "Starting article batch",
		"article_count", total,
		"prompt_length", len(prompt),
		"stream", b.stream)

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch cancelled before article %d: %w", i+1, err)
		}

		content, err := b.generateOne(ctx, gen, prompt, i, cb)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("batch cancelled during article %d: %w", i+1, ctxErr)
			}
			b.logger.ErrorContext(ctx, "Article generation failed",
				"index", i,
				"error", err)
			articles = append(articles, domain.NewFailedArticle(i, err))
		} else {
			articles = append(articles, domain.NewGeneratedArticle(i, content))
		}

		cb.progress(batchProgress(i, total))

		if i < total-1 && b.itemDelay > 0 {
			timer := time.NewTimer(b.itemDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("batch cancelled after article %d: %w", i+1, ctx.Err())
			}
		}
	}

	b.logger.InfoContext(ctx, "Finished article batch", "article_count", len(articles))
	return articles, nil
}

func (b *BatchGenerator) generateOne(
	ctx context.Context,
	gen Generator,
	prompt string,
	index int,
	cb Callbacks,
) (string, error) {
	var (
		content string
		err     error
	)
	if b.stream {
		content, err = gen.GenerateStream(ctx, prompt, func(accumulated string) {
			cb.partial(index, accumulated)
		})
	} else {
		content, err = gen.Generate(ctx, prompt)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}
	return content, nil
}

// batchProgress is the rounded percentage after finishing item index.
func batchProgress(index, total int) int {
	return int(math.Round(float64(index+1) / float64(total) * 100))
}

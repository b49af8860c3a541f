package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/artisan-api/internal/domain"
	"github.com/phrazzld/artisan-api/internal/generation"
	"github.com/phrazzld/artisan-api/internal/store"
)

// Common errors
var (
	ErrNilSink      = errors.New("progress sink cannot be nil")
	ErrNilResolver  = errors.New("generator resolver cannot be nil")
	ErrNilBatch     = errors.New("batch generator cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")
	ErrEmptyTaskID  = errors.New("task ID cannot be empty")
	ErrTaskFinished = errors.New("task is already finished")
)

// BatchRunner runs the per-article generation loop.
type BatchRunner interface {
	GenerateArticles(
		ctx context.Context,
		gen generation.Generator,
		req generation.BatchRequest,
		cb generation.Callbacks,
	) ([]domain.GeneratedArticle, error)
}

var _ BatchRunner = (*generation.BatchGenerator)(nil)

// articleGenerationPayload represents the serialized data stored in the task
type articleGenerationPayload struct {
	TaskID uuid.UUID `json:"task_id"`
}

// ArticleGenerationTask implements the Task interface for producing the
// articles of one GenerationTask.
type ArticleGenerationTask struct {
	id              uuid.UUID
	sink            ProgressSink
	templates       store.TemplateStore
	defaultTemplate string
	resolver        generation.Resolver
	batch           BatchRunner
	logger          *slog.Logger

	mu     sync.RWMutex
	status domain.TaskStatus
}

// ArticleTaskDeps groups the collaborators of an ArticleGenerationTask.
// Templates may be nil, in which case DefaultTemplate is always used.
type ArticleTaskDeps struct {
	Sink            ProgressSink
	Templates       store.TemplateStore
	DefaultTemplate string
	Resolver        generation.Resolver
	Batch           BatchRunner
	Logger          *slog.Logger
}

// NewArticleGenerationTask creates a task for the generation task taskID.
func NewArticleGenerationTask(taskID uuid.UUID, deps ArticleTaskDeps) (*ArticleGenerationTask, error) {
	if deps.Sink == nil {
		return nil, ErrNilSink
	}
	if deps.Resolver == nil {
		return nil, ErrNilResolver
	}
	if deps.Batch == nil {
		return nil, ErrNilBatch
	}
	if deps.Logger == nil {
		return nil, ErrNilLogger
	}
	if taskID == uuid.Nil {
		return nil, ErrEmptyTaskID
	}

	defaultTemplate := deps.DefaultTemplate
	if strings.TrimSpace(defaultTemplate) == "" {
		defaultTemplate = generation.DefaultPromptTemplate
	}

	return &ArticleGenerationTask{
		id:              taskID,
		sink:            deps.Sink,
		templates:       deps.Templates,
		defaultTemplate: defaultTemplate,
		resolver:        deps.Resolver,
		batch:           deps.Batch,
		logger:          deps.Logger.With("task_type", TaskTypeArticleGeneration, "task_id", taskID),
		status:          domain.TaskStatusPending,
	}, nil
}

// ID returns the generation task ID.
func (t *ArticleGenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns TaskTypeArticleGeneration.
func (t *ArticleGenerationTask) Type() string {
	return TaskTypeArticleGeneration
}

// Payload returns the task data as JSON.
func (t *ArticleGenerationTask) Payload() []byte {
	data, err := json.Marshal(articleGenerationPayload{TaskID: t.id})
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the execution status of this task instance.
func (t *ArticleGenerationTask) Status() domain.TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *ArticleGenerationTask) setStatus(s domain.TaskStatus) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// Execute loads the task, builds the prompt from the active template,
// resolves a generator and runs the batch, streaming progress and partial
// text to the sink. The final articles are handed to the sink before
// returning; the caller records the completed status.
func (t *ArticleGenerationTask) Execute(ctx context.Context) error {
	t.setStatus(domain.TaskStatusProcessing)
	t.logger.InfoContext(ctx, "starting article generation task")

	articles, err := t.run(ctx)
	if err != nil {
		t.setStatus(domain.TaskStatusFailed)
		t.logger.ErrorContext(ctx, "article generation task failed", "error", err)
		return err
	}

	t.sink.SetArticles(ctx, t.id, articles)
	t.setStatus(domain.TaskStatusCompleted)
	t.logger.InfoContext(ctx, "article generation task completed", "article_count", len(articles))
	return nil
}

func (t *ArticleGenerationTask) run(ctx context.Context) ([]domain.GeneratedArticle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("task cancelled by context: %w", err)
	}

	gt, err := t.sink.GetTask(ctx, t.id)
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	if gt.Status.IsFinished() {
		return nil, fmt.Errorf("%w: %s", ErrTaskFinished, gt.Status)
	}

	template, err := t.promptTemplate(ctx)
	if err != nil {
		return nil, err
	}

	gen, err := t.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	req := generation.BatchRequest{
		CompanyInfo:     gt.CompanyInfo,
		ProductInfo:     gt.ProductInfo,
		ArticleCount:    gt.ArticleCount,
		TargetWordCount: gt.TargetWordCount,
		Template:        template,
	}
	cb := generation.Callbacks{
		OnProgress: func(progress int) {
			t.sink.UpdateProgress(ctx, t.id, progress)
		},
		OnPartial: func(index int, partial string) {
			t.sink.UpdatePartialArticle(ctx, t.id, index, partial)
		},
	}

	articles, err := t.batch.GenerateArticles(ctx, gen, req, cb)
	if err != nil {
		return nil, fmt.Errorf("failed to generate articles: %w", err)
	}
	return articles, nil
}

// promptTemplate returns the stored template or the default when none is stored.
func (t *ArticleGenerationTask) promptTemplate(ctx context.Context) (string, error) {
	if t.templates == nil {
		return t.defaultTemplate, nil
	}

	template, err := t.templates.GetPromptTemplate(ctx)
	if err != nil {
		if errors.Is(err, store.ErrTemplateNotFound) {
			return t.defaultTemplate, nil
		}
		return "", fmt.Errorf("failed to load prompt template: %w", err)
	}
	if strings.TrimSpace(template) == "" {
		return t.defaultTemplate, nil
	}
	return template, nil
}

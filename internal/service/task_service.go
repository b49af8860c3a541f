package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/artisan-api/internal/domain"
	"github.com/phrazzld/artisan-api/internal/events"
	"github.com/phrazzld/artisan-api/internal/export"
	"github.com/phrazzld/artisan-api/internal/platform/logger"
	"github.com/phrazzld/artisan-api/internal/store"
)

// Exporter writes articles to files.
type Exporter interface {
	ExportArticles(ctx context.Context, articles []domain.GeneratedArticle, opts export.Options) export.Result
	ExportBatch(ctx context.Context, articles []domain.GeneratedArticle, opts export.Options) []export.Result
}

// Listener receives a snapshot of every task, newest first. Snapshots are
// deep copies. Listeners are called synchronously and must not block or
// call back into methods that change tasks.
type Listener func(tasks []domain.GenerationTask)

// CreateTaskParams holds the user input for a new task.
type CreateTaskParams struct {
	CompanyInfo     string
	ProductInfo     string
	ArticleCount    int
	TargetWordCount *int
}

// Option configures a TaskService.
type Option func(*TaskService)

// WithMaxArticleCount lowers the number of articles a single task may request.
func WithMaxArticleCount(n int) Option {
	return func(s *TaskService) {
		if n >= domain.MinArticleCount && n <= domain.MaxArticleCount {
			s.maxArticleCount = n
		}
	}
}

// TaskService keeps the in-memory registry of generation tasks and mirrors
// it to the store.
type TaskService struct {
	store           store.GenerationTaskStore
	emitter         events.EventEmitter
	exporter        Exporter
	logger          *slog.Logger
	maxArticleCount int

	mu    sync.RWMutex
	tasks map[uuid.UUID]*domain.GenerationTask

	// notifyMu serializes notifications so listeners see snapshots in order.
	notifyMu       sync.Mutex
	listeners      map[uint64]Listener
	nextListenerID uint64
}

// NewTaskService creates a TaskService. It returns an error if any of the
// required dependencies are nil.
func NewTaskService(
	taskStore store.GenerationTaskStore,
	emitter events.EventEmitter,
	exporter Exporter,
	logger *slog.Logger,
	opts ...Option,
) (*TaskService, error) {
	if taskStore == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "task store cannot be nil"}
	}
	if emitter == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "event emitter cannot be nil"}
	}
	if exporter == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "exporter cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &TaskService{
		store:           taskStore,
		emitter:         emitter,
		exporter:        exporter,
		logger:          logger.With("component", "task_service"),
		maxArticleCount: domain.MaxArticleCount,
		tasks:           make(map[uuid.UUID]*domain.GenerationTask),
		listeners:       make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Subscribe registers listener and immediately sends it the current
// snapshot. The returned function removes the listener.
func (s *TaskService) Subscribe(listener Listener) func() {
	s.notifyMu.Lock()
	id := s.nextListenerID
	s.nextListenerID++
	s.listeners[id] = listener
	listener(s.snapshot())
	s.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.notifyMu.Lock()
			delete(s.listeners, id)
			s.notifyMu.Unlock()
		})
	}
}

func (s *TaskService) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if len(s.listeners) == 0 {
		return
	}
	current := s.snapshot()
	for _, listener := range s.listeners {
		listener(current)
	}
}

// snapshot returns deep copies of all tasks sorted by CreatedAt descending.
func (s *TaskService) snapshot() []domain.GenerationTask {
	s.mu.RLock()
	out := make([]domain.GenerationTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// update applies fn to the registered task and notifies listeners.
func (s *TaskService) update(id uuid.UUID, fn func(t *domain.GenerationTask)) (domain.GenerationTask, bool) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return domain.GenerationTask{}, false
	}
	fn(t)
	snap := t.Clone()
	s.mu.Unlock()

	s.notify()
	return snap, true
}

// CreateTask validates and stores a new task, then requests its
// generation. Processing happens in the background; the returned task is
// pending, or failed if scheduling was impossible.
func (s *TaskService) CreateTask(ctx context.Context, params CreateTaskParams) (*domain.GenerationTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if params.ArticleCount > s.maxArticleCount {
		return nil, NewTaskServiceError("create_task", "invalid task",
			fmt.Errorf("%w: at most %d articles per task", domain.ErrInvalidArticleCount, s.maxArticleCount))
	}

	task, err := domain.NewGenerationTask(params.CompanyInfo, params.ProductInfo, params.ArticleCount, params.TargetWordCount)
	if err != nil {
		log.Warn("rejected invalid task", "error", err)
		return nil, NewTaskServiceError("create_task", "invalid task", err)
	}

	if err := s.store.Create(ctx, task); err != nil {
		log.Error("failed to persist task", "error", err, "task_id", task.ID)
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	s.mu.Lock()
	s.tasks[task.ID] = task
	snap := task.Clone()
	s.mu.Unlock()
	s.notify()

	log.Info("task created",
		"task_id", task.ID,
		"article_count", task.ArticleCount)

	if err := s.schedule(ctx, task.ID); err != nil {
		log.Error("failed to schedule task", "error", err, "task_id", task.ID)
		failed := s.fail(ctx, task.ID, fmt.Sprintf("failed to schedule generation: %v", err))
		return &failed, nil
	}

	return &snap, nil
}

func (s *TaskService) schedule(ctx context.Context, id uuid.UUID) error {
	event, err := events.NewArticleGenerationEvent(id)
	if err != nil {
		return err
	}
	return s.emitter.EmitEvent(ctx, event)
}

// GetAllTasks returns a snapshot of every task, newest first.
func (s *TaskService) GetAllTasks(_ context.Context) []domain.GenerationTask {
	return s.snapshot()
}

// GetTask returns a copy of the task with the given ID.
func (s *TaskService) GetTask(_ context.Context, id uuid.UUID) (*domain.GenerationTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	c := t.Clone()
	return &c, nil
}

// UpdateProgress records batch progress and persists it.
func (s *TaskService) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) {
	snap, ok := s.update(id, func(t *domain.GenerationTask) {
		t.SetProgress(progress)
	})
	if !ok {
		return
	}
	s.syncProgress(ctx, id, store.ProgressUpdate{Progress: snap.Progress})
}

// UpdatePartialArticle records streamed text in memory only.
func (s *TaskService) UpdatePartialArticle(_ context.Context, id uuid.UUID, index int, partial string) {
	s.update(id, func(t *domain.GenerationTask) {
		t.SetPartialArticle(index, partial)
	})
}

// SetArticles records the final articles and persists them.
func (s *TaskService) SetArticles(ctx context.Context, id uuid.UUID, articles []domain.GeneratedArticle) {
	stored := make([]domain.GeneratedArticle, len(articles))
	copy(stored, articles)

	if _, ok := s.update(id, func(t *domain.GenerationTask) {
		t.Articles = stored
		t.UpdatedAt = time.Now().UTC()
	}); !ok {
		return
	}

	if err := s.store.ReplaceArticles(context.WithoutCancel(ctx), id, stored); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to persist articles",
			"error", err,
			"task_id", id,
			"article_count", len(stored))
	}
}

// UpdateTaskStatus applies a status transition reported by the task runner.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus, errorMsg string) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidTaskStatus, status)
	}

	var update store.ProgressUpdate
	snap, ok := s.update(id, func(t *domain.GenerationTask) {
		switch status {
		case domain.TaskStatusProcessing:
			t.MarkProcessing()
		case domain.TaskStatusCompleted:
			t.MarkCompleted(t.Articles)
		case domain.TaskStatusFailed:
			t.MarkFailed(errorMsg)
		case domain.TaskStatusPending:
			t.MarkPending(errorMsg)
		}
	})
	if !ok {
		return ErrTaskNotFound
	}

	msg := snap.ErrorMessage
	update.Progress = snap.Progress
	update.Status = &status
	update.ErrorMessage = &msg

	log := logger.FromContextOrDefault(ctx, s.logger)
	log.Info("task status changed",
		"task_id", id,
		"status", status,
		"progress", snap.Progress,
		"reason", errorMsg)

	s.syncProgress(ctx, id, update)
	return nil
}

// fail marks a task failed and persists the failure.
func (s *TaskService) fail(ctx context.Context, id uuid.UUID, reason string) domain.GenerationTask {
	snap, _ := s.update(id, func(t *domain.GenerationTask) {
		t.MarkFailed(reason)
	})
	status := domain.TaskStatusFailed
	s.syncProgress(ctx, id, store.ProgressUpdate{
		Progress:     snap.Progress,
		Status:       &status,
		ErrorMessage: &reason,
	})
	return snap
}

// syncProgress writes update to the store. Failures are logged only.
func (s *TaskService) syncProgress(ctx context.Context, id uuid.UUID, update store.ProgressUpdate) {
	if err := s.store.UpdateProgress(context.WithoutCancel(ctx), id, update); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to persist task progress",
			"error", err,
			"task_id", id,
			"progress", update.Progress)
	}
}

// GetPendingTasks returns the IDs of pending tasks, oldest first.
func (s *TaskService) GetPendingTasks(_ context.Context) ([]uuid.UUID, error) {
	return s.idsWhere(func(t *domain.GenerationTask) bool {
		return t.Status == domain.TaskStatusPending
	}), nil
}

// GetProcessingTasks returns the IDs of processing tasks, oldest first. If
// olderThan is non-zero only tasks not updated within that window are returned.
func (s *TaskService) GetProcessingTasks(_ context.Context, olderThan time.Duration) ([]uuid.UUID, error) {
	cutoff := time.Now().Add(-olderThan)
	return s.idsWhere(func(t *domain.GenerationTask) bool {
		if t.Status != domain.TaskStatusProcessing {
			return false
		}
		return olderThan == 0 || t.UpdatedAt.Before(cutoff)
	}), nil
}

func (s *TaskService) idsWhere(pred func(t *domain.GenerationTask) bool) []uuid.UUID {
	s.mu.RLock()
	matched := make([]*domain.GenerationTask, 0)
	for _, t := range s.tasks {
		if pred(t) {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	ids := make([]uuid.UUID, len(matched))
	for i, t := range matched {
		ids[i] = t.ID
	}
	s.mu.RUnlock()
	return ids
}

// LoadTasks fills the registry from the store. Tasks already registered
// are kept as they are.
func (s *TaskService) LoadTasks(ctx context.Context) error {
	tasks, err := s.store.List(ctx)
	if err != nil {
		return NewTaskServiceError("load_tasks", "failed to list tasks", err)
	}

	added := 0
	s.mu.Lock()
	for _, t := range tasks {
		if _, exists := s.tasks[t.ID]; exists {
			continue
		}
		s.tasks[t.ID] = t
		added++
	}
	s.mu.Unlock()

	logger.FromContextOrDefault(ctx, s.logger).Info("loaded tasks from store",
		"stored", len(tasks),
		"added", added)

	s.notify()
	return nil
}

// ExportTaskResults writes all articles of a task into one file named
// task_{id}_articles.{ext}.
func (s *TaskService) ExportTaskResults(ctx context.Context, id uuid.UUID, format export.Format) (export.Result, error) {
	task, err := s.exportable(ctx, id)
	if err != nil {
		return export.Result{}, err
	}

	opts := export.Options{
		Format:   format,
		Filename: fmt.Sprintf("task_%s_articles.%s", id, format.Extension()),
		Title:    task.CompanyInfo,
		Metadata: exportMetadata(task),
	}
	result := s.exporter.ExportArticles(ctx, task.Articles, opts)
	s.logExport(ctx, id, result)
	return result, nil
}

// ExportTaskArticles writes every article of a task to its own file.
func (s *TaskService) ExportTaskArticles(ctx context.Context, id uuid.UUID, format export.Format) ([]export.Result, error) {
	task, err := s.exportable(ctx, id)
	if err != nil {
		return nil, err
	}

	results := s.exporter.ExportBatch(ctx, task.Articles, export.Options{
		Format:   format,
		Metadata: exportMetadata(task),
	})
	for _, r := range results {
		s.logExport(ctx, id, r)
	}
	return results, nil
}

func (s *TaskService) exportable(ctx context.Context, id uuid.UUID) (*domain.GenerationTask, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return nil, fmt.Errorf("%w: task %s not found", ErrNothingToExport, id)
		}
		return nil, err
	}
	if len(task.Articles) == 0 {
		return nil, fmt.Errorf("%w: task %s has no articles", ErrNothingToExport, id)
	}
	return task, nil
}

func (s *TaskService) logExport(ctx context.Context, id uuid.UUID, result export.Result) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if !result.Success {
		log.Error("failed to export task results", "task_id", id, "error", result.Error)
		return
	}
	log.Info("exported task results", "task_id", id, "path", result.FilePath)
}

func exportMetadata(task *domain.GenerationTask) *export.Metadata {
	return &export.Metadata{
		TaskID:       task.ID.String(),
		CompanyInfo:  task.CompanyInfo,
		ProductInfo:  task.ProductInfo,
		ArticleCount: task.ArticleCount,
		GeneratedAt:  task.CompletedAt,
	}
}

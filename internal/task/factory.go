package task

import (
	"log/slog"

	"github.com/google/uuid"
)

// ArticleTaskFactory creates ArticleGenerationTask instances sharing one
// set of collaborators.
type ArticleTaskFactory struct {
	deps ArticleTaskDeps
}

var _ Factory = (*ArticleTaskFactory)(nil)

// NewArticleTaskFactory creates a new factory for ArticleGenerationTasks
func NewArticleTaskFactory(deps ArticleTaskDeps) *ArticleTaskFactory {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("component", "article_task_factory")
	return &ArticleTaskFactory{deps: deps}
}

// CreateTask creates a new ArticleGenerationTask for the specified generation task.
func (f *ArticleTaskFactory) CreateTask(taskID uuid.UUID) (Task, error) {
	task, err := NewArticleGenerationTask(taskID, f.deps)
	if err != nil {
		return nil, err
	}
	return task, nil
}

package task

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/artisan-api/internal/domain"
)

// Task type constants
const (
	// TaskTypeArticleGeneration generates the articles of one GenerationTask.
	TaskTypeArticleGeneration = "article_generation"
)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task data as a byte slice
	Payload() []byte

	// Status returns the current task status
	Status() domain.TaskStatus

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume tasks without the ability to enqueue
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming tasks
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue
// allowing services to enqueue tasks for processing
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue for processing
	// Returns an error if the queue is full or closed
	Enqueue(task Task) error

	// Close closes the task queue, preventing further task submission
	Close()
}

// TaskTracker owns the persistent status of tasks. The runner routes every
// status transition through it and asks it for unfinished work on start.
type TaskTracker interface {
	// UpdateTaskStatus records a status transition. errorMsg is only
	// meaningful for failed and reset-to-pending transitions.
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status domain.TaskStatus, errorMsg string) error

	// GetPendingTasks returns the IDs of tasks waiting to be processed.
	GetPendingTasks(ctx context.Context) ([]uuid.UUID, error)

	// GetProcessingTasks returns the IDs of tasks in processing state.
	// If olderThan is non-zero, only tasks whose last update is older than
	// that are returned.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]uuid.UUID, error)
}

// Factory rebuilds an executable Task for a stored generation task.
type Factory interface {
	CreateTask(taskID uuid.UUID) (Task, error)
}

// ProgressSink receives the intermediate and final results of a running
// generation. Implementations must be safe for concurrent use and must
// never fail the generation because of their own errors.
type ProgressSink interface {
	// GetTask returns a snapshot of the task.
	GetTask(ctx context.Context, taskID uuid.UUID) (*domain.GenerationTask, error)

	// UpdateProgress records an integer percentage.
	UpdateProgress(ctx context.Context, taskID uuid.UUID, progress int)

	// UpdatePartialArticle records the streamed text of the article at index.
	UpdatePartialArticle(ctx context.Context, taskID uuid.UUID, index int, partial string)

	// SetArticles records the final articles of the batch.
	SetArticles(ctx context.Context, taskID uuid.UUID, articles []domain.GeneratedArticle)
}

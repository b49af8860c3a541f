package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/artisan-api/internal/domain"
)

// ProgressUpdate describes a change to a task's progress. A nil Status
// leaves the stored status untouched.
type ProgressUpdate struct {
	Progress     int
	Status       *domain.TaskStatus
	ErrorMessage *string
}

// GenerationTaskStore persists generation tasks and their articles.
type GenerationTaskStore interface {
	// Create inserts a new task. Articles on the task are ignored.
	Create(ctx context.Context, task *domain.GenerationTask) error

	// GetByID returns the task with its articles ordered by index.
	// Returns ErrTaskNotFound if no such task exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationTask, error)

	// List returns every task, newest first, with articles attached.
	List(ctx context.Context) ([]*domain.GenerationTask, error)

	// ListByStatus returns tasks with the given status, oldest first.
	ListByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.GenerationTask, error)

	// UpdateProgress applies a ProgressUpdate. completed_at is stamped when
	// the new status is completed or failed.
	UpdateProgress(ctx context.Context, id uuid.UUID, update ProgressUpdate) error

	// ReplaceArticles replaces all stored articles of the task atomically.
	ReplaceArticles(ctx context.Context, id uuid.UUID, articles []domain.GeneratedArticle) error

	// WithTx returns a store bound to the given transaction.
	WithTx(tx *sql.Tx) GenerationTaskStore
}

// SettingsStore is a small key/value store for application settings.
type SettingsStore interface {
	// Get returns the value for key, or ErrSettingNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set upserts the value for key.
	Set(ctx context.Context, key, value string) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// TemplateStore holds the active prompt template.
type TemplateStore interface {
	// GetPromptTemplate returns the active template, or ErrTemplateNotFound.
	GetPromptTemplate(ctx context.Context) (string, error)

	// SavePromptTemplate replaces the active template.
	SavePromptTemplate(ctx context.Context, template string) error
}

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the processing state of a generation task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Article count bounds accepted by the generation loop.
const (
	MinArticleCount = 1
	MaxArticleCount = 100
)

// Validation errors for GenerationTask
var (
	ErrEmptyTaskID            = fmt.Errorf("%w: task ID cannot be empty", ErrValidation)
	ErrEmptyCompanyInfo       = fmt.Errorf("%w: company info cannot be empty", ErrValidation)
	ErrEmptyProductInfo       = fmt.Errorf("%w: product info cannot be empty", ErrValidation)
	ErrInvalidArticleCount    = fmt.Errorf("%w: article count must be between %d and %d", ErrValidation, MinArticleCount, MaxArticleCount)
	ErrInvalidTargetWordCount = fmt.Errorf("%w: target word count must be positive", ErrValidation)
	ErrInvalidProgress        = fmt.Errorf("%w: progress must be between 0 and 100", ErrValidation)
)

// IsValid reports whether s is one of the known statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// IsFinished reports whether the task has reached a terminal state.
func (s TaskStatus) IsFinished() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// GenerationTask is one batch request producing ArticleCount Markdown
// articles for a company/product pair.
type GenerationTask struct {
	ID              uuid.UUID          `json:"id"`
	CompanyInfo     string             `json:"company_info"`
	ProductInfo     string             `json:"product_info"`
	ArticleCount    int                `json:"article_count"`
	TargetWordCount *int               `json:"target_word_count,omitempty"`
	Status          TaskStatus         `json:"status"`
	Progress        int                `json:"progress"`
	ErrorMessage    string             `json:"error_message,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
	Articles        []GeneratedArticle `json:"articles,omitempty"`
}

// NewGenerationTask creates a pending task with a fresh ID.
// Company and product info are trimmed before validation.
func NewGenerationTask(companyInfo, productInfo string, articleCount int, targetWordCount *int) (*GenerationTask, error) {
	now := time.Now().UTC()
	task := &GenerationTask{
		ID:              uuid.New(),
		CompanyInfo:     strings.TrimSpace(companyInfo),
		ProductInfo:     strings.TrimSpace(productInfo),
		ArticleCount:    articleCount,
		TargetWordCount: targetWordCount,
		Status:          TaskStatusPending,
		Progress:        0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the GenerationTask has valid data.
func (t *GenerationTask) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if strings.TrimSpace(t.CompanyInfo) == "" {
		return ErrEmptyCompanyInfo
	}
	if strings.TrimSpace(t.ProductInfo) == "" {
		return ErrEmptyProductInfo
	}
	if !ValidArticleCount(t.ArticleCount) {
		return ErrInvalidArticleCount
	}
	if t.TargetWordCount != nil && *t.TargetWordCount <= 0 {
		return ErrInvalidTargetWordCount
	}
	if !t.Status.IsValid() {
		return ErrInvalidTaskStatus
	}
	if t.Progress < 0 || t.Progress > 100 {
		return ErrInvalidProgress
	}
	return nil
}

// ValidArticleCount reports whether n is within [MinArticleCount, MaxArticleCount].
func ValidArticleCount(n int) bool {
	return n >= MinArticleCount && n <= MaxArticleCount
}

// MarkProcessing moves the task into processing with progress reset to 0.
func (t *GenerationTask) MarkProcessing() {
	t.Status = TaskStatusProcessing
	t.Progress = 0
	t.ErrorMessage = ""
	t.CompletedAt = nil
	t.UpdatedAt = time.Now().UTC()
}

// MarkPending returns the task to the queue state. Progress and articles
// from the interrupted run are dropped and reason is kept as the message.
func (t *GenerationTask) MarkPending(reason string) {
	t.Status = TaskStatusPending
	t.Progress = 0
	t.ErrorMessage = reason
	t.CompletedAt = nil
	t.Articles = nil
	t.UpdatedAt = time.Now().UTC()
}

// MarkCompleted stores the final articles and closes the task.
func (t *GenerationTask) MarkCompleted(articles []GeneratedArticle) {
	now := time.Now().UTC()
	t.Status = TaskStatusCompleted
	t.Progress = 100
	t.Articles = articles
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// MarkFailed closes the task as failed. Progress is left where it was.
func (t *GenerationTask) MarkFailed(reason string) {
	now := time.Now().UTC()
	t.Status = TaskStatusFailed
	t.ErrorMessage = reason
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// SetProgress clamps p into [0, 100] and stores it.
func (t *GenerationTask) SetProgress(p int) {
	t.Progress = max(0, min(100, p))
	t.UpdatedAt = time.Now().UTC()
}

// SetPartialArticle replaces the article at index with streamed text,
// growing the slice as needed.
func (t *GenerationTask) SetPartialArticle(index int, partial string) {
	if index < 0 {
		return
	}
	if index >= len(t.Articles) {
		grown := make([]GeneratedArticle, index+1)
		copy(grown, t.Articles)
		t.Articles = grown
	}
	t.Articles[index] = NewPartialArticle(index, partial)
	t.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy that shares no mutable state with t.
func (t *GenerationTask) Clone() GenerationTask {
	c := *t
	if t.TargetWordCount != nil {
		v := *t.TargetWordCount
		c.TargetWordCount = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	if t.Articles != nil {
		c.Articles = make([]GeneratedArticle, len(t.Articles))
		copy(c.Articles, t.Articles)
	}
	return c
}

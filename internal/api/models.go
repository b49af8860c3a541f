package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/artisan-api/internal/domain"
	"github.com/phrazzld/artisan-api/internal/export"
)

// CreateTaskRequest is the payload for POST /api/tasks.
type CreateTaskRequest struct {
	CompanyInfo     string `json:"company_info"                validate:"required"`
	ProductInfo     string `json:"product_info"                validate:"required"`
	ArticleCount    int    `json:"article_count"               validate:"min=1,max=100"`
	TargetWordCount *int   `json:"target_word_count,omitempty" validate:"omitempty,min=1"`
}

// ArticleResponse is one generated article.
type ArticleResponse struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
}

// TaskResponse is the API view of a generation task.
type TaskResponse struct {
	ID              uuid.UUID         `json:"id"`
	CompanyInfo     string            `json:"company_info"`
	ProductInfo     string            `json:"product_info"`
	ArticleCount    int               `json:"article_count"`
	TargetWordCount *int              `json:"target_word_count,omitempty"`
	Status          string            `json:"status"`
	Progress        int               `json:"progress"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	Articles        []ArticleResponse `json:"articles"`
}

// ExportRequest is the payload for POST /api/tasks/{id}/export. Batch
// writes one file per article.
type ExportRequest struct {
	Format string `json:"format" validate:"required"`
	Batch  bool   `json:"batch"`
}

// ExportResponse wraps the results of an export.
type ExportResponse struct {
	Results []export.Result `json:"results"`
}

// PreviewRequest is the payload for POST /api/export/preview.
type PreviewRequest struct {
	Content string `json:"content"`
	Format  string `json:"format" validate:"required"`
}

// PreviewResponse holds rendered preview text.
type PreviewResponse struct {
	Format  string `json:"format"`
	Preview string `json:"preview"`
}

// RulesRequest is the payload for PUT /api/rules.
type RulesRequest struct {
	Rules   string `json:"rules"`
	Enabled *bool  `json:"enabled" validate:"required"`
}

// PromptTemplateRequest is the payload for PUT /api/prompt-template.
type PromptTemplateRequest struct {
	Template string `json:"template" validate:"required"`
}

// PromptTemplateResponse returns the active template.
type PromptTemplateResponse struct {
	Template  string `json:"template"`
	IsDefault bool   `json:"is_default"`
}

// APIKeyRequest is the payload for PUT /api/settings/api-key.
type APIKeyRequest struct {
	APIKey string `json:"api_key" validate:"required"`
}

// StatusResponse is a minimal success acknowledgement.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func taskToResponse(t domain.GenerationTask) TaskResponse {
	articles := make([]ArticleResponse, len(t.Articles))
	for i, a := range t.Articles {
		articles[i] = ArticleResponse{Title: a.Title, Content: a.Content, WordCount: a.WordCount}
	}
	return TaskResponse{
		ID:              t.ID,
		CompanyInfo:     t.CompanyInfo,
		ProductInfo:     t.ProductInfo,
		ArticleCount:    t.ArticleCount,
		TargetWordCount: t.TargetWordCount,
		Status:          string(t.Status),
		Progress:        t.Progress,
		ErrorMessage:    t.ErrorMessage,
		CreatedAt:       t.CreatedAt,
		CompletedAt:     t.CompletedAt,
		Articles:        articles,
	}
}

func tasksToResponse(tasks []domain.GenerationTask) []TaskResponse {
	out := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		out[i] = taskToResponse(t)
	}
	return out
}

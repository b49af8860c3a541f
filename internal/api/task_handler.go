package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/artisan-api/internal/api/shared"
	"github.com/phrazzld/artisan-api/internal/domain"
	"github.com/phrazzld/artisan-api/internal/export"
	"github.com/phrazzld/artisan-api/internal/platform/logger"
	"github.com/phrazzld/artisan-api/internal/service"
)

// DefaultKeepAlive is how often an idle event stream sends a comment line.
const DefaultKeepAlive = 15 * time.Second

// TaskService is the subset of service.TaskService the handlers use.
type TaskService interface {
	CreateTask(ctx context.Context, params service.CreateTaskParams) (*domain.GenerationTask, error)
	GetAllTasks(ctx context.Context) []domain.GenerationTask
	GetTask(ctx context.Context, id uuid.UUID) (*domain.GenerationTask, error)
	Subscribe(listener service.Listener) func()
	ExportTaskResults(ctx context.Context, id uuid.UUID, format export.Format) (export.Result, error)
	ExportTaskArticles(ctx context.Context, id uuid.UUID, format export.Format) ([]export.Result, error)
}

var _ TaskService = (*service.TaskService)(nil)

// TaskHandler serves the /api/tasks routes.
type TaskHandler struct {
	tasks     TaskService
	logger    *slog.Logger
	keepAlive time.Duration
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(tasks TaskService, logger *slog.Logger) *TaskHandler {
	if tasks == nil {
		panic("tasks cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		tasks:     tasks,
		logger:    logger.With("component", "task_handler"),
		keepAlive: DefaultKeepAlive,
	}
}

// WithKeepAlive sets the keep-alive interval of the event stream.
func (h *TaskHandler) WithKeepAlive(d time.Duration) *TaskHandler {
	if d > 0 {
		h.keepAlive = d
	}
	return h
}

// CreateTask handles POST /api/tasks. Generation runs in the background,
// so the response is 202 Accepted with the pending task.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), service.CreateTaskParams{
		CompanyInfo:     req.CompanyInfo,
		ProductInfo:     req.ProductInfo,
		ArticleCount:    req.ArticleCount,
		TargetWordCount: req.TargetWordCount,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, taskToResponse(*task))
}

// ListTasks handles GET /api/tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(h.tasks.GetAllTasks(r.Context())))
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(*task))
}

// StreamTasks handles GET /api/tasks/events. Every change to any task is
// pushed as a "tasks" event holding the full list, newest first. When the
// client falls behind only the latest snapshot is kept.
func (h *TaskHandler) StreamTasks(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)

	sse, err := shared.NewSSEWriter(w)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Streaming is not supported", err)
		return
	}

	updates := make(chan []domain.GenerationTask, 1)
	unsubscribe := h.tasks.Subscribe(func(tasks []domain.GenerationTask) {
		for {
			select {
			case updates <- tasks:
				return
			default:
			}
			// Drop the stale snapshot.
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	log.Debug("task event stream opened")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug("task event stream closed")
			return
		case tasks := <-updates:
			if err := sse.Send("tasks", tasksToResponse(tasks)); err != nil {
				log.Debug("task event stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := sse.Comment("keep-alive"); err != nil {
				return
			}
		}
	}
}

// ExportTask handles POST /api/tasks/{id}/export. A failed write is
// reported inside the result with success=false, not as an HTTP error.
func (h *TaskHandler) ExportTask(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	var req ExportRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	format, err := export.ParseFormat(req.Format)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var results []export.Result
	if req.Batch {
		results, err = h.tasks.ExportTaskArticles(r.Context(), id, format)
	} else {
		var result export.Result
		result, err = h.tasks.ExportTaskResults(r.Context(), id, format)
		results = []export.Result{result}
	}
	if err != nil {
		HandleAPIError(w, r, err, "Failed to export task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ExportResponse{Results: results})
}

func (h *TaskHandler) log(r *http.Request) *slog.Logger {
	return logger.FromContextOrDefault(r.Context(), h.logger)
}

package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/artisan-api/internal/events"
)

// Submitter accepts tasks for background execution.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler turns article generation events into queued tasks.
type TaskFactoryEventHandler struct {
	taskFactory Factory
	taskRunner  Submitter
	logger      *slog.Logger
}

var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)

// NewTaskFactoryEventHandler creates a new event handler that uses the given task factory
// to create tasks, and submits them to the provided task runner.
func NewTaskFactoryEventHandler(taskFactory Factory, taskRunner Submitter, logger *slog.Logger) *TaskFactoryEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskFactoryEventHandler{
		taskFactory: taskFactory,
		taskRunner:  taskRunner,
		logger:      logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent builds the task named in the event payload and submits it.
// Events of other types are ignored.
func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	log := h.logger.With("event_id", event.ID, "event_type", event.Type)

	if event.Type != events.EventTypeArticleGeneration {
		log.DebugContext(ctx, "ignoring event with unsupported type")
		return nil
	}

	taskID, err := event.TaskID()
	if err != nil {
		log.ErrorContext(ctx, "failed to read task id from event", "error", err)
		return err
	}
	log = log.With("task_id", taskID)

	task, err := h.taskFactory.CreateTask(taskID)
	if err != nil {
		log.ErrorContext(ctx, "failed to create task", "error", err)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.taskRunner.Submit(ctx, task); err != nil {
		log.ErrorContext(ctx, "failed to submit task", "error", err)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	log.InfoContext(ctx, "task created and submitted successfully")
	return nil
}

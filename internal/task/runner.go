package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/artisan-api/internal/domain"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset. Tasks still running on a
	// worker are never reset.
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks and
	// for pending tasks that are not queued. If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration

	// TaskTimeout bounds a single execution. Zero means no limit.
	TaskTimeout time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           90 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
		TaskTimeout:            time.Hour,
	}
}

// TaskRunner manages background task processing
type TaskRunner struct {
	tracker    TaskTracker
	factory    Factory
	queue      *TaskQueue
	pool       *WorkerPool
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopOnce   sync.Once
	config     TaskRunnerConfig
	logger     *slog.Logger
	errHandler func(task Task, err error)

	// active holds the IDs of tasks that are queued or executing.
	activeMu sync.Mutex
	active   map[uuid.UUID]struct{}
}

// NewTaskRunner creates a new TaskRunner. factory is used to rebuild tasks
// found by recovery and by the stuck task monitor.
func NewTaskRunner(tracker TaskTracker, factory Factory, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "task_runner")

	ctx, cancel := context.WithCancel(context.Background())

	r := &TaskRunner{
		tracker:    tracker,
		factory:    factory,
		queue:      NewTaskQueue(config.QueueSize, logger),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger,
		active:     make(map[uuid.UUID]struct{}),
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}
	r.pool = NewWorkerPool(r.queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, r.processTask, logger)
	return r
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// Submit adds a new task to the queue. The task must already be known to
// the tracker. Submitting a task that is already queued or running is a
// no-op.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if !r.claim(task.ID()) {
		r.logger.DebugContext(ctx, "task already queued or running", "task_id", task.ID())
		return nil
	}
	if err := r.queue.Enqueue(task); err != nil {
		r.release(task.ID())
		r.logger.WarnContext(ctx, "failed to enqueue task",
			"task_id", task.ID(),
			"error", err)
		return fmt.Errorf("failed to submit task: %w", err)
	}
	return nil
}

// Start begins processing and recovers unfinished tasks.
func (r *TaskRunner) Start(ctx context.Context) error {
	r.pool.Start()

	if err := r.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	return nil
}

// claim marks id as queued. It reports false when the task is already
// queued or executing.
func (r *TaskRunner) claim(id uuid.UUID) bool {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()
	if _, ok := r.active[id]; ok {
		return false
	}
	r.active[id] = struct{}{}
	return true
}

func (r *TaskRunner) release(id uuid.UUID) {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()
	delete(r.active, id)
}

func (r *TaskRunner) isActive(id uuid.UUID) bool {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()
	_, ok := r.active[id]
	return ok
}

// Stop gracefully shuts down the task runner. Tasks interrupted by the
// shutdown keep their processing status and are recovered on the next start.
func (r *TaskRunner) Stop() {
	r.stopOnce.Do(func() {
		r.cancelFunc()
		r.pool.Stop()
		r.wg.Wait()
		r.queue.Close()
	})
}

// Recover requeues pending tasks and resets interrupted processing tasks.
// Tasks that do not fit in the queue are handed to a background goroutine
// that queues them as workers free up space.
func (r *TaskRunner) Recover(ctx context.Context) error {
	pendingIDs, err := r.tracker.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	// Get all processing tasks regardless of age
	processingIDs, err := r.tracker.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.InfoContext(ctx, "recovering unfinished tasks",
		"pending_count", len(pendingIDs),
		"processing_count", len(processingIDs))

	var backlog []Task
	for _, id := range pendingIDs {
		if task := r.requeue(ctx, id); task != nil {
			backlog = append(backlog, task)
		}
	}

	for _, id := range processingIDs {
		if r.isActive(id) {
			continue
		}
		if err := r.tracker.UpdateTaskStatus(ctx, id, domain.TaskStatusPending, "Reset after recovery"); err != nil {
			r.logger.ErrorContext(ctx, "failed to reset processing task status",
				"task_id", id,
				"error", err)
			continue
		}
		if task := r.requeue(ctx, id); task != nil {
			backlog = append(backlog, task)
		}
	}

	if len(backlog) > 0 {
		r.logger.InfoContext(ctx, "queue full, deferring recovered tasks", "count", len(backlog))
		r.wg.Add(1)
		go r.drainBacklog(backlog)
	}

	return nil
}

// requeue rebuilds a task and queues it unless it is already queued or
// running. When the queue is full the rebuilt task is returned, still
// claimed, so the caller can retry or release it.
func (r *TaskRunner) requeue(ctx context.Context, id uuid.UUID) Task {
	if !r.claim(id) {
		return nil
	}

	task, err := r.factory.CreateTask(id)
	if err != nil {
		r.release(id)
		r.logger.ErrorContext(ctx, "failed to rebuild task", "task_id", id, "error", err)
		return nil
	}

	err = r.queue.Enqueue(task)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrQueueFull):
		return task
	default:
		r.release(id)
		r.logger.ErrorContext(ctx, "failed to requeue task",
			"task_id", id,
			"task_type", task.Type(),
			"error", err)
		return nil
	}
}

// drainBacklog queues tasks one by one, waiting for room, until done or
// the runner stops.
func (r *TaskRunner) drainBacklog(tasks []Task) {
	defer r.wg.Done()

	for i, task := range tasks {
		if err := r.queue.EnqueueWait(r.ctx, task); err != nil {
			for _, t := range tasks[i:] {
				r.release(t.ID())
			}
			r.logger.Warn("stopped queueing recovered tasks",
				"remaining", len(tasks)-i,
				"error", err)
			return
		}
	}
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(ctx context.Context, task Task, workerID int) {
	log := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	defer r.release(task.ID())

	// Status updates must survive shutdown cancellation.
	statusCtx := context.WithoutCancel(ctx)

	if err := r.tracker.UpdateTaskStatus(statusCtx, task.ID(), domain.TaskStatusProcessing, ""); err != nil {
		log.Error("failed to update task status to processing", "error", err)
		return
	}

	log.Info("processing task")

	execCtx := ctx
	if r.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, r.config.TaskTimeout)
		defer cancel()
	}

	err := r.execute(execCtx, task)
	switch {
	case err != nil && ctx.Err() != nil:
		log.Warn("task interrupted by shutdown, it will be recovered on restart", "error", err)

	case err != nil:
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("task timed out after %s: %w", r.config.TaskTimeout, err)
		}
		log.Error("task execution failed", "error", err)
		if updateErr := r.tracker.UpdateTaskStatus(statusCtx, task.ID(), domain.TaskStatusFailed, err.Error()); updateErr != nil {
			log.Error("failed to update task status to failed", "error", updateErr)
		}
		r.errHandler(task, err)

	default:
		log.Info("task completed successfully")
		if updateErr := r.tracker.UpdateTaskStatus(statusCtx, task.ID(), domain.TaskStatusCompleted, ""); updateErr != nil {
			log.Error("failed to update task status to completed", "error", updateErr)
		}
	}
}

// execute converts a panic inside the task into an error.
func (r *TaskRunner) execute(ctx context.Context, task Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task panicked: %v", rec)
		}
	}()
	return task.Execute(ctx)
}

// stuckTaskMonitor periodically resets tasks that have been in "processing"
// state for too long and queues pending tasks that nothing holds
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			r.resetStuckTasks(r.ctx)
			r.requeuePending(r.ctx)
		}
	}
}

func (r *TaskRunner) resetStuckTasks(ctx context.Context) {
	stuckIDs, err := r.tracker.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to check for stuck tasks", "error", err)
		return
	}
	if len(stuckIDs) == 0 {
		return
	}

	r.logger.InfoContext(ctx, "found stuck tasks", "count", len(stuckIDs))

	for _, id := range stuckIDs {
		if r.isActive(id) {
			r.logger.DebugContext(ctx, "stuck task is still running, leaving it", "task_id", id)
			continue
		}
		if err := r.tracker.UpdateTaskStatus(ctx, id, domain.TaskStatusPending,
			"Reset after being stuck in processing state"); err != nil {
			r.logger.ErrorContext(ctx, "failed to reset stuck task status",
				"task_id", id,
				"error", err)
			continue
		}
		if task := r.requeue(ctx, id); task != nil {
			r.release(id)
		}
	}
}

// requeuePending queues pending tasks that are neither queued nor running,
// such as tasks dropped by a full queue. Those that still do not fit wait
// for the next check.
func (r *TaskRunner) requeuePending(ctx context.Context) {
	pendingIDs, err := r.tracker.GetPendingTasks(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to check for pending tasks", "error", err)
		return
	}

	for _, id := range pendingIDs {
		if task := r.requeue(ctx, id); task != nil {
			r.release(id)
			r.logger.DebugContext(ctx, "queue full, pending task left for next check", "task_id", id)
		}
	}
}

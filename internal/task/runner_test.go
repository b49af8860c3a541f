package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/artisan-api/internal/domain"
	"github.com/phrazzld/artisan-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunnerConfig() TaskRunnerConfig {
	cfg := DefaultTaskRunnerConfig()
	cfg.QueueSize = 10
	cfg.TaskTimeout = 0
	return cfg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestTaskRunnerSubmit(t *testing.T) {
	t.Parallel()

	cfg := testRunnerConfig()
	cfg.QueueSize = 1
	runner := NewTaskRunner(newMockTracker(), &mockFactory{}, cfg, logger.NewDiscardLogger())

	require.NoError(t, runner.Submit(context.Background(), newMockTask(uuid.New())))

	err := runner.Submit(context.Background(), newMockTask(uuid.New()))
	assert.ErrorIs(t, err, ErrQueueFull)

	runner.Stop()
	assert.ErrorIs(t, runner.Submit(context.Background(), newMockTask(uuid.New())), ErrQueueClosed)
}

func TestTaskRunnerProcessesTasks(t *testing.T) {
	t.Parallel()

	tracker := newMockTracker()
	runner := NewTaskRunner(tracker, &mockFactory{}, testRunnerConfig(), logger.NewDiscardLogger())
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	var mu sync.Mutex
	executed := make(map[uuid.UUID]bool)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		task := newMockTask(id)
		task.ExecuteFn = func(context.Context) error {
			mu.Lock()
			executed[task.ID()] = true
			mu.Unlock()
			return nil
		}
		require.NoError(t, runner.Submit(context.Background(), task))
	}

	for _, id := range ids {
		waitFor(t, func() bool { return tracker.status(id) == domain.TaskStatusCompleted })
		changes := tracker.changes(id)
		require.Len(t, changes, 2)
		assert.Equal(t, domain.TaskStatusProcessing, changes[0].Status)
		assert.Equal(t, domain.TaskStatusCompleted, changes[1].Status)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, executed, 3)
}

func TestTaskRunnerTaskFailure(t *testing.T) {
	t.Parallel()

	tracker := newMockTracker()
	runner := NewTaskRunner(tracker, &mockFactory{}, testRunnerConfig(), logger.NewDiscardLogger())

	handled := make(chan error, 1)
	runner.SetErrorHandler(func(_ Task, err error) { handled <- err })

	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	task := newMockTask(uuid.New())
	task.ExecuteFn = func(context.Context) error { return errors.New("intentional test failure") }
	require.NoError(t, runner.Submit(context.Background(), task))

	select {
	case err := <-handled:
		assert.EqualError(t, err, "intentional test failure")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error handler")
	}

	waitFor(t, func() bool { return tracker.status(task.ID()) == domain.TaskStatusFailed })
	changes := tracker.changes(task.ID())
	assert.Equal(t, "intentional test failure", changes[len(changes)-1].ErrorMsg)
}

func TestTaskRunnerPanicMarksFailed(t *testing.T) {
	t.Parallel()

	tracker := newMockTracker()
	runner := NewTaskRunner(tracker, &mockFactory{}, testRunnerConfig(), logger.NewDiscardLogger())
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	task := newMockTask(uuid.New())
	task.ExecuteFn = func(context.Context) error { panic("boom") }
	require.NoError(t, runner.Submit(context.Background(), task))

	waitFor(t, func() bool { return tracker.status(task.ID()) == domain.TaskStatusFailed })
	changes := tracker.changes(task.ID())
	assert.Contains(t, changes[len(changes)-1].ErrorMsg, "task panicked")
}

func TestTaskRunnerTimeout(t *testing.T) {
	t.Parallel()

	tracker := newMockTracker()
	cfg := testRunnerConfig()
	cfg.TaskTimeout = 20 * time.Millisecond
	runner := NewTaskRunner(tracker, &mockFactory{}, cfg, logger.NewDiscardLogger())
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	task := newMockTask(uuid.New())
	task.ExecuteFn = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	require.NoError(t, runner.Submit(context.Background(), task))

	waitFor(t, func() bool { return tracker.status(task.ID()) == domain.TaskStatusFailed })
	changes := tracker.changes(task.ID())
	assert.Contains(t, changes[len(changes)-1].ErrorMsg, "timed out")
}

func TestTaskRunnerStopLeavesInterruptedTaskProcessing(t *testing.T) {
	t.Parallel()

	tracker := newMockTracker()
	runner := NewTaskRunner(tracker, &mockFactory{}, testRunnerConfig(), logger.NewDiscardLogger())
	require.NoError(t, runner.Start(context.Background()))

	started := make(chan struct{})
	task := newMockTask(uuid.New())
	task.ExecuteFn = func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	require.NoError(t, runner.Submit(context.Background(), task))

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("task never started")
	}

	runner.Stop()
	runner.Stop()

	assert.Equal(t, domain.TaskStatusProcessing, tracker.status(task.ID()))
}

func TestTaskRunnerRecover(t *testing.T) {
	t.Parallel()

	tracker := newMockTracker()
	pendingID := uuid.New()
	processingID := uuid.New()
	completedID := uuid.New()
	tracker.add(pendingID, domain.TaskStatusPending, time.Now())
	tracker.add(processingID, domain.TaskStatusProcessing, time.Now())
	tracker.add(completedID, domain.TaskStatusCompleted, time.Now())

	var mu sync.Mutex
	executed := make(map[uuid.UUID]int)
	factory := &mockFactory{CreateFn: func(id uuid.UUID) (Task, error) {
		task := newMockTask(id)
		task.ExecuteFn = func(context.Context) error {
			mu.Lock()
			executed[id]++
			mu.Unlock()
			return nil
		}
		return task, nil
	}}

	runner := NewTaskRunner(tracker, factory, testRunnerConfig(), logger.NewDiscardLogger())
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	waitFor(t, func() bool {
		return tracker.status(pendingID) == domain.TaskStatusCompleted &&
			tracker.status(processingID) == domain.TaskStatusCompleted
	})

	changes := tracker.changes(processingID)
	require.NotEmpty(t, changes)
	assert.Equal(t, domain.TaskStatusPending, changes[0].Status)
	assert.Equal(t, "Reset after recovery", changes[0].ErrorMsg)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, executed[pendingID])
	assert.Equal(t, 1, executed[processingID])
	assert.Zero(t, executed[completedID])
}

func TestTaskRunnerRecoverErrors(t *testing.T) {
	t.Parallel()

	tracker := newMockTracker()
	tracker.PendingErr = errors.New("registry unavailable")
	runner := NewTaskRunner(tracker, &mockFactory{}, testRunnerConfig(), logger.NewDiscardLogger())

	err := runner.Start(context.Background())
	assert.ErrorContains(t, err, "failed to recover tasks")
}

func TestTaskRunnerRecoverSkipsUnbuildableTasks(t *testing.T) {
	t.Parallel()

	tracker := newMockTracker()
	tracker.add(uuid.New(), domain.TaskStatusPending, time.Now())
	factory := &mockFactory{CreateFn: func(uuid.UUID) (Task, error) {
		return nil, errors.New("cannot build")
	}}
	runner := NewTaskRunner(tracker, factory, testRunnerConfig(), logger.NewDiscardLogger())

	require.NoError(t, runner.Recover(context.Background()))
	assert.Zero(t, runner.queue.Len())
}

func TestTaskRunnerResetStuckTasks(t *testing.T) {
	t.Parallel()

	tracker := newMockTracker()
	stuckID := uuid.New()
	freshID := uuid.New()
	tracker.add(stuckID, domain.TaskStatusProcessing, time.Now().Add(-time.Hour))
	tracker.add(freshID, domain.TaskStatusProcessing, time.Now())

	cfg := testRunnerConfig()
	cfg.StuckTaskAge = 30 * time.Minute
	runner := NewTaskRunner(tracker, &mockFactory{}, cfg, logger.NewDiscardLogger())

	runner.resetStuckTasks(context.Background())

	assert.Equal(t, domain.TaskStatusPending, tracker.status(stuckID))
	assert.Equal(t, domain.TaskStatusProcessing, tracker.status(freshID))
	assert.Equal(t, 1, runner.queue.Len())
}

func TestTaskRunnerLeavesRunningTaskAlone(t *testing.T) {
	t.Parallel()

	tracker := newMockTracker()
	id := uuid.New()

	var mu sync.Mutex
	running, maxRunning, executions := 0, 0, 0
	factory := &mockFactory{CreateFn: func(id uuid.UUID) (Task, error) {
		task := newMockTask(id)
		task.ExecuteFn = func(context.Context) error {
			mu.Lock()
			running++
			executions++
			maxRunning = max(maxRunning, running)
			mu.Unlock()

			time.Sleep(300 * time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
			return nil
		}
		return task, nil
	}}

	cfg := testRunnerConfig()
	cfg.WorkerCount = 2
	cfg.StuckTaskAge = 30 * time.Millisecond
	cfg.StuckTaskCheckInterval = 10 * time.Millisecond
	runner := NewTaskRunner(tracker, factory, cfg, logger.NewDiscardLogger())
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	task, err := factory.CreateTask(id)
	require.NoError(t, err)
	require.NoError(t, runner.Submit(context.Background(), task))
	waitFor(t, func() bool { return tracker.status(id) == domain.TaskStatusProcessing })

	// A duplicate submission while the task runs is ignored.
	require.NoError(t, runner.Submit(context.Background(), task))

	waitFor(t, func() bool { return tracker.status(id) == domain.TaskStatusCompleted })
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, executions)
	assert.Equal(t, 1, maxRunning)
	for _, c := range tracker.changes(id) {
		assert.NotEqual(t, domain.TaskStatusPending, c.Status, "running task must not be reset")
	}
}

func TestTaskRunnerRecoverMoreTasksThanQueueSize(t *testing.T) {
	t.Parallel()

	tracker := newMockTracker()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids[:3] {
		tracker.add(id, domain.TaskStatusPending, time.Now())
	}
	tracker.add(ids[3], domain.TaskStatusProcessing, time.Now())

	var mu sync.Mutex
	executed := make(map[uuid.UUID]int)
	factory := &mockFactory{CreateFn: func(id uuid.UUID) (Task, error) {
		task := newMockTask(id)
		task.ExecuteFn = func(context.Context) error {
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			executed[id]++
			mu.Unlock()
			return nil
		}
		return task, nil
	}}

	cfg := testRunnerConfig()
	cfg.WorkerCount = 1
	cfg.QueueSize = 1
	runner := NewTaskRunner(tracker, factory, cfg, logger.NewDiscardLogger())
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	waitFor(t, func() bool {
		for _, id := range ids {
			if tracker.status(id) != domain.TaskStatusCompleted {
				return false
			}
		}
		return true
	})

	mu.Lock()
	defer mu.Unlock()
	for _, id := range ids {
		assert.Equal(t, 1, executed[id])
	}
}

func TestTaskRunnerRequeuePending(t *testing.T) {
	t.Parallel()

	tracker := newMockTracker()
	tracker.add(uuid.New(), domain.TaskStatusPending, time.Now())
	tracker.add(uuid.New(), domain.TaskStatusCompleted, time.Now())
	runner := NewTaskRunner(tracker, &mockFactory{}, testRunnerConfig(), logger.NewDiscardLogger())

	runner.requeuePending(context.Background())
	assert.Equal(t, 1, runner.queue.Len())

	// Already queued, so a second check adds nothing.
	runner.requeuePending(context.Background())
	assert.Equal(t, 1, runner.queue.Len())
}

func TestTaskRunnerRequeuePendingWithFullQueue(t *testing.T) {
	t.Parallel()

	tracker := newMockTracker()
	id := uuid.New()
	tracker.add(id, domain.TaskStatusPending, time.Now())

	cfg := testRunnerConfig()
	cfg.QueueSize = 1
	runner := NewTaskRunner(tracker, &mockFactory{}, cfg, logger.NewDiscardLogger())
	require.NoError(t, runner.Submit(context.Background(), newMockTask(uuid.New())))

	runner.requeuePending(context.Background())
	assert.Equal(t, 1, runner.queue.Len())
	assert.False(t, runner.isActive(id), "a task that did not fit is retried on the next check")
}

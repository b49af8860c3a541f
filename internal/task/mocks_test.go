package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/artisan-api/internal/domain"
	"github.com/phrazzld/artisan-api/internal/generation"
)

// MockTask is a Task whose behavior is supplied by ExecuteFn.
type MockTask struct {
	TaskID     uuid.UUID
	TaskType   string
	TaskStatus domain.TaskStatus
	ExecuteFn  func(ctx context.Context) error
}

func newMockTask(id uuid.UUID) *MockTask {
	return &MockTask{
		TaskID:     id,
		TaskType:   "mock_task",
		TaskStatus: domain.TaskStatusPending,
		ExecuteFn:  func(ctx context.Context) error { return nil },
	}
}

func (t *MockTask) ID() uuid.UUID { return t.TaskID }
func (t *MockTask) Type() string { return t.TaskType }
func (t *MockTask) Payload() []byte { return []byte(`{}`) }
func (t *MockTask) Status() domain.TaskStatus { return t.TaskStatus }
func (t *MockTask) Execute(ctx context.Context) error { return t.ExecuteFn(ctx) }

type statusChange struct {
	Status   domain.TaskStatus
	ErrorMsg string
}

// mockTracker keeps task statuses in memory and records every transition.
type mockTracker struct {
	mu        sync.Mutex
	statuses  map[uuid.UUID]domain.TaskStatus
	updatedAt map[uuid.UUID]time.Time
	history   map[uuid.UUID][]statusChange

	UpdateErr  error
	PendingErr error
}

func newMockTracker() *mockTracker {
	return &mockTracker{
		statuses:  make(map[uuid.UUID]domain.TaskStatus),
		updatedAt: make(map[uuid.UUID]time.Time),
		history:   make(map[uuid.UUID][]statusChange),
	}
}

func (m *mockTracker) add(id uuid.UUID, status domain.TaskStatus, updatedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[id] = status
	m.updatedAt[id] = updatedAt
}

func (m *mockTracker) UpdateTaskStatus(_ context.Context, id uuid.UUID, status domain.TaskStatus, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.statuses[id] = status
	m.updatedAt[id] = time.Now()
	m.history[id] = append(m.history[id], statusChange{Status: status, ErrorMsg: errorMsg})
	return nil
}

func (m *mockTracker) GetPendingTasks(_ context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PendingErr != nil {
		return nil, m.PendingErr
	}
	var ids []uuid.UUID
	for id, s := range m.statuses {
		if s == domain.TaskStatusPending {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *mockTracker) GetProcessingTasks(_ context.Context, olderThan time.Duration) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for id, s := range m.statuses {
		if s != domain.TaskStatusProcessing {
			continue
		}
		if olderThan > 0 && time.Since(m.updatedAt[id]) < olderThan {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockTracker) status(id uuid.UUID) domain.TaskStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses[id]
}

func (m *mockTracker) changes(id uuid.UUID) []statusChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]statusChange(nil), m.history[id]...)
}

// mockFactory builds tasks with CreateFn, or MockTasks by default.
type mockFactory struct {
	CreateFn func(id uuid.UUID) (Task, error)
}

func (f *mockFactory) CreateTask(id uuid.UUID) (Task, error) {
	if f.CreateFn != nil {
		return f.CreateFn(id)
	}
	return newMockTask(id), nil
}

// mockSink records what a running generation reports.
type mockSink struct {
	mu       sync.Mutex
	task     *domain.GenerationTask
	GetErr   error
	progress []int
	partials map[int]string
	articles []domain.GeneratedArticle
}

func newMockSink(task *domain.GenerationTask) *mockSink {
	return &mockSink{task: task, partials: make(map[int]string)}
}

func (s *mockSink) GetTask(_ context.Context, id uuid.UUID) (*domain.GenerationTask, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	if s.task == nil || s.task.ID != id {
		return nil, errors.New("task not found")
	}
	c := s.task.Clone()
	return &c, nil
}

func (s *mockSink) UpdateProgress(_ context.Context, _ uuid.UUID, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, progress)
}

func (s *mockSink) UpdatePartialArticle(_ context.Context, _ uuid.UUID, index int, partial string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partials[index] = partial
}

func (s *mockSink) SetArticles(_ context.Context, _ uuid.UUID, articles []domain.GeneratedArticle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles = articles
}

// mockTemplates is a store.TemplateStore with a fixed answer.
type mockTemplates struct {
	Template string
	Err      error
}

func (m *mockTemplates) GetPromptTemplate(context.Context) (string, error) { return m.Template, m.Err }
func (m *mockTemplates) SavePromptTemplate(_ context.Context, t string) error {
	m.Template = t
	return nil
}

// mockGenerator returns Content for every call and records prompts.
type mockGenerator struct {
	mu      sync.Mutex
	Content string
	Err     error
	prompts []string
}

func (g *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.Content, g.Err
}

func (g *mockGenerator) GenerateStream(ctx context.Context, prompt string, onChunk generation.ChunkFunc) (string, error) {
	content, err := g.Generate(ctx, prompt)
	if err == nil && onChunk != nil {
		onChunk(content)
	}
	return content, err
}

func (g *mockGenerator) TestConnection(context.Context) error { return g.Err }

func (g *mockGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

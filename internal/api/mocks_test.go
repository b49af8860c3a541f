package api

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/artisan-api/internal/domain"
	"github.com/phrazzld/artisan-api/internal/export"
	"github.com/phrazzld/artisan-api/internal/generation"
	"github.com/phrazzld/artisan-api/internal/service"
	"github.com/phrazzld/artisan-api/internal/store"
)

type mockTaskService struct {
	CreateTaskFn         func(ctx context.Context, params service.CreateTaskParams) (*domain.GenerationTask, error)
	GetAllTasksFn        func(ctx context.Context) []domain.GenerationTask
	GetTaskFn            func(ctx context.Context, id uuid.UUID) (*domain.GenerationTask, error)
	ExportTaskResultsFn  func(ctx context.Context, id uuid.UUID, format export.Format) (export.Result, error)
	ExportTaskArticlesFn func(ctx context.Context, id uuid.UUID, format export.Format) ([]export.Result, error)

	mu        sync.Mutex
	listeners []service.Listener
	snapshot  []domain.GenerationTask
}

func (m *mockTaskService) CreateTask(ctx context.Context, params service.CreateTaskParams) (*domain.GenerationTask, error) {
	return m.CreateTaskFn(ctx, params)
}

func (m *mockTaskService) GetAllTasks(ctx context.Context) []domain.GenerationTask {
	return m.GetAllTasksFn(ctx)
}

func (m *mockTaskService) GetTask(ctx context.Context, id uuid.UUID) (*domain.GenerationTask, error) {
	return m.GetTaskFn(ctx, id)
}

func (m *mockTaskService) ExportTaskResults(ctx context.Context, id uuid.UUID, format export.Format) (export.Result, error) {
	return m.ExportTaskResultsFn(ctx, id, format)
}

func (m *mockTaskService) ExportTaskArticles(ctx context.Context, id uuid.UUID, format export.Format) ([]export.Result, error) {
	return m.ExportTaskArticlesFn(ctx, id, format)
}

func (m *mockTaskService) Subscribe(listener service.Listener) func() {
	m.mu.Lock()
	m.listeners = append(m.listeners, listener)
	idx := len(m.listeners) - 1
	snapshot := m.snapshot
	m.mu.Unlock()

	listener(snapshot)
	return func() {
		m.mu.Lock()
		m.listeners[idx] = nil
		m.mu.Unlock()
	}
}

func (m *mockTaskService) publish(tasks []domain.GenerationTask) {
	m.mu.Lock()
	m.snapshot = tasks
	listeners := append([]service.Listener(nil), m.listeners...)
	m.mu.Unlock()
	for _, l := range listeners {
		if l != nil {
			l(tasks)
		}
	}
}

func (m *mockTaskService) listenerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.listeners {
		if l != nil {
			n++
		}
	}
	return n
}

type mockRules struct {
	rules domain.ContentRules
	err   error
}

func (m *mockRules) Get(context.Context) (domain.ContentRules, error) { return m.rules, m.err }

func (m *mockRules) Save(_ context.Context, rules domain.ContentRules) error {
	if m.err != nil {
		return m.err
	}
	m.rules = rules
	return nil
}

func (m *mockRules) Reset(context.Context) (domain.ContentRules, error) {
	m.rules = domain.DefaultRules()
	return m.rules, m.err
}

type mockTemplates struct {
	template string
	err      error
}

func (m *mockTemplates) GetPromptTemplate(context.Context) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.template == "" {
		return "", store.ErrTemplateNotFound
	}
	return m.template, nil
}

func (m *mockTemplates) SavePromptTemplate(_ context.Context, template string) error {
	if m.err != nil {
		return m.err
	}
	m.template = template
	return nil
}

type mockSettings struct {
	values map[string]string
	err    error
}

func (m *mockSettings) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return "", store.ErrSettingNotFound
}

func (m *mockSettings) Set(_ context.Context, key, value string) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *mockSettings) Delete(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

type mockGenerator struct {
	testErr error
}

func (m *mockGenerator) Generate(context.Context, string) (string, error) { return "", nil }

func (m *mockGenerator) GenerateStream(context.Context, string, generation.ChunkFunc) (string, error) {
	return "", nil
}

func (m *mockGenerator) TestConnection(context.Context) error { return m.testErr }

type mockProvider struct {
	gen        generation.Generator
	resolveErr error
	resets     int
}

func (m *mockProvider) Resolve(context.Context) (generation.Generator, error) {
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	return m.gen, nil
}

func (m *mockProvider) Reset() { m.resets++ }

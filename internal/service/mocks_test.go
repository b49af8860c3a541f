package service

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/artisan-api/internal/domain"
	"github.com/phrazzld/artisan-api/internal/events"
	"github.com/phrazzld/artisan-api/internal/export"
	"github.com/phrazzld/artisan-api/internal/store"
)

// mockTaskStore is a store.GenerationTaskStore with overridable behavior.
// Calls are recorded for assertions.
type mockTaskStore struct {
	mu sync.Mutex

	CreateFn          func(ctx context.Context, task *domain.GenerationTask) error
	ListFn            func(ctx context.Context) ([]*domain.GenerationTask, error)
	UpdateProgressFn  func(ctx context.Context, id uuid.UUID, update store.ProgressUpdate) error
	ReplaceArticlesFn func(ctx context.Context, id uuid.UUID, articles []domain.GeneratedArticle) error

	created  []*domain.GenerationTask
	progress []store.ProgressUpdate
	articles map[uuid.UUID][]domain.GeneratedArticle
}

var _ store.GenerationTaskStore = (*mockTaskStore)(nil)

func newMockTaskStore() *mockTaskStore {
	return &mockTaskStore{articles: make(map[uuid.UUID][]domain.GeneratedArticle)}
}

func (m *mockTaskStore) Create(ctx context.Context, task *domain.GenerationTask) error {
	if m.CreateFn != nil {
		if err := m.CreateFn(ctx, task); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, task)
	return nil
}

func (m *mockTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.GenerationTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.created {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, store.ErrTaskNotFound
}

func (m *mockTaskStore) List(ctx context.Context) ([]*domain.GenerationTask, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return nil, nil
}

func (m *mockTaskStore) ListByStatus(context.Context, domain.TaskStatus) ([]*domain.GenerationTask, error) {
	return nil, nil
}

func (m *mockTaskStore) UpdateProgress(ctx context.Context, id uuid.UUID, update store.ProgressUpdate) error {
	m.mu.Lock()
	m.progress = append(m.progress, update)
	m.mu.Unlock()
	if m.UpdateProgressFn != nil {
		return m.UpdateProgressFn(ctx, id, update)
	}
	return nil
}

func (m *mockTaskStore) ReplaceArticles(ctx context.Context, id uuid.UUID, articles []domain.GeneratedArticle) error {
	if m.ReplaceArticlesFn != nil {
		if err := m.ReplaceArticlesFn(ctx, id, articles); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles[id] = articles
	return nil
}

func (m *mockTaskStore) WithTx(*sql.Tx) store.GenerationTaskStore { return m }

func (m *mockTaskStore) progressUpdates() []store.ProgressUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.ProgressUpdate(nil), m.progress...)
}

// mockEmitter records emitted events and returns Err.
type mockEmitter struct {
	mu     sync.Mutex
	events []*events.TaskRequestEvent
	Err    error
}

func (m *mockEmitter) EmitEvent(_ context.Context, event *events.TaskRequestEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.Err
}

// mockExporter records the last export request.
type mockExporter struct {
	LastArticles []domain.GeneratedArticle
	LastOptions  export.Options
	Result       export.Result
}

func (m *mockExporter) ExportArticles(_ context.Context, articles []domain.GeneratedArticle, opts export.Options) export.Result {
	m.LastArticles = articles
	m.LastOptions = opts
	return m.Result
}

func (m *mockExporter) ExportBatch(_ context.Context, articles []domain.GeneratedArticle, opts export.Options) []export.Result {
	m.LastArticles = articles
	m.LastOptions = opts
	out := make([]export.Result, len(articles))
	for i := range out {
		out[i] = m.Result
	}
	return out
}

package main

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/artisan-api/internal/domain"
	"github.com/phrazzld/artisan-api/internal/store"
)

// memoryTaskStore is an in-memory store.GenerationTaskStore.
type memoryTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]domain.GenerationTask
}

var (
	_ store.GenerationTaskStore = (*memoryTaskStore)(nil)
	_ store.SettingsStore       = (*memorySettings)(nil)
	_ store.TemplateStore       = (*memorySettings)(nil)
)

func newMemoryTaskStore() *memoryTaskStore {
	return &memoryTaskStore{tasks: make(map[uuid.UUID]domain.GenerationTask)}
}

func (s *memoryTaskStore) Create(_ context.Context, task *domain.GenerationTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := task.Clone()
	c.Articles = nil
	s.tasks[task.ID] = c
	return nil
}

func (s *memoryTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.GenerationTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	c := t.Clone()
	return &c, nil
}

func (s *memoryTaskStore) List(ctx context.Context) ([]*domain.GenerationTask, error) {
	return s.ListByStatus(ctx, "")
}

func (s *memoryTaskStore) ListByStatus(_ context.Context, status domain.TaskStatus) ([]*domain.GenerationTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.GenerationTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		if status == "" || t.Status == status {
			c := t.Clone()
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *memoryTaskStore) UpdateProgress(_ context.Context, id uuid.UUID, update store.ProgressUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	t.Progress = update.Progress
	if update.Status != nil {
		t.Status = *update.Status
	}
	if update.ErrorMessage != nil {
		t.ErrorMessage = *update.ErrorMessage
	}
	s.tasks[id] = t
	return nil
}

func (s *memoryTaskStore) ReplaceArticles(_ context.Context, id uuid.UUID, articles []domain.GeneratedArticle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	t.Articles = append([]domain.GeneratedArticle(nil), articles...)
	s.tasks[id] = t
	return nil
}

func (s *memoryTaskStore) WithTx(*sql.Tx) store.GenerationTaskStore { return s }

func (s *memoryTaskStore) get(id uuid.UUID) (domain.GenerationTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

// memorySettings implements both store.SettingsStore and store.TemplateStore.
type memorySettings struct {
	mu       sync.Mutex
	values   map[string]string
	template string
}

func newMemorySettings() *memorySettings {
	return &memorySettings{values: make(map[string]string)}
}

func (s *memorySettings) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return "", store.ErrSettingNotFound
	}
	return v, nil
}

func (s *memorySettings) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *memorySettings) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *memorySettings) GetPromptTemplate(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.template == "" {
		return "", store.ErrTemplateNotFound
	}
	return s.template, nil
}

func (s *memorySettings) SavePromptTemplate(_ context.Context, template string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.template = template
	return nil
}

package generation_test

import (
	"context"
	"sync"

	"github.com/phrazzld/artisan-api/internal/generation"
)

// mockGenerator is a function-field mock of generation.Generator.
type mockGenerator struct {
	mu           sync.Mutex
	calls        int
	GenerateFn   func(ctx context.Context, prompt string, call int) (string, error)
	StreamChunks []string
	StreamErr    error
	TestConnErr  error
	LastPrompt   string
}

func (m *mockGenerator) nextCall(prompt string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.LastPrompt = prompt
	return m.calls
}

func (m *mockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	call := m.nextCall(prompt)
	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, prompt, call)
	}
	return "# Title\n\nBody", nil
}

func (m *mockGenerator) GenerateStream(ctx context.Context, prompt string, onChunk generation.ChunkFunc) (string, error) {
	call := m.nextCall(prompt)
	if m.StreamChunks == nil && m.GenerateFn != nil {
		return m.GenerateFn(ctx, prompt, call)
	}
	acc := ""
	for _, c := range m.StreamChunks {
		acc += c
		onChunk(acc)
	}
	if m.StreamErr != nil {
		return "", m.StreamErr
	}
	return acc, nil
}

func (m *mockGenerator) TestConnection(ctx context.Context) error {
	return m.TestConnErr
}

type staticRules struct {
	suffix string
}

func (r staticRules) Apply(_ context.Context, base string) string {
	return base + r.suffix
}

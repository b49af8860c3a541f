package rules_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/phrazzld/artisan-api/internal/domain"
	"github.com/phrazzld/artisan-api/internal/platform/logger"
	"github.com/phrazzld/artisan-api/internal/rules"
	"github.com/phrazzld/artisan-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySettings struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	setErr error
}

func newMemorySettings() *memorySettings {
	return &memorySettings{values: map[string]string{}}
}

func (m *memorySettings) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", store.ErrSettingNotFound
	}
	return v, nil
}

func (m *memorySettings) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *memorySettings) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func newService(t *testing.T, settings *memorySettings) *rules.Service {
	t.Helper()
	svc, err := rules.NewService(settings, logger.NewDiscardLogger())
	require.NoError(t, err)
	return svc
}

func TestNewServiceValidation(t *testing.T) {
	_, err := rules.NewService(nil, logger.NewDiscardLogger())
	assert.Error(t, err)
	_, err = rules.NewService(newMemorySettings(), nil)
	assert.Error(t, err)
}

func TestGetDefaults(t *testing.T) {
	svc := newService(t, newMemorySettings())

	r, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRules(), r)
}

func TestEnabledFlagParsing(t *testing.T) {
	tests := []struct {
		stored string
		want   bool
	}{
		{"false", false},
		{"true", true},
		{"FALSE", true},
		{"0", true},
		{"", true},
	}

	for _, tt := range tests {
		settings := newMemorySettings()
		settings.values[rules.EnabledKey] = tt.stored
		r, err := newService(t, settings).Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tt.want, r.Enabled, "stored flag %q", tt.stored)
	}
}

func TestSaveAndReset(t *testing.T) {
	ctx := context.Background()
	settings := newMemorySettings()
	svc := newService(t, settings)

	require.NoError(t, svc.Save(ctx, domain.ContentRules{Rules: "Be brief", Enabled: false}))
	assert.Equal(t, "Be brief", settings.values[rules.RulesKey])
	assert.Equal(t, "false", settings.values[rules.EnabledKey])

	r, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ContentRules{Rules: "Be brief", Enabled: false}, r)

	reset, err := svc.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRules(), reset)
	assert.Equal(t, "true", settings.values[rules.EnabledKey])
}

func TestSaveError(t *testing.T) {
	settings := newMemorySettings()
	settings.setErr = errors.New("disk full")
	err := newService(t, settings).Save(context.Background(), domain.DefaultRules())
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	t.Run("enabled rules are appended", func(t *testing.T) {
		settings := newMemorySettings()
		settings.values[rules.RulesKey] = "- Rule one"
		got := newService(t, settings).Apply(ctx, "BASE")
		assert.Equal(t,
			"BASE\n\nFollow these content generation rules:\n- Rule one\n\nMake sure the generated content strictly follows the rules above.",
			got)
	})

	t.Run("disabled rules leave prompt unchanged", func(t *testing.T) {
		settings := newMemorySettings()
		settings.values[rules.EnabledKey] = "false"
		assert.Equal(t, "BASE", newService(t, settings).Apply(ctx, "BASE"))
	})

	t.Run("blank rules leave prompt unchanged", func(t *testing.T) {
		settings := newMemorySettings()
		settings.values[rules.RulesKey] = "  \n "
		assert.Equal(t, "BASE", newService(t, settings).Apply(ctx, "BASE"))
	})

	t.Run("read failure falls back to defaults", func(t *testing.T) {
		settings := newMemorySettings()
		settings.getErr = errors.New("db down")
		got := newService(t, settings).Apply(ctx, "BASE")
		assert.Contains(t, got, domain.DefaultContentRules)
	})
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/phrazzld/artisan-api/internal/platform/logger"
	"github.com/phrazzld/artisan-api/internal/store"
)

// PostgresSettingsStore implements store.SettingsStore on the app_settings table.
type PostgresSettingsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.SettingsStore = (*PostgresSettingsStore)(nil)

// NewPostgresSettingsStore creates a settings store on db.
func NewPostgresSettingsStore(db store.DBTX, logger *slog.Logger) *PostgresSettingsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSettingsStore{
		db:     db,
		logger: logger.With(slog.String("component", "settings_store")),
	}
}

// Get implements store.SettingsStore.Get.
func (s *PostgresSettingsStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM app_settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrSettingNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to read setting",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return "", MapError(err)
	}
	return value, nil
}

// Set implements store.SettingsStore.Set.
func (s *PostgresSettingsStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to write setting",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// Delete implements store.SettingsStore.Delete.
func (s *PostgresSettingsStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM app_settings WHERE key = $1`, key); err != nil {
		return MapError(err)
	}
	return nil
}

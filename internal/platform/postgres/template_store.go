package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/phrazzld/artisan-api/internal/store"
)

// activeTemplateName is the row holding the template used for generation.
const activeTemplateName = "default"

// PostgresTemplateStore implements store.TemplateStore on the prompt_templates table.
type PostgresTemplateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.TemplateStore = (*PostgresTemplateStore)(nil)

// NewPostgresTemplateStore creates a template store on db.
func NewPostgresTemplateStore(db store.DBTX, logger *slog.Logger) *PostgresTemplateStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTemplateStore{
		db:     db,
		logger: logger.With(slog.String("component", "template_store")),
	}
}

// GetPromptTemplate implements store.TemplateStore.GetPromptTemplate.
func (s *PostgresTemplateStore) GetPromptTemplate(ctx context.Context) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM prompt_templates WHERE name = $1`, activeTemplateName).Scan(&content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrTemplateNotFound
		}
		s.logger.ErrorContext(ctx, "failed to read prompt template", slog.String("error", err.Error()))
		return "", MapError(err)
	}
	return content, nil
}

// SavePromptTemplate implements store.TemplateStore.SavePromptTemplate.
func (s *PostgresTemplateStore) SavePromptTemplate(ctx context.Context, template string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prompt_templates (name, content, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET content = EXCLUDED.content, updated_at = NOW()
	`, activeTemplateName, template)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to save prompt template", slog.String("error", err.Error()))
		return MapError(err)
	}
	s.logger.InfoContext(ctx, "prompt template saved", slog.Int("length", len(template)))
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/phrazzld/artisan-api/internal/domain"
	"github.com/phrazzld/artisan-api/internal/platform/logger"
	"github.com/phrazzld/artisan-api/internal/store"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var taskColumns = []string{
	"id", "company_info", "product_info", "article_count", "target_word_count",
	"status", "progress", "error_message", "created_at", "updated_at", "completed_at",
}

// PostgresTaskStore implements store.GenerationTaskStore using PostgreSQL.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.GenerationTaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a task store on db. If logger is nil, the
// default logger is used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// WithTx returns a store that runs its queries inside tx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.GenerationTaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

// Create implements store.GenerationTaskStore.Create.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.GenerationTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query, args, err := psql.Insert("generation_tasks").
		Columns(taskColumns...).
		Values(
			task.ID,
			task.CompanyInfo,
			task.ProductInfo,
			task.ArticleCount,
			nullableInt(task.TargetWordCount),
			string(task.Status),
			task.Progress,
			nullableString(task.ErrorMessage),
			task.CreatedAt,
			task.UpdatedAt,
			nullableTime(task.CompletedAt),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.Int("article_count", task.ArticleCount))
	return nil
}

// GetByID implements store.GenerationTaskStore.GetByID.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := psql.Select(taskColumns...).
		From("generation_tasks").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	task, err := scanTask(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	if err := s.attachArticles(ctx, []*domain.GenerationTask{task}); err != nil {
		return nil, err
	}
	return task, nil
}

// List implements store.GenerationTaskStore.List.
func (s *PostgresTaskStore) List(ctx context.Context) ([]*domain.GenerationTask, error) {
	return s.listWhere(ctx, nil, "created_at DESC")
}

// ListByStatus implements store.GenerationTaskStore.ListByStatus.
func (s *PostgresTaskStore) ListByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.GenerationTask, error) {
	return s.listWhere(ctx, sq.Eq{"status": string(status)}, "created_at ASC")
}

func (s *PostgresTaskStore) listWhere(ctx context.Context, pred sq.Sqlizer, orderBy string) ([]*domain.GenerationTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	builder := psql.Select(taskColumns...).From("generation_tasks").OrderBy(orderBy)
	if pred != nil {
		builder = builder.Where(pred)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.GenerationTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	if err := s.attachArticles(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// attachArticles loads the articles of all tasks with a single query.
func (s *PostgresTaskStore) attachArticles(ctx context.Context, tasks []*domain.GenerationTask) error {
	if len(tasks) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.GenerationTask, len(tasks))
	ids := make([]uuid.UUID, 0, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	var pred sq.Sqlizer = sq.Eq{"task_id": ids}
	if len(ids) == 1 {
		pred = sq.Eq{"task_id": ids[0]}
	}

	query, args, err := psql.Select("task_id", "title", "content", "word_count").
		From("generated_articles").
		Where(pred).
		OrderBy("task_id", "article_index ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build article query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to query articles", slog.String("error", err.Error()))
		return MapError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			taskID  uuid.UUID
			article domain.GeneratedArticle
		)
		if err := rows.Scan(&taskID, &article.Title, &article.Content, &article.WordCount); err != nil {
			return MapError(err)
		}
		if t, ok := byID[taskID]; ok {
			t.Articles = append(t.Articles, article)
		}
	}
	return MapError(rows.Err())
}

// UpdateProgress implements store.GenerationTaskStore.UpdateProgress.
func (s *PostgresTaskStore) UpdateProgress(ctx context.Context, id uuid.UUID, update store.ProgressUpdate) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if update.Progress < 0 || update.Progress > 100 {
		return domain.ErrInvalidProgress
	}

	now := time.Now().UTC()
	builder := psql.Update("generation_tasks").
		Set("progress", update.Progress).
		Set("updated_at", now)

	if update.Status != nil {
		if !update.Status.IsValid() {
			return domain.ErrInvalidTaskStatus
		}
		builder = builder.Set("status", string(*update.Status))
		if update.Status.IsFinished() {
			builder = builder.Set("completed_at", now)
		} else {
			builder = builder.Set("completed_at", nil)
		}
	}
	if update.ErrorMessage != nil {
		builder = builder.Set("error_message", nullableString(*update.ErrorMessage))
	}

	query, args, err := builder.Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update task progress",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// ReplaceArticles implements store.GenerationTaskStore.ReplaceArticles.
// When the store is bound to a *sql.DB the delete and insert run in their
// own transaction; a transaction-bound store uses the caller's.
func (s *PostgresTaskStore) ReplaceArticles(ctx context.Context, id uuid.UUID, articles []domain.GeneratedArticle) error {
	if db, ok := s.db.(*sql.DB); ok {
		return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
			return s.WithTx(tx).(*PostgresTaskStore).replaceArticles(ctx, id, articles)
		})
	}
	return s.replaceArticles(ctx, id, articles)
}

func (s *PostgresTaskStore) replaceArticles(ctx context.Context, id uuid.UUID, articles []domain.GeneratedArticle) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	touch, args, err := psql.Update("generation_tasks").
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}
	result, err := s.db.ExecContext(ctx, touch, args...)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	del, args, err := psql.Delete("generated_articles").Where(sq.Eq{"task_id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, del, args...); err != nil {
		log.Error("failed to delete articles",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}

	if len(articles) == 0 {
		return nil
	}

	insert := psql.Insert("generated_articles").
		Columns("task_id", "article_index", "title", "content", "word_count")
	for i, a := range articles {
		insert = insert.Values(id, i, a.Title, a.Content, a.WordCount)
	}
	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to insert articles",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()),
			slog.Int("article_count", len(articles)))
		return MapError(err)
	}

	log.Debug("articles replaced",
		slog.String("task_id", id.String()),
		slog.Int("article_count", len(articles)))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.GenerationTask, error) {
	var (
		task         domain.GenerationTask
		status       string
		targetWords  sql.NullInt64
		errorMessage sql.NullString
		completedAt  sql.NullTime
	)
	err := row.Scan(
		&task.ID,
		&task.CompanyInfo,
		&task.ProductInfo,
		&task.ArticleCount,
		&targetWords,
		&status,
		&task.Progress,
		&errorMessage,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	task.ErrorMessage = errorMessage.String
	if targetWords.Valid {
		v := int(targetWords.Int64)
		task.TargetWordCount = &v
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}
	return &task, nil
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/artisan-api/internal/api"
	"github.com/phrazzld/artisan-api/internal/config"
	"github.com/phrazzld/artisan-api/internal/events"
	"github.com/phrazzld/artisan-api/internal/export"
	"github.com/phrazzld/artisan-api/internal/generation"
	"github.com/phrazzld/artisan-api/internal/platform/postgres"
	"github.com/phrazzld/artisan-api/internal/rules"
	"github.com/phrazzld/artisan-api/internal/service"
	"github.com/phrazzld/artisan-api/internal/store"
	"github.com/phrazzld/artisan-api/internal/task"
)

// application holds the wired dependencies of the server.
type application struct {
	config *config.Config

	logger *slog.Logger
	db     *sql.DB

	taskStore     store.GenerationTaskStore
	settingsStore store.SettingsStore
	templateStore store.TemplateStore

	defaultTemplate string
	rulesService    *rules.Service
	provider        api.LLMProvider
	batch           *generation.BatchGenerator
	exporter        *export.Exporter
	eventEmitter    *events.InMemoryEventEmitter
	taskService     *service.TaskService
	taskRunner      *task.TaskRunner
}

// components are the stores an application is built on. Tests substitute
// in-memory versions.
type components struct {
	taskStore     store.GenerationTaskStore
	settingsStore store.SettingsStore
	templateStore store.TemplateStore
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app, err := buildApplication(cfg, logger, components{
		taskStore:     postgres.NewPostgresTaskStore(db, logger),
		settingsStore: postgres.NewPostgresSettingsStore(db, logger),
		templateStore: postgres.NewPostgresTemplateStore(db, logger),
	})
	if err != nil {
		return nil, err
	}
	app.db = db
	return app, nil
}

func buildApplication(cfg *config.Config, logger *slog.Logger, c components) (*application, error) {
	app := &application{
		config:        cfg,
		logger:        logger,
		taskStore:     c.taskStore,
		settingsStore: c.settingsStore,
		templateStore: c.templateStore,
	}

	var err error
	app.defaultTemplate, err = loadPromptTemplate(cfg.LLM.PromptTemplatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load default prompt template: %w", err)
	}

	app.rulesService, err = rules.NewService(app.settingsStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create rules service: %w", err)
	}

	app.provider, err = newLLMProvider(cfg.LLM, app.settingsStore, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("LLM provider initialized", "provider", cfg.LLM.Provider)

	app.batch, err = generation.NewBatchGenerator(
		logger,
		app.rulesService,
		generation.WithItemDelay(time.Duration(cfg.Generation.ItemDelayMillis)*time.Millisecond),
		generation.WithStreaming(cfg.LLM.Stream),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch generator: %w", err)
	}

	app.exporter = export.NewExporter(cfg.Export, logger)
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	app.taskService, err = service.NewTaskService(
		app.taskStore,
		app.eventEmitter,
		app.exporter,
		logger,
		service.WithMaxArticleCount(cfg.Generation.MaxArticleCount),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	taskFactory := task.NewArticleTaskFactory(task.ArticleTaskDeps{
		Sink:            app.taskService,
		Templates:       app.templateStore,
		DefaultTemplate: app.defaultTemplate,
		Resolver:        app.provider,
		Batch:           app.batch,
		Logger:          logger,
	})

	app.taskRunner = task.NewTaskRunner(app.taskService, taskFactory, taskRunnerConfig(cfg.Task), logger)

	app.eventEmitter.RegisterHandler(
		events.EventTypeArticleGeneration,
		task.NewTaskFactoryEventHandler(taskFactory, app.taskRunner, logger),
	)

	logger.Info("Application initialized successfully")
	return app, nil
}

func taskRunnerConfig(cfg config.TaskConfig) task.TaskRunnerConfig {
	rc := task.DefaultTaskRunnerConfig()
	rc.WorkerCount = cfg.WorkerCount
	rc.QueueSize = cfg.QueueSize
	rc.StuckTaskAge = time.Duration(cfg.StuckTaskAgeMinutes) * time.Minute
	rc.TaskTimeout = time.Duration(cfg.TimeoutMinutes) * time.Minute
	return rc
}

// start loads stored tasks and starts the runner, which requeues
// unfinished tasks.
func (app *application) start(ctx context.Context) error {
	if err := app.taskService.LoadTasks(ctx); err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}
	if err := app.taskRunner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}
	return nil
}

// Run starts background processing and serves HTTP until ctx is done.
func (app *application) Run(ctx context.Context) error {
	if err := app.start(ctx); err != nil {
		app.cleanup()
		return err
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the task runner and closes the database.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Failed to close database connection", "error", err)
		}
	}
}

package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/artisan-api/internal/api"
	apiMiddleware "github.com/phrazzld/artisan-api/internal/api/middleware"
	"github.com/phrazzld/artisan-api/internal/platform/gemini"
)

// setupRouter creates the router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	settingsHandler := api.NewSettingsHandler(api.SettingsHandlerDeps{
		Rules:           app.rulesService,
		Templates:       app.templateStore,
		DefaultTemplate: app.defaultTemplate,
		Settings:        app.settingsStore,
		APIKeySetting:   gemini.APIKeySetting,
		Provider:        app.provider,
		Logger:          app.logger,
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", taskHandler.CreateTask)
			r.Get("/", taskHandler.ListTasks)
			r.Get("/events", taskHandler.StreamTasks)
			r.Get("/{id}", taskHandler.GetTask)
			r.Post("/{id}/export", taskHandler.ExportTask)
		})

		r.Get("/export/formats", api.ListExportFormats)
		r.Post("/export/preview", api.PreviewExport)

		r.Get("/rules", settingsHandler.GetRules)
		r.Put("/rules", settingsHandler.SaveRules)
		r.Delete("/rules", settingsHandler.ResetRules)

		r.Get("/prompt-template", settingsHandler.GetPromptTemplate)
		r.Put("/prompt-template", settingsHandler.SavePromptTemplate)

		r.Put("/settings/api-key", settingsHandler.SaveAPIKey)
		r.Post("/llm/test", settingsHandler.TestConnection)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}

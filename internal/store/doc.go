// Package store defines interfaces for data persistence operations.
// Generation tasks with their articles, application settings and the prompt
// template are persisted behind these interfaces so the task service and the
// generation loop stay independent of the database in use.
package store

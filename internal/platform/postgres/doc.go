// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package: generation tasks
// and their articles, application settings and the prompt template. It also
// embeds the goose migrations that create the schema.
package postgres

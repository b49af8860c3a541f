// Package api exposes the task, export and settings operations over HTTP.
// Handlers decode and validate requests, call the services and map their
// errors to status codes with sanitized messages.
package api

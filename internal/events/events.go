package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventTypeArticleGeneration requests the background generation of a task's articles.
const EventTypeArticleGeneration = "article_generation"

// ErrInvalidPayload is returned when an event payload cannot be decoded.
var ErrInvalidPayload = errors.New("invalid event payload")

// TaskRequestEvent represents a request to create a background task.
// It contains the necessary information for task creation without
// direct dependencies on the task package.
type TaskRequestEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates the task type that should be created
	Type string `json:"type"`

	// Payload contains the task-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// ArticleGenerationPayload is the payload of an EventTypeArticleGeneration event.
type ArticleGenerationPayload struct {
	TaskID uuid.UUID `json:"task_id"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *TaskRequestEvent) UnmarshalPayload(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// TaskID extracts the generation task ID from an article generation event.
func (e *TaskRequestEvent) TaskID() (uuid.UUID, error) {
	var payload ArticleGenerationPayload
	if err := e.UnmarshalPayload(&payload); err != nil {
		return uuid.Nil, err
	}
	if payload.TaskID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: missing task_id", ErrInvalidPayload)
	}
	return payload.TaskID, nil
}

// NewTaskRequestEvent creates a new TaskRequestEvent with the specified type and payload.
func NewTaskRequestEvent(eventType string, payload any) (*TaskRequestEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &TaskRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewArticleGenerationEvent builds the event that schedules generation for taskID.
func NewArticleGenerationEvent(taskID uuid.UUID) (*TaskRequestEvent, error) {
	return NewTaskRequestEvent(EventTypeArticleGeneration, ArticleGenerationPayload{TaskID: taskID})
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *TaskRequestEvent) error
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event *TaskRequestEvent) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *TaskRequestEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to the handlers registered for its type.
	EmitEvent(ctx context.Context, event *TaskRequestEvent) error
}

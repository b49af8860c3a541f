package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// AnyEventType registers a handler for every event type.
const AnyEventType = "*"

// InMemoryEventEmitter dispatches events synchronously to handlers
// registered for the event's type.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
	logger   *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter creates a new instance of InMemoryEventEmitter.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		handlers: make(map[string][]EventHandler),
		logger:   logger.With("component", "in_memory_event_emitter"),
	}
}

// RegisterHandler subscribes handler to events of eventType. Use AnyEventType
// to receive everything.
func (e *InMemoryEventEmitter) RegisterHandler(eventType string, handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[eventType] = append(e.handlers[eventType], handler)
	e.logger.Debug("registered event handler",
		"event_type", eventType,
		"handler_count", len(e.handlers[eventType]))
}

// HandlerCount returns the number of handlers that would receive an event of eventType.
func (e *InMemoryEventEmitter) HandlerCount(eventType string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := len(e.handlers[eventType])
	if eventType != AnyEventType {
		n += len(e.handlers[AnyEventType])
	}
	return n
}

// EmitEvent publishes event to every matching handler. All handlers run even
// if some fail; their errors are joined.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *TaskRequestEvent) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	e.mu.RLock()
	handlers := make([]EventHandler, 0, len(e.handlers[event.Type])+len(e.handlers[AnyEventType]))
	handlers = append(handlers, e.handlers[event.Type]...)
	if event.Type != AnyEventType {
		handlers = append(handlers, e.handlers[AnyEventType]...)
	}
	e.mu.RUnlock()

	log := e.logger.With("event_id", event.ID, "event_type", event.Type)

	if len(handlers) == 0 {
		log.WarnContext(ctx, "no handlers registered for event")
		return nil
	}

	log.DebugContext(ctx, "emitting event", "handler_count", len(handlers))

	var errs []error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			log.ErrorContext(ctx, "handler failed to process event",
				"error", err,
				"handler_index", i)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

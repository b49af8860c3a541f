// Package events decouples the component that accepts a generation request
// from the component that schedules its background work.
//
// The task service emits a TaskRequestEvent after a task has been stored;
// handlers registered on an EventEmitter for that event type turn it into a
// queued background job. Neither side imports the other.
package events

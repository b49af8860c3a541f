// Package service contains the application-specific use cases. TaskService
// owns the registry of generation tasks: it accepts new tasks, publishes
// snapshots to subscribers, records the progress reported by background
// generation, keeps the store in sync and exports finished articles.
//
// The service depends on store interfaces and on the events package, never
// on infrastructure implementations or on the task runner itself. It
// satisfies task.TaskTracker and task.ProgressSink structurally.
package service

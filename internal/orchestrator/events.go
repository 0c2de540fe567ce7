package orchestrator

import "time"

// Event is one orchestrator lifecycle event. Minimal and stable: name, the
// task it refers to (if any) and optional fields.
type Event struct {
	ID     string
	Name   string
	TaskID string
	Time   time.Time
	Fields map[string]any
}

// Event names.
const (
	EventBackendSpawned     = "backend_spawned"
	EventBackendSpawnFailed = "backend_spawn_failed"
	EventBackendReady       = "backend_ready"
	EventBackendErrored     = "backend_errored"
	EventBackendCrashed     = "backend_crashed"
	EventBackendStopped     = "backend_stopped"
	EventTaskSubmitted      = "task_submitted"
	EventTaskProgress       = "task_progress"
	EventTaskPollError      = "task_poll_error"
	EventTaskFinished       = "task_finished"
	EventTaskResult         = "task_result"
	EventTaskResultError    = "task_result_error"
	EventTaskCancelRequest  = "task_cancel_requested"
	EventTaskDismissed      = "task_dismissed"
)

// EventPublisher receives events from the orchestrator. Implementations
// should be lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: backend not ready
	Error string `json:"error" example:"backend not ready"`
	// HTTP status code.
	// example: 503
	Code int `json:"code" example:"503"`
}

// BackendStatus describes the supervised inference backend.
type BackendStatus struct {
	// Readiness state: starting, waiting, ready or errored.
	// example: waiting
	State string `json:"state" example:"waiting"`
	// Human-readable status line.
	// example: Loading models... (12s)
	StatusText string `json:"status_text" example:"Loading models... (12s)"`
	// Seconds since the backend was spawned, as of the last health tick.
	// example: 12
	ElapsedSeconds int64 `json:"elapsed_seconds" example:"12"`
	// Fixed error message once errored.
	// example: backend process exited before it became ready
	Error string `json:"error,omitempty" example:"backend process exited before it became ready"`
	// Underlying cause of the error, when known.
	Detail string `json:"detail,omitempty"`
	// Result of the last failed health probe.
	// example: models not loaded
	LastProbe string `json:"last_probe,omitempty" example:"models not loaded"`
	// Backend HTTP root.
	// example: http://localhost:8000
	Endpoint string `json:"endpoint" example:"http://localhost:8000"`
	// Process ID of the backend (0 when never spawned).
	// example: 12345
	PID int `json:"pid,omitempty" example:"12345"`
	// Whether the backend process is running.
	// example: true
	Alive bool `json:"alive" example:"true"`
}

// SegmentProgress reports multi-speaker progress.
type SegmentProgress struct {
	// example: 2
	Current int `json:"current" example:"2"`
	// example: 3
	Total int `json:"total" example:"3"`
}

// TaskView is the client-side view of the current generation task.
type TaskView struct {
	// Backend task identifier.
	// example: 6f1c2a9e
	ID string `json:"id" example:"6f1c2a9e"`
	// Submission variant: clone, clone_with_upload, multi_speaker, voice_design, custom_voice.
	// example: multi_speaker
	Kind string `json:"kind" example:"multi_speaker"`
	// Lifecycle phase: processing, completed, failed or cancelled.
	// example: processing
	Phase string `json:"phase" example:"processing"`
	// Progress percentage 0..100.
	// example: 45
	Progress int `json:"progress" example:"45"`
	// Display label derived from phase and progress.
	// example: generating segment 2 of 3...
	Label string `json:"label" example:"generating segment 2 of 3..."`
	// Present for multi-speaker tasks only.
	Segments *SegmentProgress `json:"segments,omitempty"`
	// Seconds counted locally, one tick per successful poll.
	// example: 9
	ElapsedSeconds int64 `json:"elapsed_seconds" example:"9"`
	// Last error observed for this task.
	LastError string `json:"last_error,omitempty"`
	// Classification of last_error: poll, backend, result_fetch or cancel.
	ErrorKind string `json:"error_kind,omitempty"`
	// Whether the result audio has been fetched.
	// example: false
	HasAudio bool `json:"has_audio" example:"false"`
	// Size of the fetched audio in bytes.
	AudioBytes int `json:"audio_bytes,omitempty"`
	// Backend-side output path, when reported.
	OutputPath string `json:"output_path,omitempty"`
	// Creation time (unix seconds).
	// example: 1700000000
	CreatedUnix int64 `json:"created_unix" example:"1700000000"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Backend BackendStatus `json:"backend"`
	// Current task, absent when the slot is empty.
	Task *TaskView `json:"task,omitempty"`
	// Uptime of the control server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	// example: cancel requested
	Message string `json:"message" example:"cancel requested"`
}

// RenameReferenceRequest is the body of PUT /backend/references/{id}/name.
type RenameReferenceRequest struct {
	Name string `json:"name"`
}

// EventView is one orchestrator event as streamed on GET /events.
type EventView struct {
	// Unique event id.
	ID string `json:"id"`
	// Event name, e.g. backend_ready or task_progress.
	// example: task_progress
	Name string `json:"name" example:"task_progress"`
	// Task the event refers to, if any.
	TaskID string `json:"task_id,omitempty"`
	// Event time (unix milliseconds).
	TimeUnixMs int64 `json:"time_unix_ms"`
	// Event-specific fields.
	Fields map[string]any `json:"fields,omitempty"`
}

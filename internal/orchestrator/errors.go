package orchestrator

import (
	"errors"

	"qvox/internal/backend"
)

var (
	// ErrBackendNotReady rejects work before the health gate reached ready.
	ErrBackendNotReady = errors.New("backend not ready")
	// ErrTaskAlreadyActive rejects a submission while a task is processing.
	ErrTaskAlreadyActive = errors.New("a generation task is already active")
	// ErrTaskStillRunning rejects dismissing a processing task.
	ErrTaskStillRunning = errors.New("task is still processing")
	ErrNoTask           = errors.New("no generation task")
	ErrNoAudio          = errors.New("task has no result audio")
	ErrInvalidRequest   = errors.New("invalid generation request")
	// ErrBackendRestarted discards a submission accepted by a backend that
	// was replaced while the request was in flight.
	ErrBackendRestarted = errors.New("backend restarted during submission")
)

// SubmissionError means the backend could not be reached or refused a
// submission. The task slot is unchanged.
type SubmissionError struct {
	Kind backend.Kind
	Err  error
}

func (e *SubmissionError) Error() string {
	return "submit " + string(e.Kind) + ": " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// IsSubmissionError reports whether err is a failed submission.
func IsSubmissionError(err error) bool {
	var se *SubmissionError
	return errors.As(err, &se)
}

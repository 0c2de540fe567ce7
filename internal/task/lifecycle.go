package task

import (
	"errors"
	"time"

	"qvox/internal/backend"
)

// ApplyStatus folds one successful poll into the task. It reports true
// exactly once: on the first poll that observes Completed, when the caller
// must fetch the result. Terminal tasks are left untouched.
func (t *Task) ApplyStatus(resp backend.TaskStatusResponse, interval time.Duration) (fetch bool) {
	if t.Phase.Terminal() {
		return false
	}
	t.Phase = phaseOf(resp.Status)
	t.Progress = clampProgress(resp.Progress)
	t.Elapsed += interval

	if resp.IsMultiSpeaker != nil && *resp.IsMultiSpeaker {
		ms := MultiSegment{}
		if t.MultiSegment != nil {
			ms = *t.MultiSegment
		}
		if resp.TotalSegments != nil {
			ms.Total = *resp.TotalSegments
		}
		if resp.CurrentSegment != nil {
			ms.Current = *resp.CurrentSegment
		}
		t.MultiSegment = &ms
	}
	if resp.OutputPath != nil {
		t.OutputPath = *resp.OutputPath
	}

	switch {
	case resp.Error != nil && *resp.Error != "":
		t.LastError = *resp.Error
		t.ErrorKind = ErrorBackend
	case t.Phase == Failed:
		t.LastError = ""
		t.ErrorKind = ErrorBackend
	default:
		t.LastError = ""
		t.ErrorKind = ErrorNone
	}

	if t.Phase == Completed && !t.FetchAttempted {
		t.FetchAttempted = true
		return true
	}
	return false
}

// ApplyPollError records a failed poll. Phase and progress are unchanged.
func (t *Task) ApplyPollError(err error) {
	if err == nil || t.Phase.Terminal() {
		return
	}
	t.LastError = err.Error()
	t.ErrorKind = ErrorPoll
}

// ErrEmptyResult is recorded when the backend serves a zero-length result.
var ErrEmptyResult = errors.New("backend returned an empty audio result")

// ApplyResult stores the fetched result bytes. Only a Completed task without
// audio accepts them; an empty body counts as a failed fetch.
func (t *Task) ApplyResult(audio []byte) {
	if t.Phase != Completed || t.ResultAudio != nil {
		return
	}
	if len(audio) == 0 {
		t.ApplyResultError(ErrEmptyResult)
		return
	}
	t.ResultAudio = audio
	t.LastError = ""
	t.ErrorKind = ErrorNone
}

// ApplyResultError records a failed result fetch. The task stays Completed.
func (t *Task) ApplyResultError(err error) {
	if err == nil || t.Phase != Completed {
		return
	}
	t.LastError = err.Error()
	t.ErrorKind = ErrorResultFetch
}

// ApplyCancelError records a failed cancel request on a running task.
func (t *Task) ApplyCancelError(err error) {
	if err == nil || t.Phase != Processing {
		return
	}
	t.LastError = err.Error()
	t.ErrorKind = ErrorCancel
}

func phaseOf(s backend.TaskStatus) Phase {
	switch s {
	case backend.StatusCompleted:
		return Completed
	case backend.StatusFailed:
		return Failed
	case backend.StatusCancelled:
		return Cancelled
	default:
		return Processing
	}
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

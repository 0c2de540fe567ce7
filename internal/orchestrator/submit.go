package orchestrator

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"qvox/internal/backend"
	"qvox/internal/supervisor"
	"qvox/internal/task"
)

// Submit sends a generation request and takes the task slot on success.
// It fails with ErrInvalidRequest, ErrBackendNotReady, ErrTaskAlreadyActive
// or a *SubmissionError; in every failure case the slot is unchanged.
func (o *Orchestrator) Submit(ctx context.Context, req backend.GenerationRequest) (task.Task, error) {
	n, err := backend.Normalize(req)
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	kind := n.Kind()

	o.mu.Lock()
	if o.gate.State() != supervisor.GateReady {
		o.mu.Unlock()
		tasksSubmitted.WithLabelValues(string(kind), "not_ready").Inc()
		return task.Task{}, ErrBackendNotReady
	}
	if o.submitting || (o.cur != nil && o.cur.Phase == task.Processing) {
		o.mu.Unlock()
		tasksSubmitted.WithLabelValues(string(kind), "busy").Inc()
		return task.Task{}, ErrTaskAlreadyActive
	}
	o.submitting = true
	client := o.client
	gen := o.gen
	o.mu.Unlock()

	resp, err := client.Submit(ctx, n)

	o.mu.Lock()
	o.submitting = false
	if err != nil {
		o.mu.Unlock()
		tasksSubmitted.WithLabelValues(string(kind), "error").Inc()
		o.log.Warn().Str("event", "submit_failed").Str("kind", string(kind)).Err(err).Msg("generation submission failed")
		return task.Task{}, &SubmissionError{Kind: kind, Err: err}
	}
	if o.gen != gen {
		o.mu.Unlock()
		tasksSubmitted.WithLabelValues(string(kind), "error").Inc()
		o.log.Warn().Str("event", "submit_discarded").Str("kind", string(kind)).Str("task_id", resp.TaskID).Msg("backend restarted while submitting; task dropped")
		return task.Task{}, &SubmissionError{Kind: kind, Err: ErrBackendRestarted}
	}
	segments := 0
	if ms, ok := n.(backend.MultiSpeakerRequest); ok {
		segments = len(ms.Segments)
	}
	t := task.New(resp.TaskID, kind, segments, o.cfg.Now())
	o.cur = &t
	out := t.Clone()
	o.mu.Unlock()

	tasksSubmitted.WithLabelValues(string(kind), "ok").Inc()
	o.log.Info().Str("event", EventTaskSubmitted).Str("task_id", t.ID).Str("kind", string(kind)).Int("segments", segments).Msg("generation task started")
	fields := map[string]any{"kind": string(kind)}
	if segments > 0 {
		fields["total_segments"] = segments
	}
	o.publish(EventTaskSubmitted, t.ID, fields)
	return out, nil
}

// Cancel asks the backend to cancel the processing task. The next poll
// observes the cancelled phase. Cancellation is never issued implicitly.
func (o *Orchestrator) Cancel(ctx context.Context) error {
	o.mu.Lock()
	if o.cur == nil || o.cur.Phase != task.Processing {
		o.mu.Unlock()
		return ErrNoTask
	}
	id := o.cur.ID
	client := o.client
	o.mu.Unlock()

	if _, err := client.CancelTask(ctx, id); err != nil {
		o.mu.Lock()
		if o.cur != nil && o.cur.ID == id {
			o.cur.ApplyCancelError(err)
		}
		o.mu.Unlock()
		return fmt.Errorf("cancel task %s: %w", id, err)
	}
	o.log.Info().Str("event", EventTaskCancelRequest).Str("task_id", id).Msg("cancel requested")
	o.publish(EventTaskCancelRequest, id, nil)
	return nil
}

// Dismiss clears a terminal task from the slot.
func (o *Orchestrator) Dismiss() error {
	o.mu.Lock()
	if o.cur == nil {
		o.mu.Unlock()
		return ErrNoTask
	}
	if o.cur.Phase == task.Processing {
		o.mu.Unlock()
		return ErrTaskStillRunning
	}
	id := o.cur.ID
	o.cur = nil
	o.mu.Unlock()
	o.publish(EventTaskDismissed, id, nil)
	return nil
}

// Audio returns the result bytes of the current task.
func (o *Orchestrator) Audio() ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cur == nil {
		return nil, ErrNoTask
	}
	if !o.cur.HasAudio() {
		return nil, ErrNoAudio
	}
	return o.cur.ResultAudio, nil
}

// Task returns a copy of the current task, if any.
func (o *Orchestrator) Task() (task.Task, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cur == nil {
		return task.Task{}, false
	}
	return o.cur.Clone(), true
}

func audioSize(b []byte) string { return humanize.Bytes(uint64(len(b))) }

package orchestrator

import (
	"context"

	"qvox/internal/supervisor"
	"qvox/internal/task"
)

// Tick performs one step of whichever loop is active: a health gate tick
// while the backend is starting, otherwise at most one poll of the
// processing task. Calls are serialized.
func (o *Orchestrator) Tick(ctx context.Context) {
	o.tickMu.Lock()
	defer o.tickMu.Unlock()

	if o.gate.Active() {
		o.tickGate(ctx)
		return
	}
	switch {
	case o.gate.State() == supervisor.GateReady && !o.proc.IsAlive():
		detail := ""
		if err := o.proc.ExitErr(); err != nil {
			detail = err.Error()
		}
		o.gate.MarkCrashed(detail)
		setGateState(supervisor.GateErrored)
		o.log.Error().Str("event", EventBackendCrashed).Str("detail", detail).Str("stderr_tail", o.proc.StderrTail()).Msg(supervisor.MsgExitedLater)
		o.publish(EventBackendCrashed, "", map[string]any{"error": supervisor.MsgExitedLater, "detail": detail})
		// One last poll records on the task why it stalled.
	case o.gate.State() != supervisor.GateReady:
		return
	}
	o.pollTask(ctx)
}

func (o *Orchestrator) tickGate(ctx context.Context) {
	client := o.backendClient()
	prev := o.gate.State()
	st := o.gate.Tick(ctx, o.proc, client)
	if st == prev && st != supervisor.GateWaiting {
		return
	}
	setGateState(st)
	snap := o.gate.Snapshot()
	switch st {
	case supervisor.GateReady:
		o.mu.Lock()
		waited := o.cfg.Now().Sub(o.spawnedAt)
		o.mu.Unlock()
		readySeconds.Observe(waited.Seconds())
		o.log.Info().Str("event", EventBackendReady).Dur("waited", waited).Msg("backend ready")
		o.publish(EventBackendReady, "", map[string]any{"elapsed_seconds": int64(snap.Elapsed.Seconds())})
	case supervisor.GateErrored:
		o.log.Error().Str("event", EventBackendErrored).Str("stderr_tail", o.proc.StderrTail()).Msg(snap.Error)
		o.publish(EventBackendErrored, "", map[string]any{"error": snap.Error})
	case supervisor.GateWaiting:
		o.log.Debug().Str("event", "backend_waiting").Str("status", snap.StatusText).Str("probe", snap.LastProbe).Msg("waiting for backend")
	}
}

func (o *Orchestrator) pollTask(ctx context.Context) {
	o.mu.Lock()
	if o.cur == nil || o.cur.Phase != task.Processing {
		o.mu.Unlock()
		return
	}
	id := o.cur.ID
	client := o.client
	o.mu.Unlock()

	resp, err := client.TaskStatus(ctx, id)

	o.mu.Lock()
	if o.cur == nil || o.cur.ID != id {
		o.mu.Unlock()
		return
	}
	if err != nil {
		o.cur.ApplyPollError(err)
		o.mu.Unlock()
		taskPolls.WithLabelValues("error").Inc()
		o.log.Warn().Str("event", EventTaskPollError).Str("task_id", id).Err(err).Msg("task poll failed")
		o.publish(EventTaskPollError, id, map[string]any{"error": err.Error()})
		return
	}
	fetch := o.cur.ApplyStatus(resp, o.cfg.TickInterval)
	t := o.cur.Clone()
	o.mu.Unlock()
	taskPolls.WithLabelValues("ok").Inc()

	fields := map[string]any{"phase": string(t.Phase), "progress": t.Progress, "label": task.Label(t)}
	if t.MultiSegment != nil {
		fields["current_segment"] = t.MultiSegment.Current
		fields["total_segments"] = t.MultiSegment.Total
	}
	o.publish(EventTaskProgress, id, fields)

	if t.Phase.Terminal() {
		tasksFinished.WithLabelValues(string(t.Kind), string(t.Phase)).Inc()
		ev := o.log.Info()
		if t.Phase == task.Failed {
			ev = o.log.Warn()
		}
		ev.Str("event", EventTaskFinished).Str("task_id", id).Str("phase", string(t.Phase)).Dur("elapsed", t.Elapsed).Str("error", t.LastError).Msg("generation task finished")
		o.publish(EventTaskFinished, id, map[string]any{"phase": string(t.Phase), "error": t.LastError})
	}
	if fetch {
		o.fetchResult(ctx, client, id)
	}
}

// fetchResult downloads the result once. A failure is recorded on the task
// and never retried.
func (o *Orchestrator) fetchResult(ctx context.Context, client Backend, id string) {
	audio, err := client.TaskAudio(ctx, id)
	if err == nil && len(audio) == 0 {
		err = task.ErrEmptyResult
	}
	o.mu.Lock()
	if o.cur == nil || o.cur.ID != id {
		o.mu.Unlock()
		return
	}
	if err != nil {
		o.cur.ApplyResultError(err)
		o.mu.Unlock()
		resultFetches.WithLabelValues("error").Inc()
		o.log.Error().Str("event", EventTaskResultError).Str("task_id", id).Err(err).Msg("result fetch failed")
		o.publish(EventTaskResultError, id, map[string]any{"error": err.Error()})
		return
	}
	o.cur.ApplyResult(audio)
	o.mu.Unlock()
	resultFetches.WithLabelValues("ok").Inc()
	resultBytes.Add(float64(len(audio)))
	o.log.Info().Str("event", EventTaskResult).Str("task_id", id).Str("size", audioSize(audio)).Msg("result audio fetched")
	o.publish(EventTaskResult, id, map[string]any{"bytes": len(audio)})
}

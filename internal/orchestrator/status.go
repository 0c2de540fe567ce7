package orchestrator

import (
	"qvox/internal/supervisor"
	"qvox/internal/task"
	"qvox/pkg/types"
)

// Snapshot is a read-only projection of the orchestrator state.
type Snapshot struct {
	Gate     supervisor.GateSnapshot
	Task     *task.Task
	Endpoint string
	PID      int
	Alive    bool
}

// Snapshot returns copies of the gate and task state.
func (o *Orchestrator) Snapshot() Snapshot {
	s := Snapshot{
		Gate:     o.gate.Snapshot(),
		Endpoint: o.proc.BaseEndpoint(),
		PID:      o.proc.PID(),
		Alive:    o.proc.IsAlive(),
	}
	o.mu.Lock()
	if o.cur != nil {
		t := o.cur.Clone()
		s.Task = &t
	}
	o.mu.Unlock()
	return s
}

// Status builds the response for GET /status.
func (o *Orchestrator) Status() types.StatusResponse {
	s := o.Snapshot()
	now := o.cfg.Now()
	resp := types.StatusResponse{
		Backend: types.BackendStatus{
			State:          string(s.Gate.State),
			StatusText:     s.Gate.StatusText,
			ElapsedSeconds: int64(s.Gate.Elapsed.Seconds()),
			Error:          s.Gate.Error,
			Detail:         s.Gate.Detail,
			LastProbe:      s.Gate.LastProbe,
			Endpoint:       s.Endpoint,
			PID:            s.PID,
			Alive:          s.Alive,
		},
		UptimeSeconds:  int64(now.Sub(o.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
	if s.Task != nil {
		v := TaskView(*s.Task)
		resp.Task = &v
	}
	return resp
}

// TaskView converts a task into its API representation.
func TaskView(t task.Task) types.TaskView {
	v := types.TaskView{
		ID:             t.ID,
		Kind:           string(t.Kind),
		Phase:          string(t.Phase),
		Progress:       t.Progress,
		Label:          task.Label(t),
		ElapsedSeconds: int64(t.Elapsed.Seconds()),
		LastError:      t.LastError,
		ErrorKind:      string(t.ErrorKind),
		HasAudio:       t.HasAudio(),
		AudioBytes:     len(t.ResultAudio),
		OutputPath:     t.OutputPath,
		CreatedUnix:    t.CreatedAt.Unix(),
	}
	if t.MultiSegment != nil {
		v.Segments = &types.SegmentProgress{Current: t.MultiSegment.Current, Total: t.MultiSegment.Total}
	}
	return v
}

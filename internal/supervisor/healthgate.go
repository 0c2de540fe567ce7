package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// GateState is the readiness state of a spawned backend.
type GateState string

const (
	GateStarting GateState = "starting"
	GateWaiting  GateState = "waiting"
	GateReady    GateState = "ready"
	GateErrored  GateState = "errored"
)

// Fixed gate messages. Crashed and NotStarted must stay distinguishable.
const (
	MsgCrashed      = "backend process exited before it became ready"
	MsgNotStarted   = "backend process could not be started"
	MsgExitedLater  = "backend process exited unexpectedly"
	msgTimeoutFmt   = "backend did not become ready within %s"
	statusStarting  = "Starting server..."
	statusLoadingFm = "Loading models... (%ds)"
	statusReady     = "Ready"
)

// Liveness is the part of a Supervisor the gate needs.
type Liveness interface {
	IsAlive() bool
}

// Prober performs one readiness probe.
type Prober interface {
	Probe(ctx context.Context) (bool, error)
}

// GateSnapshot is a copy of the gate's observable state.
type GateSnapshot struct {
	State      GateState
	StatusText string
	Elapsed    time.Duration
	// Error is the fixed gate message once errored.
	Error string
	// Detail is the underlying cause, when one is known.
	Detail    string
	LastProbe string
}

// HealthGate tracks one backend from spawn to ready or errored. Tick is not
// safe for concurrent use with itself; Snapshot may be called at any time.
type HealthGate struct {
	timeout time.Duration
	now     func() time.Time

	mu        sync.Mutex
	state     GateState
	startedAt time.Time
	elapsed   time.Duration
	status    string
	errMsg    string
	detail    string
	lastProbe string
}

// NewHealthGate returns a gate in the starting state. timeout <= 0 waits
// indefinitely.
func NewHealthGate(timeout time.Duration) *HealthGate {
	g := &HealthGate{timeout: timeout, now: time.Now}
	g.Reset()
	return g
}

// Reset puts the gate back to starting, as after a fresh spawn.
func (g *HealthGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = GateStarting
	g.startedAt = g.now()
	g.elapsed = 0
	g.status = statusStarting
	g.errMsg, g.detail, g.lastProbe = "", "", ""
}

// Active reports whether the gate still polls.
func (g *HealthGate) Active() bool {
	s := g.State()
	return s == GateStarting || s == GateWaiting
}

// State returns the current state.
func (g *HealthGate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Tick runs one liveness check and at most one probe. It is a no-op once
// the gate is ready or errored.
func (g *HealthGate) Tick(ctx context.Context, l Liveness, p Prober) GateState {
	g.mu.Lock()
	if g.state != GateStarting && g.state != GateWaiting {
		s := g.state
		g.mu.Unlock()
		return s
	}
	g.elapsed = g.now().Sub(g.startedAt)
	if !l.IsAlive() {
		g.failLocked(MsgCrashed, "")
		g.mu.Unlock()
		return GateErrored
	}
	if g.timeout > 0 && g.elapsed >= g.timeout {
		g.failLocked(fmt.Sprintf(msgTimeoutFmt, g.timeout), "")
		g.mu.Unlock()
		return GateErrored
	}
	g.mu.Unlock()

	ready, err := p.Probe(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	// Reset or a failure may have landed while probing.
	if g.state != GateStarting && g.state != GateWaiting {
		return g.state
	}
	switch {
	case err != nil:
		g.lastProbe = err.Error()
	case !ready:
		g.lastProbe = "models not loaded"
	default:
		g.lastProbe = ""
		g.state = GateReady
		g.status = statusReady
		return g.state
	}
	g.state = GateWaiting
	g.status = fmt.Sprintf(statusLoadingFm, int(g.elapsed/time.Second))
	return g.state
}

// FailStart records that the process never launched.
func (g *HealthGate) FailStart(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	g.failLocked(MsgNotStarted, detail)
}

// MarkCrashed records that a ready backend exited.
func (g *HealthGate) MarkCrashed(detail string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == GateErrored {
		return
	}
	g.failLocked(MsgExitedLater, detail)
}

func (g *HealthGate) failLocked(msg, detail string) {
	g.state = GateErrored
	g.errMsg = msg
	g.detail = detail
	g.status = msg
}

// Snapshot returns a copy of the gate state.
func (g *HealthGate) Snapshot() GateSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GateSnapshot{
		State:      g.state,
		StatusText: g.status,
		Elapsed:    g.elapsed,
		Error:      g.errMsg,
		Detail:     g.detail,
		LastProbe:  g.lastProbe,
	}
}

package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"qvox/internal/backend"
	"qvox/internal/supervisor"
	"qvox/internal/task"
)

// Backend is the set of backend primitives the orchestrator relies on.
type Backend interface {
	Probe(ctx context.Context) (bool, error)
	Submit(ctx context.Context, req backend.GenerationRequest) (backend.SubmitResponse, error)
	TaskStatus(ctx context.Context, taskID string) (backend.TaskStatusResponse, error)
	TaskAudio(ctx context.Context, taskID string) ([]byte, error)
	CancelTask(ctx context.Context, taskID string) (backend.CancelResponse, error)
}

// Process is the supervised backend process.
type Process interface {
	Spawn(ctx context.Context) error
	IsAlive() bool
	Terminate() error
	BaseEndpoint() string
	PID() int
	StderrTail() string
	ExitErr() error
	Config() supervisor.Config
	SetConfig(supervisor.Config)
}

var (
	_ Process   = (*supervisor.Supervisor)(nil)
	_ Backend   = (*backend.Client)(nil)
	_ Catalogue = (*backend.Client)(nil)
)

// Orchestrator drives one backend process and at most one generation task.
type Orchestrator struct {
	cfg  Config
	log  zerolog.Logger
	proc Process
	gate *supervisor.HealthGate

	// tickMu serializes Tick, StartBackend and Restart.
	tickMu sync.Mutex

	mu         sync.Mutex
	client     Backend
	cur        *task.Task
	submitting bool
	// gen counts spawns; a submission that straddles one is discarded.
	gen        uint64
	spawnedAt  time.Time
	startTime  time.Time
}

// New returns an Orchestrator for proc. Nothing is spawned until
// StartBackend.
func New(proc Process, cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	o := &Orchestrator{
		cfg:       cfg,
		log:       cfg.Logger.With().Str("component", "orchestrator").Logger(),
		proc:      proc,
		gate:      supervisor.NewHealthGate(cfg.HealthTimeout),
		startTime: cfg.Now(),
	}
	o.client = cfg.NewBackend(proc.BaseEndpoint())
	return o
}

// StartBackend spawns the backend (terminating a live one first) and resets
// the health gate. A launch failure leaves the gate errored with the
// not-started message.
func (o *Orchestrator) StartBackend(ctx context.Context) error {
	o.tickMu.Lock()
	defer o.tickMu.Unlock()
	return o.startLocked(ctx)
}

// Restart swaps the launch configuration, clears the task slot and starts
// the backend again from scratch.
func (o *Orchestrator) Restart(ctx context.Context, cfg supervisor.Config) error {
	o.tickMu.Lock()
	defer o.tickMu.Unlock()
	if err := o.proc.Terminate(); err != nil {
		return err
	}
	o.publish(EventBackendStopped, "", map[string]any{"reason": "restart"})
	o.proc.SetConfig(cfg)
	o.mu.Lock()
	o.cur = nil
	o.mu.Unlock()
	return o.startLocked(ctx)
}

func (o *Orchestrator) startLocked(ctx context.Context) error {
	o.gate.Reset()
	setGateState(supervisor.GateStarting)
	err := o.proc.Spawn(ctx)
	endpoint := o.proc.BaseEndpoint()
	o.mu.Lock()
	o.client = o.cfg.NewBackend(endpoint)
	o.gen++
	o.spawnedAt = o.cfg.Now()
	o.mu.Unlock()
	if err != nil {
		o.gate.FailStart(err)
		setGateState(supervisor.GateErrored)
		backendSpawns.WithLabelValues("error").Inc()
		o.log.Error().Str("event", EventBackendSpawnFailed).Err(err).Msg(supervisor.MsgNotStarted)
		o.publish(EventBackendSpawnFailed, "", map[string]any{"error": err.Error()})
		return err
	}
	backendSpawns.WithLabelValues("ok").Inc()
	o.log.Info().Str("event", EventBackendSpawned).Int("pid", o.proc.PID()).Str("endpoint", endpoint).Msg("backend spawned; waiting for models")
	o.publish(EventBackendSpawned, "", map[string]any{"pid": o.proc.PID(), "endpoint": endpoint})
	return nil
}

// BackendConfig returns the current launch configuration.
func (o *Orchestrator) BackendConfig() supervisor.Config { return o.proc.Config() }

// Ready reports whether the health gate reached ready.
func (o *Orchestrator) Ready() bool { return o.gate.State() == supervisor.GateReady }

// Close terminates the backend process.
func (o *Orchestrator) Close() error {
	o.tickMu.Lock()
	defer o.tickMu.Unlock()
	alive := o.proc.IsAlive()
	if err := o.proc.Terminate(); err != nil {
		return err
	}
	if alive {
		o.publish(EventBackendStopped, "", map[string]any{"reason": "close"})
	}
	return nil
}

func (o *Orchestrator) backendClient() Backend {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.client
}

func (o *Orchestrator) publish(name, taskID string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	o.cfg.Publisher.Publish(Event{
		ID:     uuid.NewString(),
		Name:   name,
		TaskID: taskID,
		Time:   o.cfg.Now(),
		Fields: fields,
	})
}

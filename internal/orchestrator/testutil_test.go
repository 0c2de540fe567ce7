package orchestrator

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"qvox/internal/backend"
	"qvox/internal/supervisor"
)

type fakeProcess struct {
	mu       sync.Mutex
	cfg      supervisor.Config
	endpoint string
	alive    bool
	// aliveAfterSpawn is the liveness a successful Spawn leaves behind.
	aliveAfterSpawn bool
	spawnErr        error
	exitErr         error
	spawns          int
	terminates      int
}

func newFakeProcess(endpoint string) *fakeProcess {
	return &fakeProcess{endpoint: endpoint, aliveAfterSpawn: true, cfg: supervisor.Config{Port: 8000}}
}

func (p *fakeProcess) Spawn(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spawns++
	if p.spawnErr != nil {
		return p.spawnErr
	}
	p.alive = p.aliveAfterSpawn
	return nil
}

func (p *fakeProcess) IsAlive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alive
}

func (p *fakeProcess) setAlive(v bool) {
	p.mu.Lock()
	p.alive = v
	p.mu.Unlock()
}

func (p *fakeProcess) Terminate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminates++
	p.alive = false
	return nil
}

func (p *fakeProcess) BaseEndpoint() string { return p.endpoint }
func (p *fakeProcess) PID() int             { return 4242 }
func (p *fakeProcess) StderrTail() string   { return "" }

func (p *fakeProcess) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitErr
}

func (p *fakeProcess) Config() supervisor.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

func (p *fakeProcess) SetConfig(c supervisor.Config) {
	p.mu.Lock()
	p.cfg = c
	p.mu.Unlock()
}

// fakeBackend scripts backend responses. Statuses are consumed one per poll;
// the last one repeats.
type fakeBackend struct {
	mu        sync.Mutex
	ready     bool
	probeErr  error
	submitErr error
	// submitGate, when set, blocks Submit until it is closed.
	submitGate chan struct{}
	nextID     int
	statuses   []backend.TaskStatusResponse
	pollErr    error
	audio      []byte
	audioErr   error
	cancelErr  error

	submits []backend.GenerationRequest
	polls   int
	fetches int
	cancels int
}

func (b *fakeBackend) Probe(context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready, b.probeErr
}

func (b *fakeBackend) Submit(_ context.Context, req backend.GenerationRequest) (backend.SubmitResponse, error) {
	b.mu.Lock()
	gate := b.submitGate
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submits = append(b.submits, req)
	if b.submitErr != nil {
		return backend.SubmitResponse{}, b.submitErr
	}
	b.nextID++
	return backend.SubmitResponse{TaskID: "task-" + strconv.Itoa(b.nextID), Status: "processing"}, nil
}

func (b *fakeBackend) TaskStatus(context.Context, string) (backend.TaskStatusResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.polls++
	if b.pollErr != nil {
		return backend.TaskStatusResponse{}, b.pollErr
	}
	if len(b.statuses) == 0 {
		return backend.TaskStatusResponse{Status: backend.StatusProcessing}, nil
	}
	s := b.statuses[0]
	if len(b.statuses) > 1 {
		b.statuses = b.statuses[1:]
	}
	return s, nil
}

func (b *fakeBackend) TaskAudio(context.Context, string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetches++
	if b.audioErr != nil {
		return nil, b.audioErr
	}
	return b.audio, nil
}

func (b *fakeBackend) CancelTask(context.Context, string) (backend.CancelResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancels++
	if b.cancelErr != nil {
		return backend.CancelResponse{}, b.cancelErr
	}
	b.statuses = []backend.TaskStatusResponse{{Status: backend.StatusCancelled, Progress: 30}}
	return backend.CancelResponse{Message: "Task cancelled"}, nil
}

func (b *fakeBackend) set(f func(b *fakeBackend)) {
	b.mu.Lock()
	f(b)
	b.mu.Unlock()
}

func (b *fakeBackend) counts() (polls, fetches, cancels int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.polls, b.fetches, b.cancels
}

func newTestOrchestrator(t *testing.T, proc *fakeProcess, be *fakeBackend) (*Orchestrator, *MemoryPublisher) {
	t.Helper()
	pub := NewMemoryPublisher()
	o := New(proc, Config{
		TickInterval: time.Second,
		Logger:       zerolog.Nop(),
		Publisher:    pub,
		NewBackend:   func(string) Backend { return be },
	})
	return o, pub
}

// readyOrchestrator returns an orchestrator whose gate is already ready.
func readyOrchestrator(t *testing.T) (*Orchestrator, *fakeProcess, *fakeBackend, *MemoryPublisher) {
	t.Helper()
	proc := newFakeProcess("http://localhost:8000")
	be := &fakeBackend{ready: true, audio: []byte("RIFFWAVE")}
	o, pub := newTestOrchestrator(t, proc, be)
	if err := o.StartBackend(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	o.Tick(context.Background())
	if !o.Ready() {
		t.Fatalf("gate not ready: %+v", o.Snapshot().Gate)
	}
	return o, proc, be, pub
}

func hasEvent(pub *MemoryPublisher, name string) bool {
	for _, n := range pub.Names() {
		if n == name {
			return true
		}
	}
	return false
}

var errNetwork = errors.New("dial tcp 127.0.0.1:8000: connect: connection refused")

package e2e

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"qvox/internal/httpapi"
	"qvox/internal/orchestrator"
	"qvox/internal/supervisor"
)

// buildFakeBackend compiles the fake inference backend used by the
// supervisor tests and returns the binary path.
func buildFakeBackend(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("short mode")
	}
	if runtime.GOOS == "windows" {
		t.Skip("process group signalling is unix only")
	}
	bin := filepath.Join(t.TempDir(), "fake_backend")
	cmd := exec.Command("go", "build", "-o", bin, "../supervisor/testdata/fake_backend.go")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build fake backend: %v: %s", err, string(out))
	}
	return bin
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

type stack struct {
	srv  *httptest.Server
	orch *orchestrator.Orchestrator
	proc *supervisor.Supervisor
}

// newStack wires a real supervisor running the fake backend to an
// orchestrator and the control API, and starts the tick loop.
func newStack(t *testing.T, bin string, tick time.Duration, env ...string) *stack {
	t.Helper()
	proc := supervisor.New(supervisor.Config{
		Python:         bin,
		ScriptPath:     "start_server.py",
		Port:           freePort(t),
		Models:         []string{"base", "custom_voice"},
		Env:            env,
		TerminateGrace: time.Second,
	}, zerolog.Nop())
	events := orchestrator.NewBroadcaster(16)
	orch := orchestrator.New(proc, orchestrator.Config{
		TickInterval: tick,
		Logger:       zerolog.Nop(),
		Publisher:    events,
	})
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(httpapi.NewMux(orch, events))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		_ = orch.Close()
		events.Close()
	})
	_ = orch.StartBackend(ctx)
	go func() { _ = orch.Run(ctx) }()
	return &stack{srv: srv, orch: orch, proc: proc}
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func httpPostJSON(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func waitFor(t *testing.T, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("%s: not reached within %s", what, d)
}

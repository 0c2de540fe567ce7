// Package supervisor owns the external inference backend process: it builds
// the launch command, spawns it, reports liveness and terminates it.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultLauncher       = "uv"
	defaultProject        = "python"
	defaultTerminateGrace = 2 * time.Second
	tailBytes             = 8 << 10
)

// Config describes how to launch the backend. Values are passed through to
// the process unmodified.
type Config struct {
	Models     []string
	Device     string
	Port       int
	ModelSize  string
	ScriptPath string
	// Python, when set, runs ScriptPath with this interpreter directly
	// instead of going through the launcher.
	Python string
	// Launcher and Project form "<launcher> run --project <project>".
	Launcher string
	Project  string
	// Dir is the working directory of the process; empty means inherit.
	Dir            string
	Env            []string
	TerminateGrace time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Launcher) == "" {
		c.Launcher = defaultLauncher
	}
	if strings.TrimSpace(c.Project) == "" {
		c.Project = defaultProject
	}
	if c.TerminateGrace <= 0 {
		c.TerminateGrace = defaultTerminateGrace
	}
	return c
}

// Command returns the program and arguments Spawn would execute.
func (c Config) Command() (string, []string) {
	c = c.withDefaults()
	backendArgs := []string{c.ScriptPath, "--port", strconv.Itoa(c.Port)}
	if len(c.Models) > 0 {
		backendArgs = append(backendArgs, "--models")
		backendArgs = append(backendArgs, c.Models...)
	}
	if c.Device != "" {
		backendArgs = append(backendArgs, "--device", c.Device)
	}
	if c.ModelSize != "" {
		backendArgs = append(backendArgs, "--model-size", c.ModelSize)
	}
	if strings.TrimSpace(c.Python) != "" {
		return c.Python, backendArgs
	}
	return c.Launcher, append([]string{"run", "--project", c.Project}, backendArgs...)
}

// process is one spawned backend. err is written before done is closed.
type process struct {
	cmd       *exec.Cmd
	pid       int
	port      int
	startedAt time.Time
	done      chan struct{}
	err       error
}

// Supervisor manages at most one live backend process.
type Supervisor struct {
	log zerolog.Logger

	mu     sync.Mutex
	cfg    Config
	proc   *process
	stdout *tailBuffer
	stderr *tailBuffer
}

// New returns a Supervisor that has not spawned anything yet.
func New(cfg Config, log zerolog.Logger) *Supervisor {
	return &Supervisor{cfg: cfg.withDefaults(), log: log.With().Str("component", "supervisor").Logger()}
}

// Config returns the launch configuration.
func (s *Supervisor) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetConfig replaces the launch configuration used by the next Spawn.
func (s *Supervisor) SetConfig(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg.withDefaults()
	s.mu.Unlock()
}

// Spawn starts the backend. A live process is terminated first. The process
// is not tied to ctx; ctx only aborts the launch itself.
func (s *Supervisor) Spawn(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Terminate(); err != nil {
		return err
	}
	cfg := s.Config()
	name, args := cfg.Command()
	cmdline := strings.Join(append([]string{name}, args...), " ")
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return spawnError(cmdline, fmt.Errorf("invalid port %d", cfg.Port))
	}
	if !portAvailable(cfg.Port) {
		s.log.Warn().Str("event", "port_busy").Int("port", cfg.Port).Msg("requested port is already in use; the backend may fail to bind")
	}

	stdout := newTailBuffer(tailBytes, s.log, "stdout")
	stderr := newTailBuffer(tailBytes, s.log, "stderr")
	cmd := exec.Command(name, args...)
	cmd.Dir = cfg.Dir
	if len(cfg.Env) > 0 {
		cmd.Env = append(cmd.Environ(), cfg.Env...)
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = cfg.TerminateGrace
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		s.log.Error().Str("event", "spawn_failed").Str("cmd", cmdline).Err(err).Msg("backend could not be started")
		return spawnError(cmdline, err)
	}
	p := &process{cmd: cmd, pid: cmd.Process.Pid, port: cfg.Port, startedAt: time.Now(), done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
		ev := s.log.Info().Str("event", "exit").Int("pid", p.pid)
		if p.err != nil {
			ev = ev.Err(p.err)
		}
		ev.Dur("uptime", time.Since(p.startedAt)).Msg("backend process exited")
	}()

	s.mu.Lock()
	s.proc = p
	s.stdout, s.stderr = stdout, stderr
	s.mu.Unlock()
	s.log.Info().Str("event", "spawn_start").Int("pid", p.pid).Int("port", cfg.Port).Str("cmd", cmdline).Msg("backend spawned")
	return nil
}

// IsAlive reports whether the spawned process is still running. It never
// blocks and is false for a supervisor that never spawned.
func (s *Supervisor) IsAlive() bool {
	s.mu.Lock()
	p := s.proc
	s.mu.Unlock()
	if p == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// ExitErr returns the exit error of the last process once it has exited.
func (s *Supervisor) ExitErr() error {
	s.mu.Lock()
	p := s.proc
	s.mu.Unlock()
	if p == nil {
		return nil
	}
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Terminate stops the process: SIGTERM to its group, then SIGKILL after the
// grace period. Safe to call repeatedly and before any Spawn.
func (s *Supervisor) Terminate() error {
	s.mu.Lock()
	p := s.proc
	grace := s.cfg.TerminateGrace
	s.mu.Unlock()
	if p == nil {
		return nil
	}
	select {
	case <-p.done:
		return nil
	default:
	}

	if err := terminateProcess(p.cmd); err != nil && !errors.Is(err, errProcessDone) {
		s.log.Debug().Str("event", "terminate_signal").Int("pid", p.pid).Err(err).Msg("graceful signal failed")
	}
	select {
	case <-p.done:
		s.log.Info().Str("event", "spawn_stop").Int("pid", p.pid).Msg("backend terminated")
	case <-time.After(grace):
		if err := killProcess(p.cmd); err != nil && !errors.Is(err, errProcessDone) {
			s.log.Warn().Str("event", "kill_failed").Int("pid", p.pid).Err(err).Msg("force kill failed")
		}
		<-p.done
		s.log.Warn().Str("event", "spawn_kill").Int("pid", p.pid).Dur("grace", grace).Msg("backend killed after grace period")
	}
	return nil
}

// BaseEndpoint is the HTTP root of the backend. It is known before the
// backend is ready.
func (s *Supervisor) BaseEndpoint() string {
	s.mu.Lock()
	port := s.cfg.Port
	if s.proc != nil {
		port = s.proc.port
	}
	s.mu.Unlock()
	return fmt.Sprintf("http://localhost:%d", port)
}

// PID returns the pid of the last spawned process, or 0.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return 0
	}
	return s.proc.pid
}

// StderrTail returns the last bytes the process wrote to stderr.
func (s *Supervisor) StderrTail() string {
	s.mu.Lock()
	buf := s.stderr
	s.mu.Unlock()
	if buf == nil {
		return ""
	}
	return buf.String()
}

// StdoutTail returns the last bytes the process wrote to stdout.
func (s *Supervisor) StdoutTail() string {
	s.mu.Lock()
	buf := s.stdout
	s.mu.Unlock()
	if buf == nil {
		return ""
	}
	return buf.String()
}

func portAvailable(port int) bool {
	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}

// FindPython looks for python3, then python, on PATH.
func FindPython() (string, error) {
	for _, name := range []string{"python3", "python"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", errors.New("no python interpreter found on PATH")
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"qvox/internal/backend"
	"qvox/internal/common/fsutil"
	"qvox/internal/config"
	"qvox/internal/orchestrator"
	"qvox/internal/supervisor"
	"qvox/internal/task"
)

type generateOptions struct {
	Output   string
	Language string
	// Timeout bounds the whole run; 0 waits indefinitely.
	Timeout time.Duration
	server  serverOverrides
}

// runGenerate starts the backend, waits for it, runs one task to completion,
// writes the WAV and terminates the backend again.
func runGenerate(ctx context.Context, cfg *Config, opts generateOptions, req backend.GenerationRequest) error {
	c, _, err := loadConfig(cfg)
	if err != nil {
		return err
	}
	opts.server.apply(&c)
	log := newLogger(cfg.Err, c.API.LogLevel, c.API.LogFormat)
	sc, err := c.ToSupervisor()
	if err != nil {
		return err
	}
	warnMissingScript(log, sc)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	orch := orchestrator.New(fnNewProcess(sc, log), orchestrator.Config{
		TickInterval:  c.Orchestrator.TickInterval.Std(),
		HealthTimeout: c.Orchestrator.HealthTimeout.Std(),
		Logger:        log,
	})
	defer func() { _ = orch.Close() }()

	out := cfg.Out
	if err := orch.StartBackend(ctx); err != nil {
		return fmt.Errorf("%s: %w", supervisor.MsgNotStarted, err)
	}
	fmt.Fprintf(out, "Starting backend at %s\n", orch.Snapshot().Endpoint)

	lastStatus := ""
	snap, err := orch.RunUntil(ctx, func(s orchestrator.Snapshot) bool {
		if s.Gate.StatusText != lastStatus {
			lastStatus = s.Gate.StatusText
			fmt.Fprintln(out, lastStatus)
		}
		return s.Gate.State == supervisor.GateReady || s.Gate.State == supervisor.GateErrored
	})
	if err != nil {
		return fmt.Errorf("waiting for backend: %w", err)
	}
	if snap.Gate.State == supervisor.GateErrored {
		if snap.Gate.Detail != "" {
			return fmt.Errorf("%s: %s", snap.Gate.Error, snap.Gate.Detail)
		}
		return errors.New(snap.Gate.Error)
	}

	t, err := orch.Submit(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Task %s started (%s)\n", t.ID, t.Kind)

	lastLabel := ""
	snap, err = orch.RunUntil(ctx, func(s orchestrator.Snapshot) bool {
		if s.Task == nil {
			return true
		}
		if l := task.Label(*s.Task); l != lastLabel {
			lastLabel = l
			fmt.Fprintf(out, "[%3d%%] %s\n", s.Task.Progress, l)
		}
		if !s.Task.Phase.Terminal() {
			return false
		}
		return s.Task.Phase != task.Completed || s.Task.FetchAttempted
	})
	if err != nil {
		return fmt.Errorf("waiting for task %s: %w", t.ID, err)
	}
	return finishGenerate(snap.Task, opts.Output, out)
}

func finishGenerate(t *task.Task, output string, out io.Writer) error {
	if t == nil {
		return errors.New("task disappeared before it finished")
	}
	switch t.Phase {
	case task.Failed:
		if t.LastError != "" {
			return fmt.Errorf("%s: %s", task.LabelFailed, t.LastError)
		}
		return errors.New(task.LabelFailed)
	case task.Cancelled:
		return errors.New("task was cancelled")
	}
	if !t.HasAudio() {
		return fmt.Errorf("generation completed but the audio could not be fetched: %s", t.LastError)
	}
	path := output
	if path == "" {
		dir, err := config.OutputDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, t.ID+".wav")
	}
	path, err := fsutil.ExpandHome(path)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, t.ResultAudio, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(out, "Wrote %s (%s, %s)\n", path, humanize.Bytes(uint64(len(t.ResultAudio))), t.Elapsed)
	return nil
}

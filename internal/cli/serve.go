package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"qvox/internal/common/fsutil"
	"qvox/internal/config"
	"qvox/internal/httpapi"
	"qvox/internal/orchestrator"
	"qvox/internal/supervisor"
)

type serveOptions struct {
	Addr    string
	NoWatch bool
	server  serverOverrides
}

// fnNewProcess builds the supervised backend. Tests swap in a fake.
var fnNewProcess = func(sc supervisor.Config, log zerolog.Logger) orchestrator.Process {
	return supervisor.New(sc, log)
}

// fnListen opens the control API listener.
var fnListen = func(addr string) (net.Listener, error) { return net.Listen("tcp", addr) }

const shutdownTimeout = 5 * time.Second

type backendRestarter interface {
	Restart(ctx context.Context, cfg supervisor.Config) error
}

// configApplier returns the config watcher callback. Only changes to the
// backend launch settings restart the backend; flag overrides keep
// precedence over the reloaded file.
func configApplier(ctx context.Context, log zerolog.Logger, overrides serverOverrides, current config.Config, orch backendRestarter) func(config.Config) {
	return func(next config.Config) {
		overrides.apply(&next)
		if !config.ServerChanged(current, next) {
			current = next
			return
		}
		nsc, err := next.ToSupervisor()
		if err != nil {
			log.Error().Str("event", "config_apply_failed").Err(err).Msg("invalid backend settings")
			return
		}
		current = next
		log.Info().Str("event", "backend_settings_changed").Msg("backend settings changed; restarting backend")
		if err := orch.Restart(ctx, nsc); err != nil {
			log.Error().Str("event", "backend_restart_failed").Err(err).Msg("backend restart after config change failed")
		}
	}
}

func runServe(ctx context.Context, cfg *Config, opts serveOptions) error {
	c, path, err := loadConfig(cfg)
	if err != nil {
		return err
	}
	opts.server.apply(&c)
	if opts.Addr != "" {
		c.API.Addr = opts.Addr
	}
	log := newLogger(cfg.Err, c.API.LogLevel, c.API.LogFormat)

	sc, err := c.ToSupervisor()
	if err != nil {
		return err
	}
	warnMissingScript(log, sc)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := orchestrator.NewBroadcaster(64)
	defer events.Close()
	orch := orchestrator.New(fnNewProcess(sc, log), orchestrator.Config{
		TickInterval:  c.Orchestrator.TickInterval.Std(),
		HealthTimeout: c.Orchestrator.HealthTimeout.Std(),
		Logger:        log,
		Publisher:     events,
	})
	defer func() {
		if err := orch.Close(); err != nil {
			log.Error().Str("event", "backend_close_failed").Err(err).Msg("terminate backend")
		}
	}()

	httpapi.SetLogger(log)
	httpapi.SetRequestLogLevel(c.API.LogLevel)
	httpapi.SetCORSOrigins(c.API.CORSOrigins)
	httpapi.SetBaseContext(ctx)

	ln, err := fnListen(c.API.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", c.API.Addr, err)
	}
	srv := &http.Server{Handler: httpapi.NewMux(orch, events), ReadHeaderTimeout: 10 * time.Second}
	srvErr := make(chan error, 1)
	go func() {
		log.Info().Str("event", "api_listening").Str("addr", ln.Addr().String()).Str("config", path).Msg("qvox listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	// A failed launch leaves the gate errored; keep serving so clients can
	// read the error and request a restart.
	_ = orch.StartBackend(ctx)
	go func() { _ = orch.Run(ctx) }()

	if !opts.NoWatch && fsutil.PathExists(path) {
		onChange := configApplier(ctx, log, opts.server, c, orch)
		go func() {
			if err := config.Watch(ctx, path, log, onChange); err != nil {
				log.Warn().Str("event", "config_watch_failed").Err(err).Msg("config watching disabled")
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info().Str("event", "shutdown").Msg("shutting down")
	case err = <-srvErr:
		log.Error().Str("event", "api_failed").Err(err).Msg("control API stopped")
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(sctx); serr != nil {
		log.Warn().Str("event", "api_shutdown_error").Err(serr).Msg("graceful shutdown error")
	}
	return err
}

func warnMissingScript(log zerolog.Logger, sc supervisor.Config) {
	script := sc.ScriptPath
	if sc.Dir != "" && !filepath.IsAbs(script) {
		script = filepath.Join(sc.Dir, script)
	}
	if !fsutil.PathExists(script) {
		log.Warn().Str("event", "backend_script_missing").Str("path", script).Msg("backend script not found; the launch will likely fail")
	}
}

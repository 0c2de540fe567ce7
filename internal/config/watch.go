package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const watchDebounce = 300 * time.Millisecond

// Watch reloads path whenever it is written or recreated and passes each
// successfully parsed config to onChange. Parse failures are logged and the
// previous config stays in effect. Watch blocks until ctx is done.
//
// The parent directory is watched rather than the file so editors that
// replace the file on save are still observed.
func Watch(ctx context.Context, path string, log zerolog.Logger, onChange func(Config)) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	log.Info().Str("event", "config_watch_started").Str("path", path).Msg("watching config")

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			cfg, err := Load(path)
			if err != nil {
				log.Warn().Str("event", "config_reload_failed").Str("path", path).Err(err).Msg("config reload failed")
				continue
			}
			log.Info().Str("event", "config_reloaded").Str("path", path).Msg("config reloaded")
			onChange(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error().Str("event", "config_watch_error").Err(err).Msg("config watcher error")
		}
	}
}

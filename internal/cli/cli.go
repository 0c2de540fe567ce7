// Package cli implements the qvox command line: serve, generate and config.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Config carries the persistent flags shared by every command.
type Config struct {
	// ConfigPath is the config file; empty means config.DefaultPath().
	ConfigPath string
	LogLevel   string
	LogFormat  string
	// Out receives user-facing output; logs go to Err.
	Out io.Writer
	Err io.Writer
}

func defaultConfig() *Config {
	return &Config{
		LogLevel:  envStr("QVOX_LOG_LEVEL", ""),
		LogFormat: envStr("QVOX_LOG_FORMAT", ""),
		Out:       os.Stdout,
		Err:       os.Stderr,
	}
}

// exitError carries a specific exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// MainWithArgs is a testable variant of Main that accepts args explicitly.
// It returns an exit code (0 for success, 2 for usage errors, 1 otherwise).
func MainWithArgs(args []string) int {
	return mainWith(defaultConfig(), args)
}

func mainWith(cfg *Config, args []string) int {
	root := buildRootCmdWith(cfg)
	root.SetArgs(args)
	root.SetOut(cfg.Out)
	root.SetErr(cfg.Err)
	if len(args) == 0 {
		_ = root.Usage()
		return 2
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(cfg.Err, "error:", err.Error())
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return 1
	}
	return 0
}

// Main returns an exit code for use by cmd/qvox.
func Main() int { return MainWithArgs(os.Args[1:]) }

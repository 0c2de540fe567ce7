package config

import (
	"slices"

	"qvox/internal/common/fsutil"
	"qvox/internal/supervisor"
)

// ToSupervisor converts the server section into a launch configuration.
// Leading '~' in paths is expanded.
func (c Config) ToSupervisor() (supervisor.Config, error) {
	s := c.Server
	script, err := fsutil.ExpandHome(s.ScriptPath)
	if err != nil {
		return supervisor.Config{}, err
	}
	python, err := fsutil.ExpandHome(s.Python)
	if err != nil {
		return supervisor.Config{}, err
	}
	dir, err := fsutil.ExpandHome(s.Dir)
	if err != nil {
		return supervisor.Config{}, err
	}
	project, err := fsutil.ExpandHome(s.Project)
	if err != nil {
		return supervisor.Config{}, err
	}
	return supervisor.Config{
		Models:         slices.Clone(s.Models),
		Device:         s.Device,
		Port:           s.Port,
		ModelSize:      s.ModelSize,
		ScriptPath:     script,
		Python:         python,
		Launcher:       s.Launcher,
		Project:        project,
		Dir:            dir,
		TerminateGrace: c.Orchestrator.TerminateGrace.Std(),
	}, nil
}

// ServerChanged reports whether a and b would launch different backends.
func ServerChanged(a, b Config) bool {
	x, y := a.Server, b.Server
	return !slices.Equal(x.Models, y.Models) ||
		x.Device != y.Device ||
		x.Port != y.Port ||
		x.ModelSize != y.ModelSize ||
		x.ScriptPath != y.ScriptPath ||
		x.Python != y.Python ||
		x.Launcher != y.Launcher ||
		x.Project != y.Project ||
		x.Dir != y.Dir ||
		a.Orchestrator.TerminateGrace != b.Orchestrator.TerminateGrace
}

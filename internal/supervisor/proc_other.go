//go:build !unix

package supervisor

import (
	"os"
	"os/exec"
)

var errProcessDone = os.ErrProcessDone

func setProcessGroup(*exec.Cmd) {}

// No SIGTERM outside unix; both steps kill.
func terminateProcess(cmd *exec.Cmd) error { return killProcess(cmd) }

func killProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return errProcessDone
	}
	return cmd.Process.Kill()
}

//go:build unix

package bridge

import (
	"errors"
	"os/exec"
	"syscall"
)

// isolate starts the engine in its own process group, so that anything it
// spawns can be killed along with it.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killTree kills the engine's whole process group.
func killTree(cmd *exec.Cmd) error {
	err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

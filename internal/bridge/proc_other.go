//go:build !unix

package bridge

import (
	"errors"
	"os"
	"os/exec"
)

func isolate(cmd *exec.Cmd) {}

// killTree kills the engine. Children it spawned are not tracked here.
func killTree(cmd *exec.Cmd) error {
	err := cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

package engine

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup starts the child in its own process group so that a
// timeout kills the tool's worker processes along with it.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

//go:build unix

package checkrun

import (
	"os/exec"
	"syscall"
)

// Check scripts commonly fork test runners; a process group lets a timeout
// take the whole tree down instead of orphaning the children.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}

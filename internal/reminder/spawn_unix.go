//go:build unix

package reminder

import (
	"os/exec"
	"syscall"
)

// A new session detaches the watcher from the hook's terminal and process
// group, so the agent killing its hook does not take the watcher with it.
func configureDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

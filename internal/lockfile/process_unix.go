//go:build unix

package lockfile

import (
	"syscall"
)

// IsProcessRunning checks if a process with the given PID is running.
// EPERM means the process exists but belongs to someone else, which still
// counts as running.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false // 0 would signal our process group, not a specific process
	}
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}

// Terminate sends SIGTERM to pid. A process that is already gone is not an error.
func Terminate(pid int) error {
	if pid <= 0 {
		return nil
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil && err != syscall.ESRCH {
		return err
	}
	return nil
}

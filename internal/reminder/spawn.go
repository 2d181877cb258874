package reminder

import (
	"fmt"
	"os"
	"os/exec"
)

// ProcessSpawner starts watchers as detached `nudge alerts watch` processes
// so they outlive the hook that created the alert.
type ProcessSpawner struct {
	// Executable defaults to the running binary.
	Executable string
	// StateDir is passed through so the watcher reads the same state.
	StateDir string
}

// Spawn starts a watcher for sessionID and returns its pid.
func (p *ProcessSpawner) Spawn(sessionID string) (int, error) {
	exe := p.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return 0, fmt.Errorf("locate executable: %w", err)
		}
	}
	args := []string{"alerts", "watch", "--session", sessionID}
	if p.StateDir != "" {
		args = append(args, "--state-dir", p.StateDir)
	}
	cmd := exec.Command(exe, args...) // #nosec G204 -- runs our own binary
	configureDetached(cmd)
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}

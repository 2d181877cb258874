//go:build unix

package reminder

import (
	"os/exec"
	"testing"
)

func TestProcessSpawnerStartsDetachedProcess(t *testing.T) {
	exe, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}
	sp := &ProcessSpawner{Executable: exe, StateDir: t.TempDir()}
	pid, err := sp.Spawn("S1")
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if pid <= 0 {
		t.Fatalf("Spawn returned pid %d", pid)
	}
}

func TestProcessSpawnerMissingExecutable(t *testing.T) {
	sp := &ProcessSpawner{Executable: "/nonexistent/nudge"}
	if _, err := sp.Spawn("S1"); err == nil {
		t.Fatal("expected error for missing executable")
	}
}

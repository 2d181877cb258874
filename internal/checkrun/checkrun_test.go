//go:build unix

package checkrun

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRunPassed(t *testing.T) {
	r := NewRunner(5 * time.Second)
	res := r.Run(context.Background(), "echo ok", t.TempDir())
	if !res.Passed || res.ExitCode != 0 {
		t.Fatalf("expected pass, got %+v", res)
	}
	if strings.TrimSpace(res.Output) != "ok" {
		t.Errorf("Output = %q, want ok", res.Output)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	r := NewRunner(5 * time.Second)
	res := r.Run(context.Background(), "exit 3", "")
	if res.Passed {
		t.Fatal("expected failure")
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.TimedOut {
		t.Error("non-zero exit is not a timeout")
	}
}

func TestRunUsesDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "marker"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewRunner(5 * time.Second)
	if res := r.Run(context.Background(), "test -f marker", dir); !res.Passed {
		t.Errorf("command did not run in %s: %+v", dir, res)
	}
}

func TestRunTimeoutKillsProcessGroup(t *testing.T) {
	r := NewRunner(200 * time.Millisecond)
	start := time.Now()
	res := r.Run(context.Background(), "sleep 30 & sleep 30", "")
	if time.Since(start) > 10*time.Second {
		t.Fatal("timeout did not stop the command tree")
	}
	if res.Passed || !res.TimedOut {
		t.Errorf("expected timed out failure, got %+v", res)
	}
}

func TestRunBackgroundChildDoesNotHoldResult(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		passed   bool
		exitCode int
	}{
		{"exit zero", "(sleep 30 &) ; exit 0", true, 0},
		{"exit nonzero", "(sleep 30 &) ; exit 4", false, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(20 * time.Second)
			start := time.Now()
			res := r.Run(context.Background(), tt.command, t.TempDir())
			if elapsed := time.Since(start); elapsed > 10*time.Second {
				t.Fatalf("Run waited %v on the background child", elapsed)
			}
			if res.TimedOut {
				t.Fatalf("shell exited on its own, got timeout: %+v", res)
			}
			if res.Passed != tt.passed || res.ExitCode != tt.exitCode {
				t.Errorf("got passed=%v exit=%d, want passed=%v exit=%d", res.Passed, res.ExitCode, tt.passed, tt.exitCode)
			}
		})
	}
}

func TestRunMissingShell(t *testing.T) {
	r := &Runner{Shell: "/nonexistent/sh", Timeout: time.Second}
	res := r.Run(context.Background(), "true", "")
	if res.Passed || res.Err == nil {
		t.Errorf("expected start failure, got %+v", res)
	}
}

func TestTailBufferKeepsEnd(t *testing.T) {
	var tb tailBuffer
	tb.Write([]byte(strings.Repeat("a", maxOutput)))
	tb.Write([]byte("END"))
	got := tb.String()
	if len(got) != maxOutput || !strings.HasSuffix(got, "END") {
		t.Errorf("tail buffer len=%d suffix ok=%v", len(got), strings.HasSuffix(got, "END"))
	}
}

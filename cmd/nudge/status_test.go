package main

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/nudgehq/nudge/internal/alert"
	"github.com/nudgehq/nudge/internal/continuation"
	"github.com/nudgehq/nudge/internal/eventlog"
)

func TestCollectAndRenderStatus(t *testing.T) {
	dir := setupState(t)
	a := newApp()

	if _, err := a.continuations.SetPending(continuation.ModeCheck, "make test", continuation.Targeting{TargetSessionID: "S7"}); err != nil {
		t.Fatal(err)
	}
	if err := a.continuations.SetSession(&continuation.Session{
		SessionID: "S1",
		Mode:      continuation.ModeManual,
		Objective: "write docs",
		Iteration: 4,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := a.pause.Set(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := a.alerts.Set("S2", "api", alert.TypePermission, "needs permission to run Bash"); err != nil {
		t.Fatal(err)
	}

	r, err := collectStatus(a)
	if err != nil {
		t.Fatal(err)
	}
	if r.StateDir != dir || r.Pending == nil || len(r.Sessions) != 1 || r.Paused == nil || len(r.Alerts) != 1 {
		t.Fatalf("unexpected report: %+v", r)
	}

	var out strings.Builder
	renderStatus(&out, r, time.Now())
	for _, want := range []string{"PENDING", "make test", "session S7", "S1", "round 4", "paused", "S2", "needs permission", "no watcher"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("status output missing %q:\n%s", want, out.String())
		}
	}
}

func TestCollectStatusEmpty(t *testing.T) {
	setupState(t)
	r, err := collectStatus(newApp())
	if err != nil {
		t.Fatal(err)
	}
	if r.Pending != nil || r.Paused != nil || len(r.Sessions) != 0 || len(r.Alerts) != 0 {
		t.Fatalf("expected empty report, got %+v", r)
	}
	if r.Sessions == nil || r.Alerts == nil {
		t.Error("empty lists should encode as [] not null")
	}
}

func TestTargetingFromFlags(t *testing.T) {
	newCmd := func() *cobra.Command {
		c := &cobra.Command{}
		c.Flags().String("session", "", "")
		c.Flags().String("project", "", "")
		c.Flags().Bool("here", false, "")
		return c
	}

	c := newCmd()
	_ = c.Flags().Set("session", "S1")
	tg, err := targetingFromFlags(c)
	if err != nil || tg.TargetSessionID != "S1" || tg.TargetProjectKey != "" {
		t.Fatalf("session flag: %+v %v", tg, err)
	}

	c = newCmd()
	_ = c.Flags().Set("project", "/work/proj/")
	tg, err = targetingFromFlags(c)
	if err != nil || tg.TargetProjectKey != "/work/proj" {
		t.Fatalf("project flag: %+v %v", tg, err)
	}

	c = newCmd()
	_ = c.Flags().Set("here", "true")
	wd, _ := os.Getwd()
	tg, err = targetingFromFlags(c)
	if err != nil || tg.TargetProjectKey != wd {
		t.Fatalf("here flag: %+v %v (wd %s)", tg, err, wd)
	}

	c = newCmd()
	_ = c.Flags().Set("session", "S1")
	_ = c.Flags().Set("here", "true")
	if _, err := targetingFromFlags(c); err == nil {
		t.Fatal("expected error for --session with --here")
	}
}

func TestFormatEvent(t *testing.T) {
	ev := eventlog.Event{
		Time:      time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Kind:      eventlog.KindCheckFailed,
		SessionID: "S1",
		Project:   "proj",
		Message:   "check failed: pnpm test",
		Payload:   map[string]interface{}{"timed_out": false, "exit_code": 1},
	}
	got := formatEvent(ev)
	for _, want := range []string{"check_failed", "S1", "proj", "check failed: pnpm test", "exit_code=1 timed_out=false"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatEvent missing %q: %s", want, got)
		}
	}
}

func TestKnownKinds(t *testing.T) {
	if !isKnownKind(eventlog.KindReminder) || isKnownKind("bogus") {
		t.Error("isKnownKind mismatch")
	}
}

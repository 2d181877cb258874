package eventlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAppendAndRead(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "state", "events.jsonl"))

	l.Append(KindClaimed, "S1", "proj", "claimed", map[string]interface{}{"mode": "check"})
	l.Append(KindCheckFailed, "S1", "proj", "check failed: pnpm test", nil)
	l.Append(KindAlertCreated, "S2", "proj2", "waiting", nil)

	all, err := l.Read(Filter{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	if all[0].Kind != KindClaimed || all[0].Payload["mode"] != "check" {
		t.Errorf("unexpected first event: %+v", all[0])
	}
	if all[0].ID == "" || all[0].ID == all[1].ID {
		t.Error("expected unique event ids")
	}

	s1, err := l.Read(Filter{SessionID: "S1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(s1) != 2 {
		t.Errorf("expected 2 S1 events, got %d", len(s1))
	}

	kind, err := l.Read(Filter{Kind: KindAlertCreated})
	if err != nil {
		t.Fatal(err)
	}
	if len(kind) != 1 || kind[0].SessionID != "S2" {
		t.Errorf("kind filter returned %+v", kind)
	}

	proj, err := l.Read(Filter{Project: "proj2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(proj) != 1 || proj[0].Kind != KindAlertCreated {
		t.Errorf("project filter returned %+v", proj)
	}

	last, err := l.Read(Filter{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(last) != 1 || last[0].Kind != KindAlertCreated {
		t.Errorf("limit should keep most recent event, got %+v", last)
	}
}

func TestReadSince(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "events.jsonl"))
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	l.now = func() time.Time { return base }
	l.Append(KindPauseSet, "", "", "old", nil)
	l.now = func() time.Time { return base.Add(2 * time.Hour) }
	l.Append(KindPauseCleared, "", "", "new", nil)

	events, err := l.Read(Filter{Since: base.Add(time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Message != "new" {
		t.Errorf("Since filter returned %+v", events)
	}
}

func TestReadSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	if err := os.WriteFile(path, []byte("garbage\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := New(path)
	l.Append(KindReminder, "S3", "", "still waiting", nil)

	events, err := l.Read(Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 valid event, got %d", len(events))
	}
}

func TestReadMissingLog(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "none.jsonl"))
	events, err := l.Read(Filter{})
	if err != nil || len(events) != 0 {
		t.Errorf("missing log: events=%v err=%v", events, err)
	}
}

func TestAppendUnwritablePathDoesNotPanic(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	// Parent is a regular file, so MkdirAll fails.
	l := New(filepath.Join(blocker, "events.jsonl"))
	l.Append(KindFailOpen, "S", "", "x", nil)
}

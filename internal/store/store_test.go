package store

import (
	"os"
	"path/filepath"
	"testing"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteReadJSON(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state"))

	if err := s.WriteJSON("sessions/a.json", doc{Name: "a", Count: 2}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got doc
	found, err := s.ReadJSON("sessions/a.json", &got)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if !found {
		t.Fatal("expected document to be found")
	}
	if got.Name != "a" || got.Count != 2 {
		t.Errorf("unexpected document: %+v", got)
	}

	// Overwrite replaces the whole document
	if err := s.WriteJSON("sessions/a.json", doc{Name: "b"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	got = doc{}
	if _, err := s.ReadJSON("sessions/a.json", &got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Name != "b" || got.Count != 0 {
		t.Errorf("expected overwritten document, got %+v", got)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	for i := 0; i < 5; i++ {
		if err := s.WriteJSON("pending.json", doc{Count: i}); err != nil {
			t.Fatalf("WriteJSON: %v", err)
		}
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "pending.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only pending.json, got %v", names)
	}
}

func TestReadMissingAndCorrupt(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	var got doc
	found, err := s.ReadJSON("missing.json", &got)
	if err != nil || found {
		t.Errorf("missing document: found=%v err=%v", found, err)
	}

	if err := os.WriteFile(filepath.Join(root, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	found, err = s.ReadJSON("bad.json", &got)
	if err != nil {
		t.Errorf("corrupt document should not error: %v", err)
	}
	if found {
		t.Error("corrupt document should read as absent")
	}
}

func TestRemove(t *testing.T) {
	s := New(t.TempDir())
	if err := s.WriteJSON("pause.json", doc{}); err != nil {
		t.Fatal(err)
	}

	existed, err := s.Remove("pause.json")
	if err != nil || !existed {
		t.Errorf("Remove existing: existed=%v err=%v", existed, err)
	}
	existed, err = s.Remove("pause.json")
	if err != nil || existed {
		t.Errorf("Remove missing: existed=%v err=%v", existed, err)
	}
	if _, ok := s.ModTime("pause.json"); ok {
		t.Error("ModTime reported removed document")
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	names, err := s.List("alerts")
	if err != nil || len(names) != 0 {
		t.Fatalf("missing dir: names=%v err=%v", names, err)
	}

	for _, n := range []string{"alerts/b.json", "alerts/a.json"} {
		if err := s.WriteJSON(n, doc{}); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "alerts", "notes.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	names, err = s.List("alerts")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"alerts/a.json", "alerts/b.json"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Errorf("List = %v, want %v", names, want)
	}
}

func TestWithLock(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "fresh"))
	ran := false
	if err := s.WithLock(func() error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("WithLock: %v", err)
	}
	if !ran {
		t.Error("WithLock did not run fn")
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"abc-123_DEF", "abc-123_DEF"},
		{"../etc/passwd", "_._etc_passwd"},
		{"a b/c", "a_b_c"},
		{"", "_"},
		{"v1.2", "v1.2"},
	}
	for _, tt := range tests {
		if got := Key(tt.in); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func initIn(t *testing.T, dir string) {
	t.Helper()
	ResetForTesting()
	t.Cleanup(ResetForTesting)
	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
}

func TestDefaults(t *testing.T) {
	dir := t.TempDir()
	initIn(t, dir)

	if got := StateDir(); got != dir {
		t.Errorf("StateDir = %q, want %q", got, dir)
	}
	if got := GetDuration(KeyCheckTimeout); got != 60*time.Second {
		t.Errorf("check.timeout = %v, want 60s", got)
	}
	if got := Minutes(KeyReminderInterval); got != 5*time.Minute {
		t.Errorf("reminder interval = %v, want 5m", got)
	}
	if got := GetInt(KeyReminderMax); got != 3 {
		t.Errorf("reminder.max = %d, want 3", got)
	}
	if got := Minutes(KeyReminderUrgentAfter); got != 15*time.Minute {
		t.Errorf("urgent after = %v, want 15m", got)
	}
	wantSpeak := ""
	if runtime.GOOS == "darwin" {
		wantSpeak = "say"
	}
	if got := GetString(KeySpeakCommand); got != wantSpeak {
		t.Errorf("speak.command = %q, want %q", got, wantSpeak)
	}
	if got := TemplatesPath(); got != filepath.Join(dir, "templates.toml") {
		t.Errorf("TemplatesPath = %q", got)
	}
}

func TestDefaultStateDirUnderHome(t *testing.T) {
	ResetForTesting()
	home, _ := os.UserHomeDir()
	if got := ResolveStateDir(""); got != filepath.Join(home, ".nudge") {
		t.Errorf("ResolveStateDir = %q", got)
	}
	t.Setenv("NUDGE_STATE_DIR", "/tmp/elsewhere")
	if got := ResolveStateDir(""); got != "/tmp/elsewhere" {
		t.Errorf("env override = %q", got)
	}
	if got := ResolveStateDir("/x/y/"); got != "/x/y" {
		t.Errorf("flag override = %q", got)
	}
}

func TestConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "reminder:\n  max: 7\ncheck:\n  timeout: 2m\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NUDGE_SPEAK_COMMAND", "espeak")
	initIn(t, dir)

	if got := GetInt(KeyReminderMax); got != 7 {
		t.Errorf("reminder.max = %d, want 7", got)
	}
	if got := GetDuration(KeyCheckTimeout); got != 2*time.Minute {
		t.Errorf("check.timeout = %v, want 2m", got)
	}
	if got := GetString(KeySpeakCommand); got != "espeak" {
		t.Errorf("speak.command = %q, want espeak", got)
	}

	sources := map[string]string{}
	for _, s := range AllSettings() {
		sources[s.Key] = s.Source
	}
	if sources[KeyReminderMax] != "config.yaml" {
		t.Errorf("reminder.max source = %q", sources[KeyReminderMax])
	}
	if sources[KeySpeakCommand] != "env" {
		t.Errorf("speak.command source = %q", sources[KeySpeakCommand])
	}
	if sources[KeyNotifyTimeout] != "default" {
		t.Errorf("notify.timeout source = %q", sources[KeyNotifyTimeout])
	}
}

func TestDurationAsSeconds(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NUDGE_CHECK_TIMEOUT", "90")
	initIn(t, dir)
	if got := GetDuration(KeyCheckTimeout); got != 90*time.Second {
		t.Errorf("check.timeout = %v, want 90s", got)
	}
}

func TestSetYamlConfig(t *testing.T) {
	dir := t.TempDir()
	initial := "# my settings\nspeak:\n  command: say # mac voice\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(initial), 0o600); err != nil {
		t.Fatal(err)
	}
	initIn(t, dir)

	if err := SetYamlConfig(KeyReminderMax, "5"); err != nil {
		t.Fatalf("SetYamlConfig: %v", err)
	}
	if err := SetYamlConfig(KeySpeakTimeout, "20s"); err != nil {
		t.Fatalf("SetYamlConfig: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{"# my settings", "command: say", "max: 5", "timeout: 20s"} {
		if !strings.Contains(s, want) {
			t.Errorf("config.yaml missing %q:\n%s", want, s)
		}
	}
	if got := GetInt(KeyReminderMax); got != 5 {
		t.Errorf("reloaded reminder.max = %d", got)
	}
	if got := GetYamlConfig(KeySpeakTimeout); got != "20s" {
		t.Errorf("GetYamlConfig = %q", got)
	}
}

func TestSetYamlConfigRejectsUnknownKey(t *testing.T) {
	initIn(t, t.TempDir())
	if err := SetYamlConfig("no.such.key", "1"); err == nil {
		t.Fatal("expected error for unknown key")
	}
	if err := SetYamlConfig(KeyStateDir, "/tmp"); err == nil {
		t.Fatal("state-dir cannot be stored in the file it locates")
	}
}

func TestScalarNode(t *testing.T) {
	tests := []struct{ in, tag, value string }{
		{"true", "!!bool", "true"},
		{"FALSE", "!!bool", "false"},
		{"42", "!!int", "42"},
		{"-3", "!!int", "-3"},
		{"1.5", "!!float", "1.5"},
		{"20s", "!!str", "20s"},
		{"say -v Samantha", "!!str", "say -v Samantha"},
	}
	for _, tt := range tests {
		n := scalarNode(tt.in)
		if n.Tag != tt.tag || n.Value != tt.value {
			t.Errorf("scalarNode(%q) = %s %q, want %s %q", tt.in, n.Tag, n.Value, tt.tag, tt.value)
		}
	}
}

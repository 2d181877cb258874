package main

import (
	"testing"

	"github.com/nudgehq/nudge/internal/config"
)

// setupState points config at a fresh state directory with speech disabled.
func setupState(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	config.ResetForTesting()
	if err := config.Initialize(dir); err != nil {
		t.Fatalf("config.Initialize: %v", err)
	}
	config.Set(config.KeySpeakCommand, "")
	t.Cleanup(config.ResetForTesting)
	return dir
}

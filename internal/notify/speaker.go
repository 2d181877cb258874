// Package notify announces nudge state changes: it speaks a short message
// through an external text-to-speech command and records the matching event.
// Announcements are best effort and bounded in time.
package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Speaker voices a message.
type Speaker interface {
	Speak(ctx context.Context, message string) error
}

// CommandSpeaker runs an external command with the message as its final
// argument, e.g. "say" or "spd-say -w".
type CommandSpeaker struct {
	Command string
	Timeout time.Duration
}

// Speak runs the configured command. An empty command is a no-op.
func (s *CommandSpeaker) Speak(ctx context.Context, message string) error {
	fields := strings.Fields(s.Command)
	if len(fields) == 0 || strings.TrimSpace(message) == "" {
		return nil
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	args := append(fields[1:], message)
	// #nosec G204 -- speak command comes from the operator's config
	cmd := exec.CommandContext(ctx, fields[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("speak %q: %w (%s)", fields[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// NopSpeaker discards messages.
type NopSpeaker struct{}

func (NopSpeaker) Speak(context.Context, string) error { return nil }

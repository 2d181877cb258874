// Package hookevent decodes the JSON documents a coding agent writes to a
// hook's stdin.
package hookevent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Hook event names as sent by the agent.
const (
	EventStop             = "Stop"
	EventSubagentStop     = "SubagentStop"
	EventNotification     = "Notification"
	EventUserPromptSubmit = "UserPromptSubmit"
)

// Payload is the subset of hook input nudge reads. Unknown fields are ignored.
type Payload struct {
	HookEventName    string `json:"hook_event_name"`
	SessionID        string `json:"session_id"`
	TranscriptPath   string `json:"transcript_path,omitempty"`
	CWD              string `json:"cwd"`
	StopHookActive   bool   `json:"stop_hook_active,omitempty"`
	Message          string `json:"message,omitempty"`
	NotificationType string `json:"notification_type,omitempty"`
	Title            string `json:"title,omitempty"`
	Prompt           string `json:"prompt,omitempty"`
}

// Parse decodes a hook payload. Empty input yields an empty payload so that
// callers can fall back to the environment.
func Parse(data []byte) (*Payload, error) {
	var p Payload
	if len(strings.TrimSpace(string(data))) == 0 {
		return &p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse hook payload: %w", err)
	}
	return &p, nil
}

// ResolveSessionID returns the payload session id, falling back to
// CLAUDE_SESSION_ID.
func (p *Payload) ResolveSessionID() string {
	if id := strings.TrimSpace(p.SessionID); id != "" {
		return id
	}
	return strings.TrimSpace(os.Getenv("CLAUDE_SESSION_ID"))
}

// Dir returns the directory the agent is working in, falling back to the
// process working directory.
func (p *Payload) Dir() string {
	if p.CWD != "" {
		return p.CWD
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}

// ProjectKey is the cleaned absolute working directory. Continuations
// targeted at a project compare against it exactly.
func (p *Payload) ProjectKey() string {
	return ProjectKeyFor(p.Dir())
}

// ProjectLabel is the short name used in spoken messages.
func (p *Payload) ProjectLabel() string {
	return LabelFor(p.ProjectKey())
}

// ProjectKeyFor normalizes a directory into a project key.
func ProjectKeyFor(dir string) string {
	if dir == "" {
		return ""
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return filepath.Clean(dir)
}

// LabelFor returns the last element of a project key.
func LabelFor(key string) string {
	if key == "" {
		return "unknown project"
	}
	base := filepath.Base(key)
	if base == "/" || base == "." {
		return key
	}
	return base
}

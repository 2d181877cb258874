// Package alert tracks agent sessions that are waiting on the user.
//
// A qualifying notification creates or refreshes the session's alert and
// makes sure a reminder watcher is running for it. The user's next prompt
// clears the alert; watchers notice on their next wake and exit.
package alert

import (
	"fmt"
	"strings"
	"time"
)

// Type classifies why a session needs attention.
type Type string

const (
	TypeNone       Type = ""
	TypePermission Type = "permission"
	TypeInput      Type = "input"
	TypeError      Type = "error"
)

// ParseType validates an alert type name. "none" and "" parse as TypeNone.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypePermission:
		return TypePermission, nil
	case TypeInput:
		return TypeInput, nil
	case TypeError:
		return TypeError, nil
	case TypeNone, "none":
		return TypeNone, nil
	default:
		return TypeNone, fmt.Errorf("invalid alert type %q", s)
	}
}

// Noun is the word spoken for the alert type.
func (t Type) Noun() string {
	switch t {
	case TypePermission:
		return "permission"
	case TypeInput:
		return "input"
	case TypeError:
		return "attention after an error"
	default:
		return "attention"
	}
}

// Alert is a session waiting on the user. At most one exists per session.
type Alert struct {
	SessionID     string    `json:"session_id"`
	ProjectLabel  string    `json:"project_label"`
	Type          Type      `json:"alert_type"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"created_at"`
	ReminderCount int       `json:"reminder_count"`
	WatcherPID    int       `json:"watcher_pid,omitempty"`
}

// Age returns how long the alert has been open at now.
func (a *Alert) Age(now time.Time) time.Duration {
	return now.Sub(a.CreatedAt)
}

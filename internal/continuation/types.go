// Package continuation manages continuation directives: the single global
// pending slot an operator fills, the per-session active records a pending
// directive becomes once a session claims it, and the global pause flag.
package continuation

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects how an active continuation decides whether the agent may stop.
type Mode string

const (
	// ModeManual blocks every stop with the objective until paused or cleared.
	ModeManual Mode = "manual"
	// ModeCheck blocks until an external command exits 0.
	ModeCheck Mode = "check"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeManual:
		return ModeManual, nil
	case ModeCheck:
		return ModeCheck, nil
	default:
		return "", fmt.Errorf("invalid continuation mode %q (want manual or check)", s)
	}
}

// Targeting scopes a pending continuation. A session id wins over a project
// key; with neither set any session may claim it.
type Targeting struct {
	TargetSessionID  string `json:"target_session_id,omitempty"`
	TargetProjectKey string `json:"target_project_key,omitempty"`
}

// Pending is the unclaimed continuation directive. At most one exists.
type Pending struct {
	Mode      Mode      `json:"mode"`
	Objective string    `json:"objective,omitempty"`
	Command   string    `json:"command,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Targeting
}

// Value returns the objective for manual mode or the command for check mode.
func (p *Pending) Value() string {
	if p.Mode == ModeCheck {
		return p.Command
	}
	return p.Objective
}

// Untargeted reports whether any session may claim p.
func (p *Pending) Untargeted() bool {
	return p.TargetSessionID == "" && p.TargetProjectKey == ""
}

// Session is the continuation bound to one agent session.
type Session struct {
	SessionID  string    `json:"session_id"`
	ProjectKey string    `json:"project_key,omitempty"`
	Mode       Mode      `json:"mode"`
	Objective  string    `json:"objective,omitempty"`
	Command    string    `json:"command,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ClaimedAt  time.Time `json:"claimed_at"`
	Iteration  int       `json:"iteration"`
}

// Value returns the objective for manual mode or the command for check mode.
func (s *Session) Value() string {
	if s.Mode == ModeCheck {
		return s.Command
	}
	return s.Objective
}

// PauseFlag marks that the next stop attempt of any active session should be
// let through and its continuation dropped.
type PauseFlag struct {
	CreatedAt time.Time `json:"created_at"`
}

package continuation

import (
	"fmt"
	"strings"
	"time"

	"github.com/nudgehq/nudge/internal/eventlog"
	"github.com/nudgehq/nudge/internal/hookevent"
	"github.com/nudgehq/nudge/internal/store"
)

const (
	pendingDoc  = "pending.json"
	sessionsDir = "sessions"
)

func sessionDoc(id string) string {
	return sessionsDir + "/" + store.Key(id) + ".json"
}

// Registry holds the pending slot and the per-session records.
type Registry struct {
	store  *store.Store
	events eventlog.Recorder
	now    func() time.Time
}

// NewRegistry creates a Registry on s. A nil recorder discards events.
func NewRegistry(s *store.Store, events eventlog.Recorder) *Registry {
	if events == nil {
		events = eventlog.Discard
	}
	return &Registry{store: s, events: events, now: time.Now}
}

// SetPending replaces the pending continuation.
func (r *Registry) SetPending(mode Mode, value string, target Targeting) (*Pending, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		if mode == ModeCheck {
			return nil, fmt.Errorf("check mode requires a command")
		}
		return nil, fmt.Errorf("manual mode requires an objective")
	}

	p := &Pending{Mode: mode, CreatedAt: r.now().UTC(), Targeting: target}
	switch mode {
	case ModeManual:
		p.Objective = value
	case ModeCheck:
		p.Command = value
	default:
		return nil, fmt.Errorf("invalid continuation mode %q", mode)
	}

	if err := r.store.WriteJSON(pendingDoc, p); err != nil {
		return nil, fmt.Errorf("save pending continuation: %w", err)
	}
	payload := map[string]interface{}{"mode": string(mode)}
	if target.TargetProjectKey != "" {
		payload["project_key"] = target.TargetProjectKey
	}
	r.events.Append(eventlog.KindPendingSet, target.TargetSessionID, projectLabel(target.TargetProjectKey), p.Value(), payload)
	return p, nil
}

// GetPending returns the pending continuation, or nil.
func (r *Registry) GetPending() (*Pending, error) {
	var p Pending
	found, err := r.store.ReadJSON(pendingDoc, &p)
	if err != nil || !found {
		return nil, err
	}
	if p.Mode != ModeManual && p.Mode != ModeCheck {
		return nil, nil
	}
	return &p, nil
}

// ClearPending deletes the pending continuation and reports whether one existed.
func (r *Registry) ClearPending() (bool, error) {
	removed, err := r.store.Remove(pendingDoc)
	if err != nil {
		return false, err
	}
	if removed {
		r.events.Append(eventlog.KindPendingCleared, "", "", "pending continuation cleared", nil)
	}
	return removed, nil
}

// Matches reports whether a session may claim p. A target session id requires
// an exact session match and ignores the project key; otherwise a target
// project key requires an exact project match; otherwise anything matches.
func Matches(p *Pending, sessionID, projectKey string) bool {
	if p == nil {
		return false
	}
	if p.TargetSessionID != "" {
		return p.TargetSessionID == sessionID
	}
	if p.TargetProjectKey != "" {
		return p.TargetProjectKey == projectKey
	}
	return true
}

// GetSession returns the active continuation for id, or nil.
func (r *Registry) GetSession(id string) (*Session, error) {
	var s Session
	found, err := r.store.ReadJSON(sessionDoc(id), &s)
	if err != nil || !found {
		return nil, err
	}
	if s.SessionID != id {
		// Key collision between two ids that sanitize to the same file name.
		return nil, nil
	}
	return &s, nil
}

// SetSession persists an active continuation.
func (r *Registry) SetSession(s *Session) error {
	if s.SessionID == "" {
		return fmt.Errorf("session continuation requires a session id")
	}
	if err := r.store.WriteJSON(sessionDoc(s.SessionID), s); err != nil {
		return fmt.Errorf("save session continuation: %w", err)
	}
	return nil
}

// ClearSession removes the active continuation for id.
func (r *Registry) ClearSession(id, reason string) (bool, error) {
	var removed bool
	err := r.store.WithLock(func() error {
		existing, err := r.GetSession(id)
		if err != nil || existing == nil {
			return err
		}
		removed, err = r.store.Remove(sessionDoc(id))
		return err
	})
	if err != nil {
		return false, err
	}
	if removed {
		r.events.Append(eventlog.KindSessionCleared, id, "", reason, nil)
	}
	return removed, nil
}

// ListSessions returns every active continuation.
func (r *Registry) ListSessions() ([]*Session, error) {
	names, err := r.store.List(sessionsDir)
	if err != nil {
		return nil, err
	}
	var out []*Session
	for _, name := range names {
		var s Session
		found, err := r.store.ReadJSON(name, &s)
		if err != nil {
			return nil, err
		}
		if found && s.SessionID != "" {
			out = append(out, &s)
		}
	}
	return out, nil
}

// ClearAllSessions removes every active continuation and returns the ids
// that were cleared.
func (r *Registry) ClearAllSessions() ([]string, error) {
	var cleared []string
	err := r.store.WithLock(func() error {
		names, err := r.store.List(sessionsDir)
		if err != nil {
			return err
		}
		for _, name := range names {
			var s Session
			if found, _ := r.store.ReadJSON(name, &s); found {
				cleared = append(cleared, s.SessionID)
			}
			if _, err := r.store.Remove(name); err != nil {
				return err
			}
		}
		return nil
	})
	for _, id := range cleared {
		r.events.Append(eventlog.KindSessionCleared, id, "", "clear all", nil)
	}
	return cleared, err
}

// projectLabel is the event log's project field for a project key.
func projectLabel(key string) string {
	if key == "" {
		return ""
	}
	return hookevent.LabelFor(key)
}

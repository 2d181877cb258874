package alert

import (
	"fmt"
	"time"

	"github.com/nudgehq/nudge/internal/eventlog"
	"github.com/nudgehq/nudge/internal/lockfile"
	"github.com/nudgehq/nudge/internal/store"
)

const alertsDir = "alerts"

func alertDoc(id string) string {
	return alertsDir + "/" + store.Key(id) + ".json"
}

// Registry persists one alert document per session.
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

// Dir is the directory holding alert documents.
func (r *Registry) Dir() string {
	return r.store.Path(alertsDir)
}

// Path is the document path for a session's alert.
func (r *Registry) Path(sessionID string) string {
	return r.store.Path(alertDoc(sessionID))
}

// Set creates or refreshes the alert for sessionID. A refresh replaces the
// label, type, message and timestamp and keeps the reminder count and
// watcher. The bool reports whether the alert is new.
func (r *Registry) Set(sessionID, projectLabel string, typ Type, message string) (*Alert, bool, error) {
	if sessionID == "" {
		return nil, false, fmt.Errorf("alert requires a session id")
	}
	var (
		a       *Alert
		created bool
	)
	err := r.store.WithLock(func() error {
		existing, err := r.Get(sessionID)
		if err != nil {
			return err
		}
		a = &Alert{
			SessionID:    sessionID,
			ProjectLabel: projectLabel,
			Type:         typ,
			Message:      message,
			CreatedAt:    r.now().UTC(),
		}
		if existing != nil {
			a.ReminderCount = existing.ReminderCount
			a.WatcherPID = existing.WatcherPID
		} else {
			created = true
		}
		return r.store.WriteJSON(alertDoc(sessionID), a)
	})
	if err != nil {
		return nil, false, fmt.Errorf("save alert: %w", err)
	}
	kind := eventlog.KindAlertRefreshed
	if created {
		kind = eventlog.KindAlertCreated
	}
	r.events.Append(kind, sessionID, projectLabel, message, map[string]interface{}{"alert_type": string(typ)})
	return a, created, nil
}

// Get returns the alert for sessionID, or nil.
func (r *Registry) Get(sessionID string) (*Alert, error) {
	var a Alert
	found, err := r.store.ReadJSON(alertDoc(sessionID), &a)
	if err != nil || !found {
		return nil, err
	}
	if a.SessionID != sessionID {
		return nil, nil
	}
	return &a, nil
}

// All returns every open alert.
func (r *Registry) All() ([]*Alert, error) {
	names, err := r.store.List(alertsDir)
	if err != nil {
		return nil, err
	}
	var out []*Alert
	for _, name := range names {
		var a Alert
		found, err := r.store.ReadJSON(name, &a)
		if err != nil {
			return nil, err
		}
		if found && a.SessionID != "" {
			out = append(out, &a)
		}
	}
	return out, nil
}

// Clear removes the alert for sessionID and reports whether one existed.
func (r *Registry) Clear(sessionID, reason string) (bool, error) {
	var (
		removed bool
		label   string
	)
	err := r.store.WithLock(func() error {
		a, err := r.Get(sessionID)
		if err != nil || a == nil {
			return err
		}
		label = a.ProjectLabel
		removed, err = r.store.Remove(alertDoc(sessionID))
		return err
	})
	if err != nil {
		return false, err
	}
	if removed {
		r.events.Append(eventlog.KindAlertCleared, sessionID, label, reason, nil)
	}
	return removed, nil
}

// ClearAllResult reports what ClearAll removed.
type ClearAllResult struct {
	Cleared        []string `json:"cleared"`
	TerminatedPIDs []int    `json:"terminated_watchers"`
}

// ClearAll removes every alert and signals their watchers to exit.
func (r *Registry) ClearAll() (ClearAllResult, error) {
	var res ClearAllResult
	err := r.store.WithLock(func() error {
		all, err := r.All()
		if err != nil {
			return err
		}
		for _, a := range all {
			if _, err := r.store.Remove(alertDoc(a.SessionID)); err != nil {
				return err
			}
			res.Cleared = append(res.Cleared, a.SessionID)
			if a.WatcherPID > 0 && lockfile.IsProcessRunning(a.WatcherPID) {
				if err := lockfile.Terminate(a.WatcherPID); err == nil {
					res.TerminatedPIDs = append(res.TerminatedPIDs, a.WatcherPID)
				}
			}
		}
		return nil
	})
	for _, id := range res.Cleared {
		r.events.Append(eventlog.KindAlertCleared, id, "", "clear all", nil)
	}
	return res, err
}

// IncrementReminder bumps the reminder count and returns the new value. It
// reports false when the alert no longer exists.
func (r *Registry) IncrementReminder(sessionID string) (int, bool, error) {
	var (
		count int
		found bool
	)
	err := r.store.WithLock(func() error {
		a, err := r.Get(sessionID)
		if err != nil || a == nil {
			return err
		}
		a.ReminderCount++
		count, found = a.ReminderCount, true
		return r.store.WriteJSON(alertDoc(sessionID), a)
	})
	return count, found, err
}

// SetWatcher records the watcher process for sessionID's alert.
func (r *Registry) SetWatcher(sessionID string, pid int) error {
	return r.store.WithLock(func() error {
		a, err := r.Get(sessionID)
		if err != nil || a == nil {
			return err
		}
		a.WatcherPID = pid
		return r.store.WriteJSON(alertDoc(sessionID), a)
	})
}

// EnsureWatcher makes sure sessionID's alert has a live watcher. Under the
// state lock it keeps a recorded watcher that isRunning reports alive, or
// calls spawn and records the new pid. It returns the watcher pid (0 when
// the alert is gone) and whether spawn was called.
func (r *Registry) EnsureWatcher(sessionID string, isRunning func(pid int) bool, spawn func() (int, error)) (int, bool, error) {
	var (
		pid     int
		spawned bool
	)
	err := r.store.WithLock(func() error {
		a, err := r.Get(sessionID)
		if err != nil || a == nil {
			return err
		}
		if a.WatcherPID > 0 && isRunning(a.WatcherPID) {
			pid = a.WatcherPID
			return nil
		}
		newPID, err := spawn()
		if err != nil {
			return fmt.Errorf("start reminder watcher: %w", err)
		}
		pid, spawned = newPID, true
		a.WatcherPID = newPID
		if err := r.store.WriteJSON(alertDoc(sessionID), a); err != nil {
			return fmt.Errorf("record reminder watcher: %w", err)
		}
		return nil
	})
	return pid, spawned, err
}

// ReleaseWatcher forgets the watcher if pid still owns the alert.
func (r *Registry) ReleaseWatcher(sessionID string, pid int) error {
	return r.store.WithLock(func() error {
		a, err := r.Get(sessionID)
		if err != nil || a == nil || a.WatcherPID != pid {
			return err
		}
		a.WatcherPID = 0
		return r.store.WriteJSON(alertDoc(sessionID), a)
	})
}

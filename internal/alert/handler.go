package alert

import (
	"context"
	"fmt"

	"github.com/nudgehq/nudge/internal/debug"
	"github.com/nudgehq/nudge/internal/eventlog"
	"github.com/nudgehq/nudge/internal/lockfile"
	"github.com/nudgehq/nudge/internal/notify"
)

// Spawner starts a reminder watcher for a session and returns its pid.
type Spawner interface {
	Spawn(sessionID string) (int, error)
}

// Handler reacts to notification and prompt-submit hooks.
type Handler struct {
	Registry  *Registry
	Spawner   Spawner
	Notifier  notify.Notifier
	Templates notify.Templates
	Events    eventlog.Recorder

	// IsRunning reports whether a recorded watcher is alive. Defaults to
	// lockfile.IsProcessRunning.
	IsRunning func(pid int) bool
}

// NotificationResult describes what OnNotification did.
type NotificationResult struct {
	Type           Type   `json:"alert_type"`
	Alert          *Alert `json:"alert,omitempty"`
	Created        bool   `json:"created"`
	WatcherPID     int    `json:"watcher_pid,omitempty"`
	WatcherSpawned bool   `json:"watcher_spawned"`
}

// OnNotification records an alert for a notification that needs the user and
// makes sure one watcher is reminding about it. Notifications that do not
// need the user are only logged.
func (h *Handler) OnNotification(ctx context.Context, sessionID, projectLabel string, typ Type, message string) (NotificationResult, error) {
	res := NotificationResult{Type: typ}
	if typ == TypeNone {
		h.events().Append(eventlog.KindNotificationSeen, sessionID, projectLabel, message, nil)
		return res, nil
	}
	if sessionID == "" {
		return res, fmt.Errorf("notification without a session id")
	}

	a, created, err := h.Registry.Set(sessionID, projectLabel, typ, message)
	if err != nil {
		return res, err
	}
	res.Alert, res.Created = a, created

	if created {
		h.speak(ctx, a)
	}

	if h.Spawner == nil {
		res.WatcherPID = a.WatcherPID
		return res, nil
	}
	pid, spawned, err := h.Registry.EnsureWatcher(sessionID, h.running, func() (int, error) {
		return h.Spawner.Spawn(sessionID)
	})
	if err != nil {
		return res, err
	}
	a.WatcherPID = pid
	res.WatcherPID, res.WatcherSpawned = pid, spawned
	return res, nil
}

// OnPromptSubmit clears the session's alert. The user has answered, so any
// failure here is logged and otherwise ignored.
func (h *Handler) OnPromptSubmit(sessionID string) bool {
	if sessionID == "" {
		return false
	}
	cleared, err := h.Registry.Clear(sessionID, "user responded")
	if err != nil {
		debug.Logf("alert: clear %s: %v\n", sessionID, err)
		return false
	}
	return cleared
}

func (h *Handler) speak(ctx context.Context, a *Alert) {
	if h.Notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			debug.Logf("alert: announce panicked: %v\n", r)
		}
	}()
	h.Notifier.Notify(ctx, notify.Notification{
		SessionID: a.SessionID,
		Project:   a.ProjectLabel,
		Speech: notify.Render(h.Templates.Alert, notify.Vars{
			"project": a.ProjectLabel,
			"type":    a.Type.Noun(),
			"message": a.Message,
		}),
	})
}

func (h *Handler) running(pid int) bool {
	if h.IsRunning != nil {
		return h.IsRunning(pid)
	}
	return lockfile.IsProcessRunning(pid)
}

func (h *Handler) events() eventlog.Recorder {
	if h.Events == nil {
		return eventlog.Discard
	}
	return h.Events
}

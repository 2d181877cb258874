// Package reminder repeats an alert until the user responds.
//
// One watcher process runs per open alert. It wakes every interval, speaks a
// reminder while the alert is still open, and switches to the escalation
// message once the alert has been open longer than the urgent threshold. It
// exits when the alert is cleared or the reminder budget is spent.
package reminder

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nudgehq/nudge/internal/alert"
	"github.com/nudgehq/nudge/internal/debug"
	"github.com/nudgehq/nudge/internal/eventlog"
	"github.com/nudgehq/nudge/internal/notify"
	"github.com/nudgehq/nudge/internal/telemetry"
)

// Defaults for the reminder cadence.
const (
	DefaultInterval    = 5 * time.Minute
	DefaultMax         = 3
	DefaultUrgentAfter = 15 * time.Minute
)

// Why a watcher stopped.
const (
	StopCleared   = "alert cleared"
	StopExhausted = "max reminders reached"
	StopCanceled  = "canceled"
	StopError     = "error"
)

// Watcher reminds about one session's alert.
type Watcher struct {
	SessionID string
	Alerts    *alert.Registry
	Notifier  notify.Notifier
	Templates notify.Templates
	Events    eventlog.Recorder
	Metrics   *telemetry.Instruments

	Interval     time.Duration
	MaxReminders int           // 0 means unlimited
	UrgentAfter  time.Duration // 0 disables escalation

	// PID is this watcher's process id. When set, the watcher releases its
	// handle on the alert as it exits.
	PID int

	// Now defaults to time.Now.
	Now func() time.Time
}

// Outcome is how a watcher run ended.
type Outcome struct {
	Reason string `json:"reason"`
	Sent   int    `json:"sent"`
}

// Run blocks until the alert is cleared, the budget is spent, or ctx ends.
func (w *Watcher) Run(ctx context.Context) (Outcome, error) {
	out := Outcome{}
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	changes, closeWatch := w.watchAlert()
	defer closeWatch()
	defer w.release()

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			out.Reason = StopCanceled
			w.stopped(out)
			return out, nil
		case <-changes:
			a, err := w.Alerts.Get(w.SessionID)
			if err != nil {
				debug.Logf("reminder: read alert %s: %v\n", w.SessionID, err)
				continue
			}
			if a == nil {
				out.Reason = StopCleared
				w.stopped(out)
				return out, nil
			}
			continue
		case <-timer.C:
		}

		done, err := w.tick(ctx, &out)
		if err != nil {
			out.Reason = StopError
			w.stopped(out)
			return out, err
		}
		if done {
			w.stopped(out)
			return out, nil
		}
		timer.Reset(interval)
	}
}

// tick sends one reminder if the alert is still open and under budget.
func (w *Watcher) tick(ctx context.Context, out *Outcome) (bool, error) {
	a, err := w.Alerts.Get(w.SessionID)
	if err != nil {
		return true, err
	}
	if a == nil {
		out.Reason = StopCleared
		return true, nil
	}
	if w.MaxReminders > 0 && a.ReminderCount >= w.MaxReminders {
		out.Reason = StopExhausted
		return true, nil
	}

	count, ok, err := w.Alerts.IncrementReminder(w.SessionID)
	if err != nil {
		return true, err
	}
	if !ok {
		out.Reason = StopCleared
		return true, nil
	}
	out.Sent++

	age := a.Age(w.now())
	escalated := w.UrgentAfter > 0 && age >= w.UrgentAfter
	tmpl := w.Templates.Reminder
	if escalated {
		tmpl = w.Templates.Escalation
	}
	vars := notify.Vars{
		"project": a.ProjectLabel,
		"type":    a.Type.Noun(),
		"message": a.Message,
		"minutes": strconv.Itoa(int(age / time.Minute)),
		"count":   strconv.Itoa(count),
	}
	w.announce(ctx, notify.Notification{
		Kind:      eventlog.KindReminder,
		SessionID: w.SessionID,
		Project:   a.ProjectLabel,
		Speech:    notify.Render(tmpl, vars),
		Message:   a.Message,
		Payload: map[string]interface{}{
			"count":      count,
			"escalated":  escalated,
			"alert_type": string(a.Type),
		},
	})
	w.Metrics.RecordReminder(ctx, escalated)

	if w.MaxReminders > 0 && count >= w.MaxReminders {
		out.Reason = StopExhausted
		return true, nil
	}
	return false, nil
}

func (w *Watcher) announce(ctx context.Context, n notify.Notification) {
	if w.Notifier == nil {
		w.events().Append(n.Kind, n.SessionID, n.Project, n.Message, n.Payload)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			debug.Logf("reminder: announce panicked: %v\n", r)
		}
	}()
	w.Notifier.Notify(ctx, n)
}

// watchAlert reports changes to the alert document so a cleared alert ends
// the watcher without waiting out the interval. Without fsnotify the
// watcher still notices on its next tick.
func (w *Watcher) watchAlert() (<-chan struct{}, func()) {
	changes := make(chan struct{}, 1)
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		debug.Logf("reminder: fsnotify unavailable: %v\n", err)
		return changes, func() {}
	}
	if err := fw.Add(w.Alerts.Dir()); err != nil {
		debug.Logf("reminder: watch %s: %v\n", w.Alerts.Dir(), err)
		_ = fw.Close()
		return changes, func() {}
	}

	target := filepath.Base(w.Alerts.Path(w.SessionID))
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					select {
					case changes <- struct{}{}:
					default:
					}
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				debug.Logf("reminder: watch error: %v\n", err)
			}
		}
	}()
	return changes, func() {
		close(done)
		_ = fw.Close()
	}
}

func (w *Watcher) release() {
	if w.PID <= 0 {
		return
	}
	if err := w.Alerts.ReleaseWatcher(w.SessionID, w.PID); err != nil {
		debug.Logf("reminder: release watcher %d: %v\n", w.PID, err)
	}
}

func (w *Watcher) stopped(out Outcome) {
	w.events().Append(eventlog.KindWatcherStopped, w.SessionID, "", out.Reason, map[string]interface{}{
		"sent": out.Sent,
		"pid":  w.PID,
	})
}

func (w *Watcher) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Watcher) events() eventlog.Recorder {
	if w.Events == nil {
		return eventlog.Discard
	}
	return w.Events
}

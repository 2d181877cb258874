package main

import (
	"path/filepath"
	"time"

	"github.com/nudgehq/nudge/internal/alert"
	"github.com/nudgehq/nudge/internal/checkrun"
	"github.com/nudgehq/nudge/internal/config"
	"github.com/nudgehq/nudge/internal/continuation"
	"github.com/nudgehq/nudge/internal/debug"
	"github.com/nudgehq/nudge/internal/eventlog"
	"github.com/nudgehq/nudge/internal/notify"
	"github.com/nudgehq/nudge/internal/reminder"
	"github.com/nudgehq/nudge/internal/stopcheck"
	"github.com/nudgehq/nudge/internal/store"
	"github.com/nudgehq/nudge/internal/telemetry"
)

// app holds the collaborators every command builds from config.
type app struct {
	stateDir      string
	store         *store.Store
	events        *eventlog.Log
	continuations *continuation.Registry
	pause         *continuation.Pause
	alerts        *alert.Registry
	templates     notify.Templates
	notifier      *notify.Dispatcher
	metrics       *telemetry.Instruments
}

func newApp() *app {
	dir := config.StateDir()
	s := store.New(dir)
	events := eventlog.New(filepath.Join(dir, "events.jsonl"))

	templates, err := notify.LoadTemplates(config.TemplatesPath())
	if err != nil {
		debug.Logf("templates: %v (using defaults)\n", err)
	}
	speaker := &notify.CommandSpeaker{
		Command: config.GetString(config.KeySpeakCommand),
		Timeout: config.GetDuration(config.KeySpeakTimeout),
	}

	return &app{
		stateDir:      dir,
		store:         s,
		events:        events,
		continuations: continuation.NewRegistry(s, events),
		pause:         continuation.NewPause(s, events),
		alerts:        alert.NewRegistry(s, events),
		templates:     templates,
		notifier:      notify.NewDispatcher(speaker, events, config.GetDuration(config.KeyNotifyTimeout)),
		metrics:       telemetry.NewInstruments(),
	}
}

func (a *app) evaluator() *stopcheck.Evaluator {
	return &stopcheck.Evaluator{
		Registry:  a.continuations,
		Pause:     a.pause,
		Runner:    checkrun.NewRunner(config.GetDuration(config.KeyCheckTimeout)),
		Notifier:  a.notifier,
		Templates: a.templates,
		Events:    a.events,
		Metrics:   a.metrics,
	}
}

func (a *app) alertHandler() *alert.Handler {
	return &alert.Handler{
		Registry:  a.alerts,
		Spawner:   &reminder.ProcessSpawner{StateDir: a.stateDir},
		Notifier:  a.notifier,
		Templates: a.templates,
		Events:    a.events,
	}
}

func (a *app) watcher(sessionID string, pid int) *reminder.Watcher {
	return &reminder.Watcher{
		SessionID:    sessionID,
		Alerts:       a.alerts,
		Notifier:     a.notifier,
		Templates:    a.templates,
		Events:       a.events,
		Metrics:      a.metrics,
		Interval:     minutesOr(config.KeyReminderInterval, reminder.DefaultInterval),
		MaxReminders: config.GetInt(config.KeyReminderMax),
		UrgentAfter:  config.Minutes(config.KeyReminderUrgentAfter),
		PID:          pid,
	}
}

func minutesOr(key string, fallback time.Duration) time.Duration {
	if d := config.Minutes(key); d > 0 {
		return d
	}
	return fallback
}

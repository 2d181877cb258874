package notify

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nudgehq/nudge/internal/debug"
	"github.com/nudgehq/nudge/internal/eventlog"
)

// DefaultTimeout bounds one announcement end to end.
const DefaultTimeout = 15 * time.Second

// Notification is one announcement.
type Notification struct {
	Kind      string // event log kind
	SessionID string
	Project   string
	Speech    string // spoken text; empty skips speech
	Message   string // event log message
	Payload   map[string]interface{}
	// Recorded skips the log channel for events already in the log.
	Recorded bool
}

// Notifier announces notifications. Implementations never fail the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Dispatcher speaks and logs each notification concurrently.
type Dispatcher struct {
	speaker Speaker
	events  eventlog.Recorder
	timeout time.Duration
}

// NewDispatcher creates a Dispatcher. Nil collaborators become no-ops.
func NewDispatcher(speaker Speaker, events eventlog.Recorder, timeout time.Duration) *Dispatcher {
	if speaker == nil {
		speaker = NopSpeaker{}
	}
	if events == nil {
		events = eventlog.Discard
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{speaker: speaker, events: events, timeout: timeout}
}

// Notify returns once both channels finish or the timeout passes, whichever
// is first. Channel failures are reported through debug output only.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if n.Speech != "" {
		g.Go(guard("speak", func() error {
			return d.speaker.Speak(gctx, n.Speech)
		}))
	}
	if n.Kind != "" && !n.Recorded {
		g.Go(guard("log", func() error {
			d.events.Append(n.Kind, n.SessionID, n.Project, n.Message, n.Payload)
			return nil
		}))
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			debug.Logf("notify: %s: %v\n", n.Kind, err)
		}
	case <-ctx.Done():
		debug.Logf("notify: %s timed out after %v\n", n.Kind, d.timeout)
	}
}

// guard turns a panic in a side channel into an error.
func guard(name string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s panicked: %v", name, r)
			}
		}()
		return fn()
	}
}

package continuation

import (
	"time"

	"github.com/nudgehq/nudge/internal/eventlog"
	"github.com/nudgehq/nudge/internal/store"
)

const pauseDoc = "pause.json"

// Pause is the global pause marker. It is consumed by the next stop attempt
// of whichever session holds an active continuation.
type Pause struct {
	store  *store.Store
	events eventlog.Recorder
	now    func() time.Time
}

// NewPause creates a Pause on s. A nil recorder discards events.
func NewPause(s *store.Store, events eventlog.Recorder) *Pause {
	if events == nil {
		events = eventlog.Discard
	}
	return &Pause{store: s, events: events, now: time.Now}
}

// Set raises the pause flag.
func (p *Pause) Set() (*PauseFlag, error) {
	flag := &PauseFlag{CreatedAt: p.now().UTC()}
	if err := p.store.WriteJSON(pauseDoc, flag); err != nil {
		return nil, err
	}
	p.events.Append(eventlog.KindPauseSet, "", "", "pause requested", nil)
	return flag, nil
}

// Get returns the pause flag, or nil when it is not set. The marker's
// presence is what counts: an unreadable marker still pauses, dated by its
// modification time.
func (p *Pause) Get() (*PauseFlag, error) {
	var flag PauseFlag
	found, err := p.store.ReadJSON(pauseDoc, &flag)
	if err != nil {
		return nil, err
	}
	if found {
		return &flag, nil
	}
	if mod, ok := p.store.ModTime(pauseDoc); ok {
		return &PauseFlag{CreatedAt: mod.UTC()}, nil
	}
	return nil, nil
}

// IsSet reports whether the pause flag is raised.
func (p *Pause) IsSet() (bool, error) {
	flag, err := p.Get()
	return flag != nil, err
}

// Clear lowers the pause flag and reports whether it was set.
func (p *Pause) Clear() (bool, error) {
	removed, err := p.store.Remove(pauseDoc)
	if err != nil {
		return false, err
	}
	if removed {
		p.events.Append(eventlog.KindPauseCleared, "", "", "pause cleared", nil)
	}
	return removed, nil
}

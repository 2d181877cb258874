// Package eventlog appends nudge domain events to a JSON-lines file.
//
// The log is append-only and write failures never reach the caller: a hook
// decision must not depend on whether it could be recorded.
package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nudgehq/nudge/internal/debug"
)

// Event kinds
const (
	KindPendingSet       = "pending_set"
	KindPendingCleared   = "pending_cleared"
	KindClaimed          = "continuation_claimed"
	KindRound            = "continuation_round"
	KindCheckPassed      = "check_passed"
	KindCheckFailed      = "check_failed"
	KindPaused           = "paused"
	KindPauseSet         = "pause_set"
	KindPauseCleared     = "pause_cleared"
	KindSessionCleared   = "session_cleared"
	KindFailOpen         = "fail_open"
	KindAlertCreated     = "alert_created"
	KindAlertRefreshed   = "alert_refreshed"
	KindAlertCleared     = "alert_cleared"
	KindReminder         = "reminder"
	KindWatcherStarted   = "watcher_started"
	KindWatcherStopped   = "watcher_stopped"
	KindNotificationSeen = "notification"
)

// Event is one line of the log.
type Event struct {
	ID        string                 `json:"id"`
	Time      time.Time              `json:"ts"`
	Kind      string                 `json:"kind"`
	SessionID string                 `json:"session_id,omitempty"`
	Project   string                 `json:"project,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// Recorder is the append side of the log.
type Recorder interface {
	Append(kind, sessionID, project, message string, payload map[string]interface{})
}

// Discard is a Recorder that drops everything.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Append(string, string, string, string, map[string]interface{}) {}

// Log is a file-backed event log.
type Log struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// New returns a Log writing to path.
func New(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Append records an event. Errors are reported through debug output only.
func (l *Log) Append(kind, sessionID, project, message string, payload map[string]interface{}) {
	ev := Event{
		ID:        uuid.NewString(),
		Time:      l.now().UTC(),
		Kind:      kind,
		SessionID: sessionID,
		Project:   project,
		Message:   message,
		Payload:   payload,
	}
	if err := l.write(ev); err != nil {
		debug.Logf("eventlog: dropped %s event: %v\n", kind, err)
	}
}

func (l *Log) write(ev Event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	// #nosec G304 -- path is the state dir event log
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	// Single write so concurrent appenders from other processes do not interleave.
	_, werr := f.Write(line)
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

// Filter selects events in Read.
type Filter struct {
	Since     time.Time
	Kind      string
	SessionID string
	Project   string // project label, as alerts and decisions record it
	Limit     int    // keep the most recent Limit events; 0 = all
}

func (f Filter) match(ev Event) bool {
	if !f.Since.IsZero() && ev.Time.Before(f.Since) {
		return false
	}
	if f.Kind != "" && ev.Kind != f.Kind {
		return false
	}
	if f.SessionID != "" && ev.SessionID != f.SessionID {
		return false
	}
	if f.Project != "" && ev.Project != f.Project {
		return false
	}
	return true
}

// Read returns matching events oldest first. Malformed lines are skipped.
func (l *Log) Read(filter Filter) ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		if filter.match(ev) {
			events = append(events, ev)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}

	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[len(events)-filter.Limit:]
	}
	return events, nil
}

// Package stopcheck decides whether an agent may stop.
//
// Each stop attempt runs the evaluator once. The evaluator binds any
// matching pending continuation to the session, then applies the session's
// continuation: pause lets the agent stop and drops the continuation, check
// mode blocks until a command passes, manual mode blocks every time with an
// incrementing round number.
//
// Every failure inside the evaluator resolves to approve. Letting the agent
// stop is always recoverable; trapping it in a loop is not.
package stopcheck

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nudgehq/nudge/internal/checkrun"
	"github.com/nudgehq/nudge/internal/continuation"
	"github.com/nudgehq/nudge/internal/debug"
	"github.com/nudgehq/nudge/internal/eventlog"
	"github.com/nudgehq/nudge/internal/hookevent"
	"github.com/nudgehq/nudge/internal/notify"
	"github.com/nudgehq/nudge/internal/telemetry"
)

// Decision values
const (
	Approve = "approve"
	Block   = "block"
)

// Reasons for the fixed outcomes.
const (
	ReasonNoContinuation = "no continuation active"
	ReasonPaused         = "paused by request"
	ReasonCheckPassed    = "check passed"
)

// State is the evaluator state a decision was reached in.
type State string

const (
	StateNoContinuation State = "NO_CONTINUATION"
	StateCheckActive    State = "CHECK_ACTIVE"
	StateManualActive   State = "MANUAL_ACTIVE"
	StatePaused         State = "PAUSED"
	StateFailOpen       State = "FAIL_OPEN"
)

// Decision is the document printed to the agent.
type Decision struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

// Result is a decision plus the state that produced it.
type Result struct {
	Decision
	State State `json:"-"`

	// Announcements are spoken by Deliver once the decision has been
	// written.
	Announcements []notify.Notification `json:"-"`
}

// Input identifies one stop attempt.
type Input struct {
	SessionID    string
	ProjectKey   string
	ProjectLabel string
	Dir          string // working directory for check commands
}

// CommandRunner runs check commands.
type CommandRunner interface {
	Run(ctx context.Context, command, dir string) checkrun.Result
}

// Evaluator is the stop decision state machine.
type Evaluator struct {
	Registry  *continuation.Registry
	Pause     *continuation.Pause
	Runner    CommandRunner
	Notifier  notify.Notifier
	Templates notify.Templates
	Events    eventlog.Recorder
	Metrics   *telemetry.Instruments
}

// EvaluatePayload parses a raw hook payload and evaluates it. A payload that
// cannot be parsed or carries no session id is approved.
func (e *Evaluator) EvaluatePayload(ctx context.Context, raw []byte) Result {
	p, err := hookevent.Parse(raw)
	if err != nil {
		return e.failOpen(ctx, Input{}, err)
	}
	in := Input{
		SessionID:    p.ResolveSessionID(),
		ProjectKey:   p.ProjectKey(),
		ProjectLabel: p.ProjectLabel(),
		Dir:          p.Dir(),
	}
	if in.SessionID == "" {
		return e.failOpen(ctx, in, fmt.Errorf("hook payload has no session id"))
	}
	return e.Evaluate(ctx, in)
}

// Evaluate runs one transition for a stop attempt.
func (e *Evaluator) Evaluate(ctx context.Context, in Input) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = e.failOpen(ctx, in, fmt.Errorf("panic: %v", r))
		}
	}()
	if in.ProjectLabel == "" {
		in.ProjectLabel = hookevent.LabelFor(in.ProjectKey)
	}

	var notes []notify.Notification
	res, err := e.evaluate(ctx, in, &notes)
	if err != nil {
		return e.failOpen(ctx, in, err)
	}
	e.Metrics.RecordDecision(ctx, res.Decision.Decision, string(res.State))
	res.Announcements = notes
	return res
}

// Deliver speaks and logs the announcements collected by Evaluate. Hooks
// call it after printing the decision so speech never holds the decision
// back. It never panics.
func (e *Evaluator) Deliver(ctx context.Context, res Result) {
	if e.Notifier == nil {
		return
	}
	for _, n := range res.Announcements {
		func() {
			defer func() {
				if r := recover(); r != nil {
					debug.Logf("stopcheck: announce %s panicked: %v\n", n.Kind, r)
				}
			}()
			e.Notifier.Notify(ctx, n)
		}()
	}
}

func (e *Evaluator) evaluate(ctx context.Context, in Input, notes *[]notify.Notification) (Result, error) {
	claimed, err := e.Registry.Claim(in.SessionID, in.ProjectKey)
	if err != nil {
		return Result{}, fmt.Errorf("claim: %w", err)
	}
	if claimed != nil {
		e.announce(notes, in, eventlog.KindClaimed, e.Templates.Claimed, claimed, "")
	}

	sess, err := e.Registry.GetSession(in.SessionID)
	if err != nil {
		return Result{}, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return result(Approve, ReasonNoContinuation, StateNoContinuation), nil
	}

	paused, err := e.Pause.IsSet()
	if err != nil {
		return Result{}, fmt.Errorf("read pause flag: %w", err)
	}
	if paused {
		if _, err := e.Registry.ClearSession(in.SessionID, "paused"); err != nil {
			return Result{}, fmt.Errorf("clear paused session: %w", err)
		}
		if _, err := e.Pause.Clear(); err != nil {
			return Result{}, fmt.Errorf("clear pause flag: %w", err)
		}
		e.announce(notes, in, eventlog.KindPaused, e.Templates.Paused, sess, ReasonPaused)
		return result(Approve, ReasonPaused, StatePaused), nil
	}

	switch sess.Mode {
	case continuation.ModeCheck:
		return e.evaluateCheck(ctx, in, sess, notes)
	case continuation.ModeManual:
		return e.evaluateManual(ctx, in, sess)
	default:
		return Result{}, fmt.Errorf("session %s has unknown mode %q", in.SessionID, sess.Mode)
	}
}

func (e *Evaluator) evaluateCheck(ctx context.Context, in Input, sess *continuation.Session, notes *[]notify.Notification) (Result, error) {
	run := e.Runner.Run(ctx, sess.Command, in.Dir)
	e.Metrics.RecordCheck(ctx, run.Duration, run.Passed)

	if run.Passed {
		if _, err := e.Registry.ClearSession(in.SessionID, ReasonCheckPassed); err != nil {
			return Result{}, fmt.Errorf("clear passed session: %w", err)
		}
		e.announce(notes, in, eventlog.KindCheckPassed, e.Templates.CheckPassed, sess, ReasonCheckPassed)
		return result(Approve, ReasonCheckPassed, StateCheckActive), nil
	}

	reason := "check failed: " + sess.Command
	payload := map[string]interface{}{
		"exit_code": run.ExitCode,
		"timed_out": run.TimedOut,
	}
	if run.Output != "" {
		payload["output"] = run.Output
	}
	e.record(in, eventlog.KindCheckFailed, reason, payload)
	return result(Block, reason, StateCheckActive), nil
}

func (e *Evaluator) evaluateManual(_ context.Context, in Input, sess *continuation.Session) (Result, error) {
	sess.Iteration++
	if err := e.Registry.SetSession(sess); err != nil {
		return Result{}, fmt.Errorf("save round %d: %w", sess.Iteration, err)
	}
	reason := fmt.Sprintf("round %d: %s", sess.Iteration, sess.Objective)
	e.record(in, eventlog.KindRound, reason, map[string]interface{}{"iteration": sess.Iteration})
	return result(Block, reason, StateManualActive), nil
}

func (e *Evaluator) failOpen(ctx context.Context, in Input, err error) Result {
	debug.Logf("stopcheck: failing open for session %q: %v\n", in.SessionID, err)
	res := result(Approve, "fail open: "+err.Error(), StateFailOpen)
	func() {
		defer func() { _ = recover() }()
		e.record(in, eventlog.KindFailOpen, err.Error(), nil)
		e.Metrics.RecordDecision(ctx, Approve, string(StateFailOpen))
	}()
	return res
}

// announce queues a state change for Deliver. An empty message means the
// registry already logged it. Without a notifier the change is only logged.
func (e *Evaluator) announce(notes *[]notify.Notification, in Input, kind, tmpl string, sess *continuation.Session, message string) {
	if e.Notifier == nil {
		if message != "" {
			e.record(in, kind, message, nil)
		}
		return
	}
	vars := notify.Vars{
		"project":   in.ProjectLabel,
		"objective": sess.Value(),
		"command":   sess.Command,
		"round":     strconv.Itoa(sess.Iteration),
	}
	*notes = append(*notes, notify.Notification{
		Kind:      kind,
		SessionID: in.SessionID,
		Project:   in.ProjectLabel,
		Speech:    notify.Render(tmpl, vars),
		Message:   message,
		Payload:   map[string]interface{}{"mode": string(sess.Mode), "project_key": in.ProjectKey},
		Recorded:  message == "",
	})
}

// record appends an event without speech.
func (e *Evaluator) record(in Input, kind, message string, payload map[string]interface{}) {
	if e.Events == nil {
		return
	}
	if in.ProjectKey != "" {
		if payload == nil {
			payload = map[string]interface{}{}
		}
		payload["project_key"] = in.ProjectKey
	}
	e.Events.Append(kind, in.SessionID, in.ProjectLabel, message, payload)
}

func result(decision, reason string, state State) Result {
	return Result{Decision: Decision{Decision: decision, Reason: reason}, State: state}
}

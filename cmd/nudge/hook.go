package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nudgehq/nudge/internal/alert"
	"github.com/nudgehq/nudge/internal/debug"
	"github.com/nudgehq/nudge/internal/hookevent"
	"github.com/nudgehq/nudge/internal/stopcheck"
)

// maxPayload bounds how much hook input is read from stdin.
const maxPayload = 1 << 20

var hookCmd = &cobra.Command{
	Use:     "hook",
	GroupID: "hooks",
	Short:   "Entry points for agent hooks (read the hook payload on stdin)",
	Long: `Entry points wired into the coding agent's hook configuration. Each
reads the agent's JSON payload on stdin and always exits 0.

  Stop               -> nudge hook stop
  Notification       -> nudge hook notification
  UserPromptSubmit   -> nudge hook prompt-submit`,
}

var hookStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Decide whether the agent may stop; prints {\"decision\",\"reason\"}",
	Run: func(cmd *cobra.Command, args []string) {
		res, deliver := runStopHook(cmd.InOrStdin())
		data, err := json.Marshal(res.Decision)
		if err != nil {
			data = []byte(`{"decision":"approve","reason":"fail open: encode decision"}`)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, string(data))
		if f, ok := out.(*os.File); ok {
			_ = f.Sync()
		}
		// Speech runs only once the decision is out
		deliver()
	},
}

var hookNotificationCmd = &cobra.Command{
	Use:   "notification",
	Short: "Record an alert when the agent is waiting on you",
	Run: func(cmd *cobra.Command, args []string) {
		runNotificationHook(cmd.InOrStdin())
	},
}

var hookPromptSubmitCmd = &cobra.Command{
	Use:   "prompt-submit",
	Short: "Clear the session's alert when you respond",
	Run: func(cmd *cobra.Command, args []string) {
		runPromptSubmitHook(cmd.InOrStdin())
	},
}

func init() {
	hookCmd.AddCommand(hookStopCmd, hookNotificationCmd, hookPromptSubmitCmd)
	rootCmd.AddCommand(hookCmd)
}

// runStopHook never panics and never returns an error: anything that goes
// wrong outside the evaluator still resolves to approve. The returned deliver
// func speaks the decision's announcements and is always safe to call.
func runStopHook(r io.Reader) (res stopcheck.Result, deliver func()) {
	deliver = func() {}
	defer func() {
		if p := recover(); p != nil {
			debug.Logf("hook stop: panic: %v\n", p)
			res = stopcheck.Result{
				Decision: stopcheck.Decision{Decision: stopcheck.Approve, Reason: fmt.Sprintf("fail open: panic: %v", p)},
				State:    stopcheck.StateFailOpen,
			}
		}
	}()
	raw, err := io.ReadAll(io.LimitReader(r, maxPayload))
	if err != nil {
		debug.Logf("hook stop: read stdin: %v\n", err)
	}
	eval := newApp().evaluator()
	res = eval.EvaluatePayload(rootCtx, raw)
	return res, func() {
		defer recoverHook("stop")
		eval.Deliver(rootCtx, res)
	}
}

func runNotificationHook(r io.Reader) {
	defer recoverHook("notification")
	p, ok := readPayload(r, "notification")
	if !ok {
		return
	}
	sessionID := p.ResolveSessionID()
	typ := alert.Classify(p)
	res, err := newApp().alertHandler().OnNotification(rootCtx, sessionID, p.ProjectLabel(), typ, p.Message)
	if err != nil {
		debug.Logf("hook notification: %v\n", err)
		return
	}
	debug.Logf("hook notification: session=%s type=%q created=%v watcher=%d spawned=%v\n",
		sessionID, res.Type, res.Created, res.WatcherPID, res.WatcherSpawned)
}

func runPromptSubmitHook(r io.Reader) {
	defer recoverHook("prompt-submit")
	p, ok := readPayload(r, "prompt-submit")
	if !ok {
		return
	}
	if newApp().alertHandler().OnPromptSubmit(p.ResolveSessionID()) {
		debug.Logf("hook prompt-submit: cleared alert for %s\n", p.ResolveSessionID())
	}
}

func readPayload(r io.Reader, hook string) (*hookevent.Payload, bool) {
	raw, err := io.ReadAll(io.LimitReader(r, maxPayload))
	if err != nil {
		debug.Logf("hook %s: read stdin: %v\n", hook, err)
		return nil, false
	}
	p, err := hookevent.Parse(raw)
	if err != nil {
		debug.Logf("hook %s: %v\n", hook, err)
		return nil, false
	}
	return p, true
}

func recoverHook(hook string) {
	if p := recover(); p != nil {
		fmt.Fprintf(os.Stderr, "nudge hook %s: %v\n", hook, p)
	}
}

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nudgehq/nudge/internal/alert"
	"github.com/nudgehq/nudge/internal/continuation"
	"github.com/nudgehq/nudge/internal/lockfile"
	"github.com/nudgehq/nudge/internal/ui"
)

// statusReport is everything nudge knows, as `nudge status --json` prints it.
type statusReport struct {
	StateDir string                  `json:"state_dir"`
	Pending  *continuation.Pending   `json:"pending"`
	Sessions []*continuation.Session `json:"sessions"`
	Paused   *continuation.PauseFlag `json:"paused"`
	Alerts   []*alertStatus          `json:"alerts"`
}

type alertStatus struct {
	*alert.Alert
	WatcherRunning bool `json:"watcher_running"`
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "setup",
	Short:   "Show pending and active continuations, pause, and alerts",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		r, err := collectStatus(newApp())
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(r)
			return
		}
		renderStatus(os.Stdout, r, time.Now())
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func collectStatus(a *app) (*statusReport, error) {
	r := &statusReport{StateDir: a.stateDir}
	var err error
	if r.Pending, err = a.continuations.GetPending(); err != nil {
		return nil, err
	}
	if r.Sessions, err = a.continuations.ListSessions(); err != nil {
		return nil, err
	}
	if r.Paused, err = a.pause.Get(); err != nil {
		return nil, err
	}
	alerts, err := a.alerts.All()
	if err != nil {
		return nil, err
	}
	for _, al := range alerts {
		r.Alerts = append(r.Alerts, &alertStatus{
			Alert:          al,
			WatcherRunning: al.WatcherPID > 0 && lockfile.IsProcessRunning(al.WatcherPID),
		})
	}
	if r.Sessions == nil {
		r.Sessions = []*continuation.Session{}
	}
	if r.Alerts == nil {
		r.Alerts = []*alertStatus{}
	}
	return r, nil
}

func renderStatus(w io.Writer, r *statusReport, now time.Time) {
	fmt.Fprintln(w, ui.RenderCategory("Pending"))
	if r.Pending == nil {
		fmt.Fprintln(w, "  "+ui.RenderMuted("none"))
	} else {
		p := r.Pending
		fmt.Fprintln(w, ui.RenderField("mode", ui.RenderMode(string(p.Mode))))
		fmt.Fprintln(w, ui.RenderField(valueLabel(p.Mode), ui.Truncate(p.Value(), 70)))
		target := "any session"
		switch {
		case p.TargetSessionID != "":
			target = "session " + p.TargetSessionID
		case p.TargetProjectKey != "":
			target = "project " + p.TargetProjectKey
		}
		fmt.Fprintln(w, ui.RenderField("target", target))
		fmt.Fprintln(w, ui.RenderField("queued", ui.RenderAge(p.CreatedAt, now)))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.RenderCategory("Sessions"))
	if len(r.Sessions) == 0 {
		fmt.Fprintln(w, "  "+ui.RenderMuted("none"))
	}
	for _, s := range r.Sessions {
		line := fmt.Sprintf("  %s %s  %s", ui.RenderAccent(s.SessionID), ui.RenderMode(string(s.Mode)), ui.Truncate(s.Value(), 50))
		if s.Mode == continuation.ModeManual {
			line += ui.RenderMuted("  round " + strconv.Itoa(s.Iteration))
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.RenderCategory("Pause"))
	if r.Paused == nil {
		fmt.Fprintln(w, "  "+ui.RenderMuted("not paused"))
	} else {
		fmt.Fprintf(w, "  %s paused %s\n", ui.RenderWarn(ui.IconPause), ui.RenderAge(r.Paused.CreatedAt, now))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.RenderCategory("Alerts"))
	if len(r.Alerts) == 0 {
		fmt.Fprintln(w, "  "+ui.RenderMuted("none"))
	}
	for _, a := range r.Alerts {
		renderAlertLine(w, a, now)
	}
}

func renderAlertLine(w io.Writer, a *alertStatus, now time.Time) {
	watcher := ui.RenderMuted("no watcher")
	if a.WatcherRunning {
		watcher = ui.RenderPass("watcher " + strconv.Itoa(a.WatcherPID))
	} else if a.WatcherPID > 0 {
		watcher = ui.RenderFail("watcher " + strconv.Itoa(a.WatcherPID) + " gone")
	}
	fmt.Fprintf(w, "  %s %s %s  %s\n", ui.RenderAccent(a.SessionID), a.ProjectLabel, ui.RenderAlertType(string(a.Type)), ui.RenderAge(a.CreatedAt, now))
	fmt.Fprintf(w, "    %s  %s  %s\n", ui.Truncate(a.Message, 60), ui.RenderMuted(strconv.Itoa(a.ReminderCount)+" reminder(s)"), watcher)
}

func valueLabel(m continuation.Mode) string {
	if m == continuation.ModeCheck {
		return "command"
	}
	return "objective"
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nudgehq/nudge/internal/debug"
	"github.com/nudgehq/nudge/internal/eventlog"
	"github.com/nudgehq/nudge/internal/lockfile"
	"github.com/nudgehq/nudge/internal/ui"
)

var alertsCmd = &cobra.Command{
	Use:     "alerts",
	GroupID: "alerts",
	Short:   "Inspect and clear sessions waiting on you",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open alerts",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		r, err := collectStatus(newApp())
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(r.Alerts)
			return
		}
		if len(r.Alerts) == 0 {
			fmt.Println("No open alerts")
			return
		}
		now := time.Now()
		for _, a := range r.Alerts {
			renderAlertLine(os.Stdout, a, now)
		}
	},
}

var alertsClearCmd = &cobra.Command{
	Use:   "clear [session-id]",
	Short: "Clear one alert, or all alerts and their watchers",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := newApp()
		if len(args) == 1 {
			removed, err := a.alerts.Clear(args[0], "cleared by operator")
			if err != nil {
				FatalError("%v", err)
			}
			report(map[string]interface{}{"session": args[0], "removed": removed}, func() {
				if removed {
					fmt.Printf("%s Cleared alert for %s\n", ui.RenderPass(ui.IconPass), args[0])
				} else {
					fmt.Printf("No alert for %s\n", args[0])
				}
			})
			return
		}

		res, err := a.alerts.ClearAll()
		if err != nil {
			FatalError("%v", err)
		}
		if res.Cleared == nil {
			res.Cleared = []string{}
		}
		if res.TerminatedPIDs == nil {
			res.TerminatedPIDs = []int{}
		}
		report(res, func() {
			fmt.Printf("%s Cleared %d alert(s), stopped %d watcher(s)\n",
				ui.RenderPass(ui.IconPass), len(res.Cleared), len(res.TerminatedPIDs))
		})
	},
}

// alertsWatchCmd is the reminder watcher process spawned by the
// notification hook. It runs detached until the alert is answered,
// cleared, or out of reminders.
var alertsWatchCmd = &cobra.Command{
	Use:    "watch",
	Short:  "Run the reminder loop for one session's alert",
	Hidden: true,
	Args:   cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			FatalError("--session is required")
		}
		a := newApp()
		pid := os.Getpid()

		existing, err := a.alerts.Get(sessionID)
		if err != nil {
			FatalError("%v", err)
		}
		if existing == nil {
			debug.Logf("watch: no alert for %s\n", sessionID)
			return
		}
		// Another live watcher already owns this alert
		if existing.WatcherPID > 0 && existing.WatcherPID != pid && lockfile.IsProcessRunning(existing.WatcherPID) {
			debug.Logf("watch: %s already watched by %d\n", sessionID, existing.WatcherPID)
			return
		}
		if err := a.alerts.SetWatcher(sessionID, pid); err != nil {
			WarnError("record watcher: %v", err)
		}
		a.events.Append(eventlog.KindWatcherStarted, sessionID, existing.ProjectLabel, "", map[string]interface{}{"pid": pid})

		out, err := a.watcher(sessionID, pid).Run(rootCtx)
		if err != nil {
			FatalError("%v", err)
		}
		debug.Logf("watch: %s stopped: %s after %d reminder(s)\n", sessionID, out.Reason, out.Sent)
	},
}

func init() {
	alertsWatchCmd.Flags().String("session", "", "Session whose alert to watch")
	alertsCmd.AddCommand(alertsListCmd, alertsClearCmd, alertsWatchCmd)
	rootCmd.AddCommand(alertsCmd)
}

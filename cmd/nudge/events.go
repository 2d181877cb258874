package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nudgehq/nudge/internal/eventlog"
	"github.com/nudgehq/nudge/internal/timeparsing"
	"github.com/nudgehq/nudge/internal/ui"
)

var eventsCmd = &cobra.Command{
	Use:     "events",
	GroupID: "setup",
	Short:   "Show the event log",
	Long: `Show recent events from the append-only event log.

--since accepts durations (30m, 2h, 3d), phrases (yesterday, last monday)
and dates (2006-01-02, RFC3339).`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		since, _ := cmd.Flags().GetString("since")
		kind, _ := cmd.Flags().GetString("kind")
		session, _ := cmd.Flags().GetString("session")
		project, _ := cmd.Flags().GetString("project")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := eventlog.Filter{Kind: kind, SessionID: session, Project: project, Limit: limit}
		if since != "" {
			t, err := timeparsing.ParseSince(since, time.Now())
			if err != nil {
				FatalErrorWithHint(err.Error(), "try --since 1h or --since yesterday")
			}
			filter.Since = t
		}
		if kind != "" && !isKnownKind(kind) {
			WarnError("unknown event kind %q (known: %s)", kind, strings.Join(knownKinds(), ", "))
		}

		events, err := newApp().events.Read(filter)
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			if events == nil {
				events = []eventlog.Event{}
			}
			outputJSON(events)
			return
		}
		if len(events) == 0 {
			fmt.Println("No events")
			return
		}
		for _, ev := range events {
			fmt.Println(formatEvent(ev))
		}
	},
}

func init() {
	eventsCmd.Flags().String("since", "", "Only events after this time")
	eventsCmd.Flags().String("kind", "", "Only events of this kind")
	eventsCmd.Flags().String("session", "", "Only events for this session")
	eventsCmd.Flags().String("project", "", "Only events for this project (directory name)")
	eventsCmd.Flags().IntP("limit", "n", 50, "Show at most this many recent events (0 = all)")
	rootCmd.AddCommand(eventsCmd)
}

func formatEvent(ev eventlog.Event) string {
	var b strings.Builder
	b.WriteString(ui.RenderMuted(ev.Time.Local().Format("2006-01-02 15:04:05")))
	b.WriteString(" ")
	b.WriteString(renderKind(ev.Kind))
	if ev.SessionID != "" {
		b.WriteString(" " + ui.RenderAccent(ev.SessionID))
	}
	if ev.Project != "" {
		b.WriteString(" " + ev.Project)
	}
	if ev.Message != "" {
		b.WriteString("  " + ui.Truncate(ev.Message, 80))
	}
	if len(ev.Payload) > 0 {
		keys := make([]string, 0, len(ev.Payload))
		for k := range ev.Payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, ev.Payload[k]))
		}
		b.WriteString("  " + ui.RenderMuted(ui.Truncate(strings.Join(parts, " "), 80)))
	}
	return b.String()
}

func renderKind(kind string) string {
	switch kind {
	case eventlog.KindCheckPassed, eventlog.KindAlertCleared, eventlog.KindPendingSet:
		return ui.RenderPass(kind)
	case eventlog.KindCheckFailed, eventlog.KindFailOpen:
		return ui.RenderFail(kind)
	case eventlog.KindAlertCreated, eventlog.KindReminder, eventlog.KindPaused, eventlog.KindPauseSet:
		return ui.RenderWarn(kind)
	default:
		return ui.RenderAccent(kind)
	}
}

func knownKinds() []string {
	return []string{
		eventlog.KindPendingSet, eventlog.KindPendingCleared, eventlog.KindClaimed,
		eventlog.KindRound, eventlog.KindCheckPassed, eventlog.KindCheckFailed,
		eventlog.KindPaused, eventlog.KindPauseSet, eventlog.KindPauseCleared,
		eventlog.KindSessionCleared, eventlog.KindFailOpen, eventlog.KindAlertCreated,
		eventlog.KindAlertRefreshed, eventlog.KindAlertCleared, eventlog.KindReminder,
		eventlog.KindWatcherStarted, eventlog.KindWatcherStopped, eventlog.KindNotificationSeen,
	}
}

func isKnownKind(kind string) bool {
	for _, k := range knownKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nudgehq/nudge/internal/ui"
)

var clearCmd = &cobra.Command{
	Use:     "clear",
	GroupID: "continue",
	Short:   "Drop the pending continuation and/or active sessions",
	Long: `Drop continuation state. With no flags, clears the pending continuation and
every active session continuation.

A check command already running for a cleared session finishes, finds no
continuation to update, and its result is discarded.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		pendingOnly, _ := cmd.Flags().GetBool("pending")
		sessionsOnly, _ := cmd.Flags().GetBool("sessions")
		sessionID, _ := cmd.Flags().GetString("session")

		a := newApp()
		result := map[string]interface{}{}

		if sessionID != "" {
			removed, err := a.continuations.ClearSession(sessionID, "cleared by operator")
			if err != nil {
				FatalError("%v", err)
			}
			result["session"] = sessionID
			result["removed"] = removed
			report(result, func() {
				if removed {
					fmt.Printf("%s Cleared continuation for session %s\n", ui.RenderPass(ui.IconPass), sessionID)
				} else {
					fmt.Printf("No continuation for session %s\n", sessionID)
				}
			})
			return
		}

		all := !pendingOnly && !sessionsOnly
		if pendingOnly || all {
			removed, err := a.continuations.ClearPending()
			if err != nil {
				FatalError("%v", err)
			}
			result["pending_removed"] = removed
		}
		if sessionsOnly || all {
			cleared, err := a.continuations.ClearAllSessions()
			if err != nil {
				FatalError("%v", err)
			}
			if cleared == nil {
				cleared = []string{}
			}
			result["sessions_cleared"] = cleared
		}

		report(result, func() {
			if removed, ok := result["pending_removed"].(bool); ok {
				if removed {
					fmt.Printf("%s Cleared pending continuation\n", ui.RenderPass(ui.IconPass))
				} else {
					fmt.Println("No pending continuation")
				}
			}
			if cleared, ok := result["sessions_cleared"].([]string); ok {
				fmt.Printf("%s Cleared %d session continuation(s)\n", ui.RenderPass(ui.IconPass), len(cleared))
				for _, id := range cleared {
					fmt.Printf("  %s\n", ui.RenderMuted(id))
				}
			}
		})
	},
}

func init() {
	clearCmd.Flags().Bool("pending", false, "Only clear the pending continuation")
	clearCmd.Flags().Bool("sessions", false, "Only clear active session continuations")
	clearCmd.Flags().String("session", "", "Only clear this session's continuation")
	rootCmd.AddCommand(clearCmd)
}

// report prints result as JSON or runs the human renderer.
func report(result interface{}, human func()) {
	if jsonOutput {
		outputJSON(result)
		return
	}
	human()
}

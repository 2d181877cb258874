package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nudgehq/nudge/internal/ui"
)

var pauseCmd = &cobra.Command{
	Use:     "pause",
	GroupID: "continue",
	Short:   "Let the active continuation's session stop at its next attempt",
	Long: `Set the global pause flag. The next stop attempt from any session with an
active continuation is approved, and both that session's continuation and the
pause flag are removed. Sessions without a continuation leave the flag alone.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		flag, err := newApp().pause.Set()
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"paused": true, "created_at": flag.CreatedAt})
			return
		}
		fmt.Printf("%s Paused: the next stop with an active continuation will be allowed\n", ui.RenderWarn(ui.IconPause))
	},
}

var resumeCmd = &cobra.Command{
	Use:     "resume",
	GroupID: "continue",
	Short:   "Remove an unconsumed pause flag",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		removed, err := newApp().pause.Clear()
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"paused": false, "removed": removed})
			return
		}
		if removed {
			fmt.Printf("%s Pause removed\n", ui.RenderPass(ui.IconPass))
		} else {
			fmt.Println("Not paused")
		}
	},
}

func init() {
	rootCmd.AddCommand(pauseCmd, resumeCmd)
}

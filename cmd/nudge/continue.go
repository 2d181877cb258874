package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nudgehq/nudge/internal/continuation"
	"github.com/nudgehq/nudge/internal/hookevent"
	"github.com/nudgehq/nudge/internal/ui"
)

var continueCmd = &cobra.Command{
	Use:     "continue",
	GroupID: "continue",
	Short:   "Queue a continuation for the next agent that tries to stop",
	Long: `Queue a pending continuation. The next stop attempt from a matching
session claims it and the session keeps working:

  manual  block every stop with "round N: <objective>" until paused or cleared
  check   block every stop until <command> exits 0

Without targeting flags any session may claim it. --session limits it to one
agent session; --project (or --here) to whichever session next stops in that
directory.`,
}

var continueManualCmd = &cobra.Command{
	Use:   "manual <objective...>",
	Short: "Keep going for repeated rounds toward an objective",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runContinue(cmd, continuation.ModeManual, args)
	},
}

var continueCheckCmd = &cobra.Command{
	Use:   "check <command...>",
	Short: "Keep going until a shell command exits 0",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runContinue(cmd, continuation.ModeCheck, args)
	},
}

func init() {
	for _, c := range []*cobra.Command{continueManualCmd, continueCheckCmd} {
		c.Flags().String("session", "", "Only this agent session may claim it")
		c.Flags().String("project", "", "Only a session stopping in this directory may claim it")
		c.Flags().Bool("here", false, "Shorthand for --project with the current directory")
		c.Flags().SetInterspersed(false)
		continueCmd.AddCommand(c)
	}
	rootCmd.AddCommand(continueCmd)
}

func runContinue(cmd *cobra.Command, mode continuation.Mode, args []string) {
	target, err := targetingFromFlags(cmd)
	if err != nil {
		FatalErrorWithHint(err.Error(), "use either --session or --project/--here, not both")
	}
	value := strings.Join(args, " ")

	p, err := newApp().continuations.SetPending(mode, value, target)
	if err != nil {
		FatalError("%v", err)
	}

	if jsonOutput {
		outputJSON(p)
		return
	}
	fmt.Printf("%s Pending %s continuation: %s\n", ui.RenderPass(ui.IconPass), ui.RenderMode(string(p.Mode)), p.Value())
	switch {
	case p.TargetSessionID != "":
		fmt.Printf("  %s\n", ui.RenderMuted("for session "+p.TargetSessionID))
	case p.TargetProjectKey != "":
		fmt.Printf("  %s\n", ui.RenderMuted("for the next session in "+p.TargetProjectKey))
	default:
		fmt.Printf("  %s\n", ui.RenderMuted("for the next session that stops"))
	}
}

func targetingFromFlags(cmd *cobra.Command) (continuation.Targeting, error) {
	session, _ := cmd.Flags().GetString("session")
	project, _ := cmd.Flags().GetString("project")
	here, _ := cmd.Flags().GetBool("here")

	if here {
		wd, err := os.Getwd()
		if err != nil {
			return continuation.Targeting{}, fmt.Errorf("get working directory: %w", err)
		}
		project = wd
	}
	if session != "" && project != "" {
		return continuation.Targeting{}, fmt.Errorf("--session and --project are mutually exclusive")
	}
	t := continuation.Targeting{TargetSessionID: strings.TrimSpace(session)}
	if project != "" {
		t.TargetProjectKey = hookevent.ProjectKeyFor(project)
	}
	return t, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nudgehq/nudge/internal/config"
	"github.com/nudgehq/nudge/internal/debug"
	"github.com/nudgehq/nudge/internal/telemetry"
)

var (
	jsonOutput   bool
	stateDirFlag string
	verboseFlag  bool
	quietFlag    bool

	rootCtx    = context.Background()
	rootCancel context.CancelFunc
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&stateDirFlag, "state-dir", "", "State directory (default: $NUDGE_STATE_DIR or ~/.nudge)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")

	rootCmd.Flags().BoolP("version", "V", false, "Print version information")

	rootCmd.AddGroup(&cobra.Group{ID: "hooks", Title: "Agent Hooks:"})
	rootCmd.AddGroup(&cobra.Group{ID: "continue", Title: "Continuations:"})
	rootCmd.AddGroup(&cobra.Group{ID: "alerts", Title: "Alerts:"})
	rootCmd.AddGroup(&cobra.Group{ID: "setup", Title: "Setup & Inspection:"})
}

var rootCmd = &cobra.Command{
	Use:   "nudge",
	Short: "nudge - keep coding agents working and keep you in the loop",
	Long: `nudge sits on a coding agent's hooks. It can keep an agent going until a
check command passes or for repeated rounds toward an objective, and it
reminds you out loud when an agent is waiting on you.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("nudge version %s (%s)\n", Version, Build)
			return
		}
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)

		if err := config.Initialize(stateDirFlag); err != nil {
			// Hooks must keep working on a broken config file
			WarnError("failed to initialize config: %v", err)
		}
		if err := telemetry.Init(rootCtx, "nudge", Version); err != nil {
			debug.Logf("telemetry init: %v\n", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		telemetry.Shutdown(ctx)
		if rootCancel != nil {
			rootCancel()
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

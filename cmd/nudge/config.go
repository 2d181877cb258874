package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nudgehq/nudge/internal/config"
	"github.com/nudgehq/nudge/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "setup",
	Short:   "Read and write settings in <state>/config.yaml",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the effective value of a setting",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		if !config.IsKnownKey(key) {
			FatalErrorWithHint(fmt.Sprintf("unknown config key %q", key), "run 'nudge config list' to see keys")
		}
		value := config.GetString(key)
		if jsonOutput {
			outputJSON(map[string]string{"key": key, "value": value})
			return
		}
		fmt.Println(value)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting in config.yaml",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		key, value := args[0], args[1]
		if err := config.SetYamlConfig(key, value); err != nil {
			FatalErrorWithHint(err.Error(), "run 'nudge config list' to see keys")
		}
		if jsonOutput {
			outputJSON(map[string]string{"key": key, "value": value, "file": config.ConfigPath()})
			return
		}
		fmt.Printf("%s %s = %s\n", ui.RenderPass(ui.IconPass), key, value)
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting with its source",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		settings := config.AllSettings()
		if jsonOutput {
			outputJSON(settings)
			return
		}
		for _, s := range settings {
			value := s.Value
			if value == "" {
				value = ui.RenderMuted("(unset)")
			}
			fmt.Printf("%-32s %s %s\n", s.Key, value, ui.RenderMuted("["+s.Source+"]"))
		}
	},
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configListCmd)
	rootCmd.AddCommand(configCmd)
}

/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/jacobarthurs/bbhealth/internal/config"
	"github.com/jacobarthurs/bbhealth/internal/output"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change saved settings",
	Long: `Show or change the settings stored in the config file.

Valid keys: ` + strings.Join(config.Keys, ", ") + `.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Example: `  bbhealth config show
  bbhealth config show --stored`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stored, _ := cmd.Flags().GetBool("stored")

		load := config.Load
		if stored {
			load = config.Stored
		}
		cfg, err := load()
		if err != nil {
			return err
		}

		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", path)
		return output.RenderYAML(cmd.OutOrStdout(), cfg)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Save a setting",
	Example: `  bbhealth config set directory ~/support-zips
  bbhealth config set plugin_checker "python3 /opt/plugin_checker/plugin_checker.py"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == config.KeyFormat {
			if _, err := output.ParseFormat(args[1]); err != nil {
				return err
			}
		}
		if err := config.Set(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s set to %q.\n", args[0], args[1])
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:     "unset <key>",
	Short:   "Remove a setting",
	Example: `  bbhealth config unset plugin_checker`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Unset(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s cleared.\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configShowCmd.Flags().Bool("stored", false, "Show the file contents without environment overrides")
}

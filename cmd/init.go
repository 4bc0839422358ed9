/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"fmt"

	"github.com/jacobarthurs/bbhealth/internal/config"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with example template",
	Long: `Create ~/.config/bbhealth/config.yaml with an example template.

The config file stores the default support zip directory, output format and
plugin checker command so you don't need to pass them on every invocation.
If a config file already exists, it will not be overwritten.`,
	Example: `  # Create default config
  bbhealth init

  # Overwrite existing config
  bbhealth init --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		path, err := config.WriteTemplate(force)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created config at %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolP("force", "f", false, "Overwrite existing config file")
}

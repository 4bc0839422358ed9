/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var Version = "dev"

func init() {
	if Version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
	}
	rootCmd.Version = Version
}

var rootCmd = &cobra.Command{
	Use:          "bbhealth",
	SilenceUsage: true,
	Short:        "Health check Bitbucket Data Center support zips",
	Long: `bbhealth is a CLI tool that turns Bitbucket support zips into a health check report.

It compares product, Git and Java versions against supported ranges, reviews
JVM heap settings and SCM caches, checks that a support zip was supplied for
every cluster node, and renders the result as Jira wiki markup, terminal text,
JSON or YAML.`,
	Example: `  # Check the support zips in the current directory
  bbhealth check

  # Check a folder of support zips and print a terminal summary
  bbhealth check ./zips --format text

  # Create a config file
  bbhealth init`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

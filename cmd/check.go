/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jacobarthurs/bbhealth/internal/config"
	"github.com/jacobarthurs/bbhealth/internal/logging"
	"github.com/jacobarthurs/bbhealth/internal/output"
	"github.com/jacobarthurs/bbhealth/internal/plugins"
	"github.com/jacobarthurs/bbhealth/internal/report"
	"github.com/jacobarthurs/bbhealth/internal/snapshot"

	"github.com/spf13/cobra"
)

type checkOptions struct {
	directory     string
	format        output.Format
	pluginPanel   bool
	pluginChecker string
	verbose       bool
	output        string
	skipExtract   bool
}

var checkCmd = &cobra.Command{
	Use:   "check [directory]",
	Short: "Produce a health check report from support zips",
	Long: `Produce a health check report from one or more Bitbucket support zips.

Every *.zip under the directory is extracted next to itself, then each
application-properties/application.xml export is parsed. The first export found
is the reference for cluster-wide settings; the others contribute per-node
resources and the cluster completeness check.

Settings not given as flags are taken from the config file (see "bbhealth init").`,
	Example: `  # Check the support zips in the current directory
  bbhealth check

  # Check a folder and write the wiki markup to a file
  bbhealth check -d ./zips -o health.txt

  # Show the plugin result as its own panel
  bbhealth check ./zips --plugin-panel --plugin-checker "python3 plugin_checker.py"

  # Machine readable output
  bbhealth check ./zips --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := resolveCheckOptions(cmd, args)
		if err != nil {
			return err
		}

		logging.Setup(opts.verbose)
		slog.Debug("check options", "directory", opts.directory, "format", opts.format, "plugin_panel", opts.pluginPanel)

		set, err := snapshot.Load(cmd.Context(), opts.directory, snapshot.LoadOptions{SkipExtract: opts.skipExtract})
		if err != nil {
			if errors.Is(err, snapshot.ErrNoExport) || errors.Is(err, snapshot.ErrDirectory) {
				// stdout may carry the report, so usage goes to the error stream.
				cmd.PrintErr(cmd.UsageString())
			}
			return err
		}

		checker, err := newChecker(opts.pluginChecker)
		if err != nil {
			return err
		}

		r, err := report.Assemble(cmd.Context(), report.Input{
			Set:         set,
			Checker:     checker,
			PluginPanel: opts.pluginPanel,
		})
		if err != nil {
			return err
		}

		w, closeOutput, err := openOutput(cmd, opts.output)
		if err != nil {
			return err
		}
		if err := output.Render(w, opts.format, r); err != nil {
			_ = closeOutput()
			return fmt.Errorf("rendering report: %w", err)
		}
		return closeOutput()
	},
}

// resolveCheckOptions layers flags over the config file over defaults.
func resolveCheckOptions(cmd *cobra.Command, args []string) (checkOptions, error) {
	cfg, err := config.Load()
	if err != nil {
		return checkOptions{}, err
	}

	flags := cmd.Flags()
	opts := checkOptions{
		directory:     ".",
		pluginPanel:   cfg.PluginPanel,
		pluginChecker: cfg.PluginChecker,
		verbose:       cfg.Verbose,
	}
	opts.output, _ = flags.GetString("output")
	opts.skipExtract, _ = flags.GetBool("no-extract")

	dirFlag, _ := flags.GetString("directory")
	switch {
	case len(args) > 0 && flags.Changed("directory"):
		return checkOptions{}, fmt.Errorf("directory given both as argument and --directory")
	case len(args) > 0:
		opts.directory = args[0]
	case flags.Changed("directory"):
		opts.directory = dirFlag
	case cfg.Directory != "":
		opts.directory = cfg.Directory
	}

	format := cfg.Format
	if flags.Changed("format") || format == "" {
		format, _ = flags.GetString("format")
	}
	if opts.format, err = output.ParseFormat(format); err != nil {
		return checkOptions{}, err
	}

	if flags.Changed("plugin-panel") {
		opts.pluginPanel, _ = flags.GetBool("plugin-panel")
	}
	if flags.Changed("plugin-checker") {
		opts.pluginChecker, _ = flags.GetString("plugin-checker")
	}
	if flags.Changed("verbose") {
		opts.verbose, _ = flags.GetBool("verbose")
	}

	return opts, nil
}

func newChecker(commandLine string) (plugins.Checker, error) {
	if commandLine == "" {
		return plugins.Disabled{}, nil
	}
	return plugins.NewExecChecker(commandLine)
}

func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	slog.Info("writing report", "path", path)
	return f, f.Close, nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringP("directory", "d", ".", "Path to the folder containing the support zips")
	checkCmd.Flags().BoolP("verbose", "v", false, "Log discovery and parsing details to stderr")
	checkCmd.Flags().BoolP("plugin-panel", "p", false, "Show the plugin analysis as its own panel instead of a table row")
	checkCmd.Flags().StringP("format", "f", string(output.FormatWiki), "Output format: wiki, text, json, yaml")
	checkCmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	checkCmd.Flags().String("plugin-checker", "", "Command that checks plugin compatibility for an application.xml")
	checkCmd.Flags().Bool("no-extract", false, "Do not extract *.zip archives before scanning")
}

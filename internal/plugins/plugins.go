package plugins

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Request mirrors the options the plugin compatibility checker accepts.
type Request struct {
	ExportPath  string
	RichMarkup  bool
	Verbose     bool
	SingleTable bool
}

// Result is already-rendered checker output. It is inserted into the report
// verbatim.
type Result struct {
	OK     bool   `json:"ok" yaml:"ok"`
	Output string `json:"output" yaml:"output"`
}

type Checker interface {
	Check(ctx context.Context, req Request) (Result, error)
}

// Disabled is used when no checker command is configured.
type Disabled struct{}

func (Disabled) Check(context.Context, Request) (Result, error) {
	return Result{
		OK:     false,
		Output: "Plugin compatibility check not configured. Set plugin_checker in the config file or pass --plugin-checker.",
	}, nil
}

// ExecChecker runs an external checker as
// "<command> [args...] <export> [--jira] [--verbose] [--table]" and returns
// its standard output.
type ExecChecker struct {
	Command string
	Args    []string
}

func NewExecChecker(commandLine string) (*ExecChecker, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty plugin checker command")
	}
	return &ExecChecker{Command: fields[0], Args: fields[1:]}, nil
}

func (c *ExecChecker) Check(ctx context.Context, req Request) (Result, error) {
	args := append(append([]string{}, c.Args...), req.ExportPath)
	if req.RichMarkup {
		args = append(args, "--jira")
	}
	if req.Verbose {
		args = append(args, "--verbose")
	}
	if req.SingleTable {
		args = append(args, "--table")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("running plugin checker", "command", c.Command, "args", args)
	err := cmd.Run()

	output := strings.TrimRight(stdout.String(), "\n")
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return Result{OK: true, Output: output}, nil
	case errors.As(err, &exitErr):
		slog.Warn("plugin checker reported failure",
			"exit_code", exitErr.ExitCode(),
			"stderr", strings.TrimSpace(stderr.String()))
		return Result{OK: false, Output: output}, nil
	default:
		return Result{}, fmt.Errorf("running plugin checker %s: %w", c.Command, err)
	}
}

package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/jacobarthurs/bbhealth/internal/analyzer"
	"github.com/jacobarthurs/bbhealth/internal/report"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

type palette struct {
	reset, red, green, yellow, cyan, bold, dim string
}

var (
	colored = palette{
		reset:  colorReset,
		red:    colorRed,
		green:  colorGreen,
		yellow: colorYellow,
		cyan:   colorCyan,
		bold:   colorBold,
		dim:    colorDim,
	}
	plain = palette{}
)

type textWriter struct {
	w   io.Writer
	err error
	c   palette
}

func (tw *textWriter) printf(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.w, format, args...)
}

// IsTerminal reports whether w is a terminal that can show ANSI colors.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// RenderText writes the report for a terminal. Colors are used only when w
// is a terminal.
func RenderText(w io.Writer, r *report.Report) error {
	tw := &textWriter{w: w, c: plain}
	if IsTerminal(w) {
		tw.c = colored
	}
	c := tw.c

	title := "Health Check"
	if r.Product != "" {
		title = r.Product + " Health Check"
	}
	tw.printf("%s%s%s%s\n", c.bold, c.cyan, title, c.reset)
	tw.printf("  Version: %s\n", r.Version)
	for _, note := range r.Notes {
		tw.printf("  %sNote: %s%s\n", c.dim, note, c.reset)
	}

	for _, s := range r.Sections {
		tw.printf("\n")
		for _, row := range s.Rows {
			tw.textRow(row)
		}
	}

	if p := r.Plugins; p != nil {
		label, color := "OK", c.green
		if !p.OK {
			label, color = "FAILED", c.yellow
		}
		tw.printf("\n%s%sUser-Installed Plugins%s %s[%s]%s\n", c.bold, c.cyan, c.reset, color, label, c.reset)
		if p.Output != "" {
			tw.printf("%s\n", p.Output)
		}
	}

	tw.textSummary(r.Findings())
	return tw.err
}

func (tw *textWriter) textRow(row report.Row) {
	c := tw.c
	switch row.Kind {
	case report.KindFinding:
		f := row.Finding
		if f == nil {
			return
		}
		label, color := tw.severityFormat(f.Severity)
		tw.printf("  %s%-10s%s %s%s%s: %s\n", color, label, c.reset, c.bold, f.Label, c.reset, f.Message)
		for _, d := range f.Details {
			tw.printf("             %s- %s%s\n", c.dim, d, c.reset)
		}
		if f.Link != nil {
			tw.printf("             %s→ %s: %s%s\n", c.dim, f.Link.Title, f.Link.URL, c.reset)
		}
	case report.KindValue:
		if row.Value == "" {
			tw.printf("  %s%s%s\n", c.bold, row.Label, c.reset)
			return
		}
		tw.printf("  %s%s%s: %s\n", c.bold, row.Label, c.reset, humanizeValue(row.Value))
	case report.KindList, report.KindMembers:
		tw.printf("  %s%s%s", c.bold, row.Label, c.reset)
		if row.Value != "" {
			tw.printf(" (%s)", row.Value)
		}
		tw.printf("\n")
		tw.textItems("    ", row.Items)
	case report.KindCode:
		tw.printf("  %s%s%s:\n", c.bold, row.Label, c.reset)
		for _, line := range strings.Split(row.Value, "\n") {
			tw.printf("    %s%s%s\n", c.dim, line, c.reset)
		}
	case report.KindArgs:
		tw.printf("  %s%s%s:\n", c.bold, row.Label, c.reset)
		for _, arg := range strings.Fields(row.Value) {
			tw.printf("    %s\n", arg)
		}
	case report.KindNodes:
		tw.printf("  %s%s%s\n", c.bold, row.Label, c.reset)
		for _, e := range row.Entries {
			tw.printf("    %s%s%s", c.cyan, e.Title, c.reset)
			if e.Source != "" {
				tw.printf(" %s(%s)%s", c.dim, e.Source, c.reset)
			}
			tw.printf("\n")
			tw.textItems("      ", e.Items)
		}
	}
}

func (tw *textWriter) textItems(indent string, items []report.Item) {
	width := 0
	for _, it := range items {
		width = max(width, len(it.Label))
	}
	for _, it := range items {
		tw.printf("%s%-*s  %s\n", indent, width+1, it.Label+":", humanizeValue(it.Value))
	}
}

func (tw *textWriter) textSummary(findings []analyzer.Finding) {
	counts := make(map[analyzer.Severity]int)
	for _, f := range findings {
		counts[f.Severity]++
	}
	c := tw.c
	tw.printf("\n%s%sSummary%s  ", c.bold, c.cyan, c.reset)
	for i, s := range []analyzer.Severity{analyzer.Good, analyzer.Warning, analyzer.NeedsInfo, analyzer.Bad} {
		if i > 0 {
			tw.printf(", ")
		}
		label, color := tw.severityFormat(s)
		tw.printf("%s%d %s%s", color, counts[s], strings.ToLower(label), c.reset)
	}
	tw.printf("\n")
}

func (tw *textWriter) severityFormat(s analyzer.Severity) (string, string) {
	switch s {
	case analyzer.Good:
		return "GOOD", tw.c.green
	case analyzer.Warning:
		return "WARNING", tw.c.yellow
	case analyzer.NeedsInfo:
		return "NEEDS INFO", tw.c.cyan
	default:
		return "BAD", tw.c.red
	}
}

// humanizeValue groups the digits of plain integer values.
func humanizeValue(v string) string {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return v
	}
	return humanize.Comma(n)
}

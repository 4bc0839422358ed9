package output

import (
	"io"
	"strings"

	"github.com/jacobarthurs/bbhealth/internal/analyzer"
	"github.com/jacobarthurs/bbhealth/internal/report"
)

const disclaimer = "Please be aware that health checks are not completely conclusive. " +
	"We provide analysis based on the logging provided and any other details offered at the start of the health check. " +
	"The health checks also do not specify whether you will or will not encounter some type of issue in the future, " +
	"and therefore should not be viewed as an overall pass/fail analysis of your system."

type panelStyle struct {
	border  string
	titleBG string
	bg      string
}

var panelStyles = map[report.Category]panelStyle{
	report.CategoryResources:  {border: "#3cb579", titleBG: "#3cabb5", bg: "#ccffcc"},
	report.CategoryJava:       {border: "#3C78B5", titleBG: "#3C78B5", bg: "#E7F4FA"},
	report.CategoryHome:       {border: "#3C78B5", titleBG: "#8587FB", bg: "#E3E4FF"},
	report.CategorySharedHome: {border: "#3C78B5", titleBG: "#8587FB", bg: "#E3E4FF"},
}

var cellEscaper = strings.NewReplacer("|", `\|`)

var argEscaper = strings.NewReplacer("|", `\|`, "*", `\*`)

func WikiIcon(s analyzer.Severity) string {
	switch s {
	case analyzer.Good:
		return "(/)"
	case analyzer.Warning:
		return "(!)"
	case analyzer.NeedsInfo:
		return "(?)"
	default:
		return "(x)"
	}
}

// RenderWiki writes the report as Jira wiki markup.
func RenderWiki(w io.Writer, r *report.Report) error {
	tw := &textWriter{w: w}

	tw.printf("{panel:title=(!) Important:|borderStyle=solid|borderColor=#FF0000|titleBGColor=#FF0000|titleColor=#FFFF00|bgColor=#E7F4FA}\n")
	tw.printf("%s\n", disclaimer)
	tw.printf("{panel}\nh6.\n----\n")

	tw.printf("h2. Health Check\n")
	tw.printf("%s Ok/Good\n", WikiIcon(analyzer.Good))
	tw.printf("%s Warning, may need to follow up on or keep an eye out\n", WikiIcon(analyzer.Warning))
	tw.printf("%s Need more information\n", WikiIcon(analyzer.NeedsInfo))
	tw.printf("%s Needs to be addressed / Incorrect configuration\n", WikiIcon(analyzer.Bad))
	for _, note := range r.Notes {
		tw.printf("(i) %s\n", note)
	}
	tw.printf("h6.\n")

	tw.printf("||Configurations & Settings||Values||\n")
	for _, s := range r.Sections {
		for _, row := range s.Rows {
			tw.wikiRow(row)
		}
	}

	if p := r.Plugins; p != nil {
		if p.Panel {
			tw.printf("\n%s\n", p.Output)
		} else {
			tw.printf("|*User-Installed Plugins*|{panel}%s{panel}|\n", p.Output)
		}
	}

	return tw.err
}

func (tw *textWriter) wikiRow(row report.Row) {
	switch row.Kind {
	case report.KindFinding:
		tw.wikiFinding(row.Finding)
	case report.KindValue:
		value := " "
		if row.Value != "" {
			value = " " + cellEscaper.Replace(row.Value)
		}
		tw.printf("|*%s*|%s|\n", row.Label, value)
	case report.KindList:
		var labels, values strings.Builder
		for _, it := range row.Items {
			labels.WriteString("\n* " + it.Label)
			values.WriteString("\n* " + cellEscaper.Replace(it.Value))
		}
		tw.printf("|*%s*%s|*Values*%s|\n", row.Label, labels.String(), values.String())
	case report.KindMembers:
		tw.printf("|*%s*\n* %s|", row.Label, row.Value)
		for _, it := range row.Items {
			tw.printf("*%s:* %s\n", it.Label, cellEscaper.Replace(it.Value))
		}
		tw.printf("|\n")
	case report.KindCode:
		tw.printf("|*%s*|{code}%s{code}|\n", row.Label, row.Value)
	case report.KindArgs:
		tw.printf("|*%s*| %s |\n", row.Label, argEscaper.Replace(strings.Join(strings.Fields(row.Value), "\n")))
	case report.KindNodes:
		tw.printf("|*%s*|", row.Label)
		style := panelStyles[row.Category]
		for _, e := range row.Entries {
			tw.wikiPanel(e, style)
		}
		tw.printf("|\n")
	}
}

func (tw *textWriter) wikiFinding(f *analyzer.Finding) {
	if f == nil {
		return
	}
	tw.printf("|*%s*|%s %s", f.Label, WikiIcon(f.Severity), cellEscaper.Replace(f.Message))
	for _, d := range f.Details {
		tw.printf("\n* %s", cellEscaper.Replace(d))
	}
	if f.Link != nil {
		tw.printf("\nPlease see [%s|%s]", f.Link.Title, f.Link.URL)
	}
	tw.printf("|\n")
}

func (tw *textWriter) wikiPanel(e report.NodeEntry, style panelStyle) {
	tw.printf("{panel:title=%s|borderStyle=dashed|borderColor=%s|titleBGColor=%s|bgColor=%s}",
		cellEscaper.Replace(e.Title), style.border, style.titleBG, style.bg)
	if e.Source != "" {
		tw.printf("\n* From Support Zip: %s", e.Source)
	}
	for _, it := range e.Items {
		tw.printf("\n* %s: %s", it.Label, cellEscaper.Replace(it.Value))
	}
	tw.printf("{panel}")
}

package analyzer

import (
	"fmt"
	"strings"

	"github.com/jacobarthurs/bbhealth/internal/version"
)

// Step is one rung of a Ladder. Message may contain a single %s verb which
// receives the evaluated version text.
type Step struct {
	Match    func(v version.Version) bool
	Severity Severity
	Message  string
	Details  []string
	Link     *Link
}

// Ladder classifies a version by the first matching step, falling through
// to Else.
type Ladder struct {
	Steps []Step
	Else  Step
}

func Below(bound string) func(version.Version) bool {
	b := version.MustParse(bound)
	return func(v version.Version) bool {
		return v.Less(b)
	}
}

// Band returns the index of the step v falls into; len(Steps) means Else.
func (l Ladder) Band(v version.Version) int {
	for i, step := range l.Steps {
		if step.Match(v) {
			return i
		}
	}
	return len(l.Steps)
}

func (l Ladder) Evaluate(v version.Version) Step {
	if i := l.Band(v); i < len(l.Steps) {
		return l.Steps[i]
	}
	return l.Else
}

// Assess parses raw and classifies it. Absent or unparseable versions need
// more information rather than failing.
func (l Ladder) Assess(label string, raw *string) Finding {
	if raw == nil {
		return Finding{
			Label:    label,
			Severity: NeedsInfo,
			Message:  "Not found in the support zip",
		}
	}

	v, err := version.Parse(*raw)
	if err != nil {
		return Finding{
			Label:    label,
			Severity: NeedsInfo,
			Message:  fmt.Sprintf("Unable to determine the version from %q", *raw),
		}
	}

	step := l.Evaluate(v)
	return Finding{
		Label:    label,
		Severity: step.Severity,
		Message:  message(step.Message, *raw),
		Details:  step.Details,
		Link:     step.Link,
	}
}

func message(format, raw string) string {
	if format == "" {
		return raw
	}
	if !strings.Contains(format, "%s") {
		return format
	}
	return fmt.Sprintf(format, raw)
}

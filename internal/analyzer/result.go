package analyzer

import "fmt"

type Severity int

const (
	Good      Severity = 0
	Warning   Severity = 1
	NeedsInfo Severity = 2
	Bad       Severity = 3
)

func (s Severity) String() string {
	switch s {
	case Good:
		return "good"
	case Warning:
		return "warning"
	case NeedsInfo:
		return "needs_info"
	case Bad:
		return "bad"
	default:
		return "unknown"
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "good":
		*s = Good
	case "warning":
		*s = Warning
	case "needs_info":
		*s = NeedsInfo
	case "bad":
		*s = Bad
	default:
		return fmt.Errorf("unknown severity %q", b)
	}
	return nil
}

type Link struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

// Finding is one labelled assessment of a single fact.
type Finding struct {
	Label    string   `json:"label" yaml:"label"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
	Details  []string `json:"details,omitempty" yaml:"details,omitempty"`
	Link     *Link    `json:"link,omitempty" yaml:"link,omitempty"`
}

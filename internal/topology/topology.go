package topology

import (
	"fmt"
	"log/slog"

	"github.com/jacobarthurs/bbhealth/internal/analyzer"
	"github.com/jacobarthurs/bbhealth/internal/snapshot"
)

// Result compares the members declared by the reference export with the
// local nodes of every supplied export. Present and Missing partition
// Declared and keep its order.
type Result struct {
	Clustered    bool            `json:"clustered" yaml:"clustered"`
	Declared     []snapshot.Node `json:"declared,omitempty" yaml:"declared,omitempty"`
	Present      []snapshot.Node `json:"present,omitempty" yaml:"present,omitempty"`
	Missing      []snapshot.Node `json:"missing,omitempty" yaml:"missing,omitempty"`
	Unexpected   []snapshot.Node `json:"unexpected,omitempty" yaml:"unexpected,omitempty"`
	Supplied     int             `json:"supplied" yaml:"supplied"`
	Unidentified int             `json:"unidentified,omitempty" yaml:"unidentified,omitempty"`
}

func Reconcile(reference *snapshot.Snapshot, snapshots []*snapshot.Snapshot) Result {
	result := Result{Supplied: len(snapshots)}
	if reference == nil || !reference.Clustered {
		return result
	}

	result.Clustered = true
	result.Declared = append([]snapshot.Node(nil), reference.DeclaredNodes...)

	declared := make(map[snapshot.Node]bool, len(result.Declared))
	for _, n := range result.Declared {
		declared[n] = true
	}

	local := make(map[snapshot.Node]bool, len(snapshots))
	for _, s := range snapshots {
		if s.LocalNode == nil {
			result.Unidentified++
			continue
		}
		n := *s.LocalNode
		if !declared[n] && !local[n] {
			result.Unexpected = append(result.Unexpected, n)
		}
		local[n] = true
	}

	for _, n := range result.Declared {
		if local[n] {
			result.Present = append(result.Present, n)
		} else {
			result.Missing = append(result.Missing, n)
		}
	}

	slog.Debug("cluster reconciled",
		"declared", len(result.Declared),
		"supplied", result.Supplied,
		"present", len(result.Present),
		"missing", len(result.Missing))

	return result
}

func (r Result) Complete() bool {
	return len(r.Missing) == 0 && len(r.Unexpected) == 0
}

func (r Result) Finding() analyzer.Finding {
	const label = "Support Zips"

	if !r.Clustered {
		f := analyzer.Finding{
			Label:    label,
			Severity: analyzer.Good,
			Message:  "Standalone server",
		}
		if r.Supplied > 1 {
			f.Details = []string{fmt.Sprintf("%d support zips supplied; only the first one is assessed", r.Supplied)}
		}
		return f
	}

	details := []string{
		fmt.Sprintf("Nodes in the cluster: %d", len(r.Declared)),
		fmt.Sprintf("Support zips supplied: %d", r.Supplied),
	}
	for _, n := range r.Present {
		details = append(details, "Found: "+n.String())
	}
	for _, n := range r.Missing {
		details = append(details, "Not present: "+n.String())
	}
	for _, n := range r.Unexpected {
		details = append(details, "Not declared by the cluster: "+n.String())
	}
	if r.Unidentified > 0 {
		details = append(details, fmt.Sprintf("Support zips without a local node: %d", r.Unidentified))
	}

	if r.Complete() {
		return analyzer.Finding{
			Label:    label,
			Severity: analyzer.Good,
			Message:  "All support zips are present",
			Details:  details,
		}
	}

	msg := fmt.Sprintf("%d of %d nodes present", len(r.Present), len(r.Declared))
	if len(r.Missing) == 0 {
		msg = "Support zips from nodes outside the declared cluster"
	}
	return analyzer.Finding{
		Label:    label,
		Severity: analyzer.Warning,
		Message:  msg,
		Details:  details,
	}
}

package report

import (
	"github.com/jacobarthurs/bbhealth/internal/analyzer"
	"github.com/jacobarthurs/bbhealth/internal/plugins"
	"github.com/jacobarthurs/bbhealth/internal/snapshot"
	"github.com/jacobarthurs/bbhealth/internal/topology"
)

type SectionID string

const (
	SectionIdentity      SectionID = "identity"
	SectionTopology      SectionID = "topology"
	SectionBase          SectionID = "base"
	SectionResources     SectionID = "resources"
	SectionDatabase      SectionID = "database"
	SectionSCM           SectionID = "scm"
	SectionJava          SectionID = "java"
	SectionHeap          SectionID = "heap"
	SectionJavaResources SectionID = "java_resources"
	SectionFilesystem    SectionID = "filesystem"
	SectionSearch        SectionID = "search"
	SectionCounts        SectionID = "counts"
)

type RowKind string

const (
	// KindFinding rows carry a severity-annotated Finding.
	KindFinding RowKind = "finding"
	// KindValue rows show a single value next to the label.
	KindValue RowKind = "value"
	// KindList rows show labelled sub-values.
	KindList RowKind = "list"
	// KindMembers rows enumerate cluster members under a summary value.
	KindMembers RowKind = "members"
	// KindNodes rows show one panel per supplied export.
	KindNodes RowKind = "nodes"
	// KindCode rows show a preformatted file.
	KindCode RowKind = "code"
	// KindArgs rows show whitespace-separated arguments one per line.
	KindArgs RowKind = "args"
)

type Category string

const (
	CategoryResources  Category = "resources"
	CategoryJava       Category = "java"
	CategoryHome       Category = "home"
	CategorySharedHome Category = "shared_home"
)

type Item struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// NodeEntry is one export's contribution to a per-node row.
type NodeEntry struct {
	Title  string         `json:"title" yaml:"title"`
	Node   *snapshot.Node `json:"node,omitempty" yaml:"node,omitempty"`
	Source string         `json:"source,omitempty" yaml:"source,omitempty"`
	Items  []Item         `json:"items" yaml:"items"`
}

type Row struct {
	Kind     RowKind           `json:"kind" yaml:"kind"`
	Label    string            `json:"label" yaml:"label"`
	Value    string            `json:"value,omitempty" yaml:"value,omitempty"`
	Finding  *analyzer.Finding `json:"finding,omitempty" yaml:"finding,omitempty"`
	Items    []Item            `json:"items,omitempty" yaml:"items,omitempty"`
	Entries  []NodeEntry       `json:"entries,omitempty" yaml:"entries,omitempty"`
	Category Category          `json:"category,omitempty" yaml:"category,omitempty"`
}

type Section struct {
	ID   SectionID `json:"id" yaml:"id"`
	Rows []Row     `json:"rows" yaml:"rows"`
}

type PluginSection struct {
	plugins.Result `yaml:",inline"`
	Panel          bool `json:"panel" yaml:"panel"`
}

type Report struct {
	Product  string          `json:"product" yaml:"product"`
	Version  string          `json:"version" yaml:"version"`
	Sections []Section       `json:"sections" yaml:"sections"`
	Topology topology.Result `json:"topology" yaml:"topology"`
	Notes    []string        `json:"notes,omitempty" yaml:"notes,omitempty"`
	Plugins  *PluginSection  `json:"plugins,omitempty" yaml:"plugins,omitempty"`
}

// Section returns the section with the given id, or nil when it was omitted.
func (r *Report) Section(id SectionID) *Section {
	for i := range r.Sections {
		if r.Sections[i].ID == id {
			return &r.Sections[i]
		}
	}
	return nil
}

// Findings lists every finding in report order.
func (r *Report) Findings() []analyzer.Finding {
	var out []analyzer.Finding
	for _, s := range r.Sections {
		for _, row := range s.Rows {
			if row.Finding != nil {
				out = append(out, *row.Finding)
			}
		}
	}
	return out
}

package snapshot

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Set is every snapshot supplied for one run, in discovery order.
type Set struct {
	Root       string      `json:"root" yaml:"root"`
	Snapshots  []*Snapshot `json:"snapshots" yaml:"snapshots"`
	Properties []string    `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Reference is the snapshot that supplies cluster-global facts.
func (s *Set) Reference() *Snapshot {
	if s == nil || len(s.Snapshots) == 0 {
		return nil
	}
	return s.Snapshots[0]
}

// PropertiesPath prefers the reference bundle's properties file and falls
// back to the first one discovered anywhere.
func (s *Set) PropertiesPath() string {
	if ref := s.Reference(); ref != nil && ref.PropertiesPath != "" {
		return ref.PropertiesPath
	}
	if len(s.Properties) > 0 {
		return s.Properties[0]
	}
	return ""
}

type LoadOptions struct {
	// SkipExtract leaves *.zip archives under the root untouched.
	SkipExtract bool
}

// Load extracts support zips under root, discovers their exports and parses
// them concurrently. The reference export must parse; other exports that
// fail are logged and left out.
func Load(ctx context.Context, root string, opts LoadOptions) (*Set, error) {
	if !opts.SkipExtract {
		if _, err := ExtractArchives(root); err != nil {
			return nil, err
		}
	}

	d, err := Discover(root)
	if err != nil {
		return nil, err
	}
	if len(d.Exports) == 0 {
		return nil, fmt.Errorf("%w under %s (looked for %s)", ErrNoExport, root, ExportPattern)
	}
	if len(d.Properties) == 0 {
		slog.Debug("no bitbucket.properties in support zips; this may be a containerized instance")
	}

	parsed := make([]*Snapshot, len(d.Exports))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range d.Exports {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			snap, err := ParseFile(path)
			if err != nil {
				if i == 0 {
					return fmt.Errorf("reference export: %w", err)
				}
				slog.Error("skipping export", "path", path, "error", err)
				return nil
			}
			snap.Bundle = BundleOf(path)
			snap.PropertiesPath = d.PropertiesFor(path)
			parsed[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := &Set{Root: root, Properties: d.Properties}
	for _, snap := range parsed {
		if snap != nil {
			set.Snapshots = append(set.Snapshots, snap)
		}
	}

	slog.Debug("snapshots loaded", "count", len(set.Snapshots), "reference", set.Snapshots[0].Path)
	return set, nil
}

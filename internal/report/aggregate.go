package report

import (
	"path/filepath"

	"github.com/jacobarthurs/bbhealth/internal/snapshot"
)

const (
	UnidentifiedNode = "Unidentified node"
	SharedHomeTitle  = "Shared Home"
)

// PerNode produces one entry per snapshot in the order supplied. Snapshots
// without a local node still contribute an entry.
func PerNode(root string, snaps []*snapshot.Snapshot, c Category) []NodeEntry {
	entries := make([]NodeEntry, 0, len(snaps))
	for _, s := range snaps {
		entries = append(entries, NodeEntry{
			Title:  nodeTitle(s.LocalNode),
			Node:   s.LocalNode,
			Source: source(root, s.Path),
			Items:  itemsFor(s, c),
		})
	}
	return entries
}

// SharedHome is cluster-global, so it is read from the reference only.
func SharedHome(ref *snapshot.Snapshot) []NodeEntry {
	items := filesystemItems(ref.SharedHome)
	if len(items) == 0 {
		return nil
	}
	return []NodeEntry{{Title: SharedHomeTitle, Items: items}}
}

func hasItems(entries []NodeEntry) bool {
	for _, e := range entries {
		if len(e.Items) > 0 {
			return true
		}
	}
	return false
}

func nodeTitle(n *snapshot.Node) string {
	if n == nil {
		return UnidentifiedNode
	}
	return n.String()
}

func source(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func itemsFor(s *snapshot.Snapshot, c Category) []Item {
	switch c {
	case CategoryResources:
		r := s.Resources
		if r == nil {
			return nil
		}
		return collect(
			item("Load Average", r.LoadAverage),
			item("CPU Load", r.CPULoad),
			item("System Memory Free", r.FreeMemory),
			item("Swap Memory Free", r.FreeSwap),
			item("Open Files", r.OpenFileDescriptors),
		)
	case CategoryJava:
		j := s.Java
		if j == nil {
			return nil
		}
		return collect(
			item("Heap Percentage Used", j.PercentHeapUsed),
			item("Heap Space Free", j.HeapAvailable),
			item("Max Heap/Size", j.HeapUsed),
		)
	case CategoryHome:
		return filesystemItems(s.Home)
	case CategorySharedHome:
		return filesystemItems(s.SharedHome)
	default:
		return nil
	}
}

func filesystemItems(fs *snapshot.Filesystem) []Item {
	if fs == nil {
		return nil
	}

	items := collect(
		item("Name", fs.Name),
		item("Path", fs.Path),
		item("Type", fs.Type),
	)

	switch {
	case fs.FreeSize != nil && fs.TotalSize != nil:
		items = append(items, Item{Label: "Free space", Value: *fs.FreeSize + " out of " + *fs.TotalSize})
	case fs.FreeSize != nil:
		items = append(items, Item{Label: "Free space", Value: *fs.FreeSize})
	case fs.TotalSize != nil:
		items = append(items, Item{Label: "Total size", Value: *fs.TotalSize})
	}
	return items
}

func item(label string, v *string) *Item {
	if v == nil {
		return nil
	}
	return &Item{Label: label, Value: *v}
}

func collect(items ...*Item) []Item {
	var out []Item
	for _, it := range items {
		if it != nil {
			out = append(out, *it)
		}
	}
	return out
}

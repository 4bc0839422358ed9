package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jacobarthurs/bbhealth/internal/analyzer"
	"github.com/jacobarthurs/bbhealth/internal/plugins"
	"github.com/jacobarthurs/bbhealth/internal/snapshot"
	"github.com/jacobarthurs/bbhealth/internal/topology"
	"github.com/jacobarthurs/bbhealth/internal/version"
)

const NoPropertiesNote = "There is no bitbucket.properties file(s) in Support Zip(s). This may be a containerized instance such as Docker"

// countsSince is the first major version whose exports carry project and
// repository counts.
const countsSince = 7

type Input struct {
	Set         *snapshot.Set
	Checker     plugins.Checker
	PluginPanel bool
}

// Assemble builds the report in its fixed section order. Sections whose
// facts are all absent are left out; the rest list only present facts.
func Assemble(ctx context.Context, in Input) (*Report, error) {
	ref := in.Set.Reference()
	if ref == nil {
		return nil, snapshot.ErrNoExport
	}

	topo := topology.Reconcile(ref, in.Set.Snapshots)

	r := &Report{
		Version:  ref.ProductVersion,
		Topology: topo,
	}
	if ref.ProductName != nil {
		r.Product = *ref.ProductName
	}

	b := &builder{root: in.Set.Root, ref: ref, snaps: in.Set.Snapshots}

	b.identity()
	b.topology(topo)
	note := b.base(in.Set.PropertiesPath())
	b.perNode(SectionResources, "System Resources", CategoryResources)
	b.database()
	b.scm()
	b.java()
	b.heap()
	b.perNode(SectionJavaResources, "Java Resources", CategoryJava)
	b.filesystem()
	b.search()
	b.counts()

	r.Sections = b.sections
	if note != "" {
		r.Notes = append(r.Notes, note)
	}

	r.Plugins = checkPlugins(ctx, in, ref.Path)
	return r, nil
}

type builder struct {
	root     string
	ref      *snapshot.Snapshot
	snaps    []*snapshot.Snapshot
	sections []Section
}

func (b *builder) add(id SectionID, rows ...Row) {
	if len(rows) == 0 {
		return
	}
	b.sections = append(b.sections, Section{ID: id, Rows: rows})
}

func findingRow(f analyzer.Finding) Row {
	return Row{Kind: KindFinding, Label: f.Label, Finding: &f}
}

func (b *builder) identity() {
	var rows []Row
	if b.ref.ProductName != nil {
		rows = append(rows, Row{Kind: KindValue, Label: *b.ref.ProductName})
	}
	rows = append(rows, findingRow(analyzer.CheckProductVersion(b.ref.ProductVersion)))
	b.add(SectionIdentity, rows...)
}

func (b *builder) topology(topo topology.Result) {
	var rows []Row
	if topo.Clustered {
		items := make([]Item, 0, 2*len(topo.Declared))
		for _, n := range topo.Declared {
			items = append(items, Item{Label: "Node", Value: n.ID}, Item{Label: "IP", Value: n.Address})
		}
		rows = append(rows, Row{
			Kind:  KindMembers,
			Label: "Clustered DC Instance",
			Value: fmt.Sprintf("%d Nodes", len(topo.Declared)),
			Items: items,
		})
	} else {
		rows = append(rows, Row{Kind: KindValue, Label: "Standalone Server"})
	}
	rows = append(rows, findingRow(topo.Finding()))
	b.add(SectionTopology, rows...)
}

// base returns the note to attach when no properties file could be shown.
func (b *builder) base(propertiesPath string) string {
	var rows []Row
	if b.ref.BaseURL != nil {
		rows = append(rows, Row{Kind: KindValue, Label: "Base URL", Value: *b.ref.BaseURL})
	}

	var note string
	props, err := readProperties(propertiesPath)
	switch {
	case err != nil:
		slog.Warn("unable to read bitbucket.properties", "path", propertiesPath, "error", err)
		fallthrough
	case propertiesPath == "":
		rows = append(rows, Row{Kind: KindValue, Label: "bitbucket.properties", Value: "No bitbucket.properties file"})
		note = NoPropertiesNote
	default:
		rows = append(rows, Row{Kind: KindCode, Label: "bitbucket.properties", Value: props})
	}

	if info := b.ref.OS; info != nil {
		items := collect(
			item("OS", info.Name),
			item("Architecture", info.Architecture),
			item("Version", info.Version),
			item("Processors", info.Processors),
			item("Memory", info.TotalMemory),
			item("Swap", info.TotalSwap),
			item("Ulimit", info.MaxFileDescriptors),
		)
		if len(items) > 0 {
			rows = append(rows, Row{Kind: KindList, Label: "Operating System", Items: items})
		}
	}

	b.add(SectionBase, rows...)
	return note
}

func readProperties(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func (b *builder) perNode(id SectionID, label string, c Category) {
	entries := PerNode(b.root, b.snaps, c)
	if !hasItems(entries) {
		return
	}
	b.add(id, Row{Kind: KindNodes, Label: label, Entries: entries, Category: c})
}

func (b *builder) database() {
	items := databaseItems(b.ref.Database)
	if len(items) == 0 {
		return
	}
	b.add(SectionDatabase, Row{Kind: KindList, Label: "Database", Items: items})
}

func (b *builder) scm() {
	var rows []Row
	if b.ref.GitVersion != nil {
		rows = append(rows, findingRow(analyzer.CheckGitVersion(b.ref.GitVersion)))
	}

	var cache snapshot.SCMCache
	if b.ref.SCMCache != nil {
		cache = *b.ref.SCMCache
	}
	if cache.HTTPEnabled != nil {
		rows = append(rows, findingRow(analyzer.CheckHTTPCache(cache.HTTPEnabled)))
	}
	if cache.SSHEnabled != nil {
		rows = append(rows, findingRow(analyzer.CheckSSHCache(cache.SSHEnabled)))
	}
	if cache.RefAdvertisementEnabled != nil || refAdvertisementRetired(b.ref.ProductVersion) {
		rows = append(rows, findingRow(analyzer.CheckRefAdvertisementCache(b.ref.ProductVersion, cache.RefAdvertisementEnabled)))
	}
	b.add(SectionSCM, rows...)
}

func refAdvertisementRetired(product string) bool {
	v, err := version.Parse(product)
	if err != nil {
		return false
	}
	return !v.Less(version.MustParse(analyzer.RefAdvCacheRemovedIn))
}

func (b *builder) java() {
	if b.ref.Java == nil || b.ref.Java.RuntimeVersion == nil {
		return
	}
	b.add(SectionJava, findingRow(analyzer.CheckJavaVersion(b.ref.Java.RuntimeVersion)))
}

func (b *builder) heap() {
	if b.ref.Java == nil || b.ref.Java.VMArguments == nil {
		return
	}
	args := b.ref.Java.VMArguments
	b.add(SectionHeap,
		Row{Kind: KindArgs, Label: "JVM arguments", Value: *args},
		findingRow(analyzer.CheckHeapSettings(args)),
		findingRow(analyzer.CheckHeapDump(args)),
	)
}

func (b *builder) filesystem() {
	var rows []Row
	if home := PerNode(b.root, b.snaps, CategoryHome); hasItems(home) {
		rows = append(rows, Row{Kind: KindNodes, Label: "Filesystem - Home directory", Entries: home, Category: CategoryHome})
	}
	if shared := SharedHome(b.ref); len(shared) > 0 {
		rows = append(rows, Row{Kind: KindNodes, Label: "Filesystem - Shared Home directory", Entries: shared, Category: CategorySharedHome})
	}
	b.add(SectionFilesystem, rows...)
}

func (b *builder) search() {
	es := b.ref.Elasticsearch
	if es == nil {
		return
	}
	items := collect(
		item("URL", es.BaseURL),
		item("Status", es.ConnectionResult),
	)
	if len(items) == 0 {
		return
	}
	b.add(SectionSearch, Row{Kind: KindList, Label: "Elasticsearch", Items: items})
}

func (b *builder) counts() {
	v, err := version.Parse(b.ref.ProductVersion)
	if err != nil || v.Major() < countsSince {
		return
	}
	var rows []Row
	if b.ref.ProjectCount != nil {
		rows = append(rows, Row{Kind: KindValue, Label: "Project Count", Value: *b.ref.ProjectCount})
	}
	if b.ref.RepositoryCount != nil {
		rows = append(rows, Row{Kind: KindValue, Label: "Repository Count", Value: *b.ref.RepositoryCount})
	}
	b.add(SectionCounts, rows...)
}

func checkPlugins(ctx context.Context, in Input, exportPath string) *PluginSection {
	checker := in.Checker
	if checker == nil {
		checker = plugins.Disabled{}
	}

	res, err := checker.Check(ctx, plugins.Request{
		ExportPath:  exportPath,
		RichMarkup:  true,
		Verbose:     false, // checker diagnostics never go into the report
		SingleTable: !in.PluginPanel,
	})
	if err != nil {
		slog.Error("plugin compatibility check failed", "error", err)
		res = plugins.Result{OK: false, Output: "Plugin compatibility check failed: " + err.Error()}
	}

	slog.Debug("plugin compatibility check finished", "ok", res.OK, "bytes", len(res.Output))
	return &PluginSection{Result: res, Panel: in.PluginPanel}
}

package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobarthurs/bbhealth/internal/analyzer"
	"github.com/jacobarthurs/bbhealth/internal/plugins"
	"github.com/jacobarthurs/bbhealth/internal/snapshot"
)

func ptr[T any](v T) *T { return &v }

type stubChecker struct {
	got plugins.Request
	res plugins.Result
	err error
}

func (s *stubChecker) Check(_ context.Context, req plugins.Request) (plugins.Result, error) {
	s.got = req
	return s.res, s.err
}

func node(id, addr string) snapshot.Node {
	return snapshot.Node{ID: id, Address: addr}
}

func clusteredSnapshot(root string, local snapshot.Node, declared ...snapshot.Node) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Path:           filepath.Join(root, local.ID, "application-properties", "application.xml"),
		ProductName:    ptr("Bitbucket"),
		ProductVersion: "7.21.0",
		BaseURL:        ptr("https://bitbucket.example.com"),
		Clustered:      true,
		DeclaredNodes:  declared,
		LocalNode:      &local,
		OS: &snapshot.OperatingSystem{
			Name:    ptr("Linux"),
			Version: ptr("5.15"),
		},
		Resources: &snapshot.Resources{
			LoadAverage: ptr("0.5"),
			CPULoad:     ptr("12"),
		},
		Java: &snapshot.Java{
			RuntimeVersion:  ptr("11.0.16"),
			VMArguments:     ptr("-Xms4g -Xmx4g -XX:+HeapDumpOnOutOfMemoryError -XX:HeapDumpPath=/tmp"),
			PercentHeapUsed: ptr("40"),
		},
		GitVersion: ptr("2.39.1"),
		SCMCache: &snapshot.SCMCache{
			HTTPEnabled: ptr(true),
			SSHEnabled:  ptr(false),
		},
		Home: &snapshot.Filesystem{
			Path:      ptr("/var/atlassian/bitbucket"),
			FreeSize:  ptr("10 GB"),
			TotalSize: ptr("100 GB"),
		},
		SharedHome: &snapshot.Filesystem{
			Path: ptr("/mnt/shared"),
			Type: ptr("nfs"),
		},
		Elasticsearch: &snapshot.Elasticsearch{
			BaseURL:          ptr("http://search:9200"),
			ConnectionResult: ptr("Success"),
		},
		ProjectCount:    ptr("12"),
		RepositoryCount: ptr("340"),
	}
}

func sectionIDs(r *Report) []SectionID {
	ids := make([]SectionID, 0, len(r.Sections))
	for _, s := range r.Sections {
		ids = append(ids, s.ID)
	}
	return ids
}

func rowLabels(s *Section) []string {
	labels := make([]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		labels = append(labels, row.Label)
	}
	return labels
}

func TestAssemble_SectionOrder(t *testing.T) {
	root := t.TempDir()
	n1, n2, n3 := node("1", "10.0.0.1"), node("2", "10.0.0.2"), node("3", "10.0.0.3")
	set := &snapshot.Set{
		Root: root,
		Snapshots: []*snapshot.Snapshot{
			clusteredSnapshot(root, n1, n1, n2, n3),
			clusteredSnapshot(root, n2, n1, n2, n3),
		},
	}
	set.Snapshots[0].Database = &snapshot.Database{Name: ptr("PostgreSQL")}

	r, err := Assemble(context.Background(), Input{Set: set, Checker: &stubChecker{res: plugins.Result{OK: true}}})
	require.NoError(t, err)

	assert.Equal(t, []SectionID{
		SectionIdentity,
		SectionTopology,
		SectionBase,
		SectionResources,
		SectionDatabase,
		SectionSCM,
		SectionJava,
		SectionHeap,
		SectionJavaResources,
		SectionFilesystem,
		SectionSearch,
		SectionCounts,
	}, sectionIDs(r))

	assert.Equal(t, "Bitbucket", r.Product)
	assert.Equal(t, "7.21.0", r.Version)
	assert.Equal(t, []snapshot.Node{n3}, r.Topology.Missing)

	topo := r.Section(SectionTopology)
	require.NotNil(t, topo)
	assert.Equal(t, KindMembers, topo.Rows[0].Kind)
	assert.Equal(t, "3 Nodes", topo.Rows[0].Value)
	require.NotNil(t, topo.Rows[1].Finding)
	assert.Equal(t, analyzer.Warning, topo.Rows[1].Finding.Severity)
	assert.Equal(t, "2 of 3 nodes present", topo.Rows[1].Finding.Message)

	res := r.Section(SectionResources)
	require.NotNil(t, res)
	require.Len(t, res.Rows[0].Entries, 2)
	assert.Equal(t, "1 10.0.0.1", res.Rows[0].Entries[0].Title)
	assert.Equal(t, "2 10.0.0.2", res.Rows[0].Entries[1].Title)
	assert.Equal(t, "1/application-properties/application.xml", res.Rows[0].Entries[0].Source)

	scm := r.Section(SectionSCM)
	require.NotNil(t, scm)
	assert.Equal(t, []string{"GIT Version", "HTTP cache", "SSH cache", "Ref advertisement cache"}, rowLabels(scm))

	counts := r.Section(SectionCounts)
	require.NotNil(t, counts)
	assert.Equal(t, []string{"Project Count", "Repository Count"}, rowLabels(counts))
}

func TestAssemble_Idempotent(t *testing.T) {
	root := t.TempDir()
	n1 := node("1", "10.0.0.1")
	set := &snapshot.Set{Root: root, Snapshots: []*snapshot.Snapshot{clusteredSnapshot(root, n1, n1)}}
	in := Input{Set: set, Checker: &stubChecker{res: plugins.Result{OK: true, Output: "||Plugin||"}}}

	first, err := Assemble(context.Background(), in)
	require.NoError(t, err)
	second, err := Assemble(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAssemble_GracefulOmission(t *testing.T) {
	set := &snapshot.Set{Snapshots: []*snapshot.Snapshot{{
		Path:           "app.xml",
		ProductVersion: "6.10.2",
	}}}

	r, err := Assemble(context.Background(), Input{Set: set})
	require.NoError(t, err)

	assert.Equal(t, []SectionID{SectionIdentity, SectionTopology, SectionBase}, sectionIDs(r))
	assert.Equal(t, []string{NoPropertiesNote}, r.Notes)

	base := r.Section(SectionBase)
	require.NotNil(t, base)
	assert.Equal(t, []string{"bitbucket.properties"}, rowLabels(base))
	assert.Equal(t, "No bitbucket.properties file", base.Rows[0].Value)

	require.NotNil(t, r.Plugins)
	assert.False(t, r.Plugins.OK)
}

func TestAssemble_DatabaseOmittedWhenAbsent(t *testing.T) {
	root := t.TempDir()
	snap := clusteredSnapshot(root, node("1", "a"), node("1", "a"))
	snap.Database = nil
	set := &snapshot.Set{Root: root, Snapshots: []*snapshot.Snapshot{snap}}

	r, err := Assemble(context.Background(), Input{Set: set})
	require.NoError(t, err)
	assert.Nil(t, r.Section(SectionDatabase))
}

func TestAssemble_PartialDatabase(t *testing.T) {
	snap := &snapshot.Snapshot{
		ProductVersion: "7.21.0",
		Database: &snapshot.Database{
			Name:          ptr("PostgreSQL"),
			ConnectionURL: ptr("jdbc:postgresql://db.internal:5433/bitbucket"),
		},
	}
	r, err := Assemble(context.Background(), Input{Set: &snapshot.Set{Snapshots: []*snapshot.Snapshot{snap}}})
	require.NoError(t, err)

	db := r.Section(SectionDatabase)
	require.NotNil(t, db)
	assert.Equal(t, []Item{
		{Label: "Name", Value: "PostgreSQL"},
		{Label: "Connection URL", Value: "jdbc:postgresql://db.internal:5433/bitbucket"},
		{Label: "Host", Value: "db.internal"},
		{Label: "Port", Value: "5433"},
		{Label: "Database Name", Value: "bitbucket"},
	}, db.Rows[0].Items)
}

func TestAssemble_CountsOnlyFromMajorSeven(t *testing.T) {
	snap := &snapshot.Snapshot{
		ProductVersion:  "6.10.0",
		ProjectCount:    ptr("3"),
		RepositoryCount: ptr("4"),
	}
	r, err := Assemble(context.Background(), Input{Set: &snapshot.Set{Snapshots: []*snapshot.Snapshot{snap}}})
	require.NoError(t, err)
	assert.Nil(t, r.Section(SectionCounts))

	snap.ProductVersion = "8.9.0"
	r, err = Assemble(context.Background(), Input{Set: &snapshot.Set{Snapshots: []*snapshot.Snapshot{snap}}})
	require.NoError(t, err)
	require.NotNil(t, r.Section(SectionCounts))
}

func TestAssemble_RefAdvertisementRowForNewProducts(t *testing.T) {
	snap := &snapshot.Snapshot{ProductVersion: "7.3.0"}
	r, err := Assemble(context.Background(), Input{Set: &snapshot.Set{Snapshots: []*snapshot.Snapshot{snap}}})
	require.NoError(t, err)

	scm := r.Section(SectionSCM)
	require.NotNil(t, scm)
	assert.Equal(t, []string{"Ref advertisement cache"}, rowLabels(scm))
	assert.Equal(t, analyzer.Good, scm.Rows[0].Finding.Severity)

	snap.ProductVersion = "7.2.0"
	r, err = Assemble(context.Background(), Input{Set: &snapshot.Set{Snapshots: []*snapshot.Snapshot{snap}}})
	require.NoError(t, err)
	assert.Nil(t, r.Section(SectionSCM))
}

func TestAssemble_PropertiesFile(t *testing.T) {
	dir := t.TempDir()
	props := filepath.Join(dir, "bitbucket.properties")
	require.NoError(t, os.WriteFile(props, []byte("server.port=7990\n"), 0o644))

	snap := &snapshot.Snapshot{ProductVersion: "8.9.0", PropertiesPath: props}
	r, err := Assemble(context.Background(), Input{Set: &snapshot.Set{Snapshots: []*snapshot.Snapshot{snap}}})
	require.NoError(t, err)

	base := r.Section(SectionBase)
	require.NotNil(t, base)
	assert.Equal(t, KindCode, base.Rows[0].Kind)
	assert.Equal(t, "server.port=7990", base.Rows[0].Value)
	assert.Empty(t, r.Notes)
}

func TestAssemble_PluginRequest(t *testing.T) {
	snap := &snapshot.Snapshot{Path: "/zips/a/application-properties/application.xml", ProductVersion: "8.9.0"}
	set := &snapshot.Set{Snapshots: []*snapshot.Snapshot{snap}}

	stub := &stubChecker{res: plugins.Result{OK: true, Output: "table"}}
	r, err := Assemble(context.Background(), Input{Set: set, Checker: stub})
	require.NoError(t, err)

	assert.Equal(t, plugins.Request{
		ExportPath:  snap.Path,
		RichMarkup:  true,
		Verbose:     false,
		SingleTable: true,
	}, stub.got)
	assert.Equal(t, &PluginSection{Result: plugins.Result{OK: true, Output: "table"}}, r.Plugins)

	stub = &stubChecker{err: errors.New("boom")}
	r, err = Assemble(context.Background(), Input{Set: set, Checker: stub, PluginPanel: true})
	require.NoError(t, err)
	assert.False(t, stub.got.SingleTable)
	assert.False(t, r.Plugins.OK)
	assert.True(t, r.Plugins.Panel)
	assert.Contains(t, r.Plugins.Output, "boom")
}

func TestAssemble_EmptySet(t *testing.T) {
	_, err := Assemble(context.Background(), Input{Set: &snapshot.Set{}})
	assert.ErrorIs(t, err, snapshot.ErrNoExport)
}

func TestPerNode_KeepsUnidentifiedAndEmpty(t *testing.T) {
	n := node("1", "10.0.0.1")
	snaps := []*snapshot.Snapshot{
		{Path: "/root/a/app.xml", LocalNode: &n, Resources: &snapshot.Resources{CPULoad: ptr("5")}},
		{Path: "/root/b/app.xml"},
	}

	entries := PerNode("/root", snaps, CategoryResources)
	require.Len(t, entries, 2)
	assert.Equal(t, "1 10.0.0.1", entries[0].Title)
	assert.Equal(t, []Item{{Label: "CPU Load", Value: "5"}}, entries[0].Items)
	assert.Equal(t, UnidentifiedNode, entries[1].Title)
	assert.Nil(t, entries[1].Node)
	assert.Empty(t, entries[1].Items)
	assert.Equal(t, "b/app.xml", entries[1].Source)
}

func TestFilesystemItems_FreeSpace(t *testing.T) {
	tests := []struct {
		name string
		fs   snapshot.Filesystem
		want []Item
	}{
		{
			name: "free and total",
			fs:   snapshot.Filesystem{FreeSize: ptr("1 GB"), TotalSize: ptr("2 GB")},
			want: []Item{{Label: "Free space", Value: "1 GB out of 2 GB"}},
		},
		{
			name: "free only",
			fs:   snapshot.Filesystem{FreeSize: ptr("1 GB")},
			want: []Item{{Label: "Free space", Value: "1 GB"}},
		},
		{
			name: "total only",
			fs:   snapshot.Filesystem{TotalSize: ptr("2 GB")},
			want: []Item{{Label: "Total size", Value: "2 GB"}},
		},
		{
			name: "nothing",
			fs:   snapshot.Filesystem{},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filesystemItems(&tt.fs))
		})
	}
}

func TestPostgresItems(t *testing.T) {
	items := postgresItems("jdbc:postgresql://primary:5432,replica:5433/bitbucket")
	assert.Equal(t, []Item{
		{Label: "Host", Value: "primary"},
		{Label: "Port", Value: "5432"},
		{Label: "Database Name", Value: "bitbucket"},
		{Label: "Fallback Hosts", Value: "replica:5433"},
	}, items)

	assert.Nil(t, postgresItems("jdbc:oracle:thin:@db:1521:ORCL"))
	assert.Nil(t, postgresItems("postgresql://db/bitbucket"))
}

func TestPostgresItems_IgnoresEnvironment(t *testing.T) {
	t.Setenv("PGHOST", "elsewhere")
	t.Setenv("PGPORT", "6543")
	t.Setenv("PGDATABASE", "other")
	t.Setenv("PGSSLMODE", "verify-full")
	t.Setenv("PGSSLROOTCERT", filepath.Join(t.TempDir(), "missing.crt"))
	t.Setenv("PGTARGETSESSIONATTRS", "bogus")
	t.Setenv("PGCONNECT_TIMEOUT", "soon")

	assert.Equal(t, []Item{
		{Label: "Host", Value: "db.example.com"},
		{Label: "Port", Value: "5432"},
		{Label: "Database Name", Value: "bitbucket"},
	}, postgresItems("jdbc:postgresql://db.example.com/bitbucket"))

	assert.Equal(t, []Item{
		{Label: "Host", Value: "db.example.com"},
		{Label: "Port", Value: "5432"},
	}, postgresItems("jdbc:postgresql://db.example.com"))

	assert.Equal(t, []Item{
		{Label: "Host", Value: "primary"},
		{Label: "Port", Value: "5432"},
		{Label: "Fallback Hosts", Value: "replica:5433"},
	}, postgresItems("jdbc:postgresql://primary,replica:5433/"))

	t.Setenv("PGSERVICE", "missing")
	t.Setenv("PGSERVICEFILE", filepath.Join(t.TempDir(), "pg_service.conf"))
	assert.Equal(t, []Item{
		{Label: "Host", Value: "db.example.com"},
		{Label: "Port", Value: "5433"},
		{Label: "Database Name", Value: "bitbucket"},
	}, postgresItems("jdbc:postgresql://db.example.com:5433/bitbucket"))
}

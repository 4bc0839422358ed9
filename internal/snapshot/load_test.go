package snapshot

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodeExport(id, addr string) string {
	return `<application-information>
  <product name="Bitbucket" version="7.6.0"/>
  <cluster-information>
    <clustered>true</clustered>
    <node><id>n1</id><address>10.0.0.1</address><local>` + boolText(id == "n1") + `</local></node>
    <node><id>n2</id><address>10.0.0.2</address><local>` + boolText(id == "n2") + `</local></node>
    <node><id>n3</id><address>10.0.0.3</address><local>` + boolText(id == "n3") + `</local></node>
  </cluster-information>
  <bitbucket-information><base-url>` + addr + `</base-url></bitbucket-information>
</application-information>`
}

func boolText(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func writeBundle(t *testing.T, root, name, export string, withProps bool) string {
	t.Helper()
	bundle := filepath.Join(root, name)
	exportPath := filepath.Join(bundle, "application-properties", "application.xml")
	require.NoError(t, os.MkdirAll(filepath.Dir(exportPath), 0o755))
	require.NoError(t, os.WriteFile(exportPath, []byte(export), 0o644))

	if withProps {
		propsPath := filepath.Join(bundle, "application-config", "bitbucket.properties")
		require.NoError(t, os.MkdirAll(filepath.Dir(propsPath), 0o755))
		require.NoError(t, os.WriteFile(propsPath, []byte("setup.displayName=Bitbucket\n"), 0o644))
	}
	return exportPath
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestDiscover_LexicographicOrder(t *testing.T) {
	root := t.TempDir()
	b := writeBundle(t, root, "b-node", nodeExport("n2", "b"), false)
	a := writeBundle(t, root, "a-node", nodeExport("n1", "a"), true)

	d, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, d.Exports)
	require.Len(t, d.Properties, 1)
	assert.Equal(t, d.Properties[0], d.PropertiesFor(a))
	assert.Empty(t, d.PropertiesFor(b))
}

func TestDiscover_ExportAtRoot(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "application-properties", "application.xml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(fullExport), 0o644))

	d, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, d.Exports)
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrDirectory)
}

func TestLoad_PreservesDiscoveryOrder(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "zip-1", nodeExport("n1", "first"), true)
	writeBundle(t, root, "zip-2", nodeExport("n2", "second"), false)

	set, err := Load(context.Background(), root, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, set.Snapshots, 2)

	ref := set.Reference()
	assert.Equal(t, "first", *ref.BaseURL)
	assert.Equal(t, "n1", ref.LocalNode.ID)
	assert.Equal(t, filepath.Join(root, "zip-1"), ref.Bundle)
	assert.NotEmpty(t, ref.PropertiesPath)
	assert.Equal(t, ref.PropertiesPath, set.PropertiesPath())
	assert.Equal(t, "n2", set.Snapshots[1].LocalNode.ID)
	assert.Empty(t, set.Snapshots[1].PropertiesPath)
}

func TestLoad_PropertiesFallsBackToAnyBundle(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "zip-1", nodeExport("n1", "first"), false)
	writeBundle(t, root, "zip-2", nodeExport("n2", "second"), true)

	set, err := Load(context.Background(), root, LoadOptions{})
	require.NoError(t, err)
	assert.Empty(t, set.Reference().PropertiesPath)
	assert.Equal(t, set.Snapshots[1].PropertiesPath, set.PropertiesPath())
}

func TestLoad_NoExport(t *testing.T) {
	_, err := Load(context.Background(), t.TempDir(), LoadOptions{})
	assert.ErrorIs(t, err, ErrNoExport)
}

func TestLoad_BrokenReferenceIsFatal(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "a", "<broken", false)
	writeBundle(t, root, "b", nodeExport("n2", "ok"), false)

	_, err := Load(context.Background(), root, LoadOptions{})
	assert.Error(t, err)
}

func TestLoad_BrokenSecondaryIsSkipped(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "a", nodeExport("n1", "ok"), false)
	writeBundle(t, root, "b", "<broken", false)

	set, err := Load(context.Background(), root, LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, set.Snapshots, 1)
}

func TestLoad_ExtractsZips(t *testing.T) {
	root := t.TempDir()
	writeZip(t, filepath.Join(root, "support_n1.zip"), map[string]string{
		"application-properties/application.xml":  nodeExport("n1", "zipped"),
		"application-config/bitbucket.properties": "jdbc.user=bitbucket\n",
	})

	set, err := Load(context.Background(), root, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, set.Snapshots, 1)
	assert.Equal(t, filepath.Join(root, "support_n1"), set.Reference().Bundle)
	assert.NotEmpty(t, set.PropertiesPath())
}

func TestExtractArchives_SkipsMalformedAndExisting(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.zip"), []byte("not a zip"), 0o644))
	writeZip(t, filepath.Join(root, "done.zip"), map[string]string{"x.txt": "x"})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "done"), 0o755))
	writeZip(t, filepath.Join(root, "fresh.zip"), map[string]string{"dir/y.txt": "y"})

	extracted, err := ExtractArchives(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "fresh")}, extracted)

	_, err = os.Stat(filepath.Join(root, "broken"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "done", "x.txt"))
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(filepath.Join(root, "fresh", "dir", "y.txt"))
	require.NoError(t, err)
	assert.Equal(t, "y", string(data))
}

func TestExtractArchives_KeepsFileNamedLikeArchive(t *testing.T) {
	root := t.TempDir()
	writeZip(t, filepath.Join(root, "node1.zip"), map[string]string{
		"application-properties/application.xml": nodeExport("n1", "zipped"),
	})
	existing := filepath.Join(root, "node1")
	require.NoError(t, os.WriteFile(existing, []byte("keep me"), 0o644))

	extracted, err := ExtractArchives(root)
	require.NoError(t, err)
	assert.Empty(t, extracted)

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestExtractArchives_RemovesOnlyItsOwnPartialOutput(t *testing.T) {
	root := t.TempDir()
	writeZip(t, filepath.Join(root, "evil.zip"), map[string]string{
		"ok.txt":            "x",
		"../../outside.txt": "x",
	})
	require.NoError(t, os.WriteFile(filepath.Join(root, "other.txt"), []byte("y"), 0o644))

	_, err := ExtractArchives(root)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "evil"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "other.txt"))
	assert.NoError(t, err)
}

func TestExtractArchives_RejectsEscapingEntries(t *testing.T) {
	root := t.TempDir()
	writeZip(t, filepath.Join(root, "evil.zip"), map[string]string{"../../outside.txt": "x"})

	extracted, err := ExtractArchives(root)
	require.NoError(t, err)
	assert.Empty(t, extracted)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "outside"))
	}
}

package snapshot

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

type rawExport struct {
	XMLName xml.Name

	Product *struct {
		Name    *string `xml:"name,attr"`
		Version *string `xml:"version,attr"`
	} `xml:"product"`

	Cluster *struct {
		Clustered *string   `xml:"clustered"`
		Nodes     []rawNode `xml:"node"`
	} `xml:"cluster-information"`

	BaseURL *string `xml:"bitbucket-information>base-url"`

	OS *struct {
		Name                *string `xml:"os-name"`
		Architecture        *string `xml:"os-architecture"`
		Version             *string `xml:"os-version"`
		Processors          *string `xml:"available-processors"`
		TotalMemory         *string `xml:"total-physical-memory"`
		TotalSwap           *string `xml:"total-swap-space"`
		MaxFileDescriptors  *string `xml:"max-file-descriptor"`
		LoadAverage         *string `xml:"system-load-average"`
		CPULoad             *string `xml:"system-cpu-load"`
		FreeSwap            *string `xml:"free-swap-space"`
		FreeMemory          *string `xml:"free-physical-memory"`
		OpenFileDescriptors *string `xml:"open-file-descriptor"`
	} `xml:"operating-system"`

	Database *struct {
		Name          *string      `xml:"database-name"`
		Version       *string      `xml:"version"`
		SupportLevel  *string      `xml:"support-level"`
		ConnectionURL *string      `xml:"connection-url"`
		Other         []rawElement `xml:",any"`
	} `xml:"database-information"`

	GitVersion *string `xml:"git>version"`

	HTTPCache   *string `xml:"scm-cache>http-enabled"`
	SSHCache    *string `xml:"scm-cache>ssh-enabled"`
	RefAdvCache *string `xml:"scm-cache>refs-advertisement>enabled"`

	Java *struct {
		RuntimeVersion  *string `xml:"java.runtime.version"`
		VMArguments     *string `xml:"virtual-machine-arguments"`
		PercentHeapUsed *string `xml:"percent-heap-used"`
		HeapUsed        *string `xml:"heap-used"`
		HeapAvailable   *string `xml:"heap-available"`
	} `xml:"java-runtime-environment"`

	Home       *rawFilesystem `xml:"filesystem>home"`
	SharedHome *rawFilesystem `xml:"filesystem>shared-home"`

	Elasticsearch *struct {
		BaseURL          *string `xml:"base-url"`
		ConnectionResult *string `xml:"connection-result"`
	} `xml:"Elasticsearch"`

	ProjectCount    *string `xml:"projects>count"`
	RepositoryCount *string `xml:"repositories>count"`
}

type rawNode struct {
	ID      *string `xml:"id"`
	Address *string `xml:"address"`
	Local   *string `xml:"local"`
}

type rawFilesystem struct {
	Name      *string `xml:"name"`
	Path      *string `xml:"path"`
	Type      *string `xml:"type"`
	FreeSize  *string `xml:"free-size"`
	TotalSize *string `xml:"total-size"`
}

// rawElement captures elements whose nesting differs between product versions.
type rawElement struct {
	XMLName  xml.Name
	Text     string       `xml:",chardata"`
	Children []rawElement `xml:",any"`
}

func ParseFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening export %s: %w", path, err)
	}
	defer f.Close()

	snap, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing export %s: %w", path, err)
	}
	snap.Path = path
	return snap, nil
}

func Parse(r io.Reader) (*Snapshot, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var raw rawExport
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty export")
		}
		return nil, fmt.Errorf("invalid export XML: %w", err)
	}

	return raw.snapshot(), nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported export encoding %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

func (raw *rawExport) snapshot() *Snapshot {
	snap := &Snapshot{
		BaseURL:         text(raw.BaseURL),
		GitVersion:      text(raw.GitVersion),
		ProjectCount:    text(raw.ProjectCount),
		RepositoryCount: text(raw.RepositoryCount),
	}

	if p := raw.Product; p != nil {
		snap.ProductName = text(p.Name)
		if v := text(p.Version); v != nil {
			snap.ProductVersion = *v
		}
	}

	if c := raw.Cluster; c != nil {
		if clustered := flag(c.Clustered); clustered != nil {
			snap.Clustered = *clustered
		}
		for _, n := range c.Nodes {
			node := Node{ID: value(n.ID), Address: value(n.Address)}
			snap.DeclaredNodes = append(snap.DeclaredNodes, node)
			if local := flag(n.Local); local != nil && *local && snap.LocalNode == nil {
				snap.LocalNode = &node
			}
		}
		if !snap.Clustered {
			snap.DeclaredNodes = nil
		}
	}

	if o := raw.OS; o != nil {
		osInfo := &OperatingSystem{
			Name:               text(o.Name),
			Architecture:       text(o.Architecture),
			Version:            text(o.Version),
			Processors:         text(o.Processors),
			TotalMemory:        text(o.TotalMemory),
			TotalSwap:          text(o.TotalSwap),
			MaxFileDescriptors: text(o.MaxFileDescriptors),
		}
		if anyPresent(osInfo.Name, osInfo.Architecture, osInfo.Version, osInfo.Processors, osInfo.TotalMemory, osInfo.TotalSwap, osInfo.MaxFileDescriptors) {
			snap.OS = osInfo
		}

		res := &Resources{
			LoadAverage:         text(o.LoadAverage),
			CPULoad:             text(o.CPULoad),
			FreeSwap:            text(o.FreeSwap),
			FreeMemory:          text(o.FreeMemory),
			OpenFileDescriptors: text(o.OpenFileDescriptors),
		}
		if anyPresent(res.LoadAverage, res.CPULoad, res.FreeSwap, res.FreeMemory, res.OpenFileDescriptors) {
			snap.Resources = res
		}
	}

	if d := raw.Database; d != nil {
		db := &Database{
			Name:          text(d.Name),
			Version:       text(d.Version),
			SupportLevel:  text(d.SupportLevel),
			ConnectionURL: text(d.ConnectionURL),
			DriverName:    findText(d.Other, "driver-name"),
			DriverVersion: findText(d.Other, "driver-version"),
		}
		if anyPresent(db.Name, db.Version, db.SupportLevel, db.ConnectionURL, db.DriverName, db.DriverVersion) {
			snap.Database = db
		}
	}

	scm := &SCMCache{
		HTTPEnabled:             flag(raw.HTTPCache),
		SSHEnabled:              flag(raw.SSHCache),
		RefAdvertisementEnabled: flag(raw.RefAdvCache),
	}
	if scm.HTTPEnabled != nil || scm.SSHEnabled != nil || scm.RefAdvertisementEnabled != nil {
		snap.SCMCache = scm
	}

	if j := raw.Java; j != nil {
		java := &Java{
			RuntimeVersion:  text(j.RuntimeVersion),
			VMArguments:     text(j.VMArguments),
			PercentHeapUsed: text(j.PercentHeapUsed),
			HeapUsed:        text(j.HeapUsed),
			HeapAvailable:   text(j.HeapAvailable),
		}
		if anyPresent(java.RuntimeVersion, java.VMArguments, java.PercentHeapUsed, java.HeapUsed, java.HeapAvailable) {
			snap.Java = java
		}
	}

	snap.Home = raw.Home.filesystem()
	snap.SharedHome = raw.SharedHome.filesystem()

	if e := raw.Elasticsearch; e != nil {
		es := &Elasticsearch{
			BaseURL:          text(e.BaseURL),
			ConnectionResult: text(e.ConnectionResult),
		}
		if anyPresent(es.BaseURL, es.ConnectionResult) {
			snap.Elasticsearch = es
		}
	}

	return snap
}

func (f *rawFilesystem) filesystem() *Filesystem {
	if f == nil {
		return nil
	}
	fs := &Filesystem{
		Name:      text(f.Name),
		Path:      text(f.Path),
		Type:      text(f.Type),
		FreeSize:  text(f.FreeSize),
		TotalSize: text(f.TotalSize),
	}
	if !anyPresent(fs.Name, fs.Path, fs.Type, fs.FreeSize, fs.TotalSize) {
		return nil
	}
	return fs
}

// findText returns the text of the first element with the given local name,
// searching depth-first through the captured subtree.
func findText(elems []rawElement, name string) *string {
	for i := range elems {
		if elems[i].XMLName.Local == name {
			s := strings.TrimSpace(elems[i].Text)
			return &s
		}
		if found := findText(elems[i].Children, name); found != nil {
			return found
		}
	}
	return nil
}

func text(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func flag(s *string) *bool {
	if s == nil {
		return nil
	}
	b := strings.EqualFold(strings.TrimSpace(*s), "true")
	return &b
}

func anyPresent(values ...*string) bool {
	for _, v := range values {
		if v != nil {
			return true
		}
	}
	return false
}

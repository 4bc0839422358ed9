package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	ExportPattern     = "**/application-properties/application.xml"
	PropertiesPattern = "**/application-config/bitbucket.properties"
)

var (
	ErrNoExport  = errors.New("no application.xml export found")
	ErrDirectory = errors.New("cannot resolve support zip directory")
)

// Discovery lists the exports and properties files found under a root, in
// lexicographic path order. The first export is the reference.
type Discovery struct {
	Root       string
	Exports    []string
	Properties []string
}

func Discover(root string) (Discovery, error) {
	if err := checkRoot(root); err != nil {
		return Discovery{}, err
	}

	d := Discovery{Root: root}
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if ok, _ := doublestar.Match(ExportPattern, rel); ok {
			slog.Debug("application.xml found", "path", path)
			d.Exports = append(d.Exports, path)
		} else if ok, _ := doublestar.Match(PropertiesPattern, rel); ok {
			slog.Debug("bitbucket.properties found", "path", path)
			d.Properties = append(d.Properties, path)
		}
		return nil
	})
	if err != nil {
		return Discovery{}, fmt.Errorf("%w: %s: %w", ErrDirectory, root, err)
	}

	return d, nil
}

// BundleOf returns the support zip root an export or properties file belongs to.
func BundleOf(path string) string {
	return filepath.Dir(filepath.Dir(path))
}

// PropertiesFor returns the properties file shipped in the same bundle as
// the export, or "" when that bundle has none.
func (d Discovery) PropertiesFor(export string) string {
	bundle := BundleOf(export)
	for _, p := range d.Properties {
		if BundleOf(p) == bundle {
			return p
		}
	}
	return ""
}

func checkRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDirectory, root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrDirectory, root)
	}
	return nil
}

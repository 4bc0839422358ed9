package snapshot

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const archivePattern = "**/*.zip"

// ExtractArchives unzips every support zip under root into a sibling
// directory named after the archive, unless that path already exists.
// Archives that fail to extract are logged and skipped.
func ExtractArchives(root string) ([]string, error) {
	if err := checkRoot(root); err != nil {
		return nil, err
	}

	var archives []string
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
		if ok, _ := doublestar.Match(archivePattern, strings.ToLower(filepath.ToSlash(rel))); ok {
			archives = append(archives, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDirectory, root, err)
	}

	var extracted []string
	for _, archive := range archives {
		target := strings.TrimSuffix(archive, filepath.Ext(archive))
		if info, err := os.Lstat(target); err == nil {
			if info.IsDir() {
				slog.Debug("support zip already extracted", "archive", archive)
			} else {
				slog.Warn("skipping support zip, target exists and is not a directory", "archive", archive, "target", target)
			}
			continue
		}

		slog.Debug("extracting support zip", "archive", archive, "target", target)
		if err := os.Mkdir(target, 0o755); err != nil {
			slog.Error("skipping support zip", "archive", archive, "error", err)
			continue
		}
		// target was created above, so a failed extraction only removes our own files.
		if err := extractZip(archive, target); err != nil {
			slog.Error("skipping support zip", "archive", archive, "error", err)
			_ = os.RemoveAll(target)
			continue
		}
		extracted = append(extracted, target)
	}

	return extracted, nil
}

func extractZip(archive, target string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := extractEntry(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(f *zip.File, target string) error {
	dest := filepath.Join(target, f.Name)
	if dest != target && !strings.HasPrefix(dest, target+string(os.PathSeparator)) {
		return fmt.Errorf("entry %q escapes the extraction directory", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("reading entry %q: %w", f.Name, err)
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return out.Close()
}

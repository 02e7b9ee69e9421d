package fs

import (
	iofs "io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"ragdesk/internal/port"
)

// Walker lists the files of a folder whose extension is supported,
// skipping paths that match an exclude glob.
type Walker struct {
	includes  []string
	excludes  []string
	recursive bool
}

// NewWalker builds include globs from extensions (".pdf", ".csv", ...).
// Extensions match case-insensitively. Without recursive only the top level
// of the root is listed.
func NewWalker(extensions, excludes []string, recursive bool) *Walker {
	prefix := "*"
	if recursive {
		prefix = "**/*"
	}
	includes := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		includes = append(includes, prefix+strings.ToLower(ext))
	}
	if len(includes) == 0 {
		includes = []string{prefix}
	}
	return &Walker{
		includes:  includes,
		excludes:  excludes,
		recursive: recursive,
	}
}

// Walk returns the matching files sorted by path.
func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []port.FileInfo
	err = filepath.WalkDir(root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if !w.recursive || matchAny(w.excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !matchAny(w.includes, strings.ToLower(rel)) || matchAny(w.excludes, rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, port.FileInfo{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, err
}

func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

package port

import "time"

// Walker lists the ingestible files below a folder.
type Walker interface {
	Walk(root string) ([]FileInfo, error)
}

// FileInfo is one file found by a Walker. Path is absolute.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

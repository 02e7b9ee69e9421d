package domain

import "errors"

var (
	ErrTableNotFound     = errors.New("table not found")
	ErrTableExists       = errors.New("table already exists")
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrEmptyDocument     = errors.New("document has no content")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrFileNotFound      = errors.New("file not found")
)

package port

import (
	"context"

	"ragdesk/internal/domain"
)

// Converter turns a file path or URL into a normalized document.
type Converter interface {
	Convert(ctx context.Context, source string) (*domain.Document, error)

	// ConvertAll converts every source and reports results in input order.
	// A failed source carries Err and a nil Document.
	ConvertAll(ctx context.Context, sources []string) []Conversion
}

type Conversion struct {
	Source   string
	Document *domain.Document
	Err      error
}

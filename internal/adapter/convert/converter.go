package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"ragdesk/internal/domain"
	"ragdesk/internal/port"
)

var extensionKinds = map[string]domain.FileType{
	".pdf":      domain.FileTypePDF,
	".docx":     domain.FileTypeDOCX,
	".xlsx":     domain.FileTypeExcel,
	".csv":      domain.FileTypeCSV,
	".md":       domain.FileTypeMarkdown,
	".markdown": domain.FileTypeMarkdown,
	".txt":      domain.FileTypeText,
	".html":     domain.FileTypeHTML,
	".htm":      domain.FileTypeHTML,
}

// KindForPath maps a file extension to the file_type recorded for it.
func KindForPath(path string) (domain.FileType, error) {
	kind, ok := extensionKinds[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, filepath.Ext(path))
	}
	return kind, nil
}

// SupportedExtensions lists the file extensions the converter reads.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionKinds))
	for ext := range extensionKinds {
		exts = append(exts, ext)
	}
	return exts
}

// IsURL reports whether source is an http(s) URL rather than a file path.
func IsURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Converter turns local files and web pages into documents.
type Converter struct {
	fetcher port.Fetcher
	logger  *zap.Logger
}

func NewConverter(fetcher port.Fetcher, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{fetcher: fetcher, logger: logger}
}

func (c *Converter) Convert(ctx context.Context, source string) (*domain.Document, error) {
	var (
		doc *domain.Document
		err error
	)
	if IsURL(source) {
		doc, err = c.convertURL(ctx, source)
	} else {
		doc, err = c.convertFile(source)
	}
	if err != nil {
		return nil, err
	}
	if doc.Empty() {
		return nil, fmt.Errorf("%s: %w", source, domain.ErrEmptyDocument)
	}
	return doc, nil
}

func (c *Converter) ConvertAll(ctx context.Context, sources []string) []port.Conversion {
	results := make([]port.Conversion, 0, len(sources))
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			results = append(results, port.Conversion{Source: source, Err: err})
			continue
		}
		doc, err := c.Convert(ctx, source)
		if err != nil {
			c.logger.Warn("conversion failed", zap.String("source", source), zap.Error(err))
		}
		results = append(results, port.Conversion{Source: source, Document: doc, Err: err})
	}
	return results
}

func (c *Converter) convertFile(path string) (*domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", path, domain.ErrUnsupportedType)
	}

	kind, err := KindForPath(path)
	if err != nil {
		return nil, err
	}

	var doc *domain.Document
	switch kind {
	case domain.FileTypePDF:
		doc, err = readPDF(path)
	case domain.FileTypeDOCX:
		doc, err = readDOCX(path)
	case domain.FileTypeExcel:
		doc, err = readXLSX(path)
	case domain.FileTypeCSV:
		doc, err = readCSV(path)
	case domain.FileTypeMarkdown:
		doc, err = readMarkdown(path)
	case domain.FileTypeText:
		doc, err = readText(path)
	case domain.FileTypeHTML:
		var data []byte
		data, err = os.ReadFile(path)
		if err == nil {
			doc, err = ParseHTML(data)
		}
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", path, err)
	}

	doc.Origin = filepath.Base(path)
	doc.Kind = kind
	c.logger.Debug("converted file",
		zap.String("path", path),
		zap.String("kind", string(kind)),
		zap.Int("elements", len(doc.Elements)))
	return doc, nil
}

func (c *Converter) convertURL(ctx context.Context, url string) (*domain.Document, error) {
	if c.fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured for %s", url)
	}
	page, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	contentType := strings.ToLower(page.ContentType)
	var doc *domain.Document
	switch {
	case contentType == "" || strings.Contains(contentType, "html"):
		doc, err = ParseHTML(page.Body)
	case strings.HasPrefix(contentType, "text/"):
		doc = &domain.Document{Elements: paragraphs(string(page.Body))}
	default:
		return nil, fmt.Errorf("%w: %s (%s)", domain.ErrUnsupportedType, url, page.ContentType)
	}
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", url, err)
	}

	doc.Origin = url
	doc.Kind = domain.FileTypeWebpage
	return doc, nil
}

package convert

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"ragdesk/internal/domain"
)

// readPDF extracts plain text page by page. Pages without a text layer are
// skipped.
func readPDF(path string) (*domain.Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc := &domain.Document{}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		for _, el := range paragraphs(text) {
			el.Page = i
			doc.Elements = append(doc.Elements, el)
		}
	}

	if title, ok := pdfTitle(reader); ok {
		doc.Title = title
	}
	return doc, nil
}

func pdfTitle(reader *pdf.Reader) (string, bool) {
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return "", false
	}
	title := strings.TrimSpace(info.Key("Title").Text())
	return title, title != ""
}

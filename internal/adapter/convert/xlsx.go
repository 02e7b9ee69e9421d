package convert

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"ragdesk/internal/domain"
)

// readXLSX reads the first worksheet. Row 1 is the header.
func readXLSX(path string) (*domain.Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &domain.Document{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("sheet %s: %w", sheets[0], err)
	}

	var records [][]string
	for _, row := range rows {
		if !blankRow(row) {
			records = append(records, row)
		}
	}
	doc := tableDocument(records)
	doc.Title = sheets[0]
	return doc, nil
}

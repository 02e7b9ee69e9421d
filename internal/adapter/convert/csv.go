package convert

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"ragdesk/internal/domain"
)

func readCSV(path string) (*domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if blankRow(record) {
			continue
		}
		records = append(records, record)
	}
	return tableDocument(records), nil
}

// tableDocument treats the first record as the header.
func tableDocument(records [][]string) *domain.Document {
	if len(records) == 0 {
		return &domain.Document{}
	}
	return &domain.Document{
		Table: &domain.Table{
			Header: records[0],
			Rows:   records[1:],
		},
	}
}

func blankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

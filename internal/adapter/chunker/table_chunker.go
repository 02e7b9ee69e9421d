package chunker

import (
	"strings"

	"ragdesk/internal/domain"
)

// DefaultMaxTableChunks bounds the rows taken from a spreadsheet. The header
// counts against it, so at most DefaultMaxTableChunks-1 rows are emitted.
const DefaultMaxTableChunks = 100

// TableRowChunker emits one chunk per table row, each prefixed with the
// header line, because token windows cut rows apart.
type TableRowChunker struct {
	maxChunks int
}

func NewTableRowChunker(maxChunks int) *TableRowChunker {
	if maxChunks <= 1 {
		maxChunks = DefaultMaxTableChunks
	}
	return &TableRowChunker{maxChunks: maxChunks}
}

func (c *TableRowChunker) Chunk(doc *domain.Document) ([]domain.Chunk, error) {
	exported := doc.ExportMarkdown()
	if strings.TrimSpace(exported) == "" {
		return nil, domain.ErrEmptyDocument
	}

	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(exported), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "|") && !strings.Contains(line, "---") {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return nil, nil
	}

	header := lines[0]
	end := len(lines)
	if end > c.maxChunks {
		end = c.maxChunks
	}

	chunks := make([]domain.Chunk, 0, end-1)
	for _, line := range lines[1:end] {
		chunks = append(chunks, domain.Chunk{
			Text:     header + "\n" + line,
			Filename: doc.Origin,
		})
	}
	return chunks, nil
}

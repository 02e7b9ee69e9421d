package domain

import (
	"strings"
	"time"
)

// FileType is the file_type value recorded in chunk metadata.
type FileType string

const (
	FileTypePDF      FileType = "pdf"
	FileTypeDOCX     FileType = "docx"
	FileTypeExcel    FileType = "excel"
	FileTypeCSV      FileType = "csv"
	FileTypeWebpage  FileType = "webpage"
	FileTypeMarkdown FileType = "markdown"
	FileTypeText     FileType = "text"
	FileTypeHTML     FileType = "html"
)

// Tabular reports whether documents of this type are chunked one row at a time.
func (t FileType) Tabular() bool {
	return t == FileTypeExcel || t == FileTypeCSV
}

type ElementKind string

const (
	ElementHeading   ElementKind = "heading"
	ElementParagraph ElementKind = "paragraph"
	ElementList      ElementKind = "list"
	ElementCode      ElementKind = "code"
	ElementTable     ElementKind = "table"
)

// Element is one block of converted content.
type Element struct {
	Kind  ElementKind
	Text  string
	Level int // heading level, 0 for non-headings
	Page  int // 1-based page number, 0 when the source has no pages
}

// Table holds tabular content of a spreadsheet document.
type Table struct {
	Header []string
	Rows   [][]string
}

// Document is the normalized form of a source file or web page. It lives for
// the duration of one ingestion call.
type Document struct {
	Origin   string // basename for files, URL for web pages
	Title    string
	Kind     FileType
	Elements []Element
	Table    *Table
}

// Empty reports whether the document carries no content at all.
func (d *Document) Empty() bool {
	if d == nil {
		return true
	}
	if d.Table != nil && (len(d.Table.Header) > 0 || len(d.Table.Rows) > 0) {
		return false
	}
	for _, el := range d.Elements {
		if strings.TrimSpace(el.Text) != "" {
			return false
		}
	}
	return true
}

// ExportMarkdown renders the document as markdown. Tables render as a single
// pipe table with a divider line after the header.
func (d *Document) ExportMarkdown() string {
	if d == nil {
		return ""
	}
	var sb strings.Builder
	if d.Table != nil {
		writeMarkdownTable(&sb, d.Table)
	}
	for _, el := range d.Elements {
		text := strings.TrimSpace(el.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		switch el.Kind {
		case ElementHeading:
			level := el.Level
			if level <= 0 {
				level = 1
			}
			sb.WriteString(strings.Repeat("#", level))
			sb.WriteString(" ")
			sb.WriteString(text)
		case ElementCode:
			sb.WriteString("```\n")
			sb.WriteString(text)
			sb.WriteString("\n```")
		default:
			sb.WriteString(text)
		}
	}
	return sb.String()
}

func writeMarkdownTable(sb *strings.Builder, t *Table) {
	width := len(t.Header)
	for _, row := range t.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return
	}
	writeRow := func(cells []string) {
		sb.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(cells) {
				cell = escapeCell(cells[i])
			}
			sb.WriteString(" ")
			sb.WriteString(cell)
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}
	writeRow(t.Header)
	sb.WriteString("|")
	for i := 0; i < width; i++ {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")
	for _, row := range t.Rows {
		writeRow(row)
	}
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.TrimSpace(s)
}

// Chunk is the canonical unit handed from the chunkers to the table writer.
type Chunk struct {
	Text     string
	Filename string
	Pages    []int
	Headings []string
}

// UploadDateLayout matches the ISO-8601 form used for upload_date.
const UploadDateLayout = "2006-01-02T15:04:05.000000"

// ChunkMetadata is attached 1:1 to every stored chunk.
type ChunkMetadata struct {
	Filename    string `json:"filename"`
	ProjectID   string `json:"project_id"`
	FileType    string `json:"file_type"`
	Description string `json:"description"`
	UploadDate  string `json:"upload_date"`
}

// ChunkRecord is one persisted row of a table.
type ChunkRecord struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Vector   []float32     `json:"vector"`
	Metadata ChunkMetadata `json:"metadata"`
}

// TableSchema is fixed when a table is created and never migrated.
type TableSchema struct {
	Dimension      int       `json:"dimension"`
	EmbeddingModel string    `json:"embedding_model"`
	CreatedAt      time.Time `json:"created_at"`
}

// SearchHit is a record returned by a similarity search. Higher scores are
// closer matches.
type SearchHit struct {
	Record ChunkRecord
	Score  float64
}

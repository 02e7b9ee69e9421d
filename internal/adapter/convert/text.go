package convert

import (
	"os"
	"strings"

	"ragdesk/internal/domain"
)

func readText(path string) (*domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &domain.Document{Elements: paragraphs(string(data))}, nil
}

// paragraphs splits plain text on blank lines.
func paragraphs(text string) []domain.Element {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var elements []domain.Element
	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		elements = append(elements, domain.Element{
			Kind: domain.ElementParagraph,
			Text: strings.Join(current, "\n"),
		})
		current = current[:0]
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, strings.TrimRight(line, " \t"))
	}
	flush()
	return elements
}

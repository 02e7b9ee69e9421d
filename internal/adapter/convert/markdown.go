package convert

import (
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"ragdesk/internal/domain"
)

func readMarkdown(path string) (*domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMarkdown(data), nil
}

// ParseMarkdown maps the top-level blocks of a markdown source to elements.
func ParseMarkdown(src []byte) *domain.Document {
	root := goldmark.New().Parser().Parse(text.NewReader(src))
	doc := &domain.Document{}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := inlineText(node, src)
			if node.Level == 1 && doc.Title == "" {
				doc.Title = title
			}
			doc.Elements = append(doc.Elements, domain.Element{
				Kind:  domain.ElementHeading,
				Text:  title,
				Level: node.Level,
			})
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			doc.Elements = append(doc.Elements, domain.Element{
				Kind: domain.ElementCode,
				Text: blockLines(node, src),
			})
		case *ast.List:
			var items []string
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				if t := inlineText(item, src); t != "" {
					items = append(items, "- "+t)
				}
			}
			doc.Elements = append(doc.Elements, domain.Element{
				Kind: domain.ElementList,
				Text: strings.Join(items, "\n"),
			})
		case *ast.ThematicBreak:
		case *ast.HTMLBlock:
			doc.Elements = append(doc.Elements, domain.Element{
				Kind: domain.ElementParagraph,
				Text: blockLines(node, src),
			})
		default:
			doc.Elements = append(doc.Elements, domain.Element{
				Kind: domain.ElementParagraph,
				Text: inlineText(node, src),
			})
		}
	}
	return doc
}

func inlineText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		case *ast.AutoLink:
			sb.Write(t.Label(src))
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock:
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}

func blockLines(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return strings.TrimRight(sb.String(), "\n")
}
